//  errors.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

package estack

// Error is the stack's internal error value. The socket layer translates
// these one-to-one into errno-equivalents via fixed tables; see core/option.
type Error int8

const (
	// ErrOK means success.
	ErrOK Error = 0
	// ErrMem means the stack ran out of memory or queue space.
	ErrMem Error = -1
	// ErrBuf means a buffer-shape problem (bad chunk chain).
	ErrBuf Error = -2
	// ErrTimeout means an internal timer expired the operation.
	ErrTimeout Error = -3
	// ErrRoute means no interface could carry the packet.
	ErrRoute Error = -4
	// ErrInProgress means the operation continues asynchronously.
	ErrInProgress Error = -5
	// ErrVal means an illegal value was supplied.
	ErrVal Error = -6
	// ErrWouldBlock means the operation would have to block.
	ErrWouldBlock Error = -7
	// ErrUse means the address or port is already in use.
	ErrUse Error = -8
	// ErrAlready means the connection attempt is already running.
	ErrAlready Error = -9
	// ErrIsConn means the connection is already established.
	ErrIsConn Error = -10
	// ErrConn means the connection does not exist or is not established.
	ErrConn Error = -11
	// ErrIf means a low-level interface error.
	ErrIf Error = -12
	// ErrAbort means the connection was aborted locally.
	ErrAbort Error = -13
	// ErrReset means the connection was reset by the peer.
	ErrReset Error = -14
	// ErrClosed means the connection was closed.
	ErrClosed Error = -15
	// ErrArg means an illegal argument was supplied.
	ErrArg Error = -16
)

var errText = map[Error]string{
	ErrOK:         "ok",
	ErrMem:        "out of memory",
	ErrBuf:        "buffer error",
	ErrTimeout:    "timeout",
	ErrRoute:      "no route",
	ErrInProgress: "operation in progress",
	ErrVal:        "illegal value",
	ErrWouldBlock: "operation would block",
	ErrUse:        "address in use",
	ErrAlready:    "already connecting",
	ErrIsConn:     "already connected",
	ErrConn:       "not connected",
	ErrIf:         "interface error",
	ErrAbort:      "connection aborted",
	ErrReset:      "connection reset",
	ErrClosed:     "connection closed",
	ErrArg:        "illegal argument",
}

func (e Error) String() string {
	if s, ok := errText[e]; ok {
		return s
	}
	return "unknown stack error"
}

// Fatal reports whether the error terminates its connection.
func (e Error) Fatal() bool {
	switch e {
	case ErrAbort, ErrReset, ErrClosed:
		return true
	}
	return false
}
