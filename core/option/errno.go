//  errno.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Errno-equivalent codes reported at the socket boundary, with per-platform
//  numeric values and the fixed translation from stack errors. The two OS
//  targets disagree on a handful of mappings; both tables are kept verbatim
//  rather than collapsed, because callers depend on OS-faithful numbers.

// Package option translates POSIX-style socket options and error codes to
// and from the embedded stack's native controls.
package option

import (
	"runtime"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/estack"
)

// Platform selects which OS error-number table the socket layer reports.
type Platform uint8

const (
	// PlatformLinux covers the Linux/Android targets.
	PlatformLinux Platform = iota
	// PlatformDarwin covers the macOS/iOS targets.
	PlatformDarwin
)

// DefaultPlatform picks the table matching the build target.
func DefaultPlatform() Platform {
	switch runtime.GOOS {
	case "darwin", "ios":
		return PlatformDarwin
	}
	return PlatformLinux
}

// Errno is a symbolic errno-equivalent. The zero value means success; use
// Number to obtain the platform's numeric value.
type Errno uint8

const (
	// Ok is success.
	Ok Errno = iota
	// EPERM - operation not permitted.
	EPERM
	// EIO - low-level I/O error.
	EIO
	// EBADF - operation on a released socket.
	EBADF
	// EAGAIN - operation would block.
	EAGAIN
	// ENOMEM - out of memory.
	ENOMEM
	// EFAULT - bad buffer.
	EFAULT
	// EINVAL - invalid argument (including wrong-sized option payloads).
	EINVAL
	// EMSGSIZE - message too long.
	EMSGSIZE
	// ENOPROTOOPT - unknown (level, name) option pair.
	ENOPROTOOPT
	// EAFNOSUPPORT - address family not supported by this socket.
	EAFNOSUPPORT
	// EADDRINUSE - local address already in use.
	EADDRINUSE
	// EADDRNOTAVAIL - requested address not available locally.
	EADDRNOTAVAIL
	// ENETUNREACH - no route to the network.
	ENETUNREACH
	// ECONNABORTED - connection aborted locally.
	ECONNABORTED
	// ECONNRESET - connection reset by peer.
	ECONNRESET
	// ENOBUFS - no buffer space available.
	ENOBUFS
	// EISCONN - socket is already connected.
	EISCONN
	// ENOTCONN - socket is not connected.
	ENOTCONN
	// ETIMEDOUT - operation timed out.
	ETIMEDOUT
	// EHOSTUNREACH - no route to host.
	EHOSTUNREACH
	// EALREADY - connection attempt already in progress.
	EALREADY
	// EINPROGRESS - operation started; completion arrives via callback.
	EINPROGRESS
	// ERANGE - option value out of its legal range.
	ERANGE

	errnoCount
)

var errnoNames = [errnoCount]string{
	Ok:            "OK",
	EPERM:         "EPERM",
	EIO:           "EIO",
	EBADF:         "EBADF",
	EAGAIN:        "EAGAIN",
	ENOMEM:        "ENOMEM",
	EFAULT:        "EFAULT",
	EINVAL:        "EINVAL",
	EMSGSIZE:      "EMSGSIZE",
	ENOPROTOOPT:   "ENOPROTOOPT",
	EAFNOSUPPORT:  "EAFNOSUPPORT",
	EADDRINUSE:    "EADDRINUSE",
	EADDRNOTAVAIL: "EADDRNOTAVAIL",
	ENETUNREACH:   "ENETUNREACH",
	ECONNABORTED:  "ECONNABORTED",
	ECONNRESET:    "ECONNRESET",
	ENOBUFS:       "ENOBUFS",
	EISCONN:       "EISCONN",
	ENOTCONN:      "ENOTCONN",
	ETIMEDOUT:     "ETIMEDOUT",
	EHOSTUNREACH:  "EHOSTUNREACH",
	EALREADY:      "EALREADY",
	EINPROGRESS:   "EINPROGRESS",
	ERANGE:        "ERANGE",
}

func (e Errno) String() string {
	if int(e) < len(errnoNames) {
		return errnoNames[e]
	}
	return "E?"
}

// linuxNumbers and darwinNumbers are the OS numeric values for each symbolic
// code. They mostly agree; EAGAIN and friends do not.
var linuxNumbers = [errnoCount]int{
	EPERM: 1, EIO: 5, EBADF: 9, EAGAIN: 11, ENOMEM: 12, EFAULT: 14,
	EINVAL: 22, EMSGSIZE: 90, ENOPROTOOPT: 92, EAFNOSUPPORT: 97,
	EADDRINUSE: 98, EADDRNOTAVAIL: 99, ENETUNREACH: 101,
	ECONNABORTED: 103, ECONNRESET: 104, ENOBUFS: 105, EISCONN: 106,
	ENOTCONN: 107, ETIMEDOUT: 110, EHOSTUNREACH: 113, EALREADY: 114,
	EINPROGRESS: 115, ERANGE: 34,
}

var darwinNumbers = [errnoCount]int{
	EPERM: 1, EIO: 5, EBADF: 9, EAGAIN: 35, ENOMEM: 12, EFAULT: 14,
	EINVAL: 22, EMSGSIZE: 40, ENOPROTOOPT: 42, EAFNOSUPPORT: 47,
	EADDRINUSE: 48, EADDRNOTAVAIL: 49, ENETUNREACH: 51,
	ECONNABORTED: 53, ECONNRESET: 54, ENOBUFS: 55, EISCONN: 56,
	ENOTCONN: 57, ETIMEDOUT: 60, EHOSTUNREACH: 65, EALREADY: 37,
	EINPROGRESS: 36, ERANGE: 34,
}

// Number returns the platform's numeric errno value, 0 for Ok.
func (e Errno) Number(p Platform) int {
	if int(e) >= int(errnoCount) {
		return linuxNumbers[EINVAL]
	}
	if p == PlatformDarwin {
		return darwinNumbers[e]
	}
	return linuxNumbers[e]
}

// stackTables maps embedded-stack errors to errno-equivalents, one table per
// platform. The timeout/would-block rows differ between the targets; both
// variants survive here as data.
var stackTables = [2]map[estack.Error]Errno{
	PlatformLinux: {
		estack.ErrOK:         Ok,
		estack.ErrMem:        ENOMEM,
		estack.ErrBuf:        EMSGSIZE,
		estack.ErrTimeout:    ETIMEDOUT,
		estack.ErrRoute:      EHOSTUNREACH,
		estack.ErrInProgress: EINPROGRESS,
		estack.ErrVal:        EINVAL,
		estack.ErrWouldBlock: EAGAIN,
		estack.ErrUse:        EADDRINUSE,
		estack.ErrAlready:    EALREADY,
		estack.ErrIsConn:     EISCONN,
		estack.ErrConn:       ENOTCONN,
		estack.ErrIf:         EIO,
		estack.ErrAbort:      ECONNABORTED,
		estack.ErrReset:      ECONNRESET,
		estack.ErrClosed:     EBADF,
		estack.ErrArg:        EINVAL,
	},
	PlatformDarwin: {
		estack.ErrOK:         Ok,
		estack.ErrMem:        ENOBUFS,
		estack.ErrBuf:        EMSGSIZE,
		estack.ErrTimeout:    ETIMEDOUT,
		estack.ErrRoute:      ENETUNREACH,
		estack.ErrInProgress: EINPROGRESS,
		estack.ErrVal:        EINVAL,
		estack.ErrWouldBlock: EAGAIN,
		estack.ErrUse:        EADDRINUSE,
		estack.ErrAlready:    EALREADY,
		estack.ErrIsConn:     EISCONN,
		estack.ErrConn:       ENOTCONN,
		estack.ErrIf:         EIO,
		estack.ErrAbort:      ECONNABORTED,
		estack.ErrReset:      ECONNRESET,
		estack.ErrClosed:     EBADF,
		estack.ErrArg:        EINVAL,
	},
}

// FromStack translates a stack error through the platform's fixed table.
func FromStack(e estack.Error, p Platform) Errno {
	t := stackTables[PlatformLinux]
	if p == PlatformDarwin {
		t = stackTables[PlatformDarwin]
	}
	if errno, ok := t[e]; ok {
		return errno
	}
	return EIO
}
