//  core.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

// Package core turns the embedded stack's raw packet processing into TCP/UDP
// socket semantics: virtual interfaces inject and extract IP packets, stack
// sockets expose bind/connect/send with OS-faithful error codes, and the
// event pump keeps the stack's internal clock moving while anything is
// alive.
//
// Everything here is single-threaded and callback-driven. Stack callbacks
// run synchronously inside the driver's dispatch and may destroy the socket
// or interface that triggered them, so methods that can fire a callback
// treat their receiver as potentially gone afterwards.
package core

import (
	"net/netip"
	"time"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/core/option"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/memory"
)

// Result is the generic cross-layer outcome code used at the memory and
// interface boundaries. Socket operations report option.Errno instead.
type Result uint8

const (
	// OK means success.
	OK Result = iota
	// ResExhausted means memory or queue space ran out.
	ResExhausted
	// ResInvalidParam means a malformed argument.
	ResInvalidParam
	// ResNotConnected means the object has no live peer or stack state.
	ResNotConnected
	// ResTimeout means the operation aged out.
	ResTimeout
	// ResClosed means the object has been stopped or released.
	ResClosed
	// ResBadState means the operation is illegal in the current state.
	ResBadState
)

var resultNames = []string{
	"OK", "EXHAUSTED", "INVALID_PARAM", "NOT_CONNECTED",
	"TIMEOUT", "CLOSED", "BAD_STATE",
}

func (r Result) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return "UNKNOWN"
}

// Scheduler is the event loop surface this layer depends on. The loop itself
// lives outside the toolkit core; only these two capabilities are consumed.
type Scheduler interface {
	// Defer queues f to run at the end of the current processing cycle,
	// after the call stack that queued it has fully unwound.
	Defer(f func())
	// After runs f once d has elapsed. The returned cancel func stops a
	// pending run; calling it after f ran is harmless.
	After(d time.Duration, f func()) (cancel func())
}

// SocketOwner receives socket events. Callbacks run synchronously from the
// driver's dispatch; an owner may close or destroy the socket from inside
// any of them.
type SocketOwner interface {
	// DataReceived hands inbound bytes to the owner. The iterator is
	// owned by the callee and must be released.
	DataReceived(it *ChunkIterator)
	// Connected reports a completed connection attempt.
	Connected()
	// Disconnected reports the connection is gone, with the errno-like
	// reason (option.Ok for an orderly remote close).
	Disconnected(reason option.Errno)
	// SendBufferIncreased reports newly available send buffer space,
	// with the current maximum write size.
	SendBufferIncreased(newMax int)
}

// DatagramOwner is an optional extension a UDP socket owner can implement to
// learn the datagram source address; plain SocketOwner delivery is used
// otherwise.
type DatagramOwner interface {
	DatagramReceived(it *ChunkIterator, from netip.AddrPort)
}

// InterfaceOwner receives virtual interface events.
type InterfaceOwner interface {
	// EgressPacket hands the owner an outbound IP packet leaving the
	// stack. Ownership of the handle passes to the callee. The callback
	// may stop or destroy the interface; the interface touches none of
	// its own state after invoking it.
	EgressPacket(pkt memory.Handle)
}
