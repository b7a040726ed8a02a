//  socket.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Shared stack socket state: flags, address-family bookkeeping and the
//  option surface pieces common to both transports.

package core

import (
	"net/netip"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/core/option"
)

// defaultRecvBufSize is what SO_RCVBUF reports; receive buffering actually
// lives inside the stack.
const defaultRecvBufSize = 128 << 10

// StackSocket carries the state shared by TCPSocket and UDPSocket. It is not
// used on its own.
type StackSocket struct {
	pump     *EventPump
	owner    SocketOwner
	platform option.Platform

	sockType   option.SocketType
	constraint option.FamilyConstraint

	bound        bool
	connecting   bool
	connected    bool
	disconnected bool
	released     bool

	localAddr  netip.AddrPort
	remoteAddr netip.AddrPort

	// famV4 tags the socket's current address family once an address has
	// touched it. While bound to the any-address the tag may still flip
	// to follow a later bind/connect target; once bound to a specific
	// address it is fixed.
	famV4  bool
	famSet bool

	lastError option.Errno

	keepAlive bool
	noDelay   bool
	sndBuf    int
}

func (s *StackSocket) initSocket(pump *EventPump, owner SocketOwner,
	platform option.Platform, st option.SocketType, c option.FamilyConstraint, sndBuf int) {

	s.pump = pump
	s.owner = owner
	s.platform = platform
	s.sockType = st
	s.constraint = c
	s.sndBuf = sndBuf
}

// Platform returns which OS error table the socket reports through.
func (s *StackSocket) Platform() option.Platform {
	return s.platform
}

// Bound reports whether the socket has a local address.
func (s *StackSocket) Bound() bool { return s.bound }

// Connected reports whether the socket has a live peer.
func (s *StackSocket) Connected() bool { return s.connected }

// Connecting reports whether a connection attempt is in flight.
func (s *StackSocket) Connecting() bool { return s.connecting }

// GetLocalAddr returns the bound local address, zero when unbound or
// released.
func (s *StackSocket) GetLocalAddr() netip.AddrPort {
	if s.released {
		return netip.AddrPort{}
	}
	return s.localAddr
}

// GetRemoteAddr returns the peer address, zero unless connected.
func (s *StackSocket) GetRemoteAddr() netip.AddrPort {
	if s.released {
		return netip.AddrPort{}
	}
	return s.remoteAddr
}

// prepareForAddress validates target against the socket's family constraint
// and current binding, per the platform's acceptance table. On success the
// (possibly unmapped) address is returned and the socket's family tag
// follows the target; on rejection socket state is untouched.
func (s *StackSocket) prepareForAddress(target netip.Addr) (netip.Addr, option.Errno) {
	if !target.IsValid() {
		return target, option.EINVAL
	}
	tf := option.ClassifyTarget(target)
	if errno := option.FamilyCheck(s.platform, s.sockType, s.constraint, tf); errno != option.Ok {
		return target, errno
	}
	if target.Is4In6() {
		target = target.Unmap()
	}
	targetV4 := target.Is4()
	if s.famSet && s.famV4 != targetV4 {
		if s.bound && !s.localAddr.Addr().IsUnspecified() {
			// Bound to a specific address of the other family.
			return target, option.EINVAL
		}
	}
	s.famV4 = targetV4
	s.famSet = true
	return target, option.Ok
}

func (s *StackSocket) setLastError(e option.Errno) {
	s.lastError = e
}

// Option surface pieces shared by both transports (option.Socket).

// RecvBufSize reports the stack's receive budget.
func (s *StackSocket) RecvBufSize() int { return defaultRecvBufSize }

// SendBufSize reports the send buffer budget.
func (s *StackSocket) SendBufSize() int { return s.sndBuf }

// SetSendBufSize adjusts the send buffer budget.
func (s *StackSocket) SetSendBufSize(n int) bool {
	if n <= 0 {
		return false
	}
	s.sndBuf = n
	return true
}

// V6Only reports the v6-only constraint flag.
func (s *StackSocket) V6Only() bool {
	return s.constraint == option.ConstraintV6Only
}

// SetV6Only toggles the v6-only constraint. Only a v6-capable, not yet bound
// socket may change it.
func (s *StackSocket) SetV6Only(on bool) bool {
	if s.constraint == option.ConstraintV4Only || s.bound {
		return false
	}
	if on {
		s.constraint = option.ConstraintV6Only
	} else {
		s.constraint = option.ConstraintNone
	}
	return true
}

// NoDelay reports the TCP_NODELAY flag.
func (s *StackSocket) NoDelay() bool { return s.noDelay }

// SetNoDelay stores the TCP_NODELAY flag; the stack transmits eagerly either
// way.
func (s *StackSocket) SetNoDelay(on bool) { s.noDelay = on }

// KeepAlive reports the SO_KEEPALIVE flag.
func (s *StackSocket) KeepAlive() bool { return s.keepAlive }

// SetKeepAlive stores the SO_KEEPALIVE flag.
func (s *StackSocket) SetKeepAlive(on bool) { s.keepAlive = on }

// TTL reports the fixed outbound TTL.
func (s *StackSocket) TTL() int { return 64 }

// TakeLastError returns and clears the pending SO_ERROR value.
func (s *StackSocket) TakeLastError() option.Errno {
	e := s.lastError
	s.lastError = option.Ok
	return e
}

// getOption/setOption funnel the concrete socket through the option table.
func (s *StackSocket) getOption(self option.Socket, level, name int, out []byte) option.Errno {
	if s.released {
		return option.EBADF
	}
	return option.Get(self, s.platform, level, name, out)
}

func (s *StackSocket) setOption(self option.Socket, level, name int, in []byte) option.Errno {
	if s.released {
		return option.EBADF
	}
	return option.Set(self, s.platform, level, name, in)
}
