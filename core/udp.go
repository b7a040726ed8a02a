//  udp.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

package core

import (
	"net/netip"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/core/option"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/estack"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/memory"
)

// UDPSocket is a datagram socket on the embedded stack. Each outbound
// datagram wraps a clone of the caller's handle in a single chunk whose
// release hook drops the clone, so payload bytes are never copied on the way
// down.
type UDPSocket struct {
	StackSocket

	conn *estack.UDPConn
}

// NewUDPSocket creates a datagram socket on the pump's stack. The socket
// holds a pump reference until Close.
func NewUDPSocket(pump *EventPump, owner SocketOwner, platform option.Platform,
	constraint option.FamilyConstraint) *UDPSocket {

	s := &UDPSocket{conn: pump.Stack().NewUDP()}
	s.initSocket(pump, owner, platform, option.SocketUDP, constraint, estack.DefaultSendBufSize)
	pump.ref()

	s.conn.OnRecv = s.recvEvent
	return s
}

// Bind assigns the socket's local address.
func (s *UDPSocket) Bind(local netip.AddrPort) option.Errno {
	if s.released {
		return option.EBADF
	}
	if s.bound {
		return option.EINVAL
	}
	addr, errno := s.prepareForAddress(local.Addr())
	if errno != option.Ok {
		return errno
	}
	if e := s.conn.Bind(netip.AddrPortFrom(addr, local.Port())); e != estack.ErrOK {
		return option.FromStack(e, s.platform)
	}
	s.bound = true
	s.localAddr = s.conn.LocalAddr()
	return option.Ok
}

// Connect fixes the default destination. Completion is immediate; the
// owner's Connected callback is still delivered deferred so it never runs
// under the caller's stack frame.
func (s *UDPSocket) Connect(remote netip.AddrPort) option.Errno {
	if s.released {
		return option.EBADF
	}
	if s.connected {
		return option.EISCONN
	}
	addr, errno := s.prepareForAddress(remote.Addr())
	if errno != option.Ok {
		return errno
	}
	if e := s.conn.Connect(netip.AddrPortFrom(addr, remote.Port())); e != estack.ErrOK {
		return option.FromStack(e, s.platform)
	}
	s.connected = true
	s.bound = true
	s.localAddr = s.conn.LocalAddr()
	s.remoteAddr = s.conn.RemoteAddr()
	s.pump.sched.Defer(func() {
		if !s.released {
			s.owner.Connected()
		}
	})
	return option.Ok
}

// Send transmits one datagram to the connected remote. The caller keeps its
// handle.
func (s *UDPSocket) Send(data memory.Handle) option.Errno {
	if s.released {
		return option.EBADF
	}
	if !s.connected {
		return option.ENOTCONN
	}
	return s.send(data, func(ch *estack.Chunk) estack.Error {
		return s.conn.Send(ch)
	})
}

// SendTo transmits one datagram to dst. The caller keeps its handle.
func (s *UDPSocket) SendTo(data memory.Handle, dst netip.AddrPort) option.Errno {
	if s.released {
		return option.EBADF
	}
	addr, errno := s.prepareForAddress(dst.Addr())
	if errno != option.Ok {
		s.setLastError(errno)
		return errno
	}
	target := netip.AddrPortFrom(addr, dst.Port())
	return s.send(data, func(ch *estack.Chunk) estack.Error {
		return s.conn.SendTo(ch, target)
	})
}

func (s *UDPSocket) send(data memory.Handle, tx func(*estack.Chunk) estack.Error) option.Errno {
	if data.Empty() {
		return option.EINVAL
	}
	cl := data.Clone()
	ch := estack.NewRefChunk(cl.Bytes(), func() { cl.Release() })
	if e := tx(ch); e != estack.ErrOK {
		errno := option.FromStack(e, s.platform)
		s.setLastError(errno)
		return errno
	}
	return option.Ok
}

// Close releases the socket. Idempotent.
func (s *UDPSocket) Close() Result {
	if s.released {
		return OK
	}
	s.conn.OnRecv = nil
	s.conn.Close()
	s.released = true
	s.connected = false
	s.pump.unref()
	return OK
}

// GetOption reads a socket option into out.
func (s *UDPSocket) GetOption(level, name int, out []byte) option.Errno {
	return s.getOption(s, level, name, out)
}

// SetOption writes a socket option from in.
func (s *UDPSocket) SetOption(level, name int, in []byte) option.Errno {
	return s.setOption(s, level, name, in)
}

func (s *UDPSocket) recvEvent(payload *estack.Chunk, src netip.AddrPort) {
	it := NewChunkIterator(payload)
	if d, ok := s.owner.(DatagramOwner); ok {
		d.DatagramReceived(&it, src)
		return
	}
	s.owner.DataReceived(&it)
}
