//  udp.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

package estack

import "net/netip"

// UDPConn is one UDP protocol control block.
type UDPConn struct {
	stack *Stack

	local  netip.AddrPort
	remote netip.AddrPort
	bound  bool
	closed bool

	// OnRecv receives inbound datagrams; ownership of the chunk passes to
	// the callback.
	OnRecv func(payload *Chunk, src netip.AddrPort)
}

// NewUDP allocates a UDP control block on the stack.
func (s *Stack) NewUDP() *UDPConn {
	c := &UDPConn{stack: s}
	s.udp = append(s.udp, c)
	return c
}

// LocalAddr returns the bound local address.
func (c *UDPConn) LocalAddr() netip.AddrPort { return c.local }

// RemoteAddr returns the connected remote address, zero when unconnected.
func (c *UDPConn) RemoteAddr() netip.AddrPort { return c.remote }

// Bind attaches the connection to a local address. A zero port picks an
// ephemeral one.
func (c *UDPConn) Bind(local netip.AddrPort) Error {
	if c.closed {
		return ErrClosed
	}
	port := local.Port()
	if port == 0 {
		port = c.stack.ephemeralPort()
	} else if port != c.local.Port() && c.stack.udpPortInUse(port) {
		return ErrUse
	}
	c.local = netip.AddrPortFrom(local.Addr(), port)
	c.bound = true
	return ErrOK
}

// Connect fixes the default destination; Send then targets it.
func (c *UDPConn) Connect(remote netip.AddrPort) Error {
	if c.closed {
		return ErrClosed
	}
	if !c.bound {
		if err := c.Bind(netip.AddrPort{}); err != ErrOK {
			return err
		}
	}
	c.remote = remote
	return ErrOK
}

// Send transmits payload to the connected remote. Ownership of the chain
// passes in.
func (c *UDPConn) Send(payload *Chunk) Error {
	if !c.remote.IsValid() {
		if payload != nil {
			payload.Free()
		}
		return ErrConn
	}
	return c.SendTo(payload, c.remote)
}

// SendTo transmits payload to dst. Ownership of the chain passes in; it is
// released before SendTo returns regardless of outcome.
func (c *UDPConn) SendTo(payload *Chunk, dst netip.AddrPort) Error {
	if c.closed {
		if payload != nil {
			payload.Free()
		}
		return ErrClosed
	}
	nif := c.stack.route(dst.Addr())
	if nif == nil {
		if payload != nil {
			payload.Free()
		}
		return ErrRoute
	}
	src := c.local
	if !src.Addr().IsValid() || src.Addr().IsUnspecified() {
		a := nif.addrForFamily(dst.Addr().Is4())
		if !a.IsValid() {
			if payload != nil {
				payload.Free()
			}
			return ErrRoute
		}
		port := src.Port()
		if port == 0 {
			port = c.stack.ephemeralPort()
			c.local = netip.AddrPortFrom(c.local.Addr(), port)
		}
		src = netip.AddrPortFrom(a, port)
	}

	// udpDatagram takes ownership of payload.
	pkt := udpDatagram(src, dst, payload)
	if pkt == nil {
		return ErrMem
	}
	err := nif.output(nif, pkt)
	pkt.Free()
	return err
}

// Close releases the control block. The object stays inert afterwards.
func (c *UDPConn) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.stack.removeUDP(c)
}

// handleDatagram delivers one inbound datagram; ownership of payload passes
// in.
func (c *UDPConn) handleDatagram(payload *Chunk, src netip.AddrPort) {
	if c.OnRecv == nil {
		if payload != nil {
			payload.Free()
		}
		return
	}
	c.OnRecv(payload, src)
}
