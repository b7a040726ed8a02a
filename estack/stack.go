//  stack.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  The stack context: interface registry, connection tables and routing.

// Package estack is the embedded IP stack the socket layer drives. It is a
// deliberately small userspace TCP/IP core: packets enter through
// Stack.Input as chunk chains, protocol control blocks deliver events
// through per-connection callbacks, and outbound packets leave through the
// owning interface's output hook. Everything runs on the caller's goroutine;
// the stack has no threads and no locks.
package estack

import (
	"net/netip"
)

// NetifOutput emits one outbound packet chain on an interface. The chain is
// borrowed for the duration of the call; the stack releases it afterwards.
type NetifOutput func(nif *Netif, ch *Chunk) Error

// Netif is one network interface registered with the stack.
type Netif struct {
	name string
	mtu  int

	output NetifOutput

	up    bool
	v4    netip.Addr
	v6    []netip.Addr

	// State is an opaque owner pointer, never touched by the stack.
	State any

	stack *Stack
}

// NewNetif builds an interface that emits packets through output.
func NewNetif(name string, mtu int, output NetifOutput) *Netif {
	if mtu <= 0 {
		mtu = 1500
	}
	return &Netif{name: name, mtu: mtu, output: output}
}

// Name returns the interface name.
func (n *Netif) Name() string { return n.name }

// MTU returns the interface MTU.
func (n *Netif) MTU() int { return n.mtu }

// Up reports the administrative state.
func (n *Netif) Up() bool { return n.up }

// SetUp sets the administrative state.
func (n *Netif) SetUp(up bool) { n.up = up }

// IPv4 returns the interface's IPv4 address, possibly the zero Addr.
func (n *Netif) IPv4() netip.Addr { return n.v4 }

// SetIPv4 assigns the interface's IPv4 address; the zero Addr clears it.
func (n *Netif) SetIPv4(a netip.Addr) { n.v4 = a }

// IPv6 returns the interface's IPv6 addresses.
func (n *Netif) IPv6() []netip.Addr { return n.v6 }

// SetIPv6 replaces the interface's IPv6 address list.
func (n *Netif) SetIPv6(addrs []netip.Addr) { n.v6 = addrs }

// HasAddress reports whether any address is assigned.
func (n *Netif) HasAddress() bool {
	return n.v4.IsValid() || len(n.v6) > 0
}

// addrForFamily picks a source address of the wanted family, zero when the
// interface has none.
func (n *Netif) addrForFamily(v4 bool) netip.Addr {
	if v4 {
		return n.v4
	}
	if len(n.v6) > 0 {
		return n.v6[0]
	}
	return netip.Addr{}
}

// Stack is one embedded stack context. It owns the interface list, the
// default route, the TCP and UDP connection tables and the timer core.
type Stack struct {
	netifs []*Netif
	def    *Netif

	tcp []*TCPConn
	udp []*UDPConn

	nextPort uint16
}

// New builds an empty stack context.
func New() *Stack {
	return &Stack{nextPort: 49152}
}

// AddNetif registers nif. The first registered interface becomes the default
// route if none is set.
func (s *Stack) AddNetif(nif *Netif) {
	if nif == nil || nif.stack == s {
		return
	}
	nif.stack = s
	s.netifs = append(s.netifs, nif)
	if s.def == nil {
		s.def = nif
	}
}

// RemoveNetif unregisters nif. If it was the default route, another
// registered interface (if any) takes over.
func (s *Stack) RemoveNetif(nif *Netif) {
	for i, cur := range s.netifs {
		if cur != nif {
			continue
		}
		s.netifs = append(s.netifs[:i], s.netifs[i+1:]...)
		nif.stack = nil
		break
	}
	if s.def == nif {
		s.def = nil
		if len(s.netifs) > 0 {
			s.def = s.netifs[0]
		}
	}
}

// SetDefaultNetif pins the default route to nif.
func (s *Stack) SetDefaultNetif(nif *Netif) {
	s.def = nif
}

// DefaultNetif returns the current default route, nil when none.
func (s *Stack) DefaultNetif() *Netif {
	return s.def
}

// route picks the interface carrying traffic to dst.
func (s *Stack) route(dst netip.Addr) *Netif {
	if s.def != nil && s.def.up {
		return s.def
	}
	for _, nif := range s.netifs {
		if nif.up {
			return nif
		}
	}
	return nil
}

// ephemeralPort hands out a local port for unbound conns.
func (s *Stack) ephemeralPort() uint16 {
	p := s.nextPort
	s.nextPort++
	if s.nextPort == 0 {
		s.nextPort = 49152
	}
	return p
}

// tcpPortInUse reports whether a TCP conn is already bound to port.
func (s *Stack) tcpPortInUse(port uint16) bool {
	for _, c := range s.tcp {
		if c.local.Port() == port {
			return true
		}
	}
	return false
}

// udpPortInUse reports whether a UDP conn is already bound to port.
func (s *Stack) udpPortInUse(port uint16) bool {
	for _, c := range s.udp {
		if c.local.Port() == port {
			return true
		}
	}
	return false
}

func (s *Stack) removeTCP(conn *TCPConn) {
	for i, c := range s.tcp {
		if c == conn {
			s.tcp = append(s.tcp[:i], s.tcp[i+1:]...)
			return
		}
	}
}

func (s *Stack) removeUDP(conn *UDPConn) {
	for i, c := range s.udp {
		if c == conn {
			s.udp = append(s.udp[:i], s.udp[i+1:]...)
			return
		}
	}
}
