//  input.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Inbound packet demultiplexing. Packets arrive as chunk chains; headers
//  are parsed in place, the payload sub-chain is handed to the matching
//  control block without copying, and the header chunks are released.

package estack

import (
	"net/netip"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/log"
)

func netAddr(a tcpip.Address) netip.Addr {
	addr, ok := netip.AddrFromSlice(a.AsSlice())
	if !ok {
		return netip.Addr{}
	}
	return addr.Unmap()
}

// Input feeds one inbound IP packet into the stack. Ownership of the chain
// passes in; it is fully released before Input returns except for payload
// references handed to a control block. Delivery callbacks run synchronously
// and may emit packets of their own through interface outputs.
func (s *Stack) Input(ch *Chunk, nif *Netif) Error {
	if ch == nil {
		return ErrArg
	}
	if nif == nil || !nif.up {
		ch.Free()
		return ErrIf
	}

	// Headers are normally contiguous in the first chunk; when they are
	// not, flatten the packet once and retry.
	b := ch.Bytes()
	if len(b) < ch.TotalLen() && len(b) < 128 {
		flat := NewChunk(ch.TotalLen())
		if flat == nil {
			ch.Free()
			return ErrMem
		}
		ch.CopyOut(flat.payload)
		ch.Free()
		ch = flat
		b = ch.Bytes()
	}

	var (
		src, dst netip.Addr
		proto    uint8
		ipLen    int
	)
	switch header.IPVersion(b) {
	case header.IPv4Version:
		if len(b) < header.IPv4MinimumSize {
			ch.Free()
			return ErrBuf
		}
		ip := header.IPv4(b)
		if ip.More() || ip.FragmentOffset() != 0 {
			// No reassembly here; fragments are dropped.
			ch.Free()
			return ErrOK
		}
		ipLen = int(ip.HeaderLength())
		if ipLen < header.IPv4MinimumSize || len(b) < ipLen {
			ch.Free()
			return ErrBuf
		}
		proto = ip.Protocol()
		src = netAddr(ip.SourceAddress())
		dst = netAddr(ip.DestinationAddress())
	case header.IPv6Version:
		if len(b) < header.IPv6MinimumSize {
			ch.Free()
			return ErrBuf
		}
		ip := header.IPv6(b)
		ipLen = header.IPv6MinimumSize
		proto = uint8(ip.NextHeader())
		src = netAddr(ip.SourceAddress())
		dst = netAddr(ip.DestinationAddress())
	default:
		ch.Free()
		return ErrBuf
	}

	switch tcpip.TransportProtocolNumber(proto) {
	case header.TCPProtocolNumber:
		return s.inputTCP(ch, nif, src, dst, ipLen)
	case header.UDPProtocolNumber:
		return s.inputUDP(ch, src, dst, ipLen)
	}
	ch.Free()
	return ErrOK
}

func (s *Stack) inputTCP(ch *Chunk, nif *Netif, src, dst netip.Addr, ipLen int) Error {
	b := ch.Bytes()
	if len(b) < ipLen+header.TCPMinimumSize {
		ch.Free()
		return ErrBuf
	}
	t := header.TCP(b[ipLen:])
	dataOff := int(t.DataOffset())
	if dataOff < header.TCPMinimumSize || len(b) < ipLen+dataOff {
		ch.Free()
		return ErrBuf
	}

	from := netip.AddrPortFrom(src, t.SourcePort())
	to := netip.AddrPortFrom(dst, t.DestinationPort())

	conn := s.findTCP(from, to)
	if conn == nil {
		// Nobody home: answer with a reset, synchronously, on the same
		// interface the segment came in on.
		s.tcpReset(nif, t, from, to, ch.TotalLen()-ipLen-dataOff)
		ch.Free()
		return ErrOK
	}

	payload := splitPayload(ch, ipLen+dataOff)
	hdr := header.TCP(append([]byte(nil), b[ipLen:ipLen+dataOff]...))
	ch.Free()
	conn.handleSegment(hdr, payload)
	return ErrOK
}

func (s *Stack) findTCP(from, to netip.AddrPort) *TCPConn {
	// Fully matched connections win over bound-only ones.
	for _, c := range s.tcp {
		if c.local.Port() == to.Port() && c.remote.Port() == from.Port() &&
			c.remote.Addr().Unmap() == from.Addr() &&
			(c.state == tcpConnecting || c.state == tcpEstablished || c.state == tcpClosing) {
			return c
		}
	}
	for _, c := range s.tcp {
		if c.state == tcpBound && c.local.Port() == to.Port() {
			return c
		}
	}
	return nil
}

// tcpReset answers an unmatched segment. This is the classic synchronous
// re-entry source: output runs before the inbound packet is even released.
func (s *Stack) tcpReset(nif *Netif, t header.TCP, from, to netip.AddrPort, payloadLen int) {
	ackAdj := uint32(payloadLen)
	if t.Flags()&header.TCPFlagSyn != 0 {
		ackAdj++
	}
	rst := tcpSegment(to, from, t.AckNumber(), t.SequenceNumber()+ackAdj,
		header.TCPFlagRst|header.TCPFlagAck, 0, nil)
	if rst == nil {
		return
	}
	if err := nif.output(nif, rst); err != ErrOK {
		log.Debugf("estack: reset emission failed: %v", err)
	}
	rst.Free()
}

func (s *Stack) inputUDP(ch *Chunk, src, dst netip.Addr, ipLen int) Error {
	b := ch.Bytes()
	if len(b) < ipLen+header.UDPMinimumSize {
		ch.Free()
		return ErrBuf
	}
	u := header.UDP(b[ipLen:])
	from := netip.AddrPortFrom(src, u.SourcePort())

	var conn *UDPConn
	for _, c := range s.udp {
		if !c.bound || c.local.Port() != u.DestinationPort() {
			continue
		}
		la := c.local.Addr()
		if la.IsValid() && !la.IsUnspecified() && la.Unmap() != dst {
			continue
		}
		conn = c
		break
	}
	if conn == nil {
		ch.Free()
		return ErrOK
	}

	payload := splitPayload(ch, ipLen+header.UDPMinimumSize)
	ch.Free()
	conn.handleDatagram(payload, from)
	return ErrOK
}

// splitPayload carves the sub-chain starting at byte offset off out of chain,
// returning it with its own reference. The shared boundary chunk keeps the
// caller's chain walkable until the caller frees it. Returns nil when off is
// at or past the end.
func splitPayload(chain *Chunk, off int) *Chunk {
	if off >= chain.TotalLen() {
		return nil
	}
	cur := chain
	for cur != nil && off >= cur.Len() {
		off -= cur.Len()
		cur = cur.next
	}
	if cur == nil {
		return nil
	}
	cur.Ref()
	cur.TrimFront(off)
	return cur
}
