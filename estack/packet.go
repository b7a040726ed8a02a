//  packet.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Outbound packet construction. Headers are written into a fresh RAM chunk;
//  payload chains are attached without copying.

package estack

import (
	"net/netip"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/checksum"
	"gvisor.dev/gvisor/pkg/tcpip/header"
)

func tcpipAddr(a netip.Addr) tcpip.Address {
	if a.Is4() {
		return tcpip.AddrFrom4(a.As4())
	}
	return tcpip.AddrFrom16(a.As16())
}

// chunkChecksum folds every chunk payload of the chain into sum.
func chunkChecksum(c *Chunk, sum uint16) uint16 {
	for cur := c; cur != nil; cur = cur.next {
		sum = checksum.Checksum(cur.payload, sum)
	}
	return sum
}

// ipHeaderSize returns the size of the IP header we emit for the family.
func ipHeaderSize(v4 bool) int {
	if v4 {
		return header.IPv4MinimumSize
	}
	return header.IPv6MinimumSize
}

// encodeIP writes an IP header for the given transport into b.
func encodeIP(b []byte, v4 bool, proto tcpip.TransportProtocolNumber,
	src, dst netip.Addr, transportLen int) {

	if v4 {
		ip := header.IPv4(b)
		ip.Encode(&header.IPv4Fields{
			TotalLength: uint16(header.IPv4MinimumSize + transportLen),
			TTL:         64,
			Protocol:    uint8(proto),
			SrcAddr:     tcpipAddr(src),
			DstAddr:     tcpipAddr(dst),
		})
		ip.SetChecksum(^ip.CalculateChecksum())
		return
	}
	ip := header.IPv6(b)
	ip.Encode(&header.IPv6Fields{
		PayloadLength:     uint16(transportLen),
		TransportProtocol: proto,
		HopLimit:          64,
		SrcAddr:           tcpipAddr(src),
		DstAddr:           tcpipAddr(dst),
	})
}

// tcpSegment builds an IP+TCP packet chain. Ownership of payload (which may
// be nil) transfers to the returned chain. Returns nil on allocation failure,
// releasing payload.
func tcpSegment(src, dst netip.AddrPort, seq, ack uint32,
	flags header.TCPFlags, wnd uint16, payload *Chunk) *Chunk {

	v4 := src.Addr().Is4()
	ipLen := ipHeaderSize(v4)
	hdr := NewChunk(ipLen + header.TCPMinimumSize)
	if hdr == nil {
		if payload != nil {
			payload.Free()
		}
		return nil
	}

	payloadLen := payload.TotalLen()
	tcpLen := header.TCPMinimumSize + payloadLen
	encodeIP(hdr.payload[:ipLen], v4, header.TCPProtocolNumber,
		src.Addr(), dst.Addr(), tcpLen)

	t := header.TCP(hdr.payload[ipLen:])
	t.Encode(&header.TCPFields{
		SrcPort:    src.Port(),
		DstPort:    dst.Port(),
		SeqNum:     seq,
		AckNum:     ack,
		DataOffset: header.TCPMinimumSize,
		Flags:      flags,
		WindowSize: wnd,
	})

	sum := header.PseudoHeaderChecksum(header.TCPProtocolNumber,
		tcpipAddr(src.Addr()), tcpipAddr(dst.Addr()), uint16(tcpLen))
	sum = chunkChecksum(payload, sum)
	t.SetChecksum(^t.CalculateChecksum(sum))

	if payload != nil {
		hdr.Cat(payload)
	}
	return hdr
}

// udpDatagram builds an IP+UDP packet chain. Ownership of payload transfers
// to the returned chain. Returns nil on allocation failure, releasing
// payload.
func udpDatagram(src, dst netip.AddrPort, payload *Chunk) *Chunk {
	v4 := src.Addr().Is4()
	ipLen := ipHeaderSize(v4)
	hdr := NewChunk(ipLen + header.UDPMinimumSize)
	if hdr == nil {
		if payload != nil {
			payload.Free()
		}
		return nil
	}

	udpLen := header.UDPMinimumSize + payload.TotalLen()
	encodeIP(hdr.payload[:ipLen], v4, header.UDPProtocolNumber,
		src.Addr(), dst.Addr(), udpLen)

	u := header.UDP(hdr.payload[ipLen:])
	u.Encode(&header.UDPFields{
		SrcPort: src.Port(),
		DstPort: dst.Port(),
		Length:  uint16(udpLen),
	})

	sum := header.PseudoHeaderChecksum(header.UDPProtocolNumber,
		tcpipAddr(src.Addr()), tcpipAddr(dst.Addr()), uint16(udpLen))
	sum = chunkChecksum(payload, sum)
	u.SetChecksum(^u.CalculateChecksum(sum))

	if payload != nil {
		hdr.Cat(payload)
	}
	return hdr
}
