//  core_test.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Shared test plumbing: a hand-cranked scheduler, an egress recorder and
//  raw packet builders.

package core

import (
	"net/netip"
	"testing"
	"time"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/core/option"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/estack"
)

// testSched is a deterministic Scheduler: deferred work and timers run only
// when the test cranks them.
type testSched struct {
	deferred []func()
	timers   []*testTimer
}

type testTimer struct {
	f       func()
	stopped bool
}

func (s *testSched) Defer(f func()) {
	s.deferred = append(s.deferred, f)
}

func (s *testSched) After(_ time.Duration, f func()) func() {
	t := &testTimer{f: f}
	s.timers = append(s.timers, t)
	return func() { t.stopped = true }
}

// runDeferred drains the deferred queue, including work queued by the work
// itself.
func (s *testSched) runDeferred() {
	for len(s.deferred) > 0 {
		batch := s.deferred
		s.deferred = nil
		for _, f := range batch {
			f()
		}
	}
}

// runCycle runs exactly the work deferred so far; work deferred while it
// runs stays queued for the next cycle.
func (s *testSched) runCycle() {
	batch := s.deferred
	s.deferred = nil
	for _, f := range batch {
		f()
	}
}

// fireTimers runs every live timer once.
func (s *testSched) fireTimers() {
	batch := s.timers
	s.timers = nil
	for _, t := range batch {
		if !t.stopped {
			t.f()
		}
	}
}

func (s *testSched) armedTimers() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func serverDst() netip.AddrPort {
	return netip.MustParseAddrPort("192.0.2.1:80")
}

// egressRecorder captures raw packets an interface output emits.
type egressRecorder struct {
	pkts [][]byte
}

func (r *egressRecorder) output(_ *estack.Netif, ch *estack.Chunk) estack.Error {
	buf := make([]byte, ch.TotalLen())
	ch.CopyOut(buf)
	r.pkts = append(r.pkts, buf)
	return estack.ErrOK
}

// newTestEnv wires a pump, scheduler and one up interface at 10.0.0.2.
func newTestEnv(t *testing.T) (*testSched, *EventPump, *estack.Netif, *egressRecorder) {
	t.Helper()
	sched := &testSched{}
	pump := NewEventPump(sched)
	rec := &egressRecorder{}
	nif := estack.NewNetif("vt0", 1500, rec.output)
	nif.SetIPv4(netip.MustParseAddr("10.0.0.2"))
	nif.SetUp(true)
	pump.Stack().AddNetif(nif)
	return sched, pump, nif, rec
}

// socketEvents records SocketOwner callbacks; received data is copied out
// and the iterator released inside the callback.
type socketEvents struct {
	data         []byte
	connects     int
	disconnects  []option.Errno
	bufIncreases []int
}

func (o *socketEvents) DataReceived(it *ChunkIterator) {
	buf := make([]byte, it.TotalRemaining())
	it.CopyOut(buf)
	o.data = append(o.data, buf...)
	it.Release()
}

func (o *socketEvents) Connected() { o.connects++ }

func (o *socketEvents) Disconnected(reason option.Errno) {
	o.disconnects = append(o.disconnects, reason)
}

func (o *socketEvents) SendBufferIncreased(newMax int) {
	o.bufIncreases = append(o.bufIncreases, newMax)
}

// datagramEvents additionally records datagram source addresses.
type datagramEvents struct {
	socketEvents
	froms []netip.AddrPort
}

func (o *datagramEvents) DatagramReceived(it *ChunkIterator, from netip.AddrPort) {
	o.froms = append(o.froms, from)
	o.socketEvents.DataReceived(it)
}

func buildTCP(src, dst netip.AddrPort, seq, ack uint32,
	flags header.TCPFlags, payload []byte) []byte {

	n := header.IPv4MinimumSize + header.TCPMinimumSize + len(payload)
	b := make([]byte, n)
	encodeTestIPv4(b, uint8(header.TCPProtocolNumber), src.Addr(), dst.Addr())
	t := header.TCP(b[header.IPv4MinimumSize:])
	t.Encode(&header.TCPFields{
		SrcPort:    src.Port(),
		DstPort:    dst.Port(),
		SeqNum:     seq,
		AckNum:     ack,
		DataOffset: header.TCPMinimumSize,
		Flags:      flags,
		WindowSize: 0xFFFF,
	})
	copy(b[header.IPv4MinimumSize+header.TCPMinimumSize:], payload)
	return b
}

func buildUDP(src, dst netip.AddrPort, payload []byte) []byte {
	n := header.IPv4MinimumSize + header.UDPMinimumSize + len(payload)
	b := make([]byte, n)
	encodeTestIPv4(b, uint8(header.UDPProtocolNumber), src.Addr(), dst.Addr())
	u := header.UDP(b[header.IPv4MinimumSize:])
	u.Encode(&header.UDPFields{
		SrcPort: src.Port(),
		DstPort: dst.Port(),
		Length:  uint16(header.UDPMinimumSize + len(payload)),
	})
	copy(b[header.IPv4MinimumSize+header.UDPMinimumSize:], payload)
	return b
}

func tcpipTestAddr(a netip.Addr) tcpip.Address {
	if a.Is4() {
		return tcpip.AddrFrom4(a.As4())
	}
	return tcpip.AddrFrom16(a.As16())
}

func encodeTestIPv4(b []byte, proto uint8, src, dst netip.Addr) {
	ip := header.IPv4(b)
	ip.Encode(&header.IPv4Fields{
		TotalLength: uint16(len(b)),
		TTL:         64,
		Protocol:    proto,
		SrcAddr:     tcpipTestAddr(src),
		DstAddr:     tcpipTestAddr(dst),
	})
	ip.SetChecksum(^ip.CalculateChecksum())
}

// injectRaw feeds one raw packet into the stack through nif.
func injectRaw(t *testing.T, pump *EventPump, nif *estack.Netif, pkt []byte) {
	t.Helper()
	ch := estack.NewChunk(len(pkt))
	if ch == nil {
		t.Fatal("chunk allocation failed")
	}
	copy(ch.Bytes(), pkt)
	if err := pump.Stack().Input(ch, nif); err != estack.ErrOK {
		t.Fatalf("input failed: %v", err)
	}
}

func parseIPv4TCP(t *testing.T, pkt []byte) (header.IPv4, header.TCP) {
	t.Helper()
	if header.IPVersion(pkt) != header.IPv4Version {
		t.Fatal("not an IPv4 packet")
	}
	ip := header.IPv4(pkt)
	if ip.Protocol() != uint8(header.TCPProtocolNumber) {
		t.Fatal("not a TCP packet")
	}
	return ip, header.TCP(pkt[ip.HeaderLength():])
}
