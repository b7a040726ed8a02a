//  engine_test.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

package engine

import (
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/core"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/core/option"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/log"
)

// testEmitter records emitted packets; safe for cross-goroutine use.
type testEmitter struct {
	mu        sync.Mutex
	packets   [][]byte
	protocols []int32
}

func (e *testEmitter) EmitPacket(packet []byte, protocolNumber int32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.packets = append(e.packets, append([]byte(nil), packet...))
	e.protocols = append(e.protocols, protocolNumber)
	return nil
}

func (e *testEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.packets)
}

func (e *testEmitter) last() ([]byte, int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.packets) == 0 {
		return nil, 0
	}
	return e.packets[len(e.packets)-1], e.protocols[len(e.protocols)-1]
}

func startedEngine(t *testing.T) (*Engine, *testEmitter) {
	t.Helper()
	emitter := &testEmitter{}
	eng, err := NewEngine(&Config{IPv4Address: "10.0.0.2"}, emitter)
	require.NoError(t, err)
	require.NoError(t, eng.Start())
	t.Cleanup(eng.Stop)
	return eng, emitter
}

func TestEngineRequiresEmitter(t *testing.T) {
	_, err := NewEngine(&Config{}, nil)
	assert.Error(t, err)
}

func TestEngineLifecycle(t *testing.T) {
	eng, _ := startedEngine(t)
	assert.True(t, eng.IsRunning())
	require.NoError(t, eng.Start(), "double start is a no-op")

	eng.Stop()
	assert.False(t, eng.IsRunning())
	eng.Stop()

	assert.Error(t, eng.HandlePacket([]byte{0x45}), "stopped engine rejects packets")
}

func TestEnginePacketRoundTrip(t *testing.T) {
	eng, emitter := startedEngine(t)

	// A SYN to a port nobody handles draws a reset back out through the
	// emitter, proving ingress, stack and egress are wired together.
	syn := buildSYN(t)
	require.NoError(t, eng.HandlePacket(syn))

	require.Eventually(t, func() bool { return emitter.count() > 0 },
		2*time.Second, 5*time.Millisecond)
	pkt, proto := emitter.last()
	assert.Equal(t, int32(afInet), proto)

	ip := header.IPv4(pkt)
	require.Equal(t, uint8(header.TCPProtocolNumber), ip.Protocol())
	rst := header.TCP(pkt[ip.HeaderLength():])
	assert.NotZero(t, rst.Flags()&header.TCPFlagRst)
}

func TestEngineHandlePacketCopies(t *testing.T) {
	eng, emitter := startedEngine(t)

	syn := buildSYN(t)
	require.NoError(t, eng.HandlePacket(syn))
	// The engine staged its own copy; scribbling over the caller's
	// buffer must not corrupt the in-flight packet.
	for i := range syn {
		syn[i] = 0xFF
	}

	require.Eventually(t, func() bool { return emitter.count() > 0 },
		2*time.Second, 5*time.Millisecond)
	pkt, _ := emitter.last()
	rst := header.TCP(pkt[header.IPv4MinimumSize:])
	assert.NotZero(t, rst.Flags()&header.TCPFlagRst)
}

// discardOwner ignores every socket callback.
type discardOwner struct{}

func (discardOwner) DataReceived(it *core.ChunkIterator) { it.Release() }
func (discardOwner) Connected()                          {}
func (discardOwner) Disconnected(option.Errno)           {}
func (discardOwner) SendBufferIncreased(int)             {}

func TestEngineConfiguredPlatformReachesSockets(t *testing.T) {
	eng, err := NewEngine(&Config{IPv4Address: "10.0.0.2", Platform: "darwin"}, &testEmitter{})
	require.NoError(t, err)
	require.NoError(t, eng.Start())
	t.Cleanup(eng.Stop)
	require.Equal(t, option.PlatformDarwin, eng.Platform())

	// A v4 target on a v6-only socket draws the darwin code, so the
	// configured flavor reaches sockets built through the engine.
	got := make(chan option.Errno, 1)
	eng.Post(func() {
		s := eng.NewTCPSocket(discardOwner{}, option.ConstraintV6Only)
		defer s.Abort()
		got <- s.Connect(netip.MustParseAddrPort("192.0.2.1:80"))
	})
	select {
	case errno := <-got:
		assert.Equal(t, option.EINVAL, errno)
	case <-time.After(2 * time.Second):
		t.Fatal("socket work never ran on the loop")
	}
}

// recordSink captures forwarded log levels; safe for cross-goroutine use.
type recordSink struct {
	mu     sync.Mutex
	levels []string
}

func (s *recordSink) Log(level, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = append(s.levels, level)
}

func TestEngineLogSinkHonorsConfiguredLevel(t *testing.T) {
	eng, err := NewEngine(&Config{LogLevel: "warn"}, &testEmitter{})
	require.NoError(t, err)
	sink := &recordSink{}
	require.NoError(t, eng.SetLogSink(sink))
	t.Cleanup(func() { eng.SetLogSink(nil) })

	log.Infof("below the configured level")
	log.Warnf("at the configured level")
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []string{"warn"}, sink.levels)
}

func TestEventLoopRejectsPostAfterStop(t *testing.T) {
	l := newEventLoop()
	ran := false
	l.call(func() { ran = true })
	require.True(t, ran)

	l.stop()
	assert.False(t, l.post(func() {}), "stopped loop must refuse work")
}

func buildSYN(t *testing.T) []byte {
	t.Helper()
	n := header.IPv4MinimumSize + header.TCPMinimumSize
	b := make([]byte, n)
	ip := header.IPv4(b)
	ip.Encode(&header.IPv4Fields{
		TotalLength: uint16(n),
		TTL:         64,
		Protocol:    uint8(header.TCPProtocolNumber),
		SrcAddr:     tcpip.AddrFrom4([4]byte{10, 0, 0, 2}),
		DstAddr:     tcpip.AddrFrom4([4]byte{192, 0, 2, 1}),
	})
	ip.SetChecksum(^ip.CalculateChecksum())
	tcp := header.TCP(b[header.IPv4MinimumSize:])
	tcp.Encode(&header.TCPFields{
		SrcPort:    40000,
		DstPort:    81,
		SeqNum:     7,
		DataOffset: header.TCPMinimumSize,
		Flags:      header.TCPFlagSyn,
		WindowSize: 0xFFFF,
	})
	return b
}
