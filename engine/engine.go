//  engine.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Wires the toolkit core to a host application: the host feeds inbound IP
//  packets in, the engine hands outbound packets back through the emitter,
//  and everything in between runs on the engine's event loop.

package engine

import (
	"errors"
	"fmt"
	"net/netip"

	"go.uber.org/atomic"
	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/core"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/core/option"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/log"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/memory"
)

const (
	afInet  = 2  // AF_INET
	afInet6 = 30 // AF_INET6
)

// PacketEmitter is implemented by the host application to carry outbound IP
// packets back into its packet flow. protocolNumber is the address family of
// the packet (AF_INET or AF_INET6).
type PacketEmitter interface {
	EmitPacket(packet []byte, protocolNumber int32) error
}

// Engine owns the toolkit core's runtime pieces and their event loop.
type Engine struct {
	cfg     Config
	emitter PacketEmitter

	loop  *eventLoop
	pool  *memory.Pool
	pump  *core.EventPump
	iface *core.VirtualInterface

	running atomic.Bool
	sinkSet atomic.Bool
}

// NewEngine constructs an engine around cfg. A nil cfg gets defaults.
func NewEngine(cfg *Config, emitter PacketEmitter) (*Engine, error) {
	if emitter == nil {
		return nil, errors.New("packet emitter is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	copyCfg := *cfg
	copyCfg.applyDefaults()
	if err := copyCfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     copyCfg,
		emitter: emitter,
	}, nil
}

// Start boots the event loop, the stack and the virtual interface.
func (e *Engine) Start() error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}
	if !e.sinkSet.Load() {
		log.SetLevel(e.cfg.level())
	}

	e.loop = newEventLoop()
	e.pool = memory.NewPool(int(e.cfg.PoolBlockSize), int(e.cfg.PoolMaxBlockSize),
		e.cfg.PoolMaxFreePerClass)

	var startErr error
	e.loop.call(func() {
		e.pump = core.NewEventPump(e.loop)
		e.iface = core.NewVirtualInterface(e, e.pump, e.pool, e.cfg.MTU)
		if res := e.iface.Initialize(); res != core.OK {
			startErr = fmt.Errorf("initialize interface: %v", res)
			return
		}
		if e.cfg.IPv4Address != "" {
			e.iface.SetIPv4Address(netip.MustParseAddr(e.cfg.IPv4Address))
		}
		if len(e.cfg.IPv6Addresses) > 0 {
			addrs := make([]netip.Addr, 0, len(e.cfg.IPv6Addresses))
			for _, a := range e.cfg.IPv6Addresses {
				addrs = append(addrs, netip.MustParseAddr(a))
			}
			e.iface.SetIPv6Addresses(addrs)
		}
	})
	if startErr != nil {
		e.loop.stop()
		e.running.Store(false)
		return startErr
	}

	log.Infof("engine: started, mtu %d", e.cfg.MTU)
	return nil
}

// Stop winds the engine down and releases its resources. Idempotent.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.loop.call(func() {
		e.iface.Stop()
	})
	e.loop.stop()
	log.Infof("engine: stopped")
}

// IsRunning reports whether Start has been called successfully.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// HandlePacket injects one inbound IP packet read from the host's packet
// flow. The bytes are staged into pool memory; the caller may reuse packet
// immediately.
func (e *Engine) HandlePacket(packet []byte) error {
	if !e.running.Load() {
		return errors.New("engine not running")
	}
	if len(packet) == 0 {
		return errors.New("empty packet")
	}
	h := e.pool.NewHandle(len(packet))
	if h.Empty() {
		h = memory.NewHandle(len(packet))
		if h.Empty() {
			return errors.New("packet staging failed")
		}
	}
	copy(h.WritableBytes(), packet)
	if !e.loop.post(func() { e.iface.Send(h) }) {
		h.Release()
		return errors.New("engine not running")
	}
	return nil
}

// Post runs f on the engine's event loop. Hosts embedding the engine use it
// to create and drive sockets, which are not goroutine safe.
func (e *Engine) Post(f func()) {
	if !e.running.Load() {
		return
	}
	e.loop.post(f)
}

// Pump exposes the engine's event pump for socket construction. Touch it
// only from the event loop (see Post).
func (e *Engine) Pump() *core.EventPump {
	return e.pump
}

// Platform returns the errno flavor configured for sockets on this engine.
func (e *Engine) Platform() option.Platform {
	return e.cfg.platform()
}

// NewTCPSocket creates a stream socket on the engine's stack, reporting the
// configured platform's error numbers. Call it on the event loop (see Post).
func (e *Engine) NewTCPSocket(owner core.SocketOwner,
	constraint option.FamilyConstraint) *core.TCPSocket {
	return core.NewTCPSocket(e.pump, owner, e.cfg.platform(), constraint)
}

// NewUDPSocket creates a datagram socket on the engine's stack, reporting
// the configured platform's error numbers. Call it on the event loop.
func (e *Engine) NewUDPSocket(owner core.SocketOwner,
	constraint option.FamilyConstraint) *core.UDPSocket {
	return core.NewUDPSocket(e.pump, owner, e.cfg.platform(), constraint)
}

// SetLogSink routes toolkit logging into sink at the configured log level. A
// nil sink restores the default logger.
func (e *Engine) SetLogSink(sink LogSink) error {
	if sink == nil {
		e.sinkSet.Store(false)
		return SetLogSink(nil, "")
	}
	if err := SetLogSink(sink, e.cfg.LogLevel); err != nil {
		return err
	}
	e.sinkSet.Store(true)
	return nil
}

// EgressPacket implements core.InterfaceOwner: outbound packets leave
// through the host's emitter.
func (e *Engine) EgressPacket(pkt memory.Handle) {
	defer pkt.Release()
	if err := e.emitter.EmitPacket(pkt.Bytes(), inferProtocol(pkt.Bytes())); err != nil {
		log.Warnf("engine: packet emission failed: %v", err)
	}
}

func inferProtocol(payload []byte) int32 {
	if len(payload) > 0 && header.IPVersion(payload) == header.IPv6Version {
		return afInet6
	}
	return afInet
}
