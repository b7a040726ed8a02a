//  iface.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Virtual interface: bridges opaque packet handles into the stack's chunk
//  representation and wraps stack egress back into handles.

package core

import (
	"net/netip"

	"github.com/eapache/queue"
	"github.com/google/uuid"
	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/estack"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/log"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/memory"
)

type ifaceState uint8

const (
	ifaceUninitialized ifaceState = iota
	ifaceInitialized
	ifaceStopped
)

// VirtualInterface is one stack network interface fed by opaque IP packet
// handles. Inbound packets are never injected from Send itself; they queue
// and enter the stack at end-of-cycle, which bounds the recursion depth when
// an injected packet makes the stack immediately emit another one (a
// malformed segment drawing a reset, for instance).
//
// Stopped is terminal: construct a new interface to start over.
type VirtualInterface struct {
	id    string
	owner InterfaceOwner
	pump  *EventPump
	pool  *memory.Pool

	nif   *estack.Netif
	state ifaceState

	pending       *queue.Queue
	injectPending bool
}

// NewVirtualInterface builds an interface delivering egress packets to
// owner. Injection copies headers into stack memory; egress copies (when it
// must) into pool-backed handles.
func NewVirtualInterface(owner InterfaceOwner, pump *EventPump, pool *memory.Pool, mtu int) *VirtualInterface {
	v := &VirtualInterface{
		id:      uuid.NewString(),
		owner:   owner,
		pump:    pump,
		pool:    pool,
		pending: queue.New(),
	}
	v.nif = estack.NewNetif("vt-"+v.id[:8], mtu, v.outputIPPacket)
	v.nif.State = v
	return v
}

// Initialize registers the interface with the stack, wiring egress and
// becoming the default route if none exists yet.
func (v *VirtualInterface) Initialize() Result {
	if v.state != ifaceUninitialized {
		return ResBadState
	}
	v.pump.ref()
	v.pump.Stack().AddNetif(v.nif)
	v.state = ifaceInitialized
	log.Infof("core: interface %s initialized", v.nif.Name())
	return OK
}

// Stop deactivates the interface and removes it from the stack. If it was
// the default route, another interface (if any) takes over. Terminal.
func (v *VirtualInterface) Stop() {
	if v.state != ifaceInitialized {
		v.state = ifaceStopped
		return
	}
	v.state = ifaceStopped
	v.nif.SetUp(false)
	v.pump.Stack().RemoveNetif(v.nif)
	for v.pending.Length() > 0 {
		h := v.pending.Remove().(memory.Handle)
		h.Release()
	}
	v.pump.unref()
	log.Infof("core: interface %s stopped", v.nif.Name())
}

// SetIPv4Address assigns (or, with the zero Addr, clears) the interface's
// IPv4 address. Administrative up/down follows purely from whether any
// address remains assigned.
func (v *VirtualInterface) SetIPv4Address(a netip.Addr) {
	v.nif.SetIPv4(a)
	v.refreshAdminState()
}

// SetIPv6Addresses replaces the interface's IPv6 address list.
func (v *VirtualInterface) SetIPv6Addresses(addrs []netip.Addr) {
	v.nif.SetIPv6(addrs)
	v.refreshAdminState()
}

func (v *VirtualInterface) refreshAdminState() {
	up := v.nif.HasAddress()
	if up != v.nif.Up() {
		v.nif.SetUp(up)
		log.Debugf("core: interface %s admin %v", v.nif.Name(), up)
	}
}

// Send queues an inbound IP packet for injection. Ownership of the handle
// passes in. The packet enters the stack at the end of the current
// processing cycle, never synchronously.
func (v *VirtualInterface) Send(pkt memory.Handle) Result {
	if v.state != ifaceInitialized {
		pkt.Release()
		return ResBadState
	}
	if pkt.Empty() {
		return ResInvalidParam
	}
	v.pending.Add(pkt)
	if !v.injectPending {
		v.injectPending = true
		v.pump.sched.Defer(v.processPending)
	}
	return OK
}

// processPending injects everything queued at the time the cycle ends.
// The queue is snapshotted and cleared first: packets produced as a side
// effect of these injections land in the next cycle, not this one.
func (v *VirtualInterface) processPending() {
	v.injectPending = false
	n := v.pending.Length()
	if n == 0 || v.state != ifaceInitialized {
		return
	}
	batch := make([]memory.Handle, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, v.pending.Remove().(memory.Handle))
	}
	for _, pkt := range batch {
		v.inject(pkt)
	}
	v.pump.Kick()
}

// inject converts one packet handle into a chunk chain and feeds the stack.
// For a recognized transport (TCP or UDP, unfragmented, first fragment) only
// the headers are copied; the payload rides along as a zero-copy reference
// releasing the handle when the stack is done. Anything else is copied
// whole.
func (v *VirtualInterface) inject(pkt memory.Handle) {
	defer pkt.Release()

	b := pkt.Bytes()
	payloadOff := transportPayloadOffset(b)

	var chain *estack.Chunk
	if payloadOff > 0 && payloadOff < len(b) {
		hdr := estack.NewChunk(payloadOff)
		if hdr == nil {
			return
		}
		copy(hdr.Bytes(), b[:payloadOff])
		// The tail must exist before the chain can be prefixed:
		// attaching transfers ownership of the tail, so the payload
		// reference is built first and stitched on from behind.
		ref := pkt.Slice(payloadOff, len(b)-payloadOff)
		if !ref.Empty() {
			tail := estack.NewRefChunk(ref.Bytes(), func() { ref.Release() })
			hdr.Cat(tail)
		}
		chain = hdr
	} else {
		chain = estack.NewChunk(len(b))
		if chain == nil {
			return
		}
		copy(chain.Bytes(), b)
	}

	if err := v.pump.Stack().Input(chain, v.nif); err != estack.ErrOK {
		log.Debugf("core: interface %s input: %v", v.nif.Name(), err)
	}
}

// transportPayloadOffset returns the byte offset where the TCP/UDP payload
// of an unfragmented first-fragment packet begins, or 0 when the packet must
// be copied whole (unknown protocol, fragment, malformed).
func transportPayloadOffset(b []byte) int {
	switch header.IPVersion(b) {
	case header.IPv4Version:
		if len(b) < header.IPv4MinimumSize {
			return 0
		}
		ip := header.IPv4(b)
		if ip.More() || ip.FragmentOffset() != 0 {
			return 0
		}
		ipLen := int(ip.HeaderLength())
		if ipLen < header.IPv4MinimumSize || ipLen > len(b) {
			return 0
		}
		return transportHeaderEnd(b, ipLen, ip.Protocol())
	case header.IPv6Version:
		if len(b) < header.IPv6MinimumSize {
			return 0
		}
		ip := header.IPv6(b)
		return transportHeaderEnd(b, header.IPv6MinimumSize, uint8(ip.NextHeader()))
	}
	return 0
}

func transportHeaderEnd(b []byte, ipLen int, proto uint8) int {
	switch proto {
	case uint8(header.TCPProtocolNumber):
		if len(b) < ipLen+header.TCPMinimumSize {
			return 0
		}
		t := header.TCP(b[ipLen:])
		off := int(t.DataOffset())
		if off < header.TCPMinimumSize || ipLen+off > len(b) {
			return 0
		}
		return ipLen + off
	case uint8(header.UDPProtocolNumber):
		if len(b) < ipLen+header.UDPMinimumSize {
			return 0
		}
		return ipLen + header.UDPMinimumSize
	}
	return 0
}

// outputIPPacket wraps one egress chain into an opaque handle and hands it
// to the owner: zero-copy when the chain is a single chunk, otherwise a copy
// into a pool-backed handle. The owner may destroy the interface inside the
// callback, so nothing of the interface is touched after it.
func (v *VirtualInterface) outputIPPacket(nif *estack.Netif, ch *estack.Chunk) estack.Error {
	owner := v.owner
	if owner == nil {
		return estack.ErrIf
	}

	var h memory.Handle
	if ch.Next() == nil {
		ch.Ref()
		c := ch
		h = memory.NewExternalHandle(ch.Bytes(), func([]byte, any) { c.Free() }, nil)
	} else {
		h = v.pool.NewHandle(ch.TotalLen())
		if h.Empty() {
			return estack.ErrMem
		}
		ch.CopyOut(h.WritableBytes())
	}

	owner.EgressPacket(h)
	return estack.ErrOK
}
