//  udp_test.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

package core

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/core/option"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/memory"
)

func TestUDPSocketSendToAndReceive(t *testing.T) {
	_, pump, nif, rec := newTestEnv(t)
	owner := &datagramEvents{}
	s := NewUDPSocket(pump, owner, option.PlatformLinux, option.ConstraintNone)
	defer s.Close()

	local := netip.MustParseAddrPort("10.0.0.2:5000")
	require.Equal(t, option.Ok, s.Bind(local))
	assert.Equal(t, local, s.GetLocalAddr())

	peer := netip.MustParseAddrPort("192.0.2.9:5353")
	h := memory.NewHandleCopy([]byte("ping"))
	require.Equal(t, option.Ok, s.SendTo(h, peer))
	h.Release()

	require.Len(t, rec.pkts, 1)
	out := rec.pkts[0]
	ip := header.IPv4(out)
	require.Equal(t, uint8(header.UDPProtocolNumber), ip.Protocol())
	u := header.UDP(out[ip.HeaderLength():])
	assert.Equal(t, uint16(5000), u.SourcePort())
	assert.Equal(t, uint16(5353), u.DestinationPort())
	assert.Equal(t, []byte("ping"), out[int(ip.HeaderLength())+header.UDPMinimumSize:])

	injectRaw(t, pump, nif, buildUDP(peer, local, []byte("pong")))
	assert.Equal(t, []byte("pong"), owner.data)
	assert.Equal(t, []netip.AddrPort{peer}, owner.froms)
}

func TestUDPSocketPlainOwnerDelivery(t *testing.T) {
	_, pump, nif, _ := newTestEnv(t)
	// A SocketOwner without the datagram extension still gets the bytes.
	owner := &socketEvents{}
	s := NewUDPSocket(pump, owner, option.PlatformLinux, option.ConstraintNone)
	defer s.Close()

	local := netip.MustParseAddrPort("10.0.0.2:6000")
	require.Equal(t, option.Ok, s.Bind(local))
	injectRaw(t, pump, nif, buildUDP(netip.MustParseAddrPort("192.0.2.9:53"), local, []byte("data")))
	assert.Equal(t, []byte("data"), owner.data)
}

func TestUDPSocketSendReleasesClone(t *testing.T) {
	_, pump, _, rec := newTestEnv(t)
	owner := &datagramEvents{}
	s := NewUDPSocket(pump, owner, option.PlatformLinux, option.ConstraintNone)
	defer s.Close()

	released := 0
	h := memory.NewExternalHandle([]byte("payload"), func([]byte, any) { released++ }, nil)
	require.Equal(t, option.Ok, s.SendTo(h, netip.MustParseAddrPort("192.0.2.9:5353")))

	// The datagram left through the interface, so the socket's clone is
	// already gone; only the caller's reference remains.
	require.Len(t, rec.pkts, 1)
	assert.Zero(t, released)
	h.Release()
	assert.Equal(t, 1, released)
}

func TestUDPSocketConnectedSend(t *testing.T) {
	sched, pump, _, rec := newTestEnv(t)
	owner := &datagramEvents{}
	s := NewUDPSocket(pump, owner, option.PlatformLinux, option.ConstraintNone)
	defer s.Close()

	h := memory.NewHandleCopy([]byte("x"))
	defer h.Release()
	require.Equal(t, option.ENOTCONN, s.Send(h), "send before connect")

	peer := netip.MustParseAddrPort("192.0.2.9:4000")
	require.Equal(t, option.Ok, s.Connect(peer))
	assert.Equal(t, peer, s.GetRemoteAddr())
	assert.Zero(t, owner.connects, "completion is deferred")
	sched.runDeferred()
	assert.Equal(t, 1, owner.connects)

	require.Equal(t, option.Ok, s.Send(h))
	require.Len(t, rec.pkts, 1)
	ip := header.IPv4(rec.pkts[0])
	u := header.UDP(rec.pkts[0][ip.HeaderLength():])
	assert.Equal(t, uint16(4000), u.DestinationPort())
}

func TestUDPSocketFamilyRules(t *testing.T) {
	_, pump, _, _ := newTestEnv(t)
	owner := &datagramEvents{}
	// Darwin rejects v4-mapped targets on a v4-only datagram socket with
	// EINVAL where Linux says EAFNOSUPPORT.
	mapped := netip.AddrPortFrom(netip.MustParseAddr("::ffff:192.0.2.1"), 80)

	s := NewUDPSocket(pump, owner, option.PlatformDarwin, option.ConstraintV4Only)
	h := memory.NewHandleCopy([]byte("x"))
	defer h.Release()
	assert.Equal(t, option.EINVAL, s.SendTo(h, mapped))
	assert.Equal(t, option.EINVAL, s.TakeLastError())
	s.Close()

	s = NewUDPSocket(pump, owner, option.PlatformLinux, option.ConstraintV4Only)
	assert.Equal(t, option.EAFNOSUPPORT, s.Connect(netip.AddrPortFrom(netip.MustParseAddr("2001:db8::1"), 80)))
	s.Close()
	assert.Zero(t, pump.refs)
}

func TestUDPSocketCloseIdempotent(t *testing.T) {
	_, pump, _, _ := newTestEnv(t)
	s := NewUDPSocket(pump, &datagramEvents{}, option.PlatformLinux, option.ConstraintNone)

	require.Equal(t, OK, s.Close())
	require.Equal(t, OK, s.Close())
	assert.Zero(t, pump.refs)
	assert.Equal(t, option.EBADF, s.Bind(netip.MustParseAddrPort("10.0.0.2:7000")))

	h := memory.NewHandleCopy([]byte("x"))
	defer h.Release()
	assert.Equal(t, option.EBADF, s.SendTo(h, serverDst()))
}
