//  option_test.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

package option

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/estack"
)

// fakeSocket is a plain record implementing Socket.
type fakeSocket struct {
	sndBuf    int
	rcvBuf    int
	v6Only    bool
	canV6Only bool
	noDelay   bool
	keepAlive bool
	lastErr   Errno
}

func (s *fakeSocket) SendBufSize() int { return s.sndBuf }
func (s *fakeSocket) SetSendBufSize(n int) bool {
	s.sndBuf = n
	return true
}
func (s *fakeSocket) RecvBufSize() int { return s.rcvBuf }
func (s *fakeSocket) V6Only() bool     { return s.v6Only }
func (s *fakeSocket) SetV6Only(on bool) bool {
	if !s.canV6Only {
		return false
	}
	s.v6Only = on
	return true
}
func (s *fakeSocket) NoDelay() bool        { return s.noDelay }
func (s *fakeSocket) SetNoDelay(on bool)   { s.noDelay = on }
func (s *fakeSocket) KeepAlive() bool      { return s.keepAlive }
func (s *fakeSocket) SetKeepAlive(on bool) { s.keepAlive = on }
func (s *fakeSocket) TTL() int             { return 64 }
func (s *fakeSocket) TakeLastError() Errno {
	e := s.lastErr
	s.lastErr = Ok
	return e
}

func optBytes(v int) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func TestErrnoNumbersDivergeByPlatform(t *testing.T) {
	// The classic divergence: EAGAIN is 11 on Linux and 35 on Darwin.
	assert.Equal(t, 11, EAGAIN.Number(PlatformLinux))
	assert.Equal(t, 35, EAGAIN.Number(PlatformDarwin))

	assert.Equal(t, 0, Ok.Number(PlatformLinux))
	assert.Equal(t, 110, ETIMEDOUT.Number(PlatformLinux))
	assert.Equal(t, 60, ETIMEDOUT.Number(PlatformDarwin))

	assert.Equal(t, "ECONNRESET", ECONNRESET.String())
}

func TestFromStackTranslationDiverges(t *testing.T) {
	assert.Equal(t, ENOMEM, FromStack(estack.ErrMem, PlatformLinux))
	assert.Equal(t, ENOBUFS, FromStack(estack.ErrMem, PlatformDarwin))
	assert.Equal(t, EHOSTUNREACH, FromStack(estack.ErrRoute, PlatformLinux))
	assert.Equal(t, ENETUNREACH, FromStack(estack.ErrRoute, PlatformDarwin))

	// The shared rows agree.
	for _, p := range []Platform{PlatformLinux, PlatformDarwin} {
		assert.Equal(t, Ok, FromStack(estack.ErrOK, p))
		assert.Equal(t, ECONNRESET, FromStack(estack.ErrReset, p))
		assert.Equal(t, ETIMEDOUT, FromStack(estack.ErrTimeout, p))
		assert.Equal(t, EADDRINUSE, FromStack(estack.ErrUse, p))
	}
}

func TestClassifyTarget(t *testing.T) {
	assert.Equal(t, TargetV4, ClassifyTarget(netip.MustParseAddr("192.0.2.1")))
	assert.Equal(t, TargetV6, ClassifyTarget(netip.MustParseAddr("2001:db8::1")))
	assert.Equal(t, TargetV4Mapped, ClassifyTarget(netip.MustParseAddr("::ffff:192.0.2.1")))
}

func TestFamilyCheckDivergentRows(t *testing.T) {
	// A v4-mapped target on a v4-only stream socket: Linux answers
	// EINVAL, Darwin EAFNOSUPPORT.
	assert.Equal(t, EINVAL, FamilyCheck(PlatformLinux, SocketTCP, ConstraintV4Only, TargetV4Mapped))
	assert.Equal(t, EAFNOSUPPORT, FamilyCheck(PlatformDarwin, SocketTCP, ConstraintV4Only, TargetV4Mapped))

	// Datagram flavor: Linux accepts the mapped form, Darwin does not.
	assert.Equal(t, Ok, FamilyCheck(PlatformLinux, SocketUDP, ConstraintV4Only, TargetV4Mapped))
	assert.Equal(t, EINVAL, FamilyCheck(PlatformDarwin, SocketUDP, ConstraintV4Only, TargetV4Mapped))

	// Matching families pass everywhere.
	for _, p := range []Platform{PlatformLinux, PlatformDarwin} {
		assert.Equal(t, Ok, FamilyCheck(p, SocketTCP, ConstraintV4Only, TargetV4))
		assert.Equal(t, Ok, FamilyCheck(p, SocketTCP, ConstraintV6Only, TargetV6))
		assert.Equal(t, Ok, FamilyCheck(p, SocketUDP, ConstraintNone, TargetV6))
	}
}

func TestOptionGetSetDistinctions(t *testing.T) {
	s := &fakeSocket{sndBuf: 64 << 10, rcvBuf: 128 << 10, canV6Only: true}

	// Unknown pair.
	assert.Equal(t, ENOPROTOOPT, Get(s, PlatformLinux, LevelSocket, 77, make([]byte, 4)))
	assert.Equal(t, ENOPROTOOPT, Set(s, PlatformLinux, LevelTCP, 99, optBytes(1)))

	// Known pair, wrong payload size.
	assert.Equal(t, EINVAL, Get(s, PlatformLinux, LevelSocket, SoSndBuf, make([]byte, 8)))
	assert.Equal(t, EINVAL, Set(s, PlatformLinux, LevelSocket, SoSndBuf, []byte{1}))

	// Known pair, well-formed payload, illegal value.
	assert.Equal(t, ERANGE, Set(s, PlatformLinux, LevelSocket, SoSndBuf, optBytes(-1)))
	assert.Equal(t, ERANGE, Set(s, PlatformLinux, LevelIP, IPTTL, optBytes(300)))
	assert.Equal(t, ERANGE, Set(s, PlatformLinux, LevelIP, IPMulticastLoop, optBytes(1)))

	// And the happy path.
	require.Equal(t, Ok, Set(s, PlatformLinux, LevelSocket, SoSndBuf, optBytes(1<<20)))
	out := make([]byte, 4)
	require.Equal(t, Ok, Get(s, PlatformLinux, LevelSocket, SoSndBuf, out))
	assert.Equal(t, optBytes(1<<20), out)
}

func TestOptionSoErrorReportsPlatformNumber(t *testing.T) {
	s := &fakeSocket{lastErr: ECONNRESET}

	// ECONNRESET is 104 on Linux, 54 on Darwin; SO_ERROR must report
	// the requested platform's number.
	out := make([]byte, 4)
	require.Equal(t, Ok, Get(s, PlatformDarwin, LevelSocket, SoError, out))
	assert.Equal(t, uint32(ECONNRESET.Number(PlatformDarwin)), binary.LittleEndian.Uint32(out))

	// SO_ERROR is take-and-clear.
	require.Equal(t, Ok, Get(s, PlatformDarwin, LevelSocket, SoError, out))
	assert.Zero(t, binary.LittleEndian.Uint32(out))
}

func TestOptionV6OnlyRespectsSocketRefusal(t *testing.T) {
	s := &fakeSocket{}
	assert.Equal(t, EINVAL, Set(s, PlatformLinux, LevelIPv6, IPv6V6Only, optBytes(1)))

	s.canV6Only = true
	require.Equal(t, Ok, Set(s, PlatformLinux, LevelIPv6, IPv6V6Only, optBytes(1)))
	out := make([]byte, 4)
	require.Equal(t, Ok, Get(s, PlatformLinux, LevelIPv6, IPv6V6Only, out))
	assert.Equal(t, optBytes(1), out)
}
