//  family.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Address-family acceptance rules for bind/connect targets. These
//  intentionally differ between TCP and UDP and between the two OS targets;
//  the tables below are verbatim behavior, not something to rationalize into
//  one rule.

package option

import "net/netip"

// SocketType distinguishes the two transport sockets.
type SocketType uint8

const (
	// SocketTCP is a stream socket.
	SocketTCP SocketType = iota
	// SocketUDP is a datagram socket.
	SocketUDP
)

// FamilyConstraint is the socket's address-family restriction, fixed at
// creation.
type FamilyConstraint uint8

const (
	// ConstraintNone is a dual-stack socket.
	ConstraintNone FamilyConstraint = iota
	// ConstraintV4Only accepts IPv4 targets only.
	ConstraintV4Only
	// ConstraintV6Only accepts IPv6 targets only.
	ConstraintV6Only
)

// TargetFamily classifies a bind/connect target address.
type TargetFamily uint8

const (
	// TargetV4 is a plain IPv4 address.
	TargetV4 TargetFamily = iota
	// TargetV6 is a plain IPv6 address.
	TargetV6
	// TargetV4Mapped is an IPv4 address carried in v6-mapped form.
	TargetV4Mapped
)

// ClassifyTarget maps an address to its target family.
func ClassifyTarget(a netip.Addr) TargetFamily {
	switch {
	case a.Is4():
		return TargetV4
	case a.Is4In6():
		return TargetV4Mapped
	default:
		return TargetV6
	}
}

type familyKey struct {
	sock       SocketType
	constraint FamilyConstraint
	target     TargetFamily
}

// familyTables lists the rejected combinations per platform; a missing entry
// means the target is accepted. Mapped-v4 targets on v4-only TCP sockets are
// the historically divergent row: EINVAL on the Linux targets,
// EAFNOSUPPORT on the Darwin ones. UDP additionally accepts mapped-v4 on
// v4-only sockets on Linux but not on Darwin.
var familyTables = [2]map[familyKey]Errno{
	PlatformLinux: {
		{SocketTCP, ConstraintV4Only, TargetV6}:       EAFNOSUPPORT,
		{SocketTCP, ConstraintV4Only, TargetV4Mapped}: EINVAL,
		{SocketTCP, ConstraintV6Only, TargetV4}:       EAFNOSUPPORT,
		{SocketTCP, ConstraintV6Only, TargetV4Mapped}: EINVAL,
		{SocketUDP, ConstraintV4Only, TargetV6}:       EAFNOSUPPORT,
		{SocketUDP, ConstraintV6Only, TargetV4}:       EAFNOSUPPORT,
		{SocketUDP, ConstraintV6Only, TargetV4Mapped}: EINVAL,
	},
	PlatformDarwin: {
		{SocketTCP, ConstraintV4Only, TargetV6}:       EAFNOSUPPORT,
		{SocketTCP, ConstraintV4Only, TargetV4Mapped}: EAFNOSUPPORT,
		{SocketTCP, ConstraintV6Only, TargetV4}:       EINVAL,
		{SocketTCP, ConstraintV6Only, TargetV4Mapped}: EINVAL,
		{SocketUDP, ConstraintV4Only, TargetV6}:       EAFNOSUPPORT,
		{SocketUDP, ConstraintV4Only, TargetV4Mapped}: EINVAL,
		{SocketUDP, ConstraintV6Only, TargetV4}:       EAFNOSUPPORT,
		{SocketUDP, ConstraintV6Only, TargetV4Mapped}: EINVAL,
	},
}

// FamilyCheck returns Ok when a socket of the given type and constraint may
// use a target of the given family, or the platform's rejection code.
func FamilyCheck(p Platform, st SocketType, c FamilyConstraint, tf TargetFamily) Errno {
	t := familyTables[PlatformLinux]
	if p == PlatformDarwin {
		t = familyTables[PlatformDarwin]
	}
	if errno, ok := t[familyKey{st, c, tf}]; ok {
		return errno
	}
	return Ok
}
