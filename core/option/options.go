//  options.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  The per-(level, name) socket option table. Options the stack has a native
//  control for are wired through; harmless ones it lacks report a value
//  approximating the OS default; everything else is ENOPROTOOPT. A known
//  name with a wrong-sized payload is EINVAL, and a well-formed payload
//  carrying an illegal value is ERANGE - three distinct outcomes.

package option

import "encoding/binary"

// Option levels, POSIX numbering.
const (
	LevelIP     = 0
	LevelSocket = 1
	LevelTCP    = 6
	LevelIPv6   = 41
)

// Option names per level, POSIX numbering.
const (
	SoReuseAddr = 2
	SoError     = 4
	SoSndBuf    = 7
	SoRcvBuf    = 8
	SoKeepAlive = 9

	TCPNoDelay = 1

	IPTTL           = 2
	IPMulticastLoop = 34

	IPv6V6Only = 26
)

// optionSize is the payload size of every option here (a C int).
const optionSize = 4

// Socket is the surface the option table reads and writes. Both stack socket
// flavors implement it.
type Socket interface {
	SendBufSize() int
	SetSendBufSize(n int) bool
	RecvBufSize() int
	V6Only() bool
	SetV6Only(on bool) bool
	NoDelay() bool
	SetNoDelay(on bool)
	KeepAlive() bool
	SetKeepAlive(on bool)
	TTL() int
	// TakeLastError returns and clears the pending SO_ERROR value.
	TakeLastError() Errno
}

type optKey struct {
	level int
	name  int
}

type optEntry struct {
	get func(s Socket, p Platform) (int, Errno)
	set func(s Socket, v int) Errno
}

var options = map[optKey]optEntry{
	{LevelSocket, SoSndBuf}: {
		get: func(s Socket, _ Platform) (int, Errno) { return s.SendBufSize(), Ok },
		set: func(s Socket, v int) Errno {
			if v <= 0 || !s.SetSendBufSize(v) {
				return ERANGE
			}
			return Ok
		},
	},
	{LevelSocket, SoRcvBuf}: {
		// Receive buffering belongs to the stack; report its fixed
		// budget and accept (ignore) resizes the way the OS would
		// clamp them.
		get: func(s Socket, _ Platform) (int, Errno) { return s.RecvBufSize(), Ok },
		set: func(_ Socket, v int) Errno {
			if v <= 0 {
				return ERANGE
			}
			return Ok
		},
	},
	{LevelSocket, SoKeepAlive}: {
		get: func(s Socket, _ Platform) (int, Errno) { return boolInt(s.KeepAlive()), Ok },
		set: func(s Socket, v int) Errno {
			s.SetKeepAlive(v != 0)
			return Ok
		},
	},
	{LevelSocket, SoReuseAddr}: {
		// Harmless: the stack has no TIME_WAIT port holding, so
		// reuse is effectively always granted.
		get: func(_ Socket, _ Platform) (int, Errno) { return 1, Ok },
		set: func(_ Socket, _ int) Errno { return Ok },
	},
	{LevelSocket, SoError}: {
		get: func(s Socket, p Platform) (int, Errno) { return s.TakeLastError().Number(p), Ok },
	},
	{LevelTCP, TCPNoDelay}: {
		get: func(s Socket, _ Platform) (int, Errno) { return boolInt(s.NoDelay()), Ok },
		set: func(s Socket, v int) Errno {
			s.SetNoDelay(v != 0)
			return Ok
		},
	},
	{LevelIP, IPTTL}: {
		get: func(s Socket, _ Platform) (int, Errno) { return s.TTL(), Ok },
		set: func(_ Socket, v int) Errno {
			if v < 1 || v > 255 {
				return ERANGE
			}
			return Ok
		},
	},
	{LevelIP, IPMulticastLoop}: {
		// The stack has no multicast loopback; it always reports
		// disabled and accepts attempts to disable it.
		get: func(_ Socket, _ Platform) (int, Errno) { return 0, Ok },
		set: func(_ Socket, v int) Errno {
			if v != 0 {
				return ERANGE
			}
			return Ok
		},
	},
	{LevelIPv6, IPv6V6Only}: {
		get: func(s Socket, _ Platform) (int, Errno) { return boolInt(s.V6Only()), Ok },
		set: func(s Socket, v int) Errno {
			if !s.SetV6Only(v != 0) {
				return EINVAL
			}
			return Ok
		},
	},
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Get looks up (level, name) and writes the option value into out. Unknown
// pairs are ENOPROTOOPT; a known pair with len(out) != 4 is EINVAL.
func Get(s Socket, p Platform, level, name int, out []byte) Errno {
	e, ok := options[optKey{level, name}]
	if !ok || e.get == nil {
		return ENOPROTOOPT
	}
	if len(out) != optionSize {
		return EINVAL
	}
	v, errno := e.get(s, p)
	if errno != Ok {
		return errno
	}
	binary.LittleEndian.PutUint32(out, uint32(v))
	return Ok
}

// Set looks up (level, name) and applies the option value in in. Unknown
// pairs are ENOPROTOOPT; a known pair with len(in) != 4 is EINVAL; a legal
// payload with an out-of-range value is ERANGE.
func Set(s Socket, p Platform, level, name int, in []byte) Errno {
	e, ok := options[optKey{level, name}]
	if !ok || e.set == nil {
		return ENOPROTOOPT
	}
	if len(in) != optionSize {
		return EINVAL
	}
	return e.set(s, int(int32(binary.LittleEndian.Uint32(in))))
}
