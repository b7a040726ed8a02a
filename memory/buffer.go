//  buffer.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Append-oriented writer over a single owned block.

package memory

import "unsafe"

// growthNumerator/growthDenominator encode the 1.5x growth policy.
const (
	growthNumerator   = 3
	growthDenominator = 2
)

// GrowableBuffer accumulates bytes into at most one block, growing it by 1.5x
// of the requested minimum. Exported handles share the block; the buffer
// regains sole ownership (by copying) before any further mutation.
type GrowableBuffer struct {
	block *block
	used  int
	pool  *Pool
}

// NewGrowableBuffer returns a buffer whose allocations are served from pool
// when possible. A nil pool means plain heap allocation.
func NewGrowableBuffer(pool *Pool) GrowableBuffer {
	return GrowableBuffer{pool: pool}
}

// Used returns the number of appended bytes.
func (g *GrowableBuffer) Used() int {
	return g.used
}

// Allocated returns the capacity of the current block.
func (g *GrowableBuffer) Allocated() int {
	if g.block == nil {
		return 0
	}
	return g.block.size()
}

// Bytes exposes the appended bytes for reading.
func (g *GrowableBuffer) Bytes() []byte {
	if g.block == nil {
		return nil
	}
	return g.block.data[:g.used]
}

// Append writes p after the bytes already accumulated. p may alias the
// buffer's own backing memory (for example a slice previously returned by
// Bytes); the source offset is captured before growing and the source pointer
// re-derived afterwards, so a reallocation during growth cannot invalidate
// the copy. Returns false, leaving the buffer unchanged, when memory could
// not be obtained.
func (g *GrowableBuffer) Append(p []byte) bool {
	if len(p) == 0 {
		return true
	}
	selfOff, self := g.aliasOffset(p)
	if !g.reserve(g.used + len(p)) {
		return false
	}
	src := p
	if self {
		src = g.block.data[selfOff : selfOff+len(p)]
	}
	g.used += copy(g.block.data[g.used:], src)
	return true
}

// AppendHandle appends the handle's bytes. The handle stays owned by the
// caller.
func (g *GrowableBuffer) AppendHandle(h Handle) bool {
	return g.Append(h.Bytes())
}

// AppendByte appends a single byte.
func (g *GrowableBuffer) AppendByte(b byte) bool {
	if !g.reserve(g.used + 1) {
		return false
	}
	g.block.data[g.used] = b
	g.used++
	return true
}

// Handle exports the accumulated bytes as a shared handle without copying.
// The buffer keeps its contents; a subsequent mutation copies first so the
// exported handle never observes it.
func (g *GrowableBuffer) Handle() Handle {
	if g.block == nil || g.used == 0 {
		return Handle{}
	}
	h := Handle{v: view{block: g.block, off: 0, n: g.used}}
	return h.Clone()
}

// TakeHandle exports the accumulated bytes and resets the buffer, handing the
// block over without any copy or extra reference.
func (g *GrowableBuffer) TakeHandle() Handle {
	if g.block == nil || g.used == 0 {
		g.Clear()
		return Handle{}
	}
	h := Handle{v: view{block: g.block, off: 0, n: g.used}}
	g.block = nil
	g.used = 0
	return h
}

// Clear releases the block and resets the buffer.
func (g *GrowableBuffer) Clear() {
	if g.block != nil {
		g.block.unref()
		g.block = nil
	}
	g.used = 0
}

// reserve ensures capacity for at least min bytes and sole ownership of a
// writable block. Growth allocates 1.5x the requested minimum.
func (g *GrowableBuffer) reserve(min int) bool {
	if g.block != nil && g.block.size() >= min &&
		g.block.refs.Load() == 1 && g.block.writableKind() {
		return true
	}
	size := min
	if g.block == nil || g.block.size() < min {
		size = min * growthNumerator / growthDenominator
	} else {
		// Same size; we only need to shed sharing.
		size = g.block.size()
	}
	nb := allocBlock(size, g.pool)
	if nb == nil {
		return false
	}
	if g.used > 0 {
		copy(nb.data, g.block.data[:g.used])
	}
	if g.block != nil {
		g.block.unref()
	}
	g.block = nb
	return true
}

// aliasOffset reports whether p points into the buffer's own block and, if
// so, at which byte offset. Raw pointers into the block are never trusted
// across reserve; only this offset is.
func (g *GrowableBuffer) aliasOffset(p []byte) (int, bool) {
	if g.block == nil || len(p) == 0 || len(g.block.data) == 0 {
		return 0, false
	}
	pp := uintptr(unsafe.Pointer(&p[0]))
	base := uintptr(unsafe.Pointer(&g.block.data[0]))
	if pp >= base && pp < base+uintptr(len(g.block.data)) {
		return int(pp - base), true
	}
	return 0, false
}
