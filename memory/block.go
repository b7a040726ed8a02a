//  block.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Reference-counted memory blocks that back every handle in the packet path.

// Package memory implements the toolkit's memory ownership model: shared,
// reference-counted blocks exposed through immutable-by-default handles with
// copy-on-write mutation, plus an append-oriented growable buffer.
//
// The layer is callback-driven and single-threaded by contract. Independent
// handles referencing the same block may live on different goroutines because
// sharing only ever touches the block's atomic counter, but one handle value
// (or a structure owning it) must not be used from two goroutines at once.
package memory

import (
	"go.uber.org/atomic"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/log"
)

// Kind describes how a block's payload was obtained and therefore how it must
// be released once the last reference drops.
type Kind uint8

const (
	// KindHeap is a regular garbage-collected allocation.
	KindHeap Kind = iota
	// KindReadOnly is a read-only file mapping. Handles over it always
	// copy before granting mutable access.
	KindReadOnly
	// KindPool is a slab served by a Pool; release returns it there.
	KindPool
	// KindExternal is externally owned memory released through a
	// registered deallocator callback.
	KindExternal
)

// Deallocator releases externally owned memory. It is invoked exactly once,
// when the owning block's reference count reaches zero.
type Deallocator func(data []byte, user any)

// refCeiling is the saturation point of the block reference counter. It sits
// well below the int32 overflow point; a ref() that would cross it fails and
// the caller degrades to a deep copy instead.
const refCeiling = 1<<31 - 256

// block is the unit of ownership. It is never handed to users directly; all
// access goes through Handle.
type block struct {
	refs atomic.Int32

	kind Kind
	// tag is an opaque diagnostic byte carried alongside the payload.
	tag byte

	data []byte

	pool    *Pool
	dealloc Deallocator
	user    any
}

func newBlock(kind Kind, data []byte) *block {
	b := &block{kind: kind, data: data}
	b.refs.Store(1)
	return b
}

// allocBlock obtains a writable block of the given size, preferring the pool
// when one is supplied and can serve the size. Returns nil when size is not
// positive.
func allocBlock(size int, pool *Pool) *block {
	if size <= 0 {
		return nil
	}
	if pool != nil {
		if data := pool.get(size); data != nil {
			b := newBlock(KindPool, data)
			b.pool = pool
			return b
		}
	}
	return newBlock(KindHeap, make([]byte, size))
}

// ref takes one more reference. It returns false, without incrementing, when
// the counter has reached its ceiling; the caller must fall back to copying.
func (b *block) ref() bool {
	for {
		cur := b.refs.Load()
		if cur >= refCeiling {
			return false
		}
		if b.refs.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// unref drops one reference and releases the block when the count reaches
// zero. Release is kind-specific and runs exactly once.
func (b *block) unref() {
	left := b.refs.Dec()
	if left > 0 {
		return
	}
	if left < 0 {
		log.Errorf("memory: block over-released; kind=%d tag=%d", b.kind, b.tag)
		return
	}
	b.release()
}

func (b *block) release() {
	switch b.kind {
	case KindPool:
		if b.pool != nil {
			b.pool.put(b.data)
		}
	case KindReadOnly:
		unmapBlock(b.data)
	case KindExternal:
		if b.dealloc != nil {
			b.dealloc(b.data, b.user)
		}
	}
	b.data = nil
	b.pool = nil
	b.dealloc = nil
	b.user = nil
}

// writableKind reports whether payload of this kind may be mutated in place
// when solely owned.
func (b *block) writableKind() bool {
	return b.kind != KindReadOnly
}

func (b *block) size() int {
	return len(b.data)
}
