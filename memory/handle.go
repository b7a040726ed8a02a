//  handle.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  The user-visible shared-ownership view over a memory block.

package memory

// Handle is an immutable-by-default, shareable slice of a block. Sharing is
// explicit: Clone takes a reference (or degrades to an independent deep copy
// when the counter is saturated) and Release drops one. Handles obtained from
// constructors or Clone must each be released exactly once.
//
// A Handle value must not be used from two goroutines at once; clones of it
// may.
type Handle struct {
	v view
}

// NewHandle allocates a writable handle of the given size with uninitialized
// contents. Returns the empty handle when size is not positive or allocation
// fails.
func NewHandle(size int) Handle {
	b := allocBlock(size, nil)
	if b == nil {
		return Handle{}
	}
	return Handle{v: view{block: b, off: 0, n: size}}
}

// NewHandleCopy allocates a handle holding a copy of p.
func NewHandleCopy(p []byte) Handle {
	h := NewHandle(len(p))
	if !h.Empty() {
		copy(h.v.block.data, p)
	}
	return h
}

// NewExternalHandle wraps externally owned memory. dealloc is invoked with
// (data, user) exactly once, when the last handle over the memory is
// released. An empty data slice yields the empty handle and dealloc is called
// immediately.
func NewExternalHandle(data []byte, dealloc Deallocator, user any) Handle {
	if len(data) == 0 {
		if dealloc != nil {
			dealloc(data, user)
		}
		return Handle{}
	}
	b := newBlock(KindExternal, data)
	b.dealloc = dealloc
	b.user = user
	return Handle{v: view{block: b, off: 0, n: len(data)}}
}

// Empty reports whether the handle references no memory. Size() == 0 exactly
// when Empty() is true.
func (h Handle) Empty() bool {
	return h.v.empty()
}

// Size returns the number of bytes visible through the handle.
func (h Handle) Size() int {
	return h.v.n
}

// Bytes exposes the handle's payload for reading. Callers must not mutate the
// returned slice; use WritableBytes for that.
func (h Handle) Bytes() []byte {
	return h.v.bytes()
}

// Tag returns the diagnostic tag byte of the underlying block.
func (h Handle) Tag() byte {
	if h.v.block == nil {
		return 0
	}
	return h.v.block.tag
}

// SetTag stamps the diagnostic tag byte on the underlying block.
func (h Handle) SetTag(tag byte) {
	if h.v.block != nil {
		h.v.block.tag = tag
	}
}

// Clone returns a handle sharing this handle's bytes. When the block's
// reference counter is saturated the clone silently becomes an independent
// deep copy; allocation failure yields the empty handle, never a partial one.
func (h Handle) Clone() Handle {
	if h.v.block == nil {
		return Handle{}
	}
	if h.v.block.ref() {
		return Handle{v: h.v}
	}
	return NewHandleCopy(h.Bytes())
}

// Slice returns a handle over [off, off+n) of this handle, sharing the
// underlying block; no bytes are copied. Out-of-range arguments or n == 0
// yield the empty handle.
func (h Handle) Slice(off, n int) Handle {
	nv := h.v.narrowed(off, n)
	if nv.empty() {
		return Handle{}
	}
	if !nv.block.ref() {
		return NewHandleCopy(nv.bytes())
	}
	return Handle{v: nv}
}

// Consume trims n bytes off the front of the handle without copying.
// Consuming the entire handle (or more) releases it.
func (h *Handle) Consume(n int) {
	if n <= 0 || h.v.block == nil {
		return
	}
	if n >= h.v.n {
		h.Release()
		return
	}
	h.v.off += n
	h.v.n -= n
}

// WritableBytes returns a mutable slice over the handle's payload,
// copy-on-writing first when the block is shared or of a read-only kind.
// Returns nil if the handle is empty or the copy could not be allocated; a
// failed copy leaves the handle intact.
func (h *Handle) WritableBytes() []byte {
	if !h.ensureWritable() {
		return nil
	}
	return h.v.bytes()
}

// ensureWritable makes the handle the sole owner of writable memory. It is a
// no-op for a solely owned writable block. Otherwise a same-size block is
// allocated (preferring the original's pool), the payload copied, and the
// original unreferenced only after the copy succeeded.
func (h *Handle) ensureWritable() bool {
	b := h.v.block
	if b == nil {
		return false
	}
	if b.refs.Load() == 1 && b.writableKind() {
		return true
	}
	nb := allocBlock(h.v.n, b.pool)
	if nb == nil {
		return false
	}
	copy(nb.data, h.v.bytes())
	b.unref()
	h.v = view{block: nb, off: 0, n: len(nb.data)}
	return true
}

// Release drops the handle's reference and clears it. Releasing the empty
// handle is a no-op; a Handle must not be released twice.
func (h *Handle) Release() {
	if h.v.block != nil {
		h.v.block.unref()
	}
	h.v = view{}
}
