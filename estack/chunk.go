//  chunk.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Chunk chains: the stack's packet representation. One logical packet is a
//  linked sequence of chunks, each individually reference counted. Chain
//  links are structural and carry no reference of their own; freeing a chunk
//  cascades down the chain until it meets a chunk someone else still holds.

package estack

// ChunkKind describes where a chunk's payload lives.
type ChunkKind uint8

const (
	// ChunkRAM payload is allocated with the chunk itself.
	ChunkRAM ChunkKind = iota
	// ChunkRef payload references memory owned by someone else; the
	// release hook gives it back.
	ChunkRef
)

// Chunk is one fragment of a packet chain.
type Chunk struct {
	next *Chunk

	payload []byte
	// totLen is len(payload) plus the payloads of every following chunk.
	// Maintained on every head of a well-formed chain.
	totLen int

	kind ChunkKind
	refs int32

	// onRelease runs exactly once, when the chunk's reference count hits
	// zero. Set for ChunkRef chunks wrapping foreign memory.
	onRelease func()
}

// NewChunk allocates a RAM chunk with an uninitialized payload of the given
// length. Returns nil when length is negative or memory is exhausted.
func NewChunk(length int) *Chunk {
	if length < 0 {
		return nil
	}
	return &Chunk{
		payload: make([]byte, length),
		totLen:  length,
		kind:    ChunkRAM,
		refs:    1,
	}
}

// NewRefChunk wraps externally owned memory as a zero-copy chunk. onRelease,
// if non-nil, is invoked exactly once when the stack is done with the chunk.
func NewRefChunk(data []byte, onRelease func()) *Chunk {
	return &Chunk{
		payload:   data,
		totLen:    len(data),
		kind:      ChunkRef,
		refs:      1,
		onRelease: onRelease,
	}
}

// Ref takes another reference on this chunk only (not the chain).
func (c *Chunk) Ref() {
	if c != nil {
		c.refs++
	}
}

// Free drops one reference from c and, for every chunk that reaches zero,
// releases it and continues down the chain. It stops at the first chunk still
// referenced elsewhere. Returns the number of chunks released.
func (c *Chunk) Free() int {
	freed := 0
	for c != nil {
		c.refs--
		if c.refs > 0 {
			break
		}
		next := c.next
		if c.onRelease != nil {
			rel := c.onRelease
			c.onRelease = nil
			rel()
		}
		c.payload = nil
		c.next = nil
		freed++
		c = next
	}
	return freed
}

// Len returns the length of this chunk's own payload.
func (c *Chunk) Len() int {
	if c == nil {
		return 0
	}
	return len(c.payload)
}

// TotalLen returns the length of this chunk plus everything chained after
// it.
func (c *Chunk) TotalLen() int {
	if c == nil {
		return 0
	}
	return c.totLen
}

// Bytes exposes this chunk's own payload.
func (c *Chunk) Bytes() []byte {
	if c == nil {
		return nil
	}
	return c.payload
}

// Next returns the following chunk in the chain, nil at the tail.
func (c *Chunk) Next() *Chunk {
	if c == nil {
		return nil
	}
	return c.next
}

// Cat appends tail to the chain headed by c, transferring ownership of the
// caller's reference on tail to the chain. Totals along c's chain are
// updated.
func (c *Chunk) Cat(tail *Chunk) {
	if c == nil || tail == nil {
		return
	}
	cur := c
	for {
		cur.totLen += tail.totLen
		if cur.next == nil {
			break
		}
		cur = cur.next
	}
	cur.next = tail
}

// TrimFront drops n bytes from the front of this chunk's own payload,
// adjusting totals. n beyond the chunk's payload is clamped.
func (c *Chunk) TrimFront(n int) {
	if c == nil || n <= 0 {
		return
	}
	if n > len(c.payload) {
		n = len(c.payload)
	}
	c.payload = c.payload[n:]
	c.totLen -= n
}

// CopyOut flattens up to len(dst) bytes of the chain into dst, returning the
// number copied.
func (c *Chunk) CopyOut(dst []byte) int {
	n := 0
	for cur := c; cur != nil && n < len(dst); cur = cur.next {
		n += copy(dst[n:], cur.payload)
	}
	return n
}

// appendChain builds a RAM chunk holding a copy of p and cats it onto c,
// returning the head (c, or the new chunk when c is nil).
func appendChain(c *Chunk, p []byte) *Chunk {
	nc := NewChunk(len(p))
	if nc == nil {
		return c
	}
	copy(nc.payload, p)
	if c == nil {
		return nc
	}
	c.Cat(nc)
	return c
}
