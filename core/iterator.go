//  iterator.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Read-side zero-copy walk over a stack chunk chain.

package core

import "github.com/carnegie-technologies/pravala-toolkit-sub006/estack"

// ChunkIterator walks a chunk chain delivered by the stack without copying
// it. It holds one chunk reference at the current position; empty chunks are
// skipped transparently, so while the iterator is non-empty its current
// chunk always has bytes.
type ChunkIterator struct {
	chunk  *estack.Chunk
	offset int
}

// NewChunkIterator wraps a chain, taking over the caller's reference on it.
// Leading empty chunks are skipped immediately.
func NewChunkIterator(ch *estack.Chunk) ChunkIterator {
	it := ChunkIterator{chunk: ch}
	it.skipEmpty()
	return it
}

// Empty reports whether the iterator has been exhausted.
func (it *ChunkIterator) Empty() bool {
	return it.chunk == nil
}

// CurrentBytes returns the unread bytes of the current chunk only, not the
// whole remaining chain. Only valid while non-empty.
func (it *ChunkIterator) CurrentBytes() []byte {
	if it.chunk == nil {
		return nil
	}
	return it.chunk.Bytes()[it.offset:]
}

// CurrentSize returns the unread byte count of the current chunk only.
func (it *ChunkIterator) CurrentSize() int {
	return len(it.CurrentBytes())
}

// TotalRemaining sums the unread bytes across the whole remaining chain.
func (it *ChunkIterator) TotalRemaining() int {
	if it.chunk == nil {
		return 0
	}
	return it.chunk.TotalLen() - it.offset
}

// Consume advances n bytes, crossing chunk boundaries and releasing each
// fully consumed chunk. Returns whether the iterator remains non-empty.
func (it *ChunkIterator) Consume(n int) bool {
	for n > 0 && it.chunk != nil {
		avail := it.chunk.Len() - it.offset
		if n < avail {
			it.offset += n
			return true
		}
		n -= avail
		it.advance()
	}
	it.skipEmpty()
	return it.chunk != nil
}

// CopyOut flattens up to len(dst) unread bytes into dst without consuming
// them, returning the number copied.
func (it *ChunkIterator) CopyOut(dst []byte) int {
	n := 0
	cur, off := it.chunk, it.offset
	for cur != nil && n < len(dst) {
		n += copy(dst[n:], cur.Bytes()[off:])
		off = 0
		cur = cur.Next()
	}
	return n
}

// Clone returns an iterator sharing the chain at the same position. Each of
// the two must be released independently.
func (it *ChunkIterator) Clone() ChunkIterator {
	if it.chunk != nil {
		it.chunk.Ref()
	}
	return ChunkIterator{chunk: it.chunk, offset: it.offset}
}

// Release drops the iterator's chain reference and empties it. Releasing an
// exhausted iterator is a no-op.
func (it *ChunkIterator) Release() {
	if it.chunk != nil {
		it.chunk.Free()
		it.chunk = nil
	}
	it.offset = 0
}

// advance releases the current chunk and moves to the next, keeping the
// chain alive by referencing the next chunk before freeing the current one.
func (it *ChunkIterator) advance() {
	next := it.chunk.Next()
	if next != nil {
		next.Ref()
	}
	it.chunk.Free()
	it.chunk = next
	it.offset = 0
}

// skipEmpty enforces the invariant that a non-empty iterator is never parked
// on an empty chunk.
func (it *ChunkIterator) skipEmpty() {
	for it.chunk != nil && it.chunk.Len()-it.offset == 0 {
		it.advance()
	}
}
