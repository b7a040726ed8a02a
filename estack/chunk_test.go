package estack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainOf(t *testing.T, parts ...[]byte) *Chunk {
	t.Helper()
	var head *Chunk
	for _, p := range parts {
		c := NewChunk(len(p))
		require.NotNil(t, c)
		copy(c.payload, p)
		if head == nil {
			head = c
		} else {
			head.Cat(c)
		}
	}
	return head
}

func TestChunkCatTotals(t *testing.T) {
	head := chainOf(t, []byte("abc"), []byte(""), []byte("defg"))
	defer head.Free()

	assert.Equal(t, 3, head.Len())
	assert.Equal(t, 7, head.TotalLen())
	assert.Equal(t, 0, head.Next().Len())
	assert.Equal(t, 4, head.Next().TotalLen())
}

func TestChunkFreeCascadeStopsAtReferenced(t *testing.T) {
	head := chainOf(t, []byte("aa"), []byte("bb"), []byte("cc"))
	mid := head.Next()
	mid.Ref()

	freed := head.Free()
	assert.Equal(t, 1, freed, "cascade must stop at the chunk someone else holds")
	assert.Equal(t, []byte("bb"), mid.Bytes())

	freed = mid.Free()
	assert.Equal(t, 2, freed)
}

func TestRefChunkReleaseRunsOnce(t *testing.T) {
	released := 0
	data := []byte("zero-copy")
	c := NewRefChunk(data, func() { released++ })

	c.Ref()
	c.Free()
	assert.Zero(t, released)
	c.Free()
	assert.Equal(t, 1, released)
}

func TestChunkTrimFront(t *testing.T) {
	head := chainOf(t, []byte("abcdef"))
	defer head.Free()

	head.TrimFront(2)
	assert.Equal(t, []byte("cdef"), head.Bytes())
	assert.Equal(t, 4, head.TotalLen())

	head.TrimFront(100)
	assert.Zero(t, head.Len())
}

func TestChunkCopyOut(t *testing.T) {
	head := chainOf(t, []byte("hel"), []byte("lo "), []byte("you"))
	defer head.Free()

	dst := make([]byte, 9)
	assert.Equal(t, 9, head.CopyOut(dst))
	assert.Equal(t, []byte("hello you"), dst)

	short := make([]byte, 4)
	assert.Equal(t, 4, head.CopyOut(short))
	assert.Equal(t, []byte("hell"), short)
}

func TestSplitPayloadSkipsAndShares(t *testing.T) {
	head := chainOf(t, []byte("hdrhdr"), []byte(""), []byte("payload"))

	p := splitPayload(head, 6)
	require.NotNil(t, p)
	assert.Equal(t, []byte("payload"), p.Bytes())

	// Freeing the original chain must leave the payload reference alive.
	head.Free()
	assert.Equal(t, []byte("payload"), p.Bytes())
	p.Free()
}

func TestSplitPayloadMidChunk(t *testing.T) {
	head := chainOf(t, []byte("hdrPAYLOAD"))

	p := splitPayload(head, 3)
	require.NotNil(t, p)
	assert.Equal(t, []byte("PAYLOAD"), p.Bytes())
	head.Free()
	p.Free()

	assert.Nil(t, splitPayload(chainOf(t, []byte("x")), 1))
}
