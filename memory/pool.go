//  pool.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Slab-class pool backing KindPool blocks. Sizes are served from a small set
//  of chunk classes whose sizes grow geometrically, each with its own free
//  list.

package memory

import "sync"

const (
	// DefaultPoolChunkSize is the smallest slab class of the default pool,
	// sized for typical MTU payloads.
	DefaultPoolChunkSize = 2 << 10

	// DefaultPoolMaxChunkSize caps what the default pool will serve; larger
	// requests fall through to the heap.
	DefaultPoolMaxChunkSize = 64 << 10

	poolGrowthFactor = 2
)

// Pool hands out fixed-size slabs grouped into geometric size classes. A
// block served from a pool returns to it when its last reference drops, which
// may happen on any goroutine, so the free lists are locked.
type Pool struct {
	mu      sync.Mutex
	classes []poolClass

	maxChunkSize int
	// maxFreePerClass bounds retained slabs per class; beyond it slabs are
	// dropped to the garbage collector.
	maxFreePerClass int
}

type poolClass struct {
	chunkSize int
	free      [][]byte
}

// NewPool builds a pool with chunk classes from startChunkSize up to
// maxChunkSize, doubling between classes.
func NewPool(startChunkSize, maxChunkSize, maxFreePerClass int) *Pool {
	if startChunkSize <= 0 {
		startChunkSize = DefaultPoolChunkSize
	}
	if maxChunkSize < startChunkSize {
		maxChunkSize = startChunkSize
	}
	p := &Pool{
		maxChunkSize:    maxChunkSize,
		maxFreePerClass: maxFreePerClass,
	}
	for size := startChunkSize; ; size *= poolGrowthFactor {
		p.classes = append(p.classes, poolClass{chunkSize: size})
		if size >= maxChunkSize {
			break
		}
	}
	return p
}

// NewHandle allocates a writable handle served from the pool when the size
// fits a slab class, falling back to the heap otherwise. Returns the empty
// handle when size is not positive.
func (p *Pool) NewHandle(size int) Handle {
	b := allocBlock(size, p)
	if b == nil {
		return Handle{}
	}
	return Handle{v: view{block: b, off: 0, n: size}}
}

// get returns a slab of at least size bytes, sliced to size, or nil when the
// size exceeds the pool's largest class.
func (p *Pool) get(size int) []byte {
	if p == nil || size > p.maxChunkSize {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.classes {
		c := &p.classes[i]
		if size > c.chunkSize {
			continue
		}
		if n := len(c.free); n > 0 {
			buf := c.free[n-1]
			c.free[n-1] = nil
			c.free = c.free[:n-1]
			return buf[:size]
		}
		return make([]byte, size, c.chunkSize)
	}
	return nil
}

// put returns a slab to its class free list. Slabs whose capacity matches no
// class, and overflow beyond maxFreePerClass, are dropped.
func (p *Pool) put(buf []byte) {
	if p == nil || cap(buf) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.classes {
		c := &p.classes[i]
		if cap(buf) != c.chunkSize {
			continue
		}
		if p.maxFreePerClass > 0 && len(c.free) >= p.maxFreePerClass {
			return
		}
		c.free = append(c.free, buf[:0])
		return
	}
}

// freeCount reports retained slabs across all classes; used by tests and the
// memtest probe.
func (p *Pool) freeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for i := range p.classes {
		total += len(p.classes[i].free)
	}
	return total
}
