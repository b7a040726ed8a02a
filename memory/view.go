//  view.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

package memory

// view is a non-owning (block, offset, length) triple. Either every field is
// zero, or the block is non-nil and [off, off+n) lies within its payload.
// Ownership moves through explicit ref/unref on the block; the view itself
// never counts.
type view struct {
	block *blockRef
	off   int
	n     int
}

// blockRef aliases block so the zero view reads naturally; kept distinct from
// Handle's exported surface.
type blockRef = block

func (v view) empty() bool {
	return v.block == nil
}

func (v view) bytes() []byte {
	if v.block == nil {
		return nil
	}
	return v.block.data[v.off : v.off+v.n]
}

// narrowed returns a view over [off, off+n) of v without touching the
// reference count. The caller is responsible for taking a reference if the
// result outlives v. Out-of-range arguments yield the empty view.
func (v view) narrowed(off, n int) view {
	if off < 0 || n < 0 || off+n > v.n || v.block == nil {
		return view{}
	}
	if n == 0 {
		return view{}
	}
	return view{block: v.block, off: v.off + off, n: n}
}
