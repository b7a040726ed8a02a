//  file_other.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  File-backed handle constructors, portable fallback.

//go:build !unix

package memory

import "os"

// ReadFile reads the whole file at path into a heap-backed handle. Any
// failure yields the empty handle.
func ReadFile(path string) Handle {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return Handle{}
	}
	return Handle{v: view{block: newBlock(KindHeap, data), off: 0, n: len(data)}}
}

// ReadFd reads the whole regular file behind fd into a heap-backed handle.
// Raw descriptor access is not portable off Unix; without a way to read the
// descriptor while leaving it owned by the caller, this reports failure as
// the empty handle. Use ReadFile instead.
func ReadFd(fd int) Handle {
	return Handle{}
}

// MapFileReadOnly is unavailable on this platform; it degrades to a plain
// read marked read-only so copy-on-write behavior stays identical.
func MapFileReadOnly(path string) Handle {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return Handle{}
	}
	return Handle{v: view{block: newBlock(KindReadOnly, data), off: 0, n: len(data)}}
}

func unmapBlock([]byte) {}
