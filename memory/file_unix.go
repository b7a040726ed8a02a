//  file_unix.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  File-backed handle constructors.

//go:build unix

package memory

import (
	"golang.org/x/sys/unix"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/log"
)

// ReadFile reads the whole file at path into a heap-backed handle. Any
// failure yields the empty handle.
func ReadFile(path string) Handle {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		log.Debugf("memory: open %q: %v", path, err)
		return Handle{}
	}
	defer unix.Close(fd)
	return ReadFd(fd)
}

// ReadFd reads the whole regular file behind fd into a heap-backed handle.
// The descriptor stays owned by the caller. Any failure yields the empty
// handle.
func ReadFd(fd int) Handle {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil || st.Size <= 0 {
		return Handle{}
	}
	h := NewHandle(int(st.Size))
	if h.Empty() {
		return Handle{}
	}
	buf := h.v.bytes()
	read := 0
	for read < len(buf) {
		n, err := unix.Pread(fd, buf[read:], int64(read))
		if err == unix.EINTR {
			continue
		}
		if err != nil || n <= 0 {
			h.Release()
			return Handle{}
		}
		read += n
	}
	return h
}

// MapFileReadOnly maps the file at path read-only. The resulting handle is of
// KindReadOnly: any mutable access copies first, and the mapping is removed
// when the last handle over it is released. Any failure yields the empty
// handle.
func MapFileReadOnly(path string) Handle {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		log.Debugf("memory: open %q: %v", path, err)
		return Handle{}
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil || st.Size <= 0 {
		return Handle{}
	}
	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		log.Debugf("memory: mmap %q: %v", path, err)
		return Handle{}
	}
	b := newBlock(KindReadOnly, data)
	return Handle{v: view{block: b, off: 0, n: len(data)}}
}

func unmapBlock(data []byte) {
	if len(data) == 0 {
		return
	}
	if err := unix.Munmap(data); err != nil {
		log.Warnf("memory: munmap: %v", err)
	}
}
