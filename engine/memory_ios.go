//  memory_ios.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

//go:build ios

package engine

import "runtime/debug"

const (
	// iosMemoryLimit is the hard heap ceiling for packet tunnel provider
	// processes. Stay comfortably below the 50 MiB jetsam watermark.
	iosMemoryLimit = 32 << 20
	iosGCPercent   = 50
)

func init() {
	debug.SetMemoryLimit(iosMemoryLimit)
	debug.SetGCPercent(iosGCPercent)
}
