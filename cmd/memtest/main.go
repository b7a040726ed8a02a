//  main.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Heap probe: boots the engine, pushes packets through it and reports
//  runtime memory statistics at each stage. Useful for eyeballing the
//  footprint against tunnel-process memory budgets.

package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/engine"
)

type stubEmitter struct{}

func (stubEmitter) EmitPacket(packet []byte, protocolNumber int32) error { return nil }

func printStats(tag string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Printf("%s: alloc=%d total=%d sys=%d heapAlloc=%d heapSys=%d stack=%d gcSys=%d otherSys=%d\n",
		tag, m.Alloc, m.TotalAlloc, m.Sys, m.HeapAlloc, m.HeapSys, m.StackInuse, m.GCSys, m.OtherSys)
}

func main() {
	printStats("startup")

	cfg, err := engine.ParseConfig([]byte(`
mtu: 1500
ipv4-address: 10.0.0.2
pool-block-size: 2KiB
pool-max-block-size: 64KiB
`))
	if err != nil {
		panic(err)
	}

	eng, err := engine.NewEngine(cfg, stubEmitter{})
	if err != nil {
		panic(err)
	}
	printStats("after NewEngine")

	if err := eng.Start(); err != nil {
		panic(err)
	}
	printStats("after Start")

	// Push traffic through the pool and stack paths.
	pkt := make([]byte, 1500)
	pkt[0] = 0x45 // IPv4, drops cleanly in the stack
	for i := 0; i < 10000; i++ {
		if err := eng.HandlePacket(pkt); err != nil {
			panic(err)
		}
	}
	time.Sleep(500 * time.Millisecond)
	printStats("after traffic")

	runtime.GC()
	printStats("after GC")
	debug.FreeOSMemory()
	printStats("after FreeOSMemory")

	eng.Stop()
	printStats("after Stop")
}
