// Package alloc implements a first-fit free-list allocator over large
// anonymous regions acquired from the operating system.
//
// # Overview
//
// An Engine owns a chain of OS-supplied regions and partitions each one into
// free spans and live allocations. All bookkeeping lives in-band: a region
// descriptor sits at each region's base, every free span starts with a
// descriptor carrying its length and doubly linked list pointers, and every
// live allocation is preceded by a fixed-size header recording how to
// reconstruct the span it came from.
//
// # Allocation
//
//	src := pagesource.New(nil)
//	e, err := alloc.New(src, alloc.WithInitialRegionSize(64*1024))
//	if err != nil {
//	    return err
//	}
//
//	p := e.Allocate(256, 8)
//	if p == nil {
//	    return alloc.ErrNoSpace
//	}
//
//	// Write up to 256 bytes at p...
//	buf := unsafe.Slice((*byte)(p), 256)
//	copy(buf, payload)
//
//	e.Deallocate(p, 256)
//
// Allocate walks a single free list shared across all regions and returns
// the first span that can hold the header plus the aligned payload. When no
// span fits, the engine grows by acquiring a new region and retries the
// search exactly once. Deallocate reads the header below the pointer,
// rebuilds the original span, and coalesces it with address-adjacent free
// neighbors in the same region.
//
// # Split behavior
//
// A selected span gives up only what the allocation needs. An alignment
// prefix or trailing remainder large enough to hold a span descriptor is
// carved off and reinserted into the free list; smaller fragments are
// absorbed into the allocation's span and returned to the list intact when
// the allocation is freed.
//
// # Statistics
//
// The engine counts bytes and calls in both directions plus failed
// allocations, and reports an internal fragmentation ratio over live
// allocations. Stats returns a snapshot by value; ResetStats zeroes the
// counters.
//
// # Thread safety
//
// Engine instances are not thread-safe. Callers must synchronize access
// externally; pkg/heap wraps one process-wide Engine behind a mutex.
package alloc
