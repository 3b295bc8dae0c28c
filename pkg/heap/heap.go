// Package heap exposes one process-wide free-list engine behind a mutex,
// suitable as the raw allocation entry point for a language runtime. All
// functions serialize on a single lock; observers see allocations in one
// total order.
//
// The engine and its page source are constructed lazily on first use with a
// 64 KiB initial region and are never torn down; the package stays safe to
// call until process exit.
package heap

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/osmem/heapkit/heap/alloc"
	"github.com/osmem/heapkit/internal/pagesource"
)

// DefaultInitialRegionSize is the initial region requested for the
// process-wide engine.
const DefaultInitialRegionSize = 64 * 1024

// ErrOutOfMemory is returned by Alloc when the engine cannot satisfy the
// request and the page source cannot grow the heap.
var ErrOutOfMemory = errors.New("heap: out of memory")

var (
	mu      sync.Mutex
	once    sync.Once
	engine  *alloc.Engine
	initErr error
)

// ensure constructs the process-wide engine. Called with mu held.
func ensure() {
	once.Do(func() {
		src := pagesource.New(nil)
		engine, initErr = alloc.New(src,
			alloc.WithInitialRegionSize(DefaultInitialRegionSize))
	})
}

// Alloc returns a pointer to size writable bytes at natural alignment. A
// zero size is treated as one byte so every success returns a distinct live
// allocation. Fails with ErrOutOfMemory when the heap cannot grow.
func Alloc(size uintptr) (unsafe.Pointer, error) {
	return AllocAligned(size, 0)
}

// AllocAligned is Alloc with an explicit alignment. Zero or a
// non-power-of-two alignment means natural pointer alignment.
func AllocAligned(size, alignment uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		size = 1
	}
	mu.Lock()
	defer mu.Unlock()
	ensure()
	if initErr != nil {
		return nil, initErr
	}
	p := engine.Allocate(size, alignment)
	if p == nil {
		return nil, ErrOutOfMemory
	}
	return p, nil
}

// TryAlloc is the nothrow variant of Alloc: nil instead of an error.
func TryAlloc(size uintptr) unsafe.Pointer {
	p, err := Alloc(size)
	if err != nil {
		return nil
	}
	return p
}

// Free returns the allocation at p to the engine. Nil is a no-op.
func Free(p unsafe.Pointer) {
	FreeSized(p, 0)
}

// FreeSized is Free with an advisory size hint; the allocation header
// remains authoritative.
func FreeSized(p unsafe.Pointer, sizeHint uintptr) {
	if p == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	ensure()
	if initErr != nil {
		return
	}
	engine.Deallocate(p, sizeHint)
}

// Owns reports whether p lies inside the process-wide heap.
func Owns(p unsafe.Pointer) bool {
	mu.Lock()
	defer mu.Unlock()
	ensure()
	if initErr != nil {
		return false
	}
	return engine.Owns(p)
}

// Stats returns a snapshot of the process-wide engine's counters.
func Stats() alloc.Stats {
	mu.Lock()
	defer mu.Unlock()
	ensure()
	if initErr != nil {
		return alloc.Stats{}
	}
	return engine.Stats()
}

// ResetStats zeroes the process-wide engine's counters.
func ResetStats() {
	mu.Lock()
	defer mu.Unlock()
	ensure()
	if initErr != nil {
		return
	}
	engine.ResetStats()
}
