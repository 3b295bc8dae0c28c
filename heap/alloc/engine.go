package alloc

import (
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"github.com/osmem/heapkit/internal/pagesource"
)

// Runtime debug flag for allocation logging - controlled by HEAP_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAP_LOG_ALLOC") != ""

// DefaultInitialRegionSize is the region size requested at construction when
// no option overrides it.
const DefaultInitialRegionSize = 1 << 20

// Engine is a first-fit free-list allocator over OS-supplied regions.
//
// Regions form a singly linked chain in acquisition order; free spans form
// one doubly linked list shared across all regions. Neither structure is
// safe for concurrent access.
type Engine struct {
	src *pagesource.Source

	regionHead uintptr // base of the most recently acquired region
	freeHead   uintptr // most recently inserted free span

	initialRegionSize uintptr
	log               *slog.Logger
	closed            bool

	stats struct {
		totalAllocated    uint64
		totalDeallocated  uint64
		currentUsage      uint64
		allocationCount   uint64
		deallocationCount uint64
		failedAllocations uint64
	}

	// Live-allocation gauges feeding the fragmentation ratio.
	liveRequested uintptr
	liveConsumed  uintptr
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithInitialRegionSize sets the size of the region acquired at construction
// and the floor for every later grow. Values below the engine's minimum are
// raised to it.
func WithInitialRegionSize(n uintptr) Option {
	return func(e *Engine) { e.initialRegionSize = n }
}

// WithLogger sets the logger for diagnostic output. Nil keeps slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New constructs an Engine backed by src and acquires its initial region.
func New(src *pagesource.Source, opts ...Option) (*Engine, error) {
	e := &Engine{
		src:               src,
		initialRegionSize: DefaultInitialRegionSize,
		log:               slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.initialRegionSize < minRegionSize {
		e.initialRegionSize = minRegionSize
	}
	if !e.grow(e.initialRegionSize) {
		return nil, fmt.Errorf("alloc: initial region of %d bytes: %w",
			e.initialRegionSize, ErrNoSpace)
	}
	return e, nil
}

// Allocate returns a pointer to size writable bytes aligned to alignment,
// or nil when size is zero or the heap cannot grow. A zero or
// non-power-of-two alignment is replaced by the natural pointer alignment.
func (e *Engine) Allocate(size, alignment uintptr) unsafe.Pointer {
	if e.closed || size == 0 {
		return nil
	}
	if alignment == 0 || alignment&(alignment-1) != 0 {
		alignment = naturalAlign
	}

	span := e.findFit(size, alignment)
	if span == 0 {
		// Grow once and retry; a second miss is a hard failure.
		if !e.grow(size+alignment+headerSize) {
			e.stats.failedAllocations++
			e.log.Warn("alloc: allocation failed, heap cannot grow",
				"size", size, "alignment", alignment)
			return nil
		}
		span = e.findFit(size, alignment)
		if span == 0 {
			e.stats.failedAllocations++
			e.log.Warn("alloc: allocation failed after grow",
				"size", size, "alignment", alignment)
			return nil
		}
	}

	p := e.carve(span, size, alignment)
	e.stats.totalAllocated += uint64(size)
	e.stats.currentUsage += uint64(size)
	e.stats.allocationCount++
	if logAlloc {
		e.log.Debug("alloc: allocate", "size", size, "alignment", alignment,
			"ptr", uintptr(p), "span", headerAt(uintptr(p)-headerSize).span)
	}
	return p
}

// Deallocate returns the allocation at p to the free list and coalesces.
// A nil pointer is a no-op. A pointer outside every owned region is logged
// and dropped without touching any state. sizeHint is informational only;
// the allocation header is authoritative.
func (e *Engine) Deallocate(p unsafe.Pointer, sizeHint uintptr) {
	if p == nil {
		return
	}
	addr := uintptr(p)
	region := e.regionOf(addr)
	if region == 0 || addr < region+regionDescSize+headerSize {
		// No header can precede this address inside our memory.
		e.log.Warn("alloc: deallocate of foreign pointer dropped",
			"ptr", addr, "size_hint", sizeHint)
		return
	}

	h := headerAt(addr - headerSize)
	start := addr - headerSize - h.prefix
	span := h.span
	requested := h.requested

	e.insertSpan(start, span)

	e.stats.totalDeallocated += uint64(requested)
	e.stats.currentUsage -= uint64(requested)
	e.stats.deallocationCount++
	e.liveRequested -= requested
	e.liveConsumed -= span

	e.coalesce()
	if logAlloc {
		e.log.Debug("alloc: deallocate", "ptr", addr, "span", span,
			"requested", requested, "size_hint", sizeHint)
	}
}

// Owns reports whether p lies inside a region owned by this engine.
func (e *Engine) Owns(p unsafe.Pointer) bool {
	return p != nil && e.regionOf(uintptr(p)) != 0
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		TotalAllocated:    e.stats.totalAllocated,
		TotalDeallocated:  e.stats.totalDeallocated,
		CurrentUsage:      e.stats.currentUsage,
		AllocationCount:   e.stats.allocationCount,
		DeallocationCount: e.stats.deallocationCount,
		FailedAllocations: e.stats.failedAllocations,
	}
	if e.liveConsumed > 0 {
		s.FragmentationRatio = 1 - float64(e.liveRequested)/float64(e.liveConsumed)
	}
	return s
}

// ResetStats zeroes the counters. The usage gauge re-seeds from the bytes
// still live so deallocating a pre-reset allocation cannot drive it below
// zero; the live gauges themselves are left alone so the fragmentation
// ratio stays truthful across a reset.
func (e *Engine) ResetStats() {
	e.stats.totalAllocated = 0
	e.stats.totalDeallocated = 0
	e.stats.currentUsage = uint64(e.liveRequested)
	e.stats.allocationCount = 0
	e.stats.deallocationCount = 0
	e.stats.failedAllocations = 0
}

// Close releases every region back to the page source and empties the free
// list. Any pointer into the engine is invalid afterwards. Returns ErrClosed
// on a second call.
func (e *Engine) Close() error {
	if e.closed {
		return ErrClosed
	}
	for base := e.regionHead; base != 0; {
		next := regionAt(base).next
		size := regionAt(base).size
		e.src.Release(unsafe.Slice((*byte)(unsafe.Pointer(base)), size))
		base = next
	}
	e.regionHead = 0
	e.freeHead = 0
	e.closed = true
	return nil
}

// RegionCount returns the number of regions currently owned.
func (e *Engine) RegionCount() int {
	n := 0
	for base := e.regionHead; base != 0; base = regionAt(base).next {
		n++
	}
	return n
}

// findFit walks the free list from the head and returns the first span that
// can hold the header plus the aligned payload, or 0.
func (e *Engine) findFit(size, alignment uintptr) uintptr {
	for addr := e.freeHead; addr != 0; addr = spanAt(addr).next {
		user := alignUp(addr+headerSize, alignment)
		prefix := user - headerSize - addr
		if prefix+headerSize+size <= spanAt(addr).size {
			return addr
		}
	}
	return 0
}

// carve removes the span at spanAddr from the free list, splits off any
// reusable prefix and suffix, writes the allocation header, and returns the
// user pointer. The caller has already verified the fit.
func (e *Engine) carve(spanAddr, size, alignment uintptr) unsafe.Pointer {
	length := spanAt(spanAddr).size
	end := spanAddr + length
	e.removeSpan(spanAddr)

	user := alignUp(spanAddr+headerSize, alignment)
	prefix := user - headerSize - spanAddr
	start := spanAddr
	if prefix >= spanDescSize {
		// The alignment gap is big enough to live on as its own span.
		e.insertSpan(spanAddr, prefix)
		start = user - headerSize
		prefix = 0
	}

	spanLen := end - start
	if tail := end - (user + size); tail >= spanDescSize {
		e.insertSpan(user+size, tail)
		spanLen = user + size - start
	}

	h := headerAt(user - headerSize)
	h.span = spanLen
	h.requested = size
	h.prefix = prefix

	e.liveRequested += size
	e.liveConsumed += spanLen
	return unsafe.Pointer(user)
}

// grow acquires a region large enough for minBytes plus a region descriptor,
// chains it at the head of the region list, and inserts its body as one free
// span. Reports whether the page source delivered.
func (e *Engine) grow(minBytes uintptr) bool {
	req := minBytes + regionDescSize
	if req < e.initialRegionSize {
		req = e.initialRegionSize
	}
	if req < regionDescSize+spanDescSize {
		req = regionDescSize + spanDescSize
	}
	mem := e.src.Acquire(req)
	if mem == nil {
		return false
	}
	base := uintptr(unsafe.Pointer(&mem[0]))
	size := uintptr(len(mem))

	rd := regionAt(base)
	rd.size = size
	rd.next = e.regionHead
	e.regionHead = base

	e.insertSpan(base+regionDescSize, size-regionDescSize)
	if logAlloc {
		e.log.Debug("alloc: grew heap", "region_bytes", size,
			"regions", e.RegionCount())
	}
	return true
}

// insertSpan writes a span descriptor at addr and pushes it onto the head of
// the free list.
func (e *Engine) insertSpan(addr, size uintptr) {
	s := spanAt(addr)
	s.size = size
	s.next = e.freeHead
	s.prev = 0
	if e.freeHead != 0 {
		spanAt(e.freeHead).prev = addr
	}
	e.freeHead = addr
}

// removeSpan unlinks the span at addr from the free list.
func (e *Engine) removeSpan(addr uintptr) {
	s := spanAt(addr)
	if s.prev != 0 {
		spanAt(s.prev).next = s.next
	} else {
		e.freeHead = s.next
	}
	if s.next != 0 {
		spanAt(s.next).prev = s.prev
	}
}

// regionOf returns the base of the region containing addr, or 0.
func (e *Engine) regionOf(addr uintptr) uintptr {
	for base := e.regionHead; base != 0; base = regionAt(base).next {
		if addr >= base && addr < base+regionAt(base).size {
			return base
		}
	}
	return 0
}
