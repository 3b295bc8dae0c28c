package alloc

import (
	"fmt"
	"io"
	"sort"
)

// checkSpanLimit caps the free-list walk in CheckInvariants so a cycle in a
// corrupted list cannot hang the caller.
const checkSpanLimit = 1 << 20

// CheckInvariants walks the region chain and the free list and verifies the
// structural invariants the engine maintains: every span lies inside exactly
// one region, list links are consistent, spans do not overlap, and no two
// free spans in the same region touch. Returns nil when everything holds.
func (e *Engine) CheckInvariants() error {
	type spanInfo struct {
		addr, size, region uintptr
	}
	var spans []spanInfo

	seen := make(map[uintptr]bool)
	prev := uintptr(0)
	for addr := e.freeHead; addr != 0; addr = spanAt(addr).next {
		if seen[addr] || len(spans) >= checkSpanLimit {
			return fmt.Errorf("cycle in free list at %#x: %w", addr, ErrListCorrupt)
		}
		seen[addr] = true

		s := spanAt(addr)
		if s.prev != prev {
			return fmt.Errorf("span %#x has prev %#x, want %#x: %w",
				addr, s.prev, prev, ErrListCorrupt)
		}
		if s.size < spanDescSize {
			return fmt.Errorf("span %#x has size %d below descriptor size: %w",
				addr, s.size, ErrListCorrupt)
		}

		region := e.regionOf(addr)
		if region == 0 {
			return fmt.Errorf("span %#x: %w", addr, ErrSpanOutOfRegion)
		}
		if addr < region+regionDescSize || addr+s.size > region+regionAt(region).size {
			return fmt.Errorf("span %#x+%d exceeds region %#x: %w",
				addr, s.size, region, ErrSpanOutOfRegion)
		}

		spans = append(spans, spanInfo{addr: addr, size: s.size, region: region})
		prev = addr
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].addr < spans[j].addr })
	for i := 1; i < len(spans); i++ {
		lo, hi := spans[i-1], spans[i]
		if lo.addr+lo.size > hi.addr {
			return fmt.Errorf("spans %#x and %#x overlap: %w",
				lo.addr, hi.addr, ErrListCorrupt)
		}
		if lo.region == hi.region && lo.addr+lo.size == hi.addr {
			return fmt.Errorf("spans %#x and %#x touch: %w",
				lo.addr, hi.addr, ErrAdjacentSpans)
		}
	}
	return nil
}

// DumpFreeList writes a human-readable snapshot of the region chain, the
// free list, and the counters.
func (e *Engine) DumpFreeList(w io.Writer) {
	fmt.Fprintf(w, "=== free list ===\n")
	for base := e.regionHead; base != 0; base = regionAt(base).next {
		fmt.Fprintf(w, "region %#x size %d\n", base, regionAt(base).size)
	}
	n := 0
	for addr := e.freeHead; addr != 0; addr = spanAt(addr).next {
		fmt.Fprintf(w, "  span %#x size %d\n", addr, spanAt(addr).size)
		n++
		if n >= checkSpanLimit {
			fmt.Fprintf(w, "  ... walk aborted, list too long\n")
			break
		}
	}
	s := e.Stats()
	fmt.Fprintf(w, "spans=%d allocated=%d deallocated=%d usage=%d allocs=%d frees=%d failed=%d frag=%.3f\n",
		n, s.TotalAllocated, s.TotalDeallocated, s.CurrentUsage,
		s.AllocationCount, s.DeallocationCount, s.FailedAllocations,
		s.FragmentationRatio)
}

// FreeSpanCount returns the number of spans currently on the free list.
func (e *Engine) FreeSpanCount() int {
	n := 0
	for addr := e.freeHead; addr != 0; addr = spanAt(addr).next {
		n++
		if n >= checkSpanLimit {
			break
		}
	}
	return n
}
