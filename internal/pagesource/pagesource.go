// Package pagesource acquires page-aligned anonymous memory directly from
// the operating system, bypassing the Go heap. It is the backing store for
// the free-list engine in heap/alloc.
//
// Regions handed out by Acquire are zero-filled, readable, writable, and
// aligned to the OS page size. The package keeps monotonic counters of
// everything it has handed out and taken back.
package pagesource

import (
	"log/slog"
)

// maxPageSize is the largest page size the allocator is prepared to work
// with. Anything larger (or a non-power-of-two) from the OS is treated as
// misreported and replaced with fallbackPageSize.
const (
	maxPageSize      = 64 * 1024
	fallbackPageSize = 4096
)

// Source hands out page-aligned anonymous regions from the OS.
//
// A Source is not safe for concurrent use; callers serialize access
// externally (the heap façade holds its mutex across every call).
type Source struct {
	pageSize uintptr
	log      *slog.Logger
	stats    Stats
}

// Stats holds the counters a Source maintains across its lifetime.
type Stats struct {
	TotalAllocated    uint64 // page-rounded bytes handed out
	TotalDeallocated  uint64 // page-rounded bytes taken back
	CurrentUsage      uint64 // bytes currently out
	AllocationCount   uint64 // successful Acquire calls
	DeallocationCount uint64 // successful Release calls
}

// New returns a Source using the OS page size, queried once here.
// A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	ps := osPageSize()
	if ps == 0 || ps > maxPageSize || ps&(ps-1) != 0 {
		logger.Warn("pagesource: implausible OS page size, using fallback",
			"reported", ps, "fallback", fallbackPageSize)
		ps = fallbackPageSize
	}
	return &Source{pageSize: ps, log: logger}
}

// PageSize returns the page size this Source rounds to.
func (s *Source) PageSize() uintptr { return s.pageSize }

// AlignToPage rounds size up to the next page boundary.
func (s *Source) AlignToPage(size uintptr) uintptr {
	return (size + s.pageSize - 1) &^ (s.pageSize - 1)
}

// Acquire maps at least size bytes of zero-filled anonymous memory.
// The returned slice is page-aligned and its length is the page-rounded
// size. Returns nil on failure or when size is zero; a zero request makes
// no system call.
func (s *Source) Acquire(size uintptr) []byte {
	if size == 0 {
		return nil
	}
	aligned := s.AlignToPage(size)
	mem, err := mapAnon(int(aligned))
	if err != nil {
		s.log.Warn("pagesource: anonymous map failed", "bytes", aligned, "error", err)
		return nil
	}
	s.stats.TotalAllocated += uint64(aligned)
	s.stats.CurrentUsage += uint64(aligned)
	s.stats.AllocationCount++
	return mem
}

// Release returns a region obtained from Acquire to the OS. mem must be the
// exact slice Acquire returned. A nil or empty slice is a no-op. An unmap
// failure is logged and swallowed; the counters move only on success.
func (s *Source) Release(mem []byte) {
	if len(mem) == 0 {
		return
	}
	if err := unmapAnon(mem); err != nil {
		s.log.Warn("pagesource: unmap failed", "bytes", len(mem), "error", err)
		return
	}
	s.stats.TotalDeallocated += uint64(len(mem))
	s.stats.CurrentUsage -= uint64(len(mem))
	s.stats.DeallocationCount++
}

// Stats returns a snapshot of the counters.
func (s *Source) Stats() Stats { return s.stats }

// ResetStats zeroes the counters.
func (s *Source) ResetStats() { s.stats = Stats{} }
