package pagesource

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestPageSizeSane(t *testing.T) {
	s := New(nil)
	ps := s.PageSize()
	require.Positive(t, ps)
	require.Zero(t, ps&(ps-1), "page size must be a power of two")
	require.LessOrEqual(t, ps, uintptr(maxPageSize))
}

func TestAlignToPage(t *testing.T) {
	s := New(nil)
	ps := s.PageSize()

	require.Equal(t, uintptr(0), s.AlignToPage(0))
	require.Equal(t, ps, s.AlignToPage(1))
	require.Equal(t, ps, s.AlignToPage(ps))
	require.Equal(t, 2*ps, s.AlignToPage(ps+1))
}

func TestAcquireZero(t *testing.T) {
	s := New(nil)
	require.Nil(t, s.Acquire(0))
	require.Equal(t, Stats{}, s.Stats())
}

func TestAcquireRoundsAndZeroFills(t *testing.T) {
	s := New(nil)
	ps := s.PageSize()

	mem := s.Acquire(1)
	require.NotNil(t, mem)
	require.Equal(t, int(ps), len(mem))
	require.Zero(t, uintptr(unsafe.Pointer(&mem[0]))%ps, "region must be page-aligned")
	for _, b := range mem {
		require.Zero(t, b)
	}

	// The whole region is writable.
	for i := range mem {
		mem[i] = 0xFF
	}

	st := s.Stats()
	require.Equal(t, uint64(ps), st.TotalAllocated)
	require.Equal(t, uint64(ps), st.CurrentUsage)
	require.Equal(t, uint64(1), st.AllocationCount)

	s.Release(mem)
	st = s.Stats()
	require.Equal(t, uint64(ps), st.TotalDeallocated)
	require.Zero(t, st.CurrentUsage)
	require.Equal(t, uint64(1), st.DeallocationCount)
}

func TestReleaseNil(t *testing.T) {
	s := New(nil)
	s.Release(nil)
	require.Equal(t, Stats{}, s.Stats())
}

func TestAcquireMultiPage(t *testing.T) {
	s := New(nil)
	ps := s.PageSize()

	mem := s.Acquire(3*ps + 1)
	require.NotNil(t, mem)
	require.Equal(t, int(4*ps), len(mem))
	s.Release(mem)
}

func TestResetStats(t *testing.T) {
	s := New(nil)
	mem := s.Acquire(1)
	require.NotNil(t, mem)

	s.ResetStats()
	require.Equal(t, Stats{}, s.Stats())
	s.Release(mem)
}
