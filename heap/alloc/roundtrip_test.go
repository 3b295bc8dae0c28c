package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_PatternRoundTrip(t *testing.T) {
	e := newTestEngine(t, 4096)

	p1 := e.Allocate(512, 8)
	require.NotNil(t, p1)
	b1 := payload(p1, 512)
	for i := range b1 {
		b1[i] = 0xAA
	}

	// A neighbor that must survive the churn on p1's span.
	p2 := e.Allocate(512, 8)
	require.NotNil(t, p2)
	b2 := payload(p2, 512)
	for i := range b2 {
		b2[i] = 0xBB
	}

	for _, b := range b1 {
		require.Equal(t, byte(0xAA), b)
	}

	e.Deallocate(p1, 512)

	// Same size goes back into the same spot; rewriting it must not leak
	// into the live neighbor.
	p3 := e.Allocate(512, 8)
	require.Equal(t, p1, p3)
	b3 := payload(p3, 512)
	for i := range b3 {
		b3[i] = 0xCC
	}

	for _, b := range b2 {
		require.Equal(t, byte(0xBB), b)
	}
	for _, b := range b3 {
		require.Equal(t, byte(0xCC), b)
	}

	e.Deallocate(p3, 512)
	e.Deallocate(p2, 512)
	require.Equal(t, uint64(0), e.Stats().CurrentUsage)
	require.NoError(t, e.CheckInvariants())
}
