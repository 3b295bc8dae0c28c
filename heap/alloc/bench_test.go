package alloc

import (
	"testing"
	"unsafe"

	"github.com/osmem/heapkit/internal/pagesource"
)

func BenchmarkAllocateFree(b *testing.B) {
	e, err := New(pagesource.New(nil), WithInitialRegionSize(1<<20))
	if err != nil {
		b.Fatal(err)
	}
	defer e.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := e.Allocate(256, 8)
		if p == nil {
			b.Fatal("allocation failed")
		}
		e.Deallocate(p, 256)
	}
}

func BenchmarkChurn(b *testing.B) {
	e, err := New(pagesource.New(nil), WithInitialRegionSize(1<<20))
	if err != nil {
		b.Fatal(err)
	}
	defer e.Close()

	sizes := []uintptr{32, 96, 256, 700, 1500}
	var live []unsafe.Pointer

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := e.Allocate(sizes[i%len(sizes)], 8)
		if p == nil {
			b.Fatal("allocation failed")
		}
		live = append(live, p)
		if len(live) >= 64 {
			// Free the oldest half to keep the list churning.
			for _, q := range live[:32] {
				e.Deallocate(q, 0)
			}
			live = append(live[:0], live[32:]...)
		}
	}
}
