package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free span fit and growing the heap failed.
	ErrNoSpace = errors.New("alloc: no free span large enough")

	// ErrClosed indicates use of an engine after Close.
	ErrClosed = errors.New("alloc: engine closed")

	// ErrSpanOutOfRegion indicates a free span lying outside every region.
	ErrSpanOutOfRegion = errors.New("alloc: free span outside owned regions")

	// ErrListCorrupt indicates inconsistent free-list links or lengths.
	ErrListCorrupt = errors.New("alloc: free list corrupt")

	// ErrAdjacentSpans indicates two uncoalesced adjacent spans in one region.
	ErrAdjacentSpans = errors.New("alloc: adjacent free spans left uncoalesced")
)
