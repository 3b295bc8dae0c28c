package alloc

// coalesceMaxPasses bounds the merge loop. Hitting it means the list is in a
// state the scan cannot settle; the engine logs and keeps the partial result
// rather than spinning.
const coalesceMaxPasses = 100

// coalesce merges address-adjacent free spans until a full scan finds no
// pair to merge. Spans are adjacent only when one ends exactly where the
// other begins inside the same region; numeric adjacency across a region
// boundary never merges.
func (e *Engine) coalesce() {
	for pass := 0; ; pass++ {
		if pass >= coalesceMaxPasses {
			e.log.Warn("alloc: coalesce pass bound hit, free list left partitioned",
				"passes", coalesceMaxPasses)
			return
		}
		if !e.mergeOnePair() {
			return
		}
	}
}

// mergeOnePair scans the free list for one adjacent pair, merges it, and
// reports whether a merge happened. The caller restarts the scan after every
// merge since the merge invalidates the walk.
func (e *Engine) mergeOnePair() bool {
	for x := e.freeHead; x != 0; x = spanAt(x).next {
		xRegion := e.regionOf(x)
		xEnd := x + spanAt(x).size
		for y := e.freeHead; y != 0; y = spanAt(y).next {
			if y == x {
				continue
			}
			if xEnd == y && e.regionOf(y) == xRegion {
				spanAt(x).size += spanAt(y).size
				e.removeSpan(y)
				return true
			}
		}
	}
	return false
}
