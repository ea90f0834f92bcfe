package manifold

import (
	"container/heap"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
)

// ErrInsufficientData is returned when the object set is too small for the
// requested neighbor count or target dimension.
var ErrInsufficientData = errors.New("not enough objects")

// Neighbors holds, for each object, the indices of its k nearest neighbors
// under the pipeline's distance. Entries are unique, exclude the object's own
// index, and are sorted by ascending distance with ties broken by lower index.
type Neighbors [][]int

// neighborCandidate pairs an object index with its distance to the query.
type neighborCandidate struct {
	index int
	dist  float64
}

// closer reports whether a precedes b in the total candidate order:
// smaller distance first, ties broken by lower index.
func closer(a, b neighborCandidate) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.index < b.index
}

// boundedMaxHeap keeps the k best candidates seen so far. The root is the
// worst retained candidate, so a better candidate replaces it in O(log k).
type boundedMaxHeap struct {
	items []neighborCandidate
	k     int
}

func (h *boundedMaxHeap) Len() int { return len(h.items) }

// Less orders the heap so the root is the worst candidate (largest distance,
// ties broken by larger index).
func (h *boundedMaxHeap) Less(i, j int) bool { return closer(h.items[j], h.items[i]) }

func (h *boundedMaxHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *boundedMaxHeap) Push(x any) { h.items = append(h.items, x.(neighborCandidate)) }

func (h *boundedMaxHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// offer considers a candidate, keeping only the k best.
func (h *boundedMaxHeap) offer(c neighborCandidate) {
	if len(h.items) < h.k {
		heap.Push(h, c)
		return
	}
	if closer(c, h.items[0]) {
		h.items[0] = c
		heap.Fix(h, 0)
	}
}

// sorted drains the heap into a candidate list in ascending candidate order.
func (h *boundedMaxHeap) sorted() []neighborCandidate {
	out := make([]neighborCandidate, len(h.items))
	copy(out, h.items)
	sort.Slice(out, func(i, j int) bool { return closer(out[i], out[j]) })
	return out
}

// computeNeighbors builds the k-nearest-neighbor lists for n objects under
// dist using the selected backend. Both backends are exact and return
// identical neighbor sets; the cover tree is an accelerated strategy, not an
// approximation. Fails with ErrInsufficientData when k >= n or k < 1.
func computeNeighbors(n, k int, dist func(i, j int) float64, kind NeighborsKind) (Neighbors, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: neighbor count %d < 1", ErrInsufficientData, k)
	}
	if k >= n {
		return nil, fmt.Errorf("%w: need more than %d objects for %d neighbors", ErrInsufficientData, k, k)
	}
	switch kind {
	case BruteForceNeighbors:
		return bruteForceNeighbors(n, k, dist), nil
	case CoverTreeNeighbors:
		return coverTreeNeighbors(n, k, dist), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNeighborsKind, kind)
	}
}

// bruteForceNeighbors compares every object against every other object,
// keeping the k best per query in a bounded max-heap. O(n^2 log k) worst
// case. Queries are independent, so they fan out across CPUs; the fan-out
// stays inside this stage and every list is fully materialized on return.
func bruteForceNeighbors(n, k int, dist func(i, j int) float64) Neighbors {
	nbrs := make(Neighbors, n)

	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			h := &boundedMaxHeap{k: k, items: make([]neighborCandidate, 0, k)}
			for i := lo; i < hi; i++ {
				h.items = h.items[:0]
				for j := 0; j < n; j++ {
					if j == i {
						continue
					}
					h.offer(neighborCandidate{index: j, dist: dist(i, j)})
				}
				list := make([]int, k)
				for p, c := range h.sorted() {
					list[p] = c.index
				}
				nbrs[i] = list
			}
		}(lo, hi)
	}
	wg.Wait()

	return nbrs
}
