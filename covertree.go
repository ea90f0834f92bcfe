package manifold

import (
	"math"
	"runtime"
	"sort"
	"sync"
)

// DefaultCoverTreeBase is the ball-shrinking factor between consecutive tree
// levels: a node at level l covers its children within base^l.
const DefaultCoverTreeBase = 1.3

// coverTreeMaxDepth bounds how far an insertion may descend below the root
// level. Descending further means the data is degenerate for the tree (many
// coincident or near-coincident points), in which case queries fall back to
// exhaustive comparison rather than trusting the ball bounds.
const coverTreeMaxDepth = 64

// coverNode is one point of the tree. Children sit one level below their
// parent and within the parent's covering radius. maxDist caches the largest
// distance from this point to any point in its subtree, which is what makes
// branch-and-bound queries exact even on imperfectly separated trees.
type coverNode struct {
	point    int
	level    int
	maxDist  float64
	children []*coverNode
}

// coverTree is an exact accelerated k-nearest-neighbor index over object
// indices. It never sees coordinates, only the pairwise distance function, so
// it works for any distance or kernel-induced metric.
type coverTree struct {
	base       float64
	dist       func(i, j int) float64
	root       *coverNode
	degenerate bool
}

// covdist is the covering radius of a node at the given level.
func (t *coverTree) covdist(level int) float64 {
	return math.Pow(t.base, float64(level))
}

// newCoverTree builds a tree over objects 0..n-1 by sequential insertion.
func newCoverTree(n int, dist func(i, j int) float64, base float64) *coverTree {
	t := &coverTree{base: base, dist: dist}
	for i := 0; i < n; i++ {
		t.insert(i)
	}
	return t
}

// insert adds one point, raising the root level first when the point falls
// outside the root's covering ball.
func (t *coverTree) insert(p int) {
	if t.root == nil {
		t.root = &coverNode{point: p, level: 0}
		return
	}

	d := t.dist(p, t.root.point)
	for d > t.covdist(t.root.level) {
		t.root.level++
	}
	t.insertAt(t.root, p, d)
}

// insertAt descends from x (which covers p at distance dpx) to the deepest
// child that still covers p at the next level, attaching p there. Updates the
// cached subtree radii along the path.
func (t *coverTree) insertAt(x *coverNode, p int, dpx float64) {
	floor := x.level - coverTreeMaxDepth
	for {
		if dpx > x.maxDist {
			x.maxDist = dpx
		}

		if x.level <= floor {
			// Too deep: coincident or near-coincident points. Attach here and
			// let queries use the exhaustive fallback.
			t.degenerate = true
			x.children = append(x.children, &coverNode{point: p, level: x.level - 1})
			return
		}

		childCov := t.covdist(x.level - 1)
		var next *coverNode
		nextDist := 0.0
		for _, c := range x.children {
			dc := t.dist(p, c.point)
			if dc <= childCov && (next == nil || dc < nextDist) {
				next = c
				nextDist = dc
			}
		}
		if next == nil {
			x.children = append(x.children, &coverNode{point: p, level: x.level - 1})
			return
		}
		x, dpx = next, nextDist
	}
}

// knn returns the k nearest neighbors of object q, excluding q itself,
// sorted by ascending distance with ties broken by lower index.
//
// The search is branch-and-bound: a subtree rooted at c can only improve the
// current k-th best if dist(q, c) - c.maxDist does not exceed it. Children
// are visited closest first so the bound tightens early.
func (t *coverTree) knn(q, k int) []int {
	h := &boundedMaxHeap{k: k, items: make([]neighborCandidate, 0, k)}
	t.visit(t.root, q, h)

	out := make([]int, 0, k)
	for _, c := range h.sorted() {
		out = append(out, c.index)
	}
	return out
}

func (t *coverTree) visit(x *coverNode, q int, h *boundedMaxHeap) {
	t.visitAt(x, t.dist(q, x.point), q, h)
}

// visitAt is the recursive search step with the node's own distance already
// computed (it is always known from the parent's child scan).
func (t *coverTree) visitAt(x *coverNode, d float64, q int, h *boundedMaxHeap) {
	if x.point != q {
		h.offer(neighborCandidate{index: x.point, dist: d})
	}
	if len(x.children) == 0 {
		return
	}

	// Candidate children with their distances, closest first so the bound
	// tightens early.
	type childDist struct {
		node *coverNode
		d    float64
	}
	cds := make([]childDist, 0, len(x.children))
	for _, c := range x.children {
		cds = append(cds, childDist{node: c, d: t.dist(q, c.point)})
	}
	sort.Slice(cds, func(i, j int) bool { return cds[i].d < cds[j].d })

	for _, cd := range cds {
		// Prune strictly: an equal lower bound may still hide a lower-index
		// candidate at exactly the cutoff distance.
		if h.Len() == h.k && cd.d-cd.node.maxDist > h.items[0].dist {
			continue
		}
		t.visitAt(cd.node, cd.d, q, h)
	}
}

// coverTreeNeighbors builds a cover tree once and answers every object's
// k-nearest query through it. Falls back to brute force when the build
// detected degenerate data, preserving the exactness contract.
func coverTreeNeighbors(n, k int, dist func(i, j int) float64) Neighbors {
	t := newCoverTree(n, dist, DefaultCoverTreeBase)
	if t.degenerate {
		return bruteForceNeighbors(n, k, dist)
	}

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
			for i := lo; i < hi; i++ {
				nbrs[i] = t.knn(i, k)
			}
		}(lo, hi)
	}
	wg.Wait()

	return nbrs
}
