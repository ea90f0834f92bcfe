package manifold

import (
	"container/heap"
	"math"
	"runtime"
	"sync"
)

// graphEdge is one weighted edge of the symmetrized neighbor graph.
type graphEdge struct {
	to     int
	weight float64
}

// buildNeighborGraph symmetrizes the k-nearest-neighbor lists into an
// adjacency list with distance edge weights, the graph Isomap estimates
// geodesics over.
func buildNeighborGraph(n int, nbrs Neighbors, dist func(i, j int) float64) [][]graphEdge {
	adj := make([][]graphEdge, n)
	for i, list := range nbrs {
		for _, j := range list {
			d := dist(i, j)
			adj[i] = append(adj[i], graphEdge{to: j, weight: d})
			adj[j] = append(adj[j], graphEdge{to: i, weight: d})
		}
	}
	return adj
}

// pathItem is a priority-queue entry for Dijkstra.
type pathItem struct {
	node int
	dist float64
}

// pathQueue is a min-heap over tentative distances.
type pathQueue []pathItem

func (q pathQueue) Len() int            { return len(q) }
func (q pathQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q pathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x any)         { *q = append(*q, x.(pathItem)) }
func (q *pathQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// dijkstraFrom computes shortest-path distances from src to every node.
// Unreachable nodes stay at +Inf.
func dijkstraFrom(src int, adj [][]graphEdge) []float64 {
	n := len(adj)
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[src] = 0

	q := &pathQueue{{node: src, dist: 0}}
	for q.Len() > 0 {
		item := heap.Pop(q).(pathItem)
		if item.dist > dist[item.node] {
			continue // stale entry
		}
		for _, e := range adj[item.node] {
			alt := item.dist + e.weight
			if alt < dist[e.to] {
				dist[e.to] = alt
				heap.Push(q, pathItem{node: e.to, dist: alt})
			}
		}
	}
	return dist
}

// geodesicsFrom runs Dijkstra from every listed source in parallel.
func geodesicsFrom(sources []int, adj [][]graphEdge) [][]float64 {
	out := make([][]float64, len(sources))

	workers := runtime.NumCPU()
	if workers > len(sources) {
		workers = len(sources)
	}

	var wg sync.WaitGroup
	chunk := (len(sources) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(sources) {
			hi = len(sources)
		}
		if lo >= hi {
			break
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for s := lo; s < hi; s++ {
				out[s] = dijkstraFrom(sources[s], adj)
			}
		}(lo, hi)
	}
	wg.Wait()

	return out
}

// capUnreachable replaces +Inf geodesics with the largest finite geodesic
// seen, so a neighbor graph with more than one component still scales
// instead of collapsing to NaNs. Components end up maximally separated,
// which is the least surprising rendition of an undefined geodesic.
func capUnreachable(geo [][]float64) {
	maxFinite := 0.0
	for _, row := range geo {
		for _, v := range row {
			if !math.IsInf(v, 1) && v > maxFinite {
				maxFinite = v
			}
		}
	}
	for _, row := range geo {
		for i, v := range row {
			if math.IsInf(v, 1) {
				row[i] = maxFinite
			}
		}
	}
}

// embedIsomap preserves geodesic distances: shortest paths over the neighbor
// graph, then classic metric scaling of the squared geodesic matrix.
func embedIsomap(s ObjectSet, nbrs Neighbors, cfg runConfig) (*Embedding, Projector, error) {
	n := s.Len
	dist := s.pairwiseDistance()
	adj := buildNeighborGraph(n, nbrs, dist)

	sources := make([]int, n)
	for i := range sources {
		sources[i] = i
	}
	geo := geodesicsFrom(sources, adj)
	capUnreachable(geo)

	d2 := make([][]float64, n)
	for i := 0; i < n; i++ {
		d2[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			d2[i][j] = geo[i][j] * geo[i][j]
		}
	}

	emb, err := classicScale(d2, cfg)
	if err != nil {
		return nil, nil, err
	}
	return emb, nil, nil
}

// embedLandmarkIsomap estimates geodesics from a landmark subset only, then
// scales the landmarks and triangulates the rest, trading exactness for a
// Dijkstra run per landmark instead of per object.
func embedLandmarkIsomap(s ObjectSet, nbrs Neighbors, cfg runConfig) (*Embedding, Projector, error) {
	n := s.Len
	dist := s.pairwiseDistance()
	adj := buildNeighborGraph(n, nbrs, dist)

	landmarks, err := selectLandmarks(s, cfg.ratio, cfg.seed)
	if err != nil {
		return nil, nil, err
	}
	nl := len(landmarks)

	geo := geodesicsFrom(landmarks, adj)
	capUnreachable(geo)

	d2l := make([][]float64, nl)
	d2all := make([][]float64, nl)
	for a := 0; a < nl; a++ {
		d2l[a] = make([]float64, nl)
		d2all[a] = make([]float64, n)
		for b := 0; b < nl; b++ {
			g := geo[a][landmarks[b]]
			d2l[a][b] = g * g
		}
		for i := 0; i < n; i++ {
			d2all[a][i] = geo[a][i] * geo[a][i]
		}
	}

	emb, err := landmarkScale(landmarks, d2l, d2all, n, cfg)
	if err != nil {
		return nil, nil, err
	}
	return emb, nil, nil
}
