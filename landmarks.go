package manifold

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/RoaringBitmap/roaring"
	"github.com/viterin/vek"
)

// minLandmarks is the floor on the landmark count: below three landmarks the
// triangulation step cannot pin down a plane.
const minLandmarks = 3

// selectLandmarks picks ceil(ratio * n) distinct object indices to act as
// landmarks for the landmark method variants. Selection is seeded-random; a
// roaring bitmap both deduplicates the draws and hands the indices back in
// sorted order. When the object set exposes features, the draw is refined by
// k-means: one landmark per cluster, the point nearest its centroid, so the
// landmarks spread over the cloud instead of oversampling dense regions.
func selectLandmarks(s ObjectSet, ratio float64, seed int64) ([]int, error) {
	n := s.Len
	count := int(math.Ceil(ratio * float64(n)))
	if count > n {
		count = n
	}
	if count < minLandmarks {
		if n < minLandmarks {
			return nil, fmt.Errorf("%w: %d objects cannot supply %d landmarks", ErrInsufficientData, n, minLandmarks)
		}
		count = minLandmarks
	}

	if s.Features != nil {
		return clusteredLandmarks(s, count)
	}

	rng := rand.New(rand.NewSource(seed))
	picked := roaring.New()
	for int(picked.GetCardinality()) < count {
		picked.Add(uint32(rng.Intn(n)))
	}

	out := make([]int, 0, count)
	it := picked.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out, nil
}

// clusteredLandmarks runs k-means over the feature vectors and keeps, per
// cluster, the point closest to its centroid.
func clusteredLandmarks(s ObjectSet, count int) ([]int, error) {
	n := s.Len
	dim := s.Features.Dimension()
	points := make([][]float64, n)
	for i := 0; i < n; i++ {
		points[i] = make([]float64, dim)
		s.Features.Feature(i, points[i])
	}

	centroids, assignments := kMeans(points, count, defaultKMeansIterations)

	picked := roaring.New()
	bestDist := make([]float64, len(centroids))
	bestIdx := make([]int, len(centroids))
	for c := range centroids {
		bestDist[c] = math.Inf(1)
		bestIdx[c] = -1
	}
	for i, p := range points {
		c := assignments[i]
		d := vek.Distance(p, centroids[c])
		if d < bestDist[c] {
			bestDist[c] = d
			bestIdx[c] = i
		}
	}
	for _, idx := range bestIdx {
		if idx >= 0 {
			picked.Add(uint32(idx))
		}
	}

	// Empty clusters leave gaps; top up deterministically from the front.
	for i := 0; int(picked.GetCardinality()) < count && i < n; i++ {
		picked.Add(uint32(i))
	}

	out := make([]int, 0, count)
	it := picked.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out, nil
}
