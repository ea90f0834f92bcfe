package manifold

import (
	"errors"
	"fmt"
)

// ErrUnknownMethod is returned when an unrecognized reduction method is requested.
var ErrUnknownMethod = errors.New("unknown reduction method")

// ErrUnknownNeighborsKind is returned when an unrecognized neighbor-search backend is requested.
var ErrUnknownNeighborsKind = errors.New("unknown neighbors backend")

// ErrUnknownEigenKind is returned when an unrecognized eigensolver backend is requested.
var ErrUnknownEigenKind = errors.New("unknown eigensolver backend")

// Method represents a dimensionality-reduction algorithm.
// Each method declares which callback capabilities and which parameters it
// requires; the declarations live in the requirements table below and are
// checked before any computation starts.
type Method string

const (
	// KernelLocallyLinearEmbedding reconstructs every point from its neighbors
	// in kernel space and looks for coordinates preserving those reconstruction
	// weights. With a linear kernel this is classic Locally Linear Embedding.
	KernelLocallyLinearEmbedding Method = "klle"

	// NeighborhoodPreservingEmbedding is the linear variant of LLE: it finds a
	// linear map whose projections preserve local reconstruction weights.
	// Produces an out-of-sample linear projector by construction.
	NeighborhoodPreservingEmbedding Method = "npe"

	// KernelLocalTangentSpaceAlignment aligns per-neighborhood tangent spaces
	// into a single global coordinate system. With a linear kernel this is
	// classic Local Tangent Space Alignment.
	KernelLocalTangentSpaceAlignment Method = "kltsa"

	// LinearLocalTangentSpaceAlignment is the linear variant of LTSA.
	LinearLocalTangentSpaceAlignment Method = "lltsa"

	// HessianLocallyLinearEmbedding estimates a Hessian quadratic form on every
	// neighborhood and minimizes curviness of the embedding. Requires
	// k >= target*(target+3)/2 neighbors.
	HessianLocallyLinearEmbedding Method = "hlle"

	// LaplacianEigenmaps embeds via the smallest eigenvectors of the generalized
	// graph Laplacian problem L y = lambda D y with heat-kernel edge weights.
	LaplacianEigenmaps Method = "laplacian_eigenmaps"

	// LocalityPreservingProjections is the linear variant of Laplacian Eigenmaps.
	LocalityPreservingProjections Method = "lpp"

	// DiffusionMap embeds with the top eigenvectors of a t-step Markov diffusion
	// operator built from a Gaussian kernel.
	DiffusionMap Method = "diffusion_map"

	// Isomap preserves geodesic distances estimated by shortest paths over the
	// neighbor graph, followed by classic metric scaling.
	Isomap Method = "isomap"

	// LandmarkIsomap runs Isomap on a landmark subset and places the remaining
	// points by distance-based triangulation.
	LandmarkIsomap Method = "landmark_isomap"

	// MultidimensionalScaling is classic (Torgerson) metric scaling of the full
	// pairwise distance matrix.
	MultidimensionalScaling Method = "mds"

	// LandmarkMultidimensionalScaling scales a landmark subset and triangulates
	// the remaining points against it.
	LandmarkMultidimensionalScaling Method = "landmark_mds"

	// StochasticProximityEmbedding iteratively drags random point pairs toward
	// agreement between embedded and original distances. The only method here
	// that does not solve an eigenproblem.
	StochasticProximityEmbedding Method = "spe"

	// PCA projects onto the top eigenvectors of the feature covariance matrix.
	PCA Method = "pca"

	// KernelPCA is PCA in kernel space via the centered kernel matrix.
	KernelPCA Method = "kernel_pca"
)

// NeighborsKind represents the neighbor-search backend used to build the
// k-nearest-neighbor graph. Independent of the reduction Method.
type NeighborsKind string

const (
	// BruteForceNeighbors compares every object against every other object.
	// O(n^2 log k) worst case with a bounded max-heap per query. Exact.
	BruteForceNeighbors NeighborsKind = "brute_force"

	// CoverTreeNeighbors answers queries through a cover tree with a fixed
	// shrinking base. Expected O(log n) per query under bounded intrinsic
	// dimensionality, with an exhaustive fallback on degenerate data. Exact:
	// returns the same neighbor sets as brute force.
	CoverTreeNeighbors NeighborsKind = "cover_tree"
)

// EigenKind represents the eigensolver backend used to decompose the assembled
// operator. Independent of the reduction Method.
type EigenKind string

const (
	// EigenDense converts the operator to dense form and computes the full
	// spectrum with a self-adjoint solver. Exact and simple, O(n^3); useful for
	// small problems and as the reference backend.
	EigenDense EigenKind = "dense"

	// EigenIterative computes only the requested extremal eigenpairs by block
	// subspace iteration with Rayleigh-Ritz extraction. Supports standard and
	// generalized symmetric problems. Fails with ErrNoConvergence when the
	// iteration budget is exhausted.
	EigenIterative EigenKind = "iterative"

	// EigenRandomized approximates the top eigenpairs by randomized
	// range finding. Standard problems only; generalized problems are rejected
	// with ErrUnsupportedProblem.
	EigenRandomized EigenKind = "randomized"
)

// spectrumOrder says which end of the spectrum a method embeds with.
type spectrumOrder int

const (
	// smallestFirst selects the smallest eigenvalues, ascending.
	// Used by minimization-style local methods.
	smallestFirst spectrumOrder = iota

	// largestFirst selects the largest eigenvalues, descending.
	// Used by variance-maximizing global methods.
	largestFirst
)

// methodTraits is the per-method requirements row: which callbacks the method
// needs, whether it needs the neighbor graph, which end of the spectrum it
// embeds with, and how many trivial eigenpairs it discards. The method
// implementations read order and skipTrivial from here, so the table is the
// single source of truth for the spectral contract.
type methodTraits struct {
	needsKernel    bool
	needsDistance  bool
	needsFeatures  bool
	needsNeighbors bool
	solvesEigen    bool
	order          spectrumOrder
	skipTrivial    int
}

// wantsLargest reports whether the method embeds with the top of the spectrum.
func (t methodTraits) wantsLargest() bool {
	return t.order == largestFirst
}

// methodTraitsTable maps every supported Method to its requirements row.
// A method absent from this table is unknown.
var methodTraitsTable = map[Method]methodTraits{
	KernelLocallyLinearEmbedding:     {needsKernel: true, needsNeighbors: true, solvesEigen: true, order: smallestFirst, skipTrivial: 1},
	NeighborhoodPreservingEmbedding:  {needsKernel: true, needsFeatures: true, needsNeighbors: true, solvesEigen: true, order: smallestFirst},
	KernelLocalTangentSpaceAlignment: {needsKernel: true, needsNeighbors: true, solvesEigen: true, order: smallestFirst, skipTrivial: 1},
	LinearLocalTangentSpaceAlignment: {needsKernel: true, needsFeatures: true, needsNeighbors: true, solvesEigen: true, order: smallestFirst},
	HessianLocallyLinearEmbedding:    {needsKernel: true, needsNeighbors: true, solvesEigen: true, order: smallestFirst, skipTrivial: 1},
	LaplacianEigenmaps:               {needsDistance: true, needsNeighbors: true, solvesEigen: true, order: smallestFirst, skipTrivial: 1},
	LocalityPreservingProjections:    {needsDistance: true, needsFeatures: true, needsNeighbors: true, solvesEigen: true, order: smallestFirst},
	DiffusionMap:                     {needsDistance: true, solvesEigen: true, order: largestFirst, skipTrivial: 1},
	Isomap:                           {needsDistance: true, needsNeighbors: true, solvesEigen: true, order: largestFirst},
	LandmarkIsomap:                   {needsDistance: true, needsNeighbors: true, solvesEigen: true, order: largestFirst},
	MultidimensionalScaling:          {needsDistance: true, solvesEigen: true, order: largestFirst},
	LandmarkMultidimensionalScaling:  {needsDistance: true, solvesEigen: true, order: largestFirst},
	StochasticProximityEmbedding:     {needsDistance: true},
	PCA:                              {needsFeatures: true, solvesEigen: true, order: largestFirst},
	KernelPCA:                        {needsKernel: true, solvesEigen: true, order: largestFirst},
}

// traitsOf looks up the requirements row for a method.
// Returns ErrUnknownMethod for methods outside the closed enumeration.
func traitsOf(m Method) (methodTraits, error) {
	t, ok := methodTraitsTable[m]
	if !ok {
		return methodTraits{}, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
	return t, nil
}
