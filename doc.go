/*
Package manifold provides dimensionality-reduction algorithms for Go.

Manifold bundles fifteen spectral and stochastic embedding methods behind one
pipeline: describe your data through callbacks, configure a typed parameter
registry, and get back low-dimensional coordinates plus an out-of-sample
projector. Methods range from classic linear projections (PCA, LPP, NPE) to
nonlinear manifold learners (LLE, LTSA, Hessian LLE, Laplacian Eigenmaps,
Isomap, Diffusion Maps) and landmark variants that trade exactness for speed.

# Overview

Manifold separates WHAT your data is from HOW it is embedded. The data side is
three small callback interfaces (kernel, distance, features); any combination
may be present, and each method declares which ones it needs. The algorithm
side is a shared pipeline: capability check, neighbor graph, operator
assembly, eigendecomposition, embedding assembly. Swapping methods, neighbor
backends, or eigensolvers never changes the calling code.

# Quick Start

Embed a dense dataset with Locally Linear Embedding:

	package main

	import (
	    "fmt"
	    "log"

	    "github.com/wizenheimer/manifold"
	)

	func main() {
	    rows := make([][]float64, 0, 1000)
	    // ... fill rows with your high-dimensional points ...

	    params := manifold.NewParameters().
	        WithMethod(manifold.KernelLocallyLinearEmbedding).
	        WithInt(manifold.NumNeighbors, 10).
	        WithInt(manifold.TargetDimension, 2)

	    emb, proj, err := manifold.EmbedDataset(rows, params)
	    if err != nil {
	        log.Fatal(err)
	    }

	    n, d := emb.Dims()
	    fmt.Printf("embedded %d points into %d dimensions\n", n, d)

	    // Map a new point into the same space without re-embedding.
	    coords, err := proj.Project(rows[0])
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(coords)
	}

# Methods

Local methods reconstruct every point from its nearest neighbors and solve for
coordinates preserving the local structure:

	manifold.KernelLocallyLinearEmbedding     // LLE in kernel space
	manifold.KernelLocalTangentSpaceAlignment // LTSA in kernel space
	manifold.HessianLocallyLinearEmbedding    // Hessian LLE; needs k >= d(d+3)/2
	manifold.LaplacianEigenmaps               // heat-kernel graph Laplacian

Linear variants solve the same problems restricted to linear maps and produce
an explicit basis, so out-of-sample projection is exact:

	manifold.PCA
	manifold.NeighborhoodPreservingEmbedding  // linear LLE
	manifold.LinearLocalTangentSpaceAlignment // linear LTSA
	manifold.LocalityPreservingProjections    // linear Laplacian Eigenmaps

Global methods embed from the full pairwise structure:

	manifold.MultidimensionalScaling // classic Torgerson scaling
	manifold.Isomap                  // geodesic distances via shortest paths
	manifold.DiffusionMap            // t-step Markov diffusion operator
	manifold.KernelPCA               // PCA on the centered kernel matrix

Landmark variants run the expensive part on a random-but-deduplicated subset
and triangulate the remaining points:

	manifold.LandmarkMultidimensionalScaling
	manifold.LandmarkIsomap

One stochastic method solves no eigenproblem at all:

	manifold.StochasticProximityEmbedding

# Callbacks

Implement only the capabilities your data naturally has:

	type pairwise struct{ d [][]float64 }

	func (p pairwise) Distance(i, j int) float64 { return p.d[i][j] }

	set := manifold.ObjectSet{Len: len(p.d), Distance: pairwise{d}}
	emb, _, err := manifold.Embed(set, params)

A method asking for a capability the set lacks fails up front with
ErrMissingCallback. Distance-based methods accept a kernel-only set: the
distance is derived from the kernel. Dense [][]float64 data can skip all of
this through NewDataset / EmbedDataset, which provides every capability.

# Parameters

Parameters is a typed registry. Keys are a closed enumeration; values are
checked against the documented type of their key, and a present-but-ill-typed
value fails with ErrTypeMismatch rather than being coerced. Method and target
dimension are always required; neighbor count is required by local methods;
everything else has a documented default.

	params := manifold.NewParameters().
	    WithMethod(manifold.Isomap).
	    WithInt(manifold.TargetDimension, 2).
	    WithInt(manifold.NumNeighbors, 12).
	    WithNeighborsBackend(manifold.CoverTreeNeighbors).
	    WithEigenBackend(manifold.EigenIterative).
	    WithInt64(manifold.RandomSeed, 42)

# Neighbor Backends

Two exact k-nearest-neighbor backends build the neighbor graph:

	manifold.BruteForceNeighbors // O(n^2), always applicable
	manifold.CoverTreeNeighbors  // cover tree, fast on low intrinsic dimension

Both return identical neighbor sets; the cover tree falls back to exhaustive
search when the data degenerates its structure.

# Eigensolver Backends

	manifold.EigenDense      // full dense spectrum, the reference backend
	manifold.EigenIterative  // block subspace iteration, extremal pairs only
	manifold.EigenRandomized // randomized range finding, top pairs only

The randomized backend rejects generalized problems with
ErrUnsupportedProblem; the iterative backend reports an exhausted iteration
budget as ErrNoConvergence.

# Out-of-Sample Projection

Embed returns a Projector alongside the embedding. Linear methods bind their
basis, Kernel PCA binds a centered kernel expansion, and every other method
binds a locally-linear extension that reconstructs the new point from its
nearest training points. Projection needs feature vectors; a feature-less
object set gets a projector whose Project reports ErrProjectionUnsupported.
Projection is deterministic: equal inputs produce identical outputs.

# Compact Export

Embedding.Compact halves the embedding's storage by converting coordinates to
IEEE 754 half precision, for shipping to visualization frontends:

	compact := emb.Compact()
	restored := compact.Expand()

# Reproducibility

Landmark selection, stochastic embedding, and the randomized and iterative
eigensolvers all draw from a generator seeded by the RandomSeed parameter, so
a fixed configuration reproduces its output exactly.

# License

MIT License - Copyright (c) 2025 wizenheimer
*/
package manifold
