package manifold

import (
	"fmt"
)

// defaultProjectionNeighbors bounds the neighborhood used by the fallback
// out-of-sample projector when the run itself had no neighbor count.
const defaultProjectionNeighbors = 10

// ============================================================================
// RUN CONFIGURATION
// ============================================================================

// runConfig is the fully-resolved configuration of one pipeline run: every
// parameter read from the registry exactly once, validated against the method
// requirements, with defaults applied. The stages only ever see this struct,
// never the registry.
type runConfig struct {
	method Method
	traits methodTraits

	k      int
	target int

	eigenKind EigenKind
	nnKind    NeighborsKind

	maxIter   int
	timesteps int
	width     float64
	ratio     float64
	shift     float64

	tolerance      float64
	numUpdates     int
	globalStrategy bool

	seed int64
}

// buildRunConfig resolves and validates the registry against the object set.
// Everything that can fail before real work starts fails here.
func buildRunConfig(s ObjectSet, p *Parameters) (runConfig, error) {
	var cfg runConfig

	method, err := p.Method()
	if err != nil {
		return cfg, err
	}
	traits, err := traitsOf(method)
	if err != nil {
		return cfg, err
	}
	cfg.method = method
	cfg.traits = traits

	if err := s.checkCapabilities(method, traits); err != nil {
		return cfg, err
	}
	if s.Len < 2 {
		return cfg, fmt.Errorf("%w: need at least 2 objects, got %d", ErrInsufficientData, s.Len)
	}

	cfg.target, err = p.Int(TargetDimension)
	if err != nil {
		return cfg, err
	}
	if cfg.target < 1 {
		return cfg, fmt.Errorf("%w: target dimension %d", ErrInsufficientData, cfg.target)
	}
	if traits.solvesEigen && !traits.needsFeatures && cfg.target >= s.Len {
		return cfg, fmt.Errorf("%w: target dimension %d needs more than %d objects", ErrInsufficientData, cfg.target, s.Len)
	}

	cfg.eigenKind, err = p.EigenBackendKind()
	if err != nil {
		return cfg, err
	}
	switch cfg.eigenKind {
	case EigenDense, EigenIterative, EigenRandomized:
	default:
		return cfg, fmt.Errorf("%w: %q", ErrUnknownEigenKind, cfg.eigenKind)
	}

	cfg.nnKind, err = p.NeighborsBackendKind()
	if err != nil {
		return cfg, err
	}
	switch cfg.nnKind {
	case BruteForceNeighbors, CoverTreeNeighbors:
	default:
		return cfg, fmt.Errorf("%w: %q", ErrUnknownNeighborsKind, cfg.nnKind)
	}

	if cfg.maxIter, err = p.intOr(MaxIterations, DefaultMaxIterations); err != nil {
		return cfg, err
	}
	if cfg.timesteps, err = p.intOr(DiffusionTimesteps, DefaultDiffusionTimesteps); err != nil {
		return cfg, err
	}
	if cfg.width, err = p.floatOr(GaussianKernelWidth, DefaultGaussianKernelWidth); err != nil {
		return cfg, err
	}
	if cfg.width <= 0 {
		return cfg, fmt.Errorf("gaussian kernel width must be positive, got %v", cfg.width)
	}
	if cfg.ratio, err = p.floatOr(LandmarkRatio, DefaultLandmarkRatio); err != nil {
		return cfg, err
	}
	if cfg.shift, err = p.floatOr(EigenShift, DefaultEigenShift); err != nil {
		return cfg, err
	}
	if cfg.tolerance, err = p.floatOr(SPETolerance, DefaultSPETolerance); err != nil {
		return cfg, err
	}
	if cfg.numUpdates, err = p.intOr(SPENumUpdates, s.Len); err != nil {
		return cfg, err
	}
	if cfg.globalStrategy, err = p.boolOr(SPEGlobalStrategy, true); err != nil {
		return cfg, err
	}
	if cfg.seed, err = p.int64Or(RandomSeed, DefaultRandomSeed); err != nil {
		return cfg, err
	}

	needsNeighbors := traits.needsNeighbors ||
		(method == StochasticProximityEmbedding && !cfg.globalStrategy)
	if needsNeighbors {
		cfg.k, err = p.Int(NumNeighbors)
		if err != nil {
			return cfg, err
		}
		if method == HessianLocallyLinearEmbedding {
			if min := hessianMinNeighbors(cfg.target); cfg.k < min {
				return cfg, fmt.Errorf("%w: hessian estimation in %d dimensions needs at least %d neighbors, got %d",
					ErrInsufficientData, cfg.target, min, cfg.k)
			}
		}
	} else if cfg.k, err = p.intOr(NumNeighbors, 0); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ============================================================================
// PIPELINE
// ============================================================================

// Embed runs the full reduction pipeline on the object set: resolve and
// validate parameters, build the neighbor graph when the method needs one,
// dispatch to the method, and bind an out-of-sample projector.
//
// The returned Projector is never nil. When the object set exposes no feature
// vectors, it is a stub whose Project reports ErrProjectionUnsupported.
func Embed(s ObjectSet, p *Parameters) (*Embedding, Projector, error) {
	cfg, err := buildRunConfig(s, p)
	if err != nil {
		return nil, nil, err
	}

	var nbrs Neighbors
	if cfg.traits.needsNeighbors ||
		(cfg.method == StochasticProximityEmbedding && !cfg.globalStrategy) {
		nbrs, err = computeNeighbors(s.Len, cfg.k, s.pairwiseDistance(), cfg.nnKind)
		if err != nil {
			return nil, nil, err
		}
	}

	emb, proj, err := dispatch(s, nbrs, cfg)
	if err != nil {
		return nil, nil, err
	}
	if proj == nil {
		proj = fallbackProjector(s, emb, cfg)
	}
	return emb, proj, nil
}

// EmbedDataset is the dense convenience entry point: wrap rows, embed.
func EmbedDataset(rows [][]float64, p *Parameters) (*Embedding, Projector, error) {
	d, err := NewDataset(rows)
	if err != nil {
		return nil, nil, err
	}
	return Embed(d.Objects(), p)
}

// dispatch routes a validated configuration to its method implementation.
func dispatch(s ObjectSet, nbrs Neighbors, cfg runConfig) (*Embedding, Projector, error) {
	switch cfg.method {
	case KernelLocallyLinearEmbedding:
		return embedKLLE(s, nbrs, cfg)
	case NeighborhoodPreservingEmbedding:
		return embedNPE(s, nbrs, cfg)
	case KernelLocalTangentSpaceAlignment:
		return embedKLTSA(s, nbrs, cfg)
	case LinearLocalTangentSpaceAlignment:
		return embedLLTSA(s, nbrs, cfg)
	case HessianLocallyLinearEmbedding:
		return embedHLLE(s, nbrs, cfg)
	case LaplacianEigenmaps:
		return embedLaplacianEigenmaps(s, nbrs, cfg)
	case LocalityPreservingProjections:
		return embedLPP(s, nbrs, cfg)
	case DiffusionMap:
		return embedDiffusionMap(s, cfg)
	case Isomap:
		return embedIsomap(s, nbrs, cfg)
	case LandmarkIsomap:
		return embedLandmarkIsomap(s, nbrs, cfg)
	case MultidimensionalScaling:
		return embedMDS(s, cfg)
	case LandmarkMultidimensionalScaling:
		return embedLandmarkMDS(s, cfg)
	case StochasticProximityEmbedding:
		return embedSPE(s, nbrs, cfg)
	case PCA:
		return embedPCA(s, cfg)
	case KernelPCA:
		return embedKernelPCA(s, cfg)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownMethod, cfg.method)
	}
}

// fallbackProjector binds the generic locally-linear out-of-sample extension
// for methods that produce no projector of their own. Without features there
// is nothing to relate a new point to, so the stub projector is bound instead.
func fallbackProjector(s ObjectSet, emb *Embedding, cfg runConfig) Projector {
	if s.Features == nil {
		return unsupportedProjector{}
	}

	k := cfg.k
	if k < 1 {
		k = defaultProjectionNeighbors
	}
	if k > s.Len-1 {
		k = s.Len - 1
	}

	n, target := emb.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, target)
		emb.rowOfEmbedding(i, rows[i])
	}

	return &localProjector{
		train:     featureRows(s.Features, s.Len),
		embedding: rows,
		k:         k,
		shift:     cfg.shift,
	}
}
