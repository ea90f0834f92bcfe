package manifold

import (
	"errors"
	"fmt"
)

// ErrMissingParameter is returned when a parameter required by the selected
// method is absent and no unambiguous default applies.
var ErrMissingParameter = errors.New("missing required parameter")

// ErrTypeMismatch is returned when a stored parameter value does not match the
// documented type for its key.
var ErrTypeMismatch = errors.New("parameter type mismatch")

// ParamKey identifies a recognized configuration option. The set of keys is a
// closed enumeration; setting an unrecognized key is a silent no-op so configs
// written against future versions keep working.
type ParamKey string

const (
	// ReductionMethod selects the reduction algorithm. Value type: Method.
	ReductionMethod ParamKey = "method"

	// NumNeighbors is the neighbor count k for local methods. Value type: int.
	NumNeighbors ParamKey = "num_neighbors"

	// TargetDimension is the output dimensionality. Value type: int.
	TargetDimension ParamKey = "target_dimension"

	// CurrentDimension is the input feature dimensionality. Value type: int.
	// Required only by linear methods when no feature callback can report it.
	CurrentDimension ParamKey = "current_dimension"

	// EigenBackend selects the eigensolver. Value type: EigenKind.
	EigenBackend ParamKey = "eigen_backend"

	// NeighborsBackend selects the neighbor-search strategy. Value type: NeighborsKind.
	NeighborsBackend ParamKey = "neighbors_backend"

	// DiffusionTimesteps is the diffusion operator power t. Value type: int.
	DiffusionTimesteps ParamKey = "diffusion_timesteps"

	// GaussianKernelWidth is the heat/Gaussian kernel width. Value type: float64.
	GaussianKernelWidth ParamKey = "gaussian_kernel_width"

	// MaxIterations bounds iterative solvers and SPE updates. Value type: int.
	MaxIterations ParamKey = "max_iterations"

	// SPEGlobalStrategy switches SPE between global pair sampling and
	// neighbor-restricted sampling. Value type: bool.
	SPEGlobalStrategy ParamKey = "spe_global_strategy"

	// SPETolerance is the SPE distance-agreement tolerance. Value type: float64.
	SPETolerance ParamKey = "spe_tolerance"

	// SPENumUpdates is the number of pair updates per SPE iteration. Value type: int.
	SPENumUpdates ParamKey = "spe_num_updates"

	// LandmarkRatio is the fraction of objects used as landmarks by the
	// landmark method variants, in (0, 1]. Value type: float64.
	LandmarkRatio ParamKey = "landmark_ratio"

	// EigenShift is the regularization shift added to locally-degenerate Gram
	// matrices before solving for reconstruction weights. Value type: float64.
	EigenShift ParamKey = "eigenshift"

	// RandomSeed seeds landmark selection and the stochastic methods so runs
	// are reproducible. Value type: int64.
	RandomSeed ParamKey = "random_seed"
)

// paramKind tags the dynamic type a paramValue holds.
type paramKind int

const (
	kindInt paramKind = iota
	kindInt64
	kindFloat
	kindBool
	kindMethod
	kindEigenKind
	kindNeighborsKind
)

// paramValue is a tagged variant. Exactly one field is meaningful, selected by
// the kind tag; typed getters fail with ErrTypeMismatch instead of guessing.
type paramValue struct {
	kind      paramKind
	intVal    int
	int64Val  int64
	floatVal  float64
	boolVal   bool
	methodVal Method
	eigenVal  EigenKind
	nnVal     NeighborsKind
}

// expectedTypeTable documents the value type of every recognized key.
var expectedTypeTable = map[ParamKey]paramKind{
	ReductionMethod:     kindMethod,
	NumNeighbors:        kindInt,
	TargetDimension:     kindInt,
	CurrentDimension:    kindInt,
	EigenBackend:        kindEigenKind,
	NeighborsBackend:    kindNeighborsKind,
	DiffusionTimesteps:  kindInt,
	GaussianKernelWidth: kindFloat,
	MaxIterations:       kindInt,
	SPEGlobalStrategy:   kindBool,
	SPETolerance:        kindFloat,
	SPENumUpdates:       kindInt,
	LandmarkRatio:       kindFloat,
	EigenShift:          kindFloat,
	RandomSeed:          kindInt64,
}

// Parameters is the typed key/value registry configuring a pipeline run.
// Construct with NewParameters, populate with the With* setters, then treat as
// read-only: Embed never mutates it, and validation happens once at pipeline
// start rather than lazily inside the stages.
type Parameters struct {
	values map[ParamKey]paramValue
}

// NewParameters creates an empty registry.
func NewParameters() *Parameters {
	return &Parameters{values: make(map[ParamKey]paramValue)}
}

// set stores a tagged value under key, ignoring unrecognized keys so configs
// written against future versions keep working. A recognized key is stored
// even when the value's Go type does not fit the key's documented type: the
// typed getters report ErrTypeMismatch when the run starts, instead of the
// run quietly proceeding on a default.
func (p *Parameters) set(key ParamKey, v paramValue) *Parameters {
	if _, recognized := expectedTypeTable[key]; !recognized {
		return p
	}
	p.values[key] = v
	return p
}

// WithMethod sets the reduction method.
func (p *Parameters) WithMethod(m Method) *Parameters {
	return p.set(ReductionMethod, paramValue{kind: kindMethod, methodVal: m})
}

// WithInt sets an integer-valued key (neighbor count, target dimension, ...).
func (p *Parameters) WithInt(key ParamKey, v int) *Parameters {
	return p.set(key, paramValue{kind: kindInt, intVal: v})
}

// WithInt64 sets an int64-valued key (random seed).
func (p *Parameters) WithInt64(key ParamKey, v int64) *Parameters {
	return p.set(key, paramValue{kind: kindInt64, int64Val: v})
}

// WithFloat sets a float-valued key (kernel width, landmark ratio, ...).
func (p *Parameters) WithFloat(key ParamKey, v float64) *Parameters {
	return p.set(key, paramValue{kind: kindFloat, floatVal: v})
}

// WithBool sets a bool-valued key (SPE global strategy).
func (p *Parameters) WithBool(key ParamKey, v bool) *Parameters {
	return p.set(key, paramValue{kind: kindBool, boolVal: v})
}

// WithEigenBackend sets the eigensolver backend.
func (p *Parameters) WithEigenBackend(k EigenKind) *Parameters {
	return p.set(EigenBackend, paramValue{kind: kindEigenKind, eigenVal: k})
}

// WithNeighborsBackend sets the neighbor-search backend.
func (p *Parameters) WithNeighborsBackend(k NeighborsKind) *Parameters {
	return p.set(NeighborsBackend, paramValue{kind: kindNeighborsKind, nnVal: k})
}

// Has reports whether key was set.
func (p *Parameters) Has(key ParamKey) bool {
	_, ok := p.values[key]
	return ok
}

func (p *Parameters) lookup(key ParamKey, want paramKind) (paramValue, error) {
	v, ok := p.values[key]
	if !ok {
		return paramValue{}, fmt.Errorf("%w: %s", ErrMissingParameter, key)
	}
	if v.kind != want {
		return paramValue{}, fmt.Errorf("%w: %s", ErrTypeMismatch, key)
	}
	return v, nil
}

// Method returns the configured reduction method.
func (p *Parameters) Method() (Method, error) {
	v, err := p.lookup(ReductionMethod, kindMethod)
	if err != nil {
		return "", err
	}
	return v.methodVal, nil
}

// Int returns the value of an integer-valued key.
func (p *Parameters) Int(key ParamKey) (int, error) {
	v, err := p.lookup(key, kindInt)
	if err != nil {
		return 0, err
	}
	return v.intVal, nil
}

// Int64 returns the value of an int64-valued key.
func (p *Parameters) Int64(key ParamKey) (int64, error) {
	v, err := p.lookup(key, kindInt64)
	if err != nil {
		return 0, err
	}
	return v.int64Val, nil
}

// Float returns the value of a float-valued key.
func (p *Parameters) Float(key ParamKey) (float64, error) {
	v, err := p.lookup(key, kindFloat)
	if err != nil {
		return 0, err
	}
	return v.floatVal, nil
}

// Bool returns the value of a bool-valued key.
func (p *Parameters) Bool(key ParamKey) (bool, error) {
	v, err := p.lookup(key, kindBool)
	if err != nil {
		return false, err
	}
	return v.boolVal, nil
}

// EigenBackendKind returns the configured eigensolver backend, defaulting to
// EigenDense when unset.
func (p *Parameters) EigenBackendKind() (EigenKind, error) {
	if !p.Has(EigenBackend) {
		return EigenDense, nil
	}
	v, err := p.lookup(EigenBackend, kindEigenKind)
	if err != nil {
		return "", err
	}
	return v.eigenVal, nil
}

// NeighborsBackendKind returns the configured neighbor-search backend,
// defaulting to BruteForceNeighbors when unset.
func (p *Parameters) NeighborsBackendKind() (NeighborsKind, error) {
	if !p.Has(NeighborsBackend) {
		return BruteForceNeighbors, nil
	}
	v, err := p.lookup(NeighborsBackend, kindNeighborsKind)
	if err != nil {
		return "", err
	}
	return v.nnVal, nil
}

// intOr returns an int-valued key or def when the key is absent.
// A present key with the wrong type is still an error.
func (p *Parameters) intOr(key ParamKey, def int) (int, error) {
	if !p.Has(key) {
		return def, nil
	}
	return p.Int(key)
}

// floatOr returns a float-valued key or def when the key is absent.
func (p *Parameters) floatOr(key ParamKey, def float64) (float64, error) {
	if !p.Has(key) {
		return def, nil
	}
	return p.Float(key)
}

// boolOr returns a bool-valued key or def when the key is absent.
func (p *Parameters) boolOr(key ParamKey, def bool) (bool, error) {
	if !p.Has(key) {
		return def, nil
	}
	return p.Bool(key)
}

// int64Or returns an int64-valued key or def when the key is absent.
func (p *Parameters) int64Or(key ParamKey, def int64) (int64, error) {
	if !p.Has(key) {
		return def, nil
	}
	return p.Int64(key)
}

// Defaults for parameters that have an unambiguous fallback. Method, target
// dimension and (for local methods) neighbor count never default: an embedding
// produced under a guessed configuration is worse than a visible failure.
const (
	// DefaultMaxIterations bounds iterative eigensolvers and SPE sweeps.
	DefaultMaxIterations = 1000

	// DefaultDiffusionTimesteps is the diffusion operator power.
	DefaultDiffusionTimesteps = 1

	// DefaultGaussianKernelWidth is the heat-kernel width.
	DefaultGaussianKernelWidth = 1.0

	// DefaultSPETolerance keeps SPE updates away from coincident pairs.
	DefaultSPETolerance = 1e-5

	// DefaultLandmarkRatio keeps half the objects as landmarks.
	DefaultLandmarkRatio = 0.5

	// DefaultEigenShift regularizes near-singular local Gram matrices.
	DefaultEigenShift = 1e-9

	// DefaultRandomSeed makes landmark selection and SPE reproducible unless
	// the caller opts into a different seed.
	DefaultRandomSeed int64 = 1
)
