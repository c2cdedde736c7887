package ensemble

import (
	"time"

	"github.com/YuminosukeSato/scistream/drift"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// LeveragingMethod selects how LeveragingBag derives training multiplicities.
type LeveragingMethod string

const (
	LeveragingBagging       LeveragingMethod = "bag"   // Poisson(λ)
	LeveragingMisclassified LeveragingMethod = "me"    // weight misclassified instances
	LeveragingHalf          LeveragingMethod = "half"  // 0 or 2 with equal probability
	LeveragingWeighted      LeveragingMethod = "wt"    // 1 + Poisson(λ)
	LeveragingSubag         LeveragingMethod = "subag" // sampling without replacement
)

// Combination selects how DACC combines member votes.
type Combination string

const (
	CombineWeighted Combination = "weighted"
	CombineBest     Combination = "best"
)

// SubspaceMode selects the training strategy of StreamingRandomPatches.
type SubspaceMode string

const (
	RandomSubspaces SubspaceMode = "subspaces" // feature subsets, no resampling
	Resampling      SubspaceMode = "resampling"
	RandomPatches   SubspaceMode = "patches" // feature subsets and resampling
)

// ChunkVariant selects the weighting rule of AccuracyWeightedEnsemble.
type ChunkVariant string

const (
	AccuracyWeighted ChunkVariant = "awe"
	AccuracyUpdated  ChunkVariant = "aue"
)

// config is shared by every ensemble. Each constructor applies its own
// defaults first and the caller's options second, then validates.
type config struct {
	size      int
	lambda    float64
	seed      uint64
	delta     float64
	warnDelta float64
	workers   int
	tolerance int
	logger    log.Logger
	observer  Observer

	regression bool

	// boosting
	pureBoost bool
	adob      bool
	adwin     bool

	// leveraging bagging
	method LeveragingMethod

	// chunk-based ensembles
	chunkSize int
	stored    int
	folds     int
	variant   ChunkVariant

	// DACC
	maturity    int
	window      int
	combination Combination

	// SRP
	subspaceMode SubspaceMode
	subspaceSize float64
	numFeatures  int

	// RCD
	maxComparisons int
	timeout        time.Duration
	alpha          float64
	bufferSize     int
	detector       drift.Factory
}

// Option configures an ensemble.
type Option func(*config)

func defaultConfig() *config {
	return &config{
		size:           10,
		lambda:         1.0,
		seed:           1,
		delta:          0.002,
		warnDelta:      0.01,
		workers:        1,
		tolerance:      100,
		method:         LeveragingBagging,
		chunkSize:      500,
		folds:          10,
		variant:        AccuracyWeighted,
		maturity:       20,
		window:         20,
		combination:    CombineWeighted,
		subspaceMode:   RandomPatches,
		subspaceSize:   0.6,
		maxComparisons: 4,
		alpha:          0.05,
		bufferSize:     200,
	}
}

func buildConfig(defaults, opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range defaults {
		opt(cfg)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.GetLogger()
	}
	if cfg.observer == nil {
		cfg.observer = NopObserver{}
	}
	if cfg.stored == 0 {
		cfg.stored = cfg.size
	}
	return cfg
}

// validate checks the options every ensemble shares.
func (c *config) validate() error {
	if c.size < 1 {
		return errors.NewValidationError("ensemble_size", "must be at least 1", c.size)
	}
	if c.lambda <= 0 {
		return errors.NewValidationError("lambda", "must be positive", c.lambda)
	}
	if c.tolerance < 0 {
		return errors.NewValidationError("failure_tolerance", "must be non-negative", c.tolerance)
	}
	if c.workers < 0 {
		return errors.NewValidationError("workers", "must be non-negative", c.workers)
	}
	return nil
}

func (c *config) validateChunk() error {
	if c.chunkSize < 1 {
		return errors.NewValidationError("chunk_size", "must be at least 1", c.chunkSize)
	}
	if c.stored < c.size {
		return errors.NewValidationError("stored_size", "must be at least the ensemble size", c.stored)
	}
	return nil
}

// WithEnsembleSize sets the number of members (K).
func WithEnsembleSize(n int) Option { return func(c *config) { c.size = n } }

// WithLambda sets the Poisson rate used for resampling.
func WithLambda(l float64) Option { return func(c *config) { c.lambda = l } }

// WithSeed sets the master seed. Member generators derive from it and their sequence number.
func WithSeed(seed uint64) Option { return func(c *config) { c.seed = seed } }

// WithDelta sets the confidence of the drift ADWIN detectors.
func WithDelta(d float64) Option { return func(c *config) { c.delta = d } }

// WithWarningDelta sets the confidence of the warning ADWIN detectors (SRP).
func WithWarningDelta(d float64) Option { return func(c *config) { c.warnDelta = d } }

// WithWorkers sets how many goroutines update members for one instance.
// 1 (the default) updates sequentially, 0 uses one goroutine per CPU.
func WithWorkers(n int) Option { return func(c *config) { c.workers = n } }

// WithFailureTolerance sets how many member failures are tolerated before
// the ensemble returns a fatal FailureBudgetError.
func WithFailureTolerance(n int) Option { return func(c *config) { c.tolerance = n } }

// WithLogger sets the logger used for drift, replacement and failure events.
func WithLogger(l log.Logger) Option { return func(c *config) { c.logger = l } }

// WithObserver sets the event observer (e.g. Prometheus collectors).
func WithObserver(o Observer) Option { return func(c *config) { c.observer = o } }

// WithRegression makes the ensemble average single-output votes instead of
// combining class distributions.
func WithRegression() Option { return func(c *config) { c.regression = true } }

// WithPureBoost trains boosting members with multiplicity λ instead of Poisson(λ).
func WithPureBoost() Option { return func(c *config) { c.pureBoost = true } }

// WithADOB routes boosting instances through members ordered by accuracy.
func WithADOB() Option { return func(c *config) { c.adob = true } }

// WithADWIN attaches an ADWIN error detector to every boosting member.
func WithADWIN() Option { return func(c *config) { c.adwin = true } }

// WithLeveragingMethod selects the LeveragingBag resampling method.
func WithLeveragingMethod(m LeveragingMethod) Option { return func(c *config) { c.method = m } }

// WithChunkSize sets the number of instances per chunk.
func WithChunkSize(n int) Option { return func(c *config) { c.chunkSize = n } }

// WithStoredSize sets how many members a chunk ensemble keeps in storage.
// The active set is the best WithEnsembleSize of them.
func WithStoredSize(n int) Option { return func(c *config) { c.stored = n } }

// WithFolds sets the number of cross-validation folds for AWE candidates.
func WithFolds(n int) Option { return func(c *config) { c.folds = n } }

// WithChunkVariant selects AWE or AUE weighting.
func WithChunkVariant(v ChunkVariant) Option { return func(c *config) { c.variant = v } }

// WithMaturity sets the DACC maturity age and replacement period.
func WithMaturity(n int) Option { return func(c *config) { c.maturity = n } }

// WithWindowSize sets the windowed accuracy size used by DACC.
func WithWindowSize(n int) Option { return func(c *config) { c.window = n } }

// WithCombination selects DACC vote combination.
func WithCombination(cb Combination) Option { return func(c *config) { c.combination = cb } }

// WithSubspaceMode selects the SRP training strategy.
func WithSubspaceMode(m SubspaceMode) Option { return func(c *config) { c.subspaceMode = m } }

// WithSubspaceSize sets the SRP subspace size: a value in (0, 1) is a fraction
// of the features, a value ≥ 1 an absolute count, a negative value d - m.
func WithSubspaceSize(m float64) Option { return func(c *config) { c.subspaceSize = m } }

// WithNumFeatures declares the feature count up front so that SRP validates
// its subspaces at construction instead of at the first instance.
func WithNumFeatures(d int) Option { return func(c *config) { c.numFeatures = d } }

// WithMaxComparisons bounds the concurrent concept comparisons of RCD.
func WithMaxComparisons(n int) Option { return func(c *config) { c.maxComparisons = n } }

// WithComparisonTimeout bounds how long RCD waits for its comparisons.
// Zero (the default) waits until all of them finish.
func WithComparisonTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }

// WithSignificance sets the KS test level used by RCD.
func WithSignificance(alpha float64) Option { return func(c *config) { c.alpha = alpha } }

// WithBufferSize sets how many instances RCD keeps per concept sample.
func WithBufferSize(n int) Option { return func(c *config) { c.bufferSize = n } }

// WithDetector sets the warning-capable detector RCD watches.
func WithDetector(f drift.Factory) Option { return func(c *config) { c.detector = f } }
