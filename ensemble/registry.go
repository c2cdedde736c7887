package ensemble

import (
	"sort"
	"sync"
	"time"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// Constructor builds an ensemble over base learners from factory.
type Constructor func(factory model.Factory, opts ...Option) (Ensemble, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

func wrap[T Ensemble](f func(model.Factory, ...Option) (T, error)) Constructor {
	return func(factory model.Factory, opts ...Option) (Ensemble, error) {
		e, err := f(factory, opts...)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

func init() {
	Register("ozabag", wrap(NewOzaBag))
	Register("ozabag_adwin", wrap(NewOzaBagADWIN))
	Register("leveraging_bag", wrap(NewLeveragingBag))
	Register("ozaboost", wrap(NewOzaBoost))
	Register("adob", func(factory model.Factory, opts ...Option) (Ensemble, error) {
		return wrap(NewOzaBoost)(factory, append([]Option{WithADOB()}, opts...)...)
	})
	Register("awe", wrap(NewAccuracyWeightedEnsemble))
	Register("aue", func(factory model.Factory, opts ...Option) (Ensemble, error) {
		return wrap(NewAccuracyWeightedEnsemble)(factory, append([]Option{WithChunkVariant(AccuracyUpdated)}, opts...)...)
	})
	Register("dacc", wrap(NewDACC))
	Register("srp", wrap(NewStreamingRandomPatches))
	Register("rcd", wrap(NewRCD))
	Register("goowe", wrap(NewGOOWE))
}

// Register adds or replaces a named ensemble constructor.
func Register(name string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = c
}

// Names returns the registered ensemble names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the ensemble registered under name.
func New(name string, factory model.Factory, opts ...Option) (Ensemble, error) {
	registryMu.RLock()
	c, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.NewValidationError("ensemble", "unknown ensemble", name)
	}
	return c(factory, opts...)
}

// Settings is the configuration-file form of the ensemble options. Zero
// values keep each ensemble's defaults.
type Settings struct {
	Name              string        `mapstructure:"name"`
	Size              int           `mapstructure:"size"`
	Lambda            float64       `mapstructure:"lambda"`
	Seed              uint64        `mapstructure:"seed"`
	Delta             float64       `mapstructure:"delta"`
	WarningDelta      float64       `mapstructure:"warning_delta"`
	Workers           int           `mapstructure:"workers"`
	FailureTolerance  int           `mapstructure:"failure_tolerance"`
	Regression        bool          `mapstructure:"regression"`
	PureBoost         bool          `mapstructure:"pure_boost"`
	ADWIN             bool          `mapstructure:"adwin"`
	Method            string        `mapstructure:"method"`
	ChunkSize         int           `mapstructure:"chunk_size"`
	StoredSize        int           `mapstructure:"stored_size"`
	Folds             int           `mapstructure:"folds"`
	Maturity          int           `mapstructure:"maturity"`
	Window            int           `mapstructure:"window"`
	Combination       string        `mapstructure:"combination"`
	SubspaceMode      string        `mapstructure:"subspace_mode"`
	SubspaceSize      float64       `mapstructure:"subspace_size"`
	NumFeatures       int           `mapstructure:"num_features"`
	MaxComparisons    int           `mapstructure:"max_comparisons"`
	ComparisonTimeout time.Duration `mapstructure:"comparison_timeout"`
	Significance      float64       `mapstructure:"significance"`
	BufferSize        int           `mapstructure:"buffer_size"`
}

// Options converts the settings into options.
func (s Settings) Options() []Option {
	var opts []Option
	add := func(ok bool, o Option) {
		if ok {
			opts = append(opts, o)
		}
	}
	add(s.Size != 0, WithEnsembleSize(s.Size))
	add(s.Lambda != 0, WithLambda(s.Lambda))
	add(s.Seed != 0, WithSeed(s.Seed))
	add(s.Delta != 0, WithDelta(s.Delta))
	add(s.WarningDelta != 0, WithWarningDelta(s.WarningDelta))
	add(s.Workers != 0, WithWorkers(s.Workers))
	add(s.FailureTolerance != 0, WithFailureTolerance(s.FailureTolerance))
	add(s.Regression, WithRegression())
	add(s.PureBoost, WithPureBoost())
	add(s.ADWIN, WithADWIN())
	add(s.Method != "", WithLeveragingMethod(LeveragingMethod(s.Method)))
	add(s.ChunkSize != 0, WithChunkSize(s.ChunkSize))
	add(s.StoredSize != 0, WithStoredSize(s.StoredSize))
	add(s.Folds != 0, WithFolds(s.Folds))
	add(s.Maturity != 0, WithMaturity(s.Maturity))
	add(s.Window != 0, WithWindowSize(s.Window))
	add(s.Combination != "", WithCombination(Combination(s.Combination)))
	add(s.SubspaceMode != "", WithSubspaceMode(SubspaceMode(s.SubspaceMode)))
	add(s.SubspaceSize != 0, WithSubspaceSize(s.SubspaceSize))
	add(s.NumFeatures != 0, WithNumFeatures(s.NumFeatures))
	add(s.MaxComparisons != 0, WithMaxComparisons(s.MaxComparisons))
	add(s.ComparisonTimeout != 0, WithComparisonTimeout(s.ComparisonTimeout))
	add(s.Significance != 0, WithSignificance(s.Significance))
	add(s.BufferSize != 0, WithBufferSize(s.BufferSize))
	return opts
}
