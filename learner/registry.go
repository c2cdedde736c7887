package learner

import (
	"sort"
	"strings"
	"sync"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/preprocessing"
)

// Builder constructs a learner prototype from numeric parameters.
type Builder func(params map[string]float64) (model.Learner, error)

// Spec names a registered learner and its parameters, as read from configuration.
type Spec struct {
	Name   string             `mapstructure:"name"`
	Params map[string]float64 `mapstructure:"params"`
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Builder{}
)

func init() {
	Register("gaussian_nb", func(p map[string]float64) (model.Learner, error) {
		opts := []GaussianNBOption{}
		if v, ok := p["var_smoothing"]; ok {
			if v < 0 {
				return nil, errors.NewValidationError("var_smoothing", "must be non-negative", v)
			}
			opts = append(opts, WithVarSmoothing(v))
		}
		return NewGaussianNB(opts...), nil
	})
	Register("passive_aggressive", func(p map[string]float64) (model.Learner, error) {
		opts, err := paOptions(p)
		if err != nil {
			return nil, err
		}
		return NewPassiveAggressiveClassifier(opts...), nil
	})
	Register("passive_aggressive_regressor", func(p map[string]float64) (model.Learner, error) {
		opts, err := paOptions(p)
		if err != nil {
			return nil, err
		}
		if v, ok := p["epsilon"]; ok {
			opts = append(opts, WithPAEpsilon(v))
		}
		return NewPassiveAggressiveRegressor(opts...), nil
	})
	Register("majority", func(map[string]float64) (model.Learner, error) {
		return NewMajorityClass(), nil
	})
}

func paOptions(p map[string]float64) ([]PassiveAggressiveOption, error) {
	var opts []PassiveAggressiveOption
	if v, ok := p["c"]; ok {
		if v <= 0 {
			return nil, errors.NewValidationError("C", "must be positive", v)
		}
		opts = append(opts, WithPAC(v))
	}
	if v, ok := p["fit_intercept"]; ok {
		opts = append(opts, WithPAFitIntercept(v != 0))
	}
	return opts, nil
}

// Register adds or replaces a named learner builder.
func Register(name string, b Builder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = b
}

// Lookup returns the builder registered under name.
func Lookup(name string) (Builder, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	b, ok := registry[name]
	return b, ok
}

// Names returns the registered learner names in sorted order.
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

// NewFactory resolves spec once into a factory. Unknown names and invalid
// parameters are configuration errors. A non-zero "standardize" or "minmax"
// parameter puts the matching online scaler in front of the learner.
func NewFactory(spec Spec) (model.Factory, error) {
	b, ok := Lookup(spec.Name)
	if !ok {
		return nil, errors.NewValidationError("learner", "unknown learner; registered: "+joinNames(), spec.Name)
	}
	// 設定ファイル経由のキーは小文字になるため揃える
	params := make(map[string]float64, len(spec.Params))
	for k, v := range spec.Params {
		params[strings.ToLower(k)] = v
	}
	proto, err := b(params)
	if err != nil {
		return nil, errors.Wrapf(err, "build learner %q", spec.Name)
	}
	switch {
	case params["standardize"] != 0 && params["minmax"] != 0:
		return nil, errors.NewValidationError("standardize", "cannot be combined with minmax", params["minmax"])
	case params["standardize"] != 0:
		proto = preprocessing.NewPipeline(preprocessing.NewOnlineStandardScalerDefault(), proto)
	case params["minmax"] != 0:
		proto = preprocessing.NewPipeline(preprocessing.NewOnlineMinMaxScalerDefault(), proto)
	}
	return model.FactoryOf(proto), nil
}

func joinNames() string {
	return strings.Join(Names(), ", ")
}
