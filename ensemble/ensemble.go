// Package ensemble implements online ensemble learners over data streams.
//
// Every ensemble owns a Pool of members, decides per instance (or per chunk)
// which members train and with what multiplicity, tracks per-member
// performance estimators, replaces members on drift, and combines member
// votes into one prediction.
//
// Members of one ensemble may be updated concurrently (WithWorkers); each
// member draws from its own generator seeded by the master seed and its
// sequence number, so results do not depend on the worker count.
package ensemble

import (
	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// Ensemble is implemented by every ensemble in this package.
type Ensemble interface {
	model.Learner
	Name() string
	Stats() Stats
}

// Stats summarises the state of an ensemble.
type Stats struct {
	Name      string
	Instances int64
	Members   int
	Failures  int
	Drifts    int
	Weights   []float64
}

// PredictClass returns the index of the largest entry of l's vote, or -1
// when the vote is unusable.
func PredictClass(l model.Learner, inst model.Instance) (int, error) {
	v, err := l.Predict(inst)
	if err != nil {
		return -1, err
	}
	if !model.UsableVote(v) {
		return -1, nil
	}
	return model.ArgMax(v), nil
}

// base holds what every ensemble shares. Ensembles embed it and add their
// own policy.
type base struct {
	name    string
	cfg     *config
	factory model.Factory
	pool    *Pool
	drifts  int
}

func newBase(name string, factory model.Factory, cfg *config, capacity int) (base, error) {
	if factory == nil {
		return base{}, errors.NewValidationError("factory", "base learner factory is required", nil)
	}
	if err := cfg.validate(); err != nil {
		return base{}, err
	}
	return base{
		name:    name,
		cfg:     cfg,
		factory: factory,
		pool:    newPool(name, factory, cfg, capacity),
	}, nil
}

// Name returns the ensemble name used in logs and metrics.
func (b *base) Name() string { return b.name }

// Pool exposes the member pool for inspection.
func (b *base) Pool() *Pool { return b.pool }

// Stats summarises the ensemble.
func (b *base) Stats() Stats {
	w := make([]float64, b.pool.Len())
	for i, m := range b.pool.Members() {
		w[i] = m.Weight
	}
	return Stats{
		Name:      b.name,
		Instances: b.pool.Instances(),
		Members:   b.pool.Len(),
		Failures:  b.pool.Failures(),
		Drifts:    b.drifts,
		Weights:   w,
	}
}

// combine merges member votes with the given weights; weight(i) < 0 skips a member.
func (b *base) combine(votes [][]float64, weight func(i int) float64, opts ...CombineOption) []float64 {
	vs := make([]Vote, 0, len(votes))
	for i, v := range votes {
		if v == nil {
			continue
		}
		vs = append(vs, Vote{Scores: v, Weight: weight(i)})
	}
	if b.cfg.regression {
		return Average(vs)
	}
	return Combine(vs, opts...)
}

func unitWeight(int) float64 { return 1 }

// must unwraps a rebuild from a configuration that already built an
// ensemble once. Reset and Clone cannot return errors, so a failure panics
// with the wrapped cause instead of dereferencing a nil ensemble.
func must[T any](e T, err error) T {
	if err != nil {
		panic(errors.Wrap(err, "rebuild ensemble"))
	}
	return e
}

// errorValue is the 0/1 loss of vote against inst.
func errorValue(vote []float64, inst model.Instance) float64 {
	if model.UsableVote(vote) && model.ArgMax(vote) == inst.Class() {
		return 0
	}
	return 1
}

func (b *base) validateClassification() error {
	if b.cfg.regression {
		return errors.NewValidationError("regression", b.name+" supports classification only", true)
	}
	return nil
}
