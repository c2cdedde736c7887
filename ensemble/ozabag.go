package ensemble

import (
	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/drift"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// OzaBag is online bagging (Oza & Russell, 2001): every member trains on each
// instance with multiplicity k ~ Poisson(λ), λ = 1 by default.
type OzaBag struct {
	base
	adwin bool
}

// NewOzaBag creates an online bagging ensemble. Supports WithRegression.
func NewOzaBag(factory model.Factory, opts ...Option) (*OzaBag, error) {
	return newOzaBag("OzaBag", factory, buildConfig(nil, opts), false)
}

// NewOzaBagADWIN creates online bagging with one ADWIN error estimator per
// member. When any estimator detects an increase in error, only the member with
// the highest estimated error is reset.
func NewOzaBagADWIN(factory model.Factory, opts ...Option) (*OzaBag, error) {
	return newOzaBag("OzaBagADWIN", factory, buildConfig(nil, opts), true)
}

func newOzaBag(name string, factory model.Factory, cfg *config, adwin bool) (*OzaBag, error) {
	b, err := newBase(name, factory, cfg, cfg.size)
	if err != nil {
		return nil, err
	}
	e := &OzaBag{base: b, adwin: adwin}
	if adwin {
		if err := e.validateClassification(); err != nil {
			return nil, err
		}
		f, err := drift.ADWINFactory(cfg.delta)
		if err != nil {
			return nil, err
		}
		e.pool.estimator = f
	}
	e.pool.Fill()
	return e, nil
}

// Train draws each member's multiplicity and trains the members.
func (e *OzaBag) Train(inst model.Instance, weight float64) error {
	e.pool.Tick()
	members := e.pool.Members()
	ks := make([]int, len(members))
	for i, m := range members {
		ks[i] = m.Draw()
		e.cfg.observer.Trained(e.name, i, float64(ks[i]))
	}

	before := make([]float64, len(members))
	changed := make([]bool, len(members))
	err := e.pool.Each(log.OperationTrain, func(i int, m *Member) error {
		if err := e.pool.Train(m, inst, float64(ks[i])*weight); err != nil {
			return err
		}
		if !e.adwin {
			return nil
		}
		vote, err := e.pool.Predict(m, inst)
		if err != nil {
			return err
		}
		before[i] = m.Estimator.Estimate()
		changed[i] = m.Estimator.Update(errorValue(vote, inst)) && m.Estimator.Estimate() > before[i]
		return nil
	})
	if err != nil {
		return err
	}
	if e.adwin {
		if e.pool.ResetWorst(anyTrue(changed), "ADWIN") >= 0 {
			e.drifts++
		}
	}
	return nil
}

// Predict combines the normalised member votes with equal weight.
func (e *OzaBag) Predict(inst model.Instance) ([]float64, error) {
	votes, err := e.pool.Votes(inst)
	if err != nil {
		return nil, err
	}
	return e.combine(votes, unitWeight), nil
}

// Reset replaces every member with a fresh one.
func (e *OzaBag) Reset() {
	*e = *must(newOzaBag(e.name, e.factory, e.cfg, e.adwin))
}

// Clone returns an untrained ensemble with the same configuration.
func (e *OzaBag) Clone() model.Learner {
	return must(newOzaBag(e.name, e.factory, e.cfg, e.adwin))
}

func anyTrue(v []bool) bool {
	for _, b := range v {
		if b {
			return true
		}
	}
	return false
}
