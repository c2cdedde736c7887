package ensemble

import (
	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/drift"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// LeveragingBag is leveraging bagging (Bifet, Holmes & Pfahringer, 2010):
// bagging with a larger Poisson rate (λ = 6 by default) plus one ADWIN error
// estimator per member; on a detected error increase the worst member is reset.
type LeveragingBag struct {
	base
}

// NewLeveragingBag creates a leveraging bagging ensemble.
func NewLeveragingBag(factory model.Factory, opts ...Option) (*LeveragingBag, error) {
	return newLeveragingBag(factory, buildConfig([]Option{WithLambda(6)}, opts))
}

func newLeveragingBag(factory model.Factory, cfg *config) (*LeveragingBag, error) {
	b, err := newBase("LeveragingBag", factory, cfg, cfg.size)
	if err != nil {
		return nil, err
	}
	e := &LeveragingBag{base: b}
	if err := e.validateClassification(); err != nil {
		return nil, err
	}
	switch cfg.method {
	case LeveragingBagging, LeveragingMisclassified, LeveragingHalf, LeveragingWeighted, LeveragingSubag:
	default:
		return nil, errors.NewValidationError("method", "unknown leveraging bagging method", cfg.method)
	}
	f, err := drift.ADWINFactory(cfg.delta)
	if err != nil {
		return nil, err
	}
	e.pool.estimator = f
	e.pool.Fill()
	return e, nil
}

// multiplicity returns the training multiplicity of m for the configured method.
// wrong is the member's pre-training verdict, only used by the "me" method.
func (e *LeveragingBag) multiplicity(m *Member, wrong bool) float64 {
	switch e.cfg.method {
	case LeveragingMisclassified:
		if wrong {
			return 1
		}
		err := m.Estimator.Estimate()
		if m.rng.Float64() < errors.SafeDivide(err, 1-err) || err >= 1 {
			return 1
		}
		return 0
	case LeveragingHalf:
		if m.rng.IntN(2) == 0 {
			return 0
		}
		return 2
	case LeveragingWeighted:
		return 1 + float64(m.poisson.DrawWith(1))
	case LeveragingSubag:
		if m.poisson.DrawWith(1) > 0 {
			return 1
		}
		return 0
	default:
		return float64(m.Draw())
	}
}

// Train computes each member's multiplicity, trains it, and feeds its
// post-training 0/1 error to its ADWIN estimator.
func (e *LeveragingBag) Train(inst model.Instance, weight float64) error {
	e.pool.Tick()
	members := e.pool.Members()
	ks := make([]float64, len(members))
	changed := make([]bool, len(members))

	err := e.pool.Each(log.OperationTrain, func(i int, m *Member) error {
		wrong := false
		if e.cfg.method == LeveragingMisclassified {
			vote, err := e.pool.Predict(m, inst)
			if err != nil {
				return err
			}
			wrong = errorValue(vote, inst) == 1
		}
		ks[i] = e.multiplicity(m, wrong)
		if err := e.pool.Train(m, inst, ks[i]*weight); err != nil {
			return err
		}
		vote, err := e.pool.Predict(m, inst)
		if err != nil {
			return err
		}
		before := m.Estimator.Estimate()
		changed[i] = m.Estimator.Update(errorValue(vote, inst)) && m.Estimator.Estimate() > before
		return nil
	})
	for i, k := range ks {
		e.cfg.observer.Trained(e.name, i, k)
	}
	if err != nil {
		return err
	}
	if e.pool.ResetWorst(anyTrue(changed), "ADWIN") >= 0 {
		e.drifts++
	}
	return nil
}

// Predict combines the normalised member votes with equal weight.
func (e *LeveragingBag) Predict(inst model.Instance) ([]float64, error) {
	votes, err := e.pool.Votes(inst)
	if err != nil {
		return nil, err
	}
	return e.combine(votes, unitWeight), nil
}

// Reset replaces every member with a fresh one.
func (e *LeveragingBag) Reset() {
	*e = *must(newLeveragingBag(e.factory, e.cfg))
}

// Clone returns an untrained ensemble with the same configuration.
func (e *LeveragingBag) Clone() model.Learner {
	return must(newLeveragingBag(e.factory, e.cfg))
}
