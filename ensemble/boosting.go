package ensemble

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/drift"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// OzaBoost is online boosting (Oza & Russell, 2001). Each instance enters the
// cascade with weight λ = 1; every member trains with multiplicity λ (pure
// boost) or Poisson(λ), and λ grows after mistakes and shrinks after correct
// predictions. The cascade is sequential, so members are never trained in parallel.
//
// WithADOB visits members in accuracy order (Santos et al., 2014) and
// WithADWIN adds per-member ADWIN error estimators with reset-worst.
type OzaBoost struct {
	base
	totalWeight float64
	cascade     []float64
}

// NewOzaBoost creates an online boosting ensemble.
func NewOzaBoost(factory model.Factory, opts ...Option) (*OzaBoost, error) {
	return newOzaBoost(factory, buildConfig(nil, opts))
}

func newOzaBoost(factory model.Factory, cfg *config) (*OzaBoost, error) {
	name := "OzaBoost"
	if cfg.adob {
		name = "ADOB"
	}
	b, err := newBase(name, factory, cfg, cfg.size)
	if err != nil {
		return nil, err
	}
	e := &OzaBoost{base: b}
	if err := e.validateClassification(); err != nil {
		return nil, err
	}
	if cfg.adwin {
		f, err := drift.ADWINFactory(cfg.delta)
		if err != nil {
			return nil, err
		}
		e.pool.estimator = f
	}
	e.pool.Fill()
	return e, nil
}

// order returns the member visiting order for one instance. Without ADOB it
// is the pool order. With ADOB the members are sorted by ascending accuracy
// (stable by slot) and the next member comes from the strong end after a
// correct prediction and from the weak end after a mistake.
type visitOrder struct {
	sorted    []int
	low, high int
	adob      bool
}

func (e *OzaBoost) newOrder() *visitOrder {
	n := e.pool.Len()
	o := &visitOrder{sorted: make([]int, n), high: n - 1, adob: e.cfg.adob}
	for i := range o.sorted {
		o.sorted[i] = i
	}
	if o.adob {
		members := e.pool.Members()
		sort.SliceStable(o.sorted, func(a, b int) bool {
			return members[o.sorted[a]].Accuracy() < members[o.sorted[b]].Accuracy()
		})
	}
	return o
}

func (o *visitOrder) next(lastCorrect bool) int {
	if !o.adob || !lastCorrect {
		i := o.sorted[o.low]
		o.low++
		return i
	}
	i := o.sorted[o.high]
	o.high--
	return i
}

// Train routes the instance through the cascade.
func (e *OzaBoost) Train(inst model.Instance, weight float64) error {
	e.pool.Tick()
	e.totalWeight += weight
	c := cascade{lambda: 1, total: e.totalWeight}
	order := e.newOrder()
	members := e.pool.Members()
	e.cascade = e.cascade[:0]
	changed := false

	correct := false
	for step := 0; step < len(members); step++ {
		i := order.next(correct)
		m := members[i]
		lambda := c.lambda
		e.cascade = append(e.cascade, lambda)

		k := lambda
		if !e.cfg.pureBoost {
			k = float64(m.poisson.DrawWith(lambda))
		}
		e.cfg.observer.Trained(e.name, i, k)

		var vote []float64
		err := errors.SafeExecute(log.OperationTrain, func() error {
			if err := e.pool.Train(m, inst, k*weight); err != nil {
				return err
			}
			var err error
			vote, err = e.pool.Predict(m, inst)
			return err
		})
		if err != nil {
			// A failed member counts as a mistake so the cascade still moves on.
			if ferr := e.pool.fail(log.OperationTrain, i, m, err); ferr != nil {
				return ferr
			}
			vote = nil
		}

		correct = errorValue(vote, inst) == 0
		c.update(m, correct)
		if m.Estimator != nil {
			before := m.Estimator.Estimate()
			if m.Estimator.Update(errorValue(vote, inst)) && m.Estimator.Estimate() > before {
				changed = true
			}
		}
	}
	if e.cfg.adwin && e.pool.ResetWorst(changed, "ADWIN") >= 0 {
		e.drifts++
	}
	return nil
}

// LastCascade returns the cascade weight λ each member received for the most
// recent instance, in visiting order.
func (e *OzaBoost) LastCascade() []float64 {
	return append([]float64(nil), e.cascade...)
}

// memberWeight returns ln((1-ε)/ε) for a member with error ε, 0 for members
// that should stop the vote (no data, or error above one half).
func memberWeight(m *Member) float64 {
	total := m.scm + m.swm
	if total == 0 {
		return 0
	}
	em := m.swm / total
	if em > 0.5 {
		return 0
	}
	em = math.Max(em, errors.Epsilon)
	return math.Log((1 - em) / em)
}

// Predict combines votes weighted by ln((1-ε)/ε), in pool order, stopping at
// the first member whose error exceeds one half.
func (e *OzaBoost) Predict(inst model.Instance) ([]float64, error) {
	members := e.pool.Members()
	weights := make([]float64, len(members))
	stop := len(members)
	for i, m := range members {
		weights[i] = memberWeight(m)
		m.Weight = weights[i]
		if weights[i] <= 0 {
			stop = i
			break
		}
	}
	if stop == 0 {
		return nil, nil
	}
	votes := make([][]float64, stop)
	err := e.pool.each(log.OperationPredict, e.pool.slots(stop), func(i int, m *Member) error {
		v, err := e.pool.Predict(m, inst)
		votes[i] = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return e.combine(votes, func(i int) float64 { return weights[i] }), nil
}

// Reset replaces every member with a fresh one.
func (e *OzaBoost) Reset() {
	*e = *must(newOzaBoost(e.factory, e.cfg))
}

// Clone returns an untrained ensemble with the same configuration.
func (e *OzaBoost) Clone() model.Learner {
	return must(newOzaBoost(e.factory, e.cfg))
}
