package ensemble

import (
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/drift"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// DACC is the Dynamic Adaptation to Concept Changes ensemble (Jaber et al.,
// 2013). Each member's accuracy is tracked over a sliding window. Every
// WithMaturity instances one member, drawn uniformly from the worse half of
// the mature members, is replaced by a fresh learner.
type DACC struct {
	base
	rng *rand.Rand
}

// NewDACC creates a DACC ensemble.
func NewDACC(factory model.Factory, opts ...Option) (*DACC, error) {
	return newDACC(factory, buildConfig(nil, opts))
}

func newDACC(factory model.Factory, cfg *config) (*DACC, error) {
	if cfg.maturity < 1 {
		return nil, errors.NewValidationError("maturity", "must be at least 1", cfg.maturity)
	}
	if cfg.combination != CombineWeighted && cfg.combination != CombineBest {
		return nil, errors.NewValidationError("combination", "must be weighted or best", string(cfg.combination))
	}
	b, err := newBase("DACC", factory, cfg, cfg.size)
	if err != nil {
		return nil, err
	}
	e := &DACC{base: b, rng: newMemberRNG(cfg.seed, -1)}
	if err := e.validateClassification(); err != nil {
		return nil, err
	}
	f, err := drift.WindowFactory(cfg.window)
	if err != nil {
		return nil, err
	}
	e.pool.estimator = f
	e.pool.Fill()
	return e, nil
}

// Train scores every member on the instance before training it, then
// replaces a weak mature member every maturity instances.
func (e *DACC) Train(inst model.Instance, weight float64) error {
	now := e.pool.Tick()
	err := e.pool.Each(log.OperationTrain, func(i int, m *Member) error {
		vote, err := e.pool.Predict(m, inst)
		if err != nil {
			return err
		}
		m.Estimator.Update(1 - errorValue(vote, inst))
		return e.pool.Train(m, inst, weight)
	})
	if err != nil {
		return err
	}
	for i := range e.pool.Members() {
		e.cfg.observer.Trained(e.name, i, weight)
	}
	if now%int64(e.cfg.maturity) == 0 {
		e.replaceWeak(now)
	}
	return nil
}

// mature returns the slots of members at least maturity instances old.
func (e *DACC) mature(now int64) []int {
	var out []int
	for i, m := range e.pool.Members() {
		if m.Age(now) >= int64(e.cfg.maturity) {
			out = append(out, i)
		}
	}
	return out
}

func (e *DACC) replaceWeak(now int64) {
	candidates := e.mature(now)
	if len(candidates) == 0 {
		return
	}
	members := e.pool.Members()
	sort.SliceStable(candidates, func(a, b int) bool {
		return members[candidates[a]].Estimator.Estimate() < members[candidates[b]].Estimator.Estimate()
	})
	half := max(len(candidates)/2, 1)
	slot := candidates[e.rng.IntN(half)]
	e.pool.logger.Debug("replacing weak mature member",
		log.MemberIndexKey, slot,
		log.MemberAgeKey, members[slot].Age(now),
		log.AccuracyKey, members[slot].Estimator.Estimate())
	e.pool.Reset(slot)
}

// Predict combines member votes. With CombineWeighted every member votes with
// its windowed accuracy; with CombineBest only the most accurate member votes.
// Mature members are preferred when there are any.
func (e *DACC) Predict(inst model.Instance) ([]float64, error) {
	now := e.pool.Instances()
	slots := e.mature(now)
	if len(slots) == 0 {
		slots = make([]int, e.pool.Len())
		for i := range slots {
			slots[i] = i
		}
	}
	members := make([]*Member, len(slots))
	acc := make([]float64, len(slots))
	for i, s := range slots {
		members[i] = e.pool.Member(s)
		acc[i] = members[i].Estimator.Estimate()
		members[i].Weight = acc[i]
	}

	if e.cfg.combination == CombineBest {
		best := SelectBest(acc, true)
		if best < 0 {
			return nil, nil
		}
		var vote []float64
		err := e.pool.each(log.OperationPredict, slots[best:best+1], func(_ int, m *Member) error {
			var err error
			vote, err = e.pool.Predict(m, inst)
			return err
		})
		return vote, err
	}

	votes := make([][]float64, len(members))
	err := e.pool.each(log.OperationPredict, slots, func(i int, m *Member) error {
		v, err := e.pool.Predict(m, inst)
		votes[i] = v
		return err
	})
	if err != nil {
		return nil, err
	}
	out := e.combine(votes, func(i int) float64 { return acc[i] })
	if out == nil {
		out = e.combine(votes, unitWeight)
	}
	return out, nil
}

// Reset replaces every member with a fresh one.
func (e *DACC) Reset() {
	*e = *must(newDACC(e.factory, e.cfg))
}

// Clone returns an untrained ensemble with the same configuration.
func (e *DACC) Clone() model.Learner {
	return must(newDACC(e.factory, e.cfg))
}
