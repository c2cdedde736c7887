package ensemble

import (
	"github.com/google/uuid"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/core/parallel"
	"github.com/YuminosukeSato/scistream/drift"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// Pool owns the ordered members of an ensemble and applies every
// replacement policy. All bookkeeping is mutated on the calling goroutine;
// Each and Votes fan member work out and write results back in index order.
type Pool struct {
	name     string
	factory  model.Factory
	cfg      *config
	capacity int
	members  []*Member

	estimator drift.Factory
	detector  drift.Factory
	warning   drift.Factory

	nextSeq   int
	instances int64
	failures  int
	causes    error

	logger log.Logger
}

// newPool creates an empty pool of the given capacity.
func newPool(name string, factory model.Factory, cfg *config, capacity int) *Pool {
	return &Pool{
		name:     name,
		factory:  factory,
		cfg:      cfg,
		capacity: capacity,
		members:  make([]*Member, 0, capacity),
		logger:   cfg.logger.With(log.ModelNameKey, name, log.EnsembleSizeKey, capacity),
	}
}

// Spawn creates a fresh member without adding it to the pool.
func (p *Pool) Spawn() *Member {
	seq := p.nextSeq
	p.nextSeq++
	rng := newMemberRNG(p.cfg.seed, seq)
	m := &Member{
		ID:        uuid.New(),
		Seq:       seq,
		Learner:   p.factory(),
		Weight:    1,
		CreatedAt: p.instances,
		rng:       rng,
		poisson:   NewPoisson(p.cfg.lambda, rng),
	}
	if p.estimator != nil {
		m.Estimator = p.estimator()
	}
	if p.detector != nil {
		m.Detector = p.detector()
	}
	if p.warning != nil {
		m.Warning = p.warning()
	}
	return m
}

// Fill spawns members until the pool is at capacity.
func (p *Pool) Fill() {
	for len(p.members) < p.capacity {
		p.seed(p.Spawn())
	}
}

// seed appends an initial member without reporting a replacement.
func (p *Pool) seed(m *Member) {
	p.members = append(p.members, m)
}

// Add appends m, failing with ErrPoolFull at capacity.
func (p *Pool) Add(m *Member) error {
	if len(p.members) >= p.capacity {
		return errors.WithStack(errors.ErrPoolFull)
	}
	p.members = append(p.members, m)
	p.cfg.observer.Replaced(p.name, len(p.members)-1, log.ActionAdd)
	return nil
}

// Members returns the members in pool order. Callers must not reorder it.
func (p *Pool) Members() []*Member { return p.members }

// Member returns the member in slot i.
func (p *Pool) Member(i int) *Member { return p.members[i] }

// Len returns the number of members.
func (p *Pool) Len() int { return len(p.members) }

// Capacity returns the maximum number of members.
func (p *Pool) Capacity() int { return p.capacity }

// Tick advances the instance index and returns it.
func (p *Pool) Tick() int64 {
	p.instances++
	return p.instances
}

// Instances returns the number of instances processed.
func (p *Pool) Instances() int64 { return p.instances }

// Failures returns the number of recovered member failures.
func (p *Pool) Failures() int { return p.failures }

// Reset replaces the learner of slot i with a fresh model and resets its
// estimators. The slot keeps its generator.
func (p *Pool) Reset(i int) {
	m := p.members[i]
	m.Learner = p.factory()
	for _, e := range []drift.Estimator{m.Estimator, m.Detector, m.Warning} {
		if e != nil {
			e.Reset()
		}
	}
	m.ID = uuid.New()
	m.CreatedAt = p.instances
	m.Background = nil
	m.scm, m.swm, m.seen = 0, 0, 0
	p.event(i, log.ActionReset)
}

// Replace puts m in slot i.
func (p *Pool) Replace(i int, m *Member) {
	p.members[i] = m
	p.event(i, log.ActionReplace)
}

// StartBackground spawns a background learner for slot i. init may adjust it
// (for example to draw a new subspace) before it starts training.
func (p *Pool) StartBackground(i int, init func(bg *Member)) *Member {
	bg := p.Spawn()
	bg.background = true
	if init != nil {
		init(bg)
	}
	p.members[i].Background = bg
	p.cfg.observer.Warning(p.name, i)
	p.logger.Debug("background learner started",
		log.MemberIndexKey, i, log.MemberIDKey, bg.ID.String(), log.ActionKey, log.ActionBackground)
	return bg
}

// Promote swaps slot i for its background learner, which keeps its learner,
// estimators and creation index. Without a background the slot is reset.
func (p *Pool) Promote(i int) {
	bg := p.members[i].Background
	if bg == nil {
		p.Reset(i)
		return
	}
	bg.background = false
	p.members[i] = bg
	p.event(i, log.ActionPromote)
}

// ReplaceWeakest adds c if the pool has room, otherwise replaces the first
// member with the minimum weight when c's weight is strictly greater.
// It returns the affected slot and whether c entered the pool.
func (p *Pool) ReplaceWeakest(c *Member) (int, bool) {
	if len(p.members) < p.capacity {
		if err := p.Add(c); err != nil {
			return -1, false
		}
		return len(p.members) - 1, true
	}
	weights := make([]float64, len(p.members))
	for i, m := range p.members {
		weights[i] = m.Weight
	}
	worst := SelectBest(weights, false)
	if worst < 0 || !(c.Weight > weights[worst]) {
		return worst, false
	}
	p.Replace(worst, c)
	return worst, true
}

// WorstIndex returns the first member with the largest score, or -1.
func (p *Pool) WorstIndex(score func(*Member) float64) int {
	values := make([]float64, len(p.members))
	for i, m := range p.members {
		values[i] = score(m)
	}
	return SelectBest(values, true)
}

func (p *Pool) event(i int, action string) {
	m := p.members[i]
	p.cfg.observer.Replaced(p.name, i, action)
	p.logger.Info("pool member updated",
		log.MemberIndexKey, i,
		log.MemberIDKey, m.ID.String(),
		log.ActionKey, action,
		log.SamplesKey, p.instances)
}

// drifted records a drift signal on slot i.
func (p *Pool) drifted(i int, detector string, estimate float64, action string) {
	p.cfg.observer.Drift(p.name, i)
	errors.Warn(errors.NewModelDriftWarning(detector, i, estimate, action, p.instances))
	p.logger.Warn("drift detected",
		log.MemberIndexKey, i,
		log.DetectorKey, detector,
		log.EstimateKey, estimate,
		log.ActionKey, action,
		log.SamplesKey, p.instances)
}

// Each runs fn for every member, in parallel when the ensemble has more than
// one worker. Failures are recovered, accounted in index order, and escalated
// once they exceed the tolerance.
func (p *Pool) Each(op string, fn func(i int, m *Member) error) error {
	return p.each(op, p.slots(len(p.members)), fn)
}

// slots returns 0..n-1.
func (p *Pool) slots(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// each runs fn for the members in the given slots. fn receives the position
// within slots; failures are accounted against the real slot.
func (p *Pool) each(op string, slots []int, fn func(i int, m *Member) error) error {
	members := make([]*Member, len(slots))
	for i, s := range slots {
		members[i] = p.members[s]
	}
	errs := parallel.ForEach(len(members), p.cfg.workers, func(i int) error {
		m := members[i]
		return errors.SafeExecute(op, func() error { return fn(i, m) })
	})
	return p.account(op, slots, members, errs)
}

// Train trains m on inst with weight k, recovering panics. Subspace members
// see the projected instance.
func (p *Pool) Train(m *Member, inst model.Instance, k float64) error {
	if k <= 0 {
		return nil
	}
	if err := m.Learner.Train(m.view(inst), k); err != nil {
		return err
	}
	m.seen++
	return nil
}

// Predict returns the member's vote, or nil for an unusable vote.
func (p *Pool) Predict(m *Member, inst model.Instance) ([]float64, error) {
	v, err := errors.SafeVote(log.OperationPredict, func() ([]float64, error) {
		return m.Learner.Predict(m.view(inst))
	})
	if err != nil {
		return nil, err
	}
	if !p.usable(v) {
		return nil, nil
	}
	return v, nil
}

func (p *Pool) usable(v []float64) bool {
	if p.cfg.regression {
		return len(v) > 0 && errors.IsFinite(v)
	}
	return model.UsableVote(v)
}

// Votes collects the vote of every foreground member. Failed or unusable
// votes are nil; failures count against the tolerance.
func (p *Pool) Votes(inst model.Instance) ([][]float64, error) {
	votes := make([][]float64, len(p.members))
	err := p.Each(log.OperationPredict, func(i int, m *Member) error {
		v, err := p.Predict(m, inst)
		votes[i] = v
		return err
	})
	return votes, err
}

// account records per-member errors in index order and returns a fatal
// FailureBudgetError once the tolerance is exceeded.
func (p *Pool) account(op string, slots []int, members []*Member, errs []error) error {
	for i, err := range errs {
		if err == nil {
			continue
		}
		if ferr := p.fail(op, slots[i], members[i], err); ferr != nil {
			return ferr
		}
	}
	return nil
}

// fail records one recovered failure of member m in slot i.
func (p *Pool) fail(op string, i int, m *Member, err error) error {
	terr := errors.NewTrainingError(op, i, m.ID.String(), err)
	p.failures++
	p.causes = errors.Append(p.causes, terr)
	p.cfg.observer.Failed(p.name, i)
	p.logger.Error("member failure recovered", terr,
		log.MemberIndexKey, i,
		log.OperationKey, op,
		log.FailuresKey, p.failures,
		log.ToleranceKey, p.cfg.tolerance)
	if p.failures > p.cfg.tolerance {
		return errors.NewFailureBudgetError(p.failures, p.cfg.tolerance, p.causes)
	}
	return nil
}

// ResetWorst applies the global drift signal: when signal is set, only the
// member whose estimator reports the largest error is reset, the first slot
// winning ties. Members with a zero estimate are never reset. It returns the
// reset slot or -1.
func (p *Pool) ResetWorst(signal bool, detector string) int {
	if !signal {
		return -1
	}
	worst, max := -1, 0.0
	for i, m := range p.members {
		if m.Estimator == nil {
			continue
		}
		if e := m.Estimator.Estimate(); max < e {
			max, worst = e, i
		}
	}
	if worst >= 0 {
		p.drifted(worst, detector, max, log.ActionReset)
		p.Reset(worst)
	}
	return worst
}
