package ensemble

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/drift"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// maxEnumeratedSubspaces bounds how many feature combinations are listed
// explicitly so that members get distinct subspaces.
const maxEnumeratedSubspaces = 1000

// StreamingRandomPatches is the ensemble of Gomes et al. (2019). Members
// train on random feature subspaces, on Poisson(λ=6) resamples, or both.
// A warning ADWIN starts a background learner on a fresh subspace and a
// drift ADWIN promotes it. Votes are weighted by each member's accuracy.
type StreamingRandomPatches struct {
	base
	rng      *rand.Rand
	features int
	subspace int
}

// NewStreamingRandomPatches creates an SRP ensemble. When WithNumFeatures is
// given the subspaces are drawn and validated immediately, otherwise at the
// first instance.
func NewStreamingRandomPatches(factory model.Factory, opts ...Option) (*StreamingRandomPatches, error) {
	return newSRP(factory, buildConfig([]Option{WithLambda(6)}, opts))
}

func newSRP(factory model.Factory, cfg *config) (*StreamingRandomPatches, error) {
	switch cfg.subspaceMode {
	case RandomSubspaces, Resampling, RandomPatches:
	default:
		return nil, errors.NewValidationError("subspace_mode", "must be subspaces, resampling or patches", string(cfg.subspaceMode))
	}
	if cfg.subspaceSize == 0 || math.IsNaN(cfg.subspaceSize) {
		return nil, errors.NewValidationError("subspace_size", "must be non-zero", cfg.subspaceSize)
	}
	b, err := newBase("SRP", factory, cfg, cfg.size)
	if err != nil {
		return nil, err
	}
	e := &StreamingRandomPatches{base: b, rng: newMemberRNG(cfg.seed, -1)}
	if err := e.validateClassification(); err != nil {
		return nil, err
	}
	if e.pool.estimator, err = drift.ADWINFactory(cfg.delta); err != nil {
		return nil, err
	}
	if e.pool.warning, err = drift.ADWINFactory(cfg.warnDelta); err != nil {
		return nil, err
	}
	e.pool.Fill()
	if cfg.numFeatures > 0 {
		if err := e.assignSubspaces(cfg.numFeatures); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *StreamingRandomPatches) usesSubspaces() bool {
	return e.cfg.subspaceMode != Resampling
}

// SubspaceSize resolves the configured size against d features: a fraction
// in (0, 1) is rounded, a negative value means d + m, and the result is
// clamped to [1, d].
func SubspaceSize(m float64, d int) int {
	var k int
	switch {
	case m > 0 && m < 1:
		k = int(math.Round(m * float64(d)))
	case m < 0:
		k = d + int(m)
	default:
		k = int(m)
	}
	return min(max(k, 1), d)
}

// Combinations returns C(n, k) as a float64, +Inf when it overflows.
func Combinations(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	k = min(k, n-k)
	c := 1.0
	for i := 1; i <= k; i++ {
		c = c * float64(n-k+i) / float64(i)
	}
	return math.Round(c)
}

// assignSubspaces draws a subspace for every member once the feature count is
// known. More members than distinct subspaces is a configuration error.
func (e *StreamingRandomPatches) assignSubspaces(d int) error {
	e.features = d
	if !e.usesSubspaces() {
		return nil
	}
	e.subspace = SubspaceSize(e.cfg.subspaceSize, d)
	total := Combinations(d, e.subspace)
	if float64(e.cfg.size) > total {
		return errors.NewValidationError("ensemble_size",
			"exceeds the number of distinct feature subspaces", map[string]any{
				"size": e.cfg.size, "features": d, "subspace": e.subspace, "combinations": total,
			})
	}
	members := e.pool.Members()
	if total <= maxEnumeratedSubspaces {
		all := enumerateSubspaces(d, e.subspace)
		e.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		for i, m := range members {
			m.Subspace = all[i]
		}
		return nil
	}
	for _, m := range members {
		m.Subspace = randomSubspace(m.Rand(), d, e.subspace)
	}
	return nil
}

func enumerateSubspaces(d, k int) [][]int {
	var out [][]int
	cur := make([]int, 0, k)
	var rec func(start int)
	rec = func(start int) {
		if len(cur) == k {
			out = append(out, slices.Clone(cur))
			return
		}
		for f := start; f <= d-(k-len(cur)); f++ {
			cur = append(cur, f)
			rec(f + 1)
			cur = cur[:len(cur)-1]
		}
	}
	rec(0)
	return out
}

func randomSubspace(rng *rand.Rand, d, k int) []int {
	s := rng.Perm(d)[:k]
	slices.Sort(s)
	return s
}

// srpSignal is what a worker reports back for one member.
type srpSignal struct {
	k       float64
	warning bool
	drift   bool
	loss    float64
}

// Train updates the member detectors with the test-then-train error, trains
// members and their background learners, then applies warnings and drifts in
// slot order.
func (e *StreamingRandomPatches) Train(inst model.Instance, weight float64) error {
	if e.features == 0 {
		if err := e.assignSubspaces(inst.NumFeatures()); err != nil {
			return err
		}
	}
	e.pool.Tick()
	signals := make([]srpSignal, e.pool.Len())
	err := e.pool.Each(log.OperationTrain, func(i int, m *Member) error {
		s, err := e.trainMember(m, inst, weight)
		signals[i] = s
		return err
	})
	if err != nil {
		return err
	}
	for i, s := range signals {
		e.cfg.observer.Trained(e.name, i, s.k)
		e.applySignal(i, s)
	}
	return nil
}

// applySignal handles the warning before the drift of the same instance: a
// warning (re)starts the background learner and clears the warning detector,
// a drift then promotes whatever background the slot holds.
func (e *StreamingRandomPatches) applySignal(i int, s srpSignal) {
	m := e.pool.Member(i)
	if s.warning {
		e.pool.StartBackground(i, e.initBackground)
		m.Warning.Reset()
	}
	if !s.drift {
		return
	}
	e.drifts++
	action := log.ActionReset
	if m.Background != nil {
		action = log.ActionPromote
	}
	e.pool.drifted(i, "ADWIN", m.Estimator.Estimate(), action)
	e.pool.Promote(i)
}

func (e *StreamingRandomPatches) multiplicity(m *Member) int {
	if e.cfg.subspaceMode == RandomSubspaces {
		return 1
	}
	return m.Draw()
}

func (e *StreamingRandomPatches) trainMember(m *Member, inst model.Instance, weight float64) (srpSignal, error) {
	vote, err := e.pool.Predict(m, inst)
	if err != nil {
		return srpSignal{}, err
	}
	s := srpSignal{loss: errorValue(vote, inst)}
	before := m.Estimator.Estimate()
	s.drift = m.Estimator.Update(s.loss) && m.Estimator.Estimate() > before
	before = m.Warning.Estimate()
	s.warning = m.Warning.Update(s.loss) && m.Warning.Estimate() > before

	k := e.multiplicity(m)
	s.k = float64(k)
	if err := e.pool.Train(m, inst, float64(k)*weight); err != nil {
		return s, err
	}

	if bg := m.Background; bg != nil {
		bv, err := e.pool.Predict(bg, inst)
		if err != nil {
			return s, err
		}
		bg.Estimator.Update(errorValue(bv, inst))
		bg.Warning.Update(errorValue(bv, inst))
		if err := e.pool.Train(bg, inst, float64(e.multiplicity(bg))*weight); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (e *StreamingRandomPatches) initBackground(bg *Member) {
	if e.usesSubspaces() {
		bg.Subspace = randomSubspace(bg.Rand(), e.features, e.subspace)
	}
}

// Predict combines foreground votes weighted by each member's accuracy,
// 1 - estimated error.
func (e *StreamingRandomPatches) Predict(inst model.Instance) ([]float64, error) {
	if e.features == 0 {
		return nil, nil
	}
	members := e.pool.Members()
	for _, m := range members {
		m.Weight = 1 - m.Estimator.Estimate()
	}
	votes, err := e.pool.Votes(inst)
	if err != nil {
		return nil, err
	}
	return e.combine(votes, func(i int) float64 { return members[i].Weight }), nil
}

// Reset replaces every member with a fresh one.
func (e *StreamingRandomPatches) Reset() {
	*e = *must(newSRP(e.factory, e.cfg))
}

// Clone returns an untrained ensemble with the same configuration.
func (e *StreamingRandomPatches) Clone() model.Learner {
	return must(newSRP(e.factory, e.cfg))
}
