package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/drift"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

func testPool(t *testing.T, capacity int, opts ...Option) (*Pool, *recorder) {
	t.Helper()
	rec := &recorder{}
	cfg := buildConfig(nil, append([]Option{WithObserver(rec), WithLogger(testLogger())}, opts...))
	p := newPool("test", majorityFactory, cfg, capacity)
	f, err := drift.ADWINFactory(0.002)
	require.NoError(t, err)
	p.estimator = f
	return p, rec
}

func TestPoolSpawnOwnsDistinctState(t *testing.T) {
	p, _ := testPool(t, 3)
	p.Fill()
	require.Equal(t, 3, p.Len())
	seen := map[model.Learner]bool{}
	for i, m := range p.Members() {
		assert.Equal(t, i, m.Seq)
		assert.False(t, seen[m.Learner], "slots never share a learner")
		seen[m.Learner] = true
		if i > 0 {
			assert.NotSame(t, p.Member(0).Estimator, m.Estimator)
			assert.NotEqual(t, p.Member(0).ID, m.ID)
		}
	}
	assert.ErrorIs(t, p.Add(p.Spawn()), errors.ErrPoolFull)
}

func TestPoolReplaceWeakestIsStrict(t *testing.T) {
	p, rec := testPool(t, 2)
	a, b := p.Spawn(), p.Spawn()
	a.Weight, b.Weight = 0.5, 0.3

	slot, ok := p.ReplaceWeakest(a)
	assert.True(t, ok)
	assert.Equal(t, 0, slot)
	slot, ok = p.ReplaceWeakest(b)
	assert.True(t, ok)
	assert.Equal(t, 1, slot)

	tie := p.Spawn()
	tie.Weight = 0.3
	slot, ok = p.ReplaceWeakest(tie)
	assert.False(t, ok, "ties keep the existing member")
	assert.Equal(t, 1, slot)
	assert.Same(t, b, p.Member(1))

	better := p.Spawn()
	better.Weight = 0.4
	slot, ok = p.ReplaceWeakest(better)
	assert.True(t, ok)
	assert.Equal(t, 1, slot)
	assert.Same(t, better, p.Member(1))

	actions := rec.filter("replaced")
	require.Len(t, actions, 3)
	assert.Equal(t, log.ActionAdd, actions[0].Action)
	assert.Equal(t, log.ActionReplace, actions[2].Action)
}

func TestPoolReplaceWeakestFirstMinimum(t *testing.T) {
	p, _ := testPool(t, 3)
	for _, w := range []float64{0.2, 0.1, 0.1} {
		m := p.Spawn()
		m.Weight = w
		require.NoError(t, p.Add(m))
	}
	c := p.Spawn()
	c.Weight = 1
	slot, ok := p.ReplaceWeakest(c)
	assert.True(t, ok)
	assert.Equal(t, 1, slot)
}

func TestPoolResetWorst(t *testing.T) {
	p, rec := testPool(t, 3)
	p.Fill()
	feed := func(i int, v float64, n int) {
		for j := 0; j < n; j++ {
			p.Member(i).Estimator.Update(v)
		}
	}

	assert.Equal(t, -1, p.ResetWorst(true, "ADWIN"), "zero estimates are never reset")
	feed(0, 1, 10)
	feed(1, 1, 10)
	feed(2, 0, 10)
	assert.Equal(t, -1, p.ResetWorst(false, "ADWIN"))
	assert.Equal(t, 10, p.Member(0).Estimator.Width())

	id0 := p.Member(0).ID
	assert.Equal(t, 0, p.ResetWorst(true, "ADWIN"), "first slot wins ties")
	assert.NotEqual(t, id0, p.Member(0).ID)
	assert.Equal(t, 0, p.Member(0).Estimator.Width())
	assert.Equal(t, 10, p.Member(1).Estimator.Width(), "only the worst member is reset")
	assert.Len(t, rec.filter("drift"), 1)
}

func TestPromotionKeepsBackgroundState(t *testing.T) {
	p, rec := testPool(t, 2)
	p.Fill()
	for i := 0; i < 5; i++ {
		p.Tick()
	}
	bg := p.StartBackground(0, func(bg *Member) { bg.Subspace = []int{1} })
	assert.True(t, bg.IsBackground())
	assert.Equal(t, int64(5), bg.CreatedAt)
	assert.Len(t, rec.filter("warning"), 1)

	for i := 0; i < 20; i++ {
		p.Tick()
		bg.Estimator.Update(float64(i % 3 % 2))
		require.NoError(t, p.Train(bg, model.Instance{X: []float64{0, 1}, Y: 1}, 1))
	}
	before := bg.Snapshot()
	learnerBefore := bg.Learner

	p.Promote(0)
	got := p.Member(0)
	assert.Equal(t, before, got.Snapshot())
	assert.Same(t, learnerBefore, got.Learner)
	assert.Same(t, bg.Estimator, got.Estimator)
	assert.False(t, got.IsBackground())
	assert.Nil(t, got.Background)
	assert.Equal(t, int64(5), got.CreatedAt)

	// Without a background learner promotion resets the slot.
	p.Promote(1)
	assert.Equal(t, p.Instances(), p.Member(1).CreatedAt)
	assert.Equal(t, 0, p.Member(1).Estimator.Width())
}

func TestPoolFailuresEscalateBeyondTolerance(t *testing.T) {
	rec := &recorder{}
	logger := testLogger()
	e, err := NewOzaBag(func() model.Learner { return &failingLearner{} },
		WithEnsembleSize(3), WithLambda(10), WithFailureTolerance(5),
		WithObserver(rec), WithLogger(logger))
	require.NoError(t, err)

	inst := model.Instance{X: []float64{1}, Y: 0}
	var fatal error
	for i := 0; i < 10 && fatal == nil; i++ {
		fatal = e.Train(inst, 1)
	}
	require.Error(t, fatal)
	var budget *errors.FailureBudgetError
	require.ErrorAs(t, fatal, &budget)
	assert.True(t, errors.IsFatal(fatal))
	assert.Equal(t, 6, e.Stats().Failures)
	assert.Len(t, budget.Causes(), 6)
	assert.Len(t, rec.filter("failed"), 6)
	assert.True(t, logger.ContainsMessage("member failure recovered"))
}

func TestPoolRecoversPanics(t *testing.T) {
	e, err := NewOzaBag(func() model.Learner { return &failingLearner{panicky: true} },
		WithEnsembleSize(2), WithLambda(10), WithWorkers(2), WithLogger(testLogger()))
	require.NoError(t, err)

	inst := model.Instance{X: []float64{1}, Y: 0}
	require.NotPanics(t, func() {
		require.NoError(t, e.Train(inst, 1))
		v, err := e.Predict(inst)
		require.NoError(t, err)
		assert.Nil(t, v)
	})
	assert.Equal(t, 4, e.Stats().Failures)
}
