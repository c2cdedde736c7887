package ensemble

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/drift"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// concept draws instances around center; the label is whether x0 exceeds it.
func concept(n int, seed uint64, center float64) []model.Instance {
	rng := rand.New(rand.NewPCG(seed, 99))
	out := make([]model.Instance, n)
	for i := range out {
		x := []float64{center + rng.NormFloat64(), center + rng.NormFloat64()}
		y := 0.0
		if x[0] > center {
			y = 1
		}
		out[i] = model.Instance{X: x, Y: y}
	}
	return out
}

func TestRCDReusesSimilarConcepts(t *testing.T) {
	rec := &recorder{}
	e, err := NewRCD(nbFactory, WithEnsembleSize(3), WithBufferSize(100), WithSignificance(0.01),
		WithObserver(rec), WithLogger(testLogger()))
	require.NoError(t, err)
	first := e.Pool().Member(0)
	for _, inst := range concept(100, 1, 0) {
		e.samples[first.ID].add(inst.X)
	}

	e.pool.Tick()
	e.buffer = concept(60, 2, 5)
	require.NoError(t, e.switchConcept(0.3))
	assert.Equal(t, 2, e.Pool().Len(), "a new concept joins the pool")
	assert.Equal(t, 1, e.Current())

	e.pool.Tick()
	e.buffer = concept(60, 3, 0)
	require.NoError(t, e.switchConcept(0.3))
	assert.Equal(t, 2, e.Pool().Len())
	assert.Equal(t, 0, e.Current(), "the first concept is reused")
	assert.Same(t, first, e.Pool().Member(0))

	e.pool.Tick()
	e.buffer = concept(60, 4, -5)
	require.NoError(t, e.switchConcept(0.3))
	assert.Equal(t, 3, e.Pool().Len())
	assert.Equal(t, 2, e.Current())

	e.pool.Tick()
	e.buffer = concept(60, 5, 10)
	require.NoError(t, e.switchConcept(0.3))
	assert.Equal(t, 3, e.Pool().Len())
	assert.Equal(t, 0, e.Current(), "the oldest concept is evicted at capacity")
	assert.NotSame(t, first, e.Pool().Member(0))
	_, ok := e.samples[first.ID]
	assert.False(t, ok)

	var actions []string
	for _, ev := range rec.filter("replaced") {
		actions = append(actions, ev.Action)
	}
	assert.Equal(t, []string{log.ActionAdd, log.ActionReuse, log.ActionAdd, log.ActionReplace}, actions)
	assert.Len(t, rec.filter("drift"), 4)
}

// wideRows draws n rows of d uniform features.
func wideRows(n, d int, seed uint64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, 5))
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, d)
		for f := range out[i] {
			out[i][f] = rng.Float64()
		}
	}
	return out
}

func TestRCDComparisonTimeoutBoundsTheCall(t *testing.T) {
	const features = 3000
	e, err := NewRCD(nbFactory, WithEnsembleSize(6), WithMaxComparisons(1),
		WithComparisonTimeout(5*time.Millisecond), WithLogger(testLogger()))
	require.NoError(t, err)
	for _, row := range wideRows(200, features, 1) {
		e.samples[e.Pool().Member(0).ID].add(row)
	}
	for i := 0; i < 5; i++ {
		m := e.pool.Spawn()
		require.NoError(t, e.pool.Add(m))
		e.samples[m.ID] = &sample{cap: 200}
		for _, row := range wideRows(200, features, uint64(i+2)) {
			e.samples[m.ID].add(row)
		}
	}
	e.current = 5

	start := time.Now()
	_, err = e.compare(wideRows(100, features, 99))
	elapsed := time.Since(start)

	var cerr *errors.ConcurrencyError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, errors.IsFatal(err))
	assert.Less(t, elapsed, 100*time.Millisecond)
}

func TestRCDCompareWithoutTimeout(t *testing.T) {
	e, err := NewRCD(nbFactory, WithEnsembleSize(3), WithSignificance(0.01), WithLogger(testLogger()))
	require.NoError(t, err)
	for _, inst := range concept(100, 1, 0) {
		e.samples[e.Pool().Member(0).ID].add(inst.X)
	}
	m := e.pool.Spawn()
	require.NoError(t, e.pool.Add(m))
	e.samples[m.ID] = &sample{cap: 100}
	for _, inst := range concept(100, 2, 5) {
		e.samples[m.ID].add(inst.X)
	}
	e.current = 1

	fresh := make([][]float64, 0, 60)
	for _, inst := range concept(60, 3, 0) {
		fresh = append(fresh, inst.X)
	}
	similar, err := e.compare(fresh)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, similar, "the active concept is never compared")
}

func TestRCDValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"comparisons", []Option{WithMaxComparisons(0)}},
		{"buffer", []Option{WithBufferSize(0)}},
		{"alpha", []Option{WithSignificance(1)}},
		{"timeout", []Option{WithComparisonTimeout(-time.Second)}},
		{"detector", []Option{WithDetector(func() drift.Estimator { return drift.NewWindowEstimator(5) })}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRCD(nbFactory, tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestRCDStreamWithRecurringConcepts(t *testing.T) {
	e, err := NewRCD(nbFactory, WithEnsembleSize(4), WithLogger(testLogger()))
	require.NoError(t, err)
	var stream []model.Instance
	stream = append(stream, concept(1000, 11, 0)...)
	stream = append(stream, concept(1000, 12, 6)...)
	stream = append(stream, concept(1000, 13, 0)...)
	trainAll(t, e, stream)

	s := e.Stats()
	assert.Positive(t, s.Drifts)
	assert.GreaterOrEqual(t, s.Members, 2)
	assert.LessOrEqual(t, s.Members, 4)
	assert.Greater(t, accuracy(t, e, concept(200, 14, 0)), 0.8)
}
