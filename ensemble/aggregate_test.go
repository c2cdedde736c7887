package ensemble

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestCombineSingleVoteIsNormalized(t *testing.T) {
	votes := [][]float64{
		{0.2, 0.3, 0.5},
		{3, 1},
		{0, 0, 7},
	}
	for _, v := range votes {
		got := Combine([]Vote{{Scores: v, Weight: 1}})
		require.Len(t, got, len(v))
		sum := 0.0
		for _, x := range v {
			sum += x
		}
		for i := range v {
			assert.InDelta(t, v[i]/sum, got[i], 1e-9)
		}
	}
}

func TestCombineSkipsUnusableVotes(t *testing.T) {
	got := Combine([]Vote{
		{Scores: []float64{0, 0}, Weight: 1},
		{Scores: []float64{math.NaN(), 1}, Weight: 1},
		{Scores: []float64{1, 3}, Weight: 0},
		{Scores: []float64{1, 1}, Weight: -2},
		{Scores: []float64{1, 3}, Weight: 2},
	})
	assert.InDeltaSlice(t, []float64{0.5, 1.5}, got, 1e-12)

	assert.Nil(t, Combine(nil))
	assert.Nil(t, Combine([]Vote{{Scores: []float64{0, 0}, Weight: 1}}))
}

func TestCombineOverflowGuardAndNormalize(t *testing.T) {
	votes := []Vote{
		{Scores: []float64{1, 0}, Weight: 1},
		{Scores: []float64{0, 2}, Weight: 3},
	}
	guarded := Combine(votes, WithOverflowGuard(3))
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, guarded, 1e-12)

	normalized := Combine(votes, WithOverflowGuard(3), WithFinalNormalize())
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, normalized, 1e-12)

	huge := Combine([]Vote{{Scores: []float64{1, 1}, Weight: math.MaxFloat64}, {Scores: []float64{1, 1}, Weight: math.MaxFloat64}})
	for _, x := range huge {
		assert.False(t, math.IsInf(x, 0) || math.IsNaN(x))
	}
}

func TestCombineGrowsToLongestVote(t *testing.T) {
	got := Combine([]Vote{
		{Scores: []float64{1}, Weight: 1},
		{Scores: []float64{0, 0, 1}, Weight: 1},
	})
	assert.Equal(t, []float64{1, 0, 1}, got)
}

func TestAverage(t *testing.T) {
	got := Average([]Vote{
		{Scores: []float64{1}, Weight: 1},
		{Scores: []float64{4}, Weight: 2},
		{Scores: []float64{math.Inf(1)}, Weight: 1},
		{Scores: nil, Weight: 1},
	})
	assert.InDeltaSlice(t, []float64{3}, got, 1e-12)
	assert.Nil(t, Average([]Vote{{Scores: []float64{1}, Weight: 0}}))
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		maximize bool
		want     int
	}{
		{"empty", nil, true, -1},
		{"max first among ties", []float64{0.2, 0.9, 0.9}, true, 1},
		{"min first among ties", []float64{0.4, 0.1, 0.1}, false, 1},
		{"nan skipped", []float64{math.NaN(), 0.3}, true, 1},
		{"all nan", []float64{math.NaN()}, false, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectBest(tt.values, tt.maximize))
		})
	}
}

func TestPoissonBootstrapFidelity(t *testing.T) {
	const (
		n      = 100000
		lambda = 1.0
		bins   = 7 // 0..5 and ≥6
	)
	p := NewPoisson(lambda, newMemberRNG(2024, 0))
	counts := make([]float64, bins)
	sum := 0.0
	for i := 0; i < n; i++ {
		k := p.Draw()
		require.GreaterOrEqual(t, k, 0)
		sum += float64(k)
		counts[min(k, bins-1)]++
	}
	mean := sum / n
	assert.InDelta(t, lambda, mean, 0.01*lambda, "empirical mean")

	ref := distuv.Poisson{Lambda: lambda}
	chi2 := 0.0
	tail := 1.0
	for k := 0; k < bins; k++ {
		var prob float64
		if k == bins-1 {
			prob = tail
		} else {
			prob = ref.Prob(float64(k))
			tail -= prob
		}
		expected := n * prob
		chi2 += (counts[k] - expected) * (counts[k] - expected) / expected
	}
	pValue := 1 - distuv.ChiSquared{K: bins - 1}.CDF(chi2)
	assert.Greater(t, pValue, 0.01, "chi-squared goodness of fit, statistic %.3f", chi2)
}

func TestPoissonIsReproduciblePerMember(t *testing.T) {
	draw := func(seed uint64, seq int) []int {
		p := NewPoisson(1, newMemberRNG(seed, seq))
		out := make([]int, 50)
		for i := range out {
			out[i] = p.Draw()
		}
		return out
	}
	assert.Equal(t, draw(42, 0), draw(42, 0))
	assert.NotEqual(t, draw(42, 0), draw(42, 1), "members have independent streams")

	zero := NewPoisson(0, rand.NewPCG(1, 1))
	assert.Equal(t, 0, zero.Draw())
	assert.Equal(t, 0, zero.DrawWith(math.NaN()))
}

func TestCascadeGuardsDivision(t *testing.T) {
	m := &Member{}
	c := cascade{lambda: 1, total: 1}
	c.update(m, true)
	assert.InDelta(t, 1.0, m.scm, 1e-12)
	assert.InDelta(t, 0.5, c.lambda, 1e-12)

	c.update(m, false)
	assert.InDelta(t, 0.5, m.swm, 1e-12)
	assert.InDelta(t, 0.5, c.lambda, 1e-12)

	// A zero cascade weight hits the floored denominator and stays finite.
	z := cascade{lambda: 0, total: 10}
	fresh := &Member{}
	assert.Equal(t, 0.0, z.update(fresh, false))
	huge := cascade{lambda: math.MaxFloat64, total: math.MaxFloat64}
	got := huge.update(&Member{scm: 0}, true)
	assert.False(t, math.IsInf(got, 0) || math.IsNaN(got))
	assert.GreaterOrEqual(t, got, 0.0)
}
