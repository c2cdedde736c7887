package drift

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/scistream/pkg/errors"
)

func TestADWINDetectsAbruptShift(t *testing.T) {
	for _, delta := range []float64{0.002, 0.05} {
		a := NewADWIN(WithADWINDelta(delta))
		for i := 0; i < 1000; i++ {
			require.False(t, a.Update(0), "constant stream must never cut (step %d)", i)
		}
		assert.Equal(t, 0.0, a.Estimate())

		detectedAt := -1
		for i := 0; i < 1000; i++ {
			if a.Update(1) && detectedAt < 0 {
				detectedAt = i
			}
		}
		require.GreaterOrEqual(t, detectedAt, 0, "delta=%v: shift was never detected", delta)
		assert.Less(t, detectedAt, 200, "delta=%v: detection too slow", delta)
		assert.Greater(t, a.Estimate(), 0.9, "delta=%v", delta)
		assert.GreaterOrEqual(t, a.Detections(), 1)
	}
}

func TestADWINCompressesBuckets(t *testing.T) {
	a := NewADWIN()
	for i := 0; i < 10000; i++ {
		a.Update(float64(i % 2))
	}
	assert.Equal(t, 10000, a.Width())
	assert.InDelta(t, 0.5, a.Estimate(), 1e-9)
	// 5 buckets per row and log2(10000) rows bound the histogram.
	assert.LessOrEqual(t, a.NumBuckets(), 5*15)
	assert.InDelta(t, 0.25, a.Variance(), 1e-3)
}

func TestADWINDegenerateInputs(t *testing.T) {
	a := NewADWIN(WithADWINClock(1))
	assert.False(t, a.Update(1), "single value never cuts")
	assert.Equal(t, 1, a.Width())
	assert.Equal(t, 1.0, a.Estimate())

	a.Reset()
	assert.Equal(t, 0, a.Width())
	assert.Equal(t, 0.0, a.Estimate())
}

func TestADWINCloneIsDeep(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	a := NewADWIN()
	for i := 0; i < 300; i++ {
		a.Update(float64(rng.IntN(2)))
	}
	c := a.Clone().(*ADWIN)
	assert.Equal(t, a.Width(), c.Width())
	assert.Equal(t, a.Estimate(), c.Estimate())
	assert.Equal(t, a.NumBuckets(), c.NumBuckets())

	for i := 0; i < 100; i++ {
		c.Update(1)
	}
	assert.Equal(t, 300, a.Width(), "updating the clone must not touch the original")
}

func TestValidateDelta(t *testing.T) {
	for _, bad := range []float64{0, 1, -0.1, 1.5} {
		_, err := ADWINFactory(bad)
		require.Error(t, err)
		var verr *scierrors.ValidationError
		assert.ErrorAs(t, err, &verr)
	}
	f, err := ADWINFactory(0.01)
	require.NoError(t, err)
	assert.Equal(t, 0.01, f().(*ADWIN).Delta())
}

func TestWindowEstimator(t *testing.T) {
	w := NewWindowEstimator(3)
	assert.Equal(t, 0.0, w.Estimate())
	for _, v := range []float64{1, 1, 0, 0} {
		assert.False(t, w.Update(v))
	}
	assert.Equal(t, 3, w.Width())
	assert.InDelta(t, 1.0/3.0, w.Estimate(), 1e-12)

	c := w.Clone()
	w.Reset()
	assert.Equal(t, 0, w.Width())
	assert.InDelta(t, 1.0/3.0, c.Estimate(), 1e-12)

	_, err := WindowFactory(0)
	assert.Error(t, err)
}

func TestDDMWarningThenDrift(t *testing.T) {
	ddm := NewDDM()
	for i := 0; i < 1000; i++ {
		e := 0.0
		if i%10 == 0 {
			e = 1
		}
		require.False(t, ddm.Update(e), "stable phase step %d", i)
	}

	warned, drifted := false, false
	for i := 0; i < 1000 && !drifted; i++ {
		e := 0.0
		if i%10 < 7 {
			e = 1
		}
		drifted = ddm.Update(e)
		warned = warned || ddm.InWarning() || drifted
	}
	assert.True(t, warned)
	assert.True(t, drifted)
	assert.Equal(t, 0, ddm.Width(), "statistics restart after drift")
	assert.False(t, ddm.InWarning())
}

func TestDDMCheckAndClone(t *testing.T) {
	ddm := NewDDM(WithDDMMinNumInstances(5))
	for i := 0; i < 10; i++ {
		ddm.Check(i%2 == 0)
	}
	stats := ddm.GetStatistics()
	assert.Equal(t, 10, stats.NumInstances)
	assert.InDelta(t, 0.5, stats.ErrorRate, 1e-12)

	c := ddm.Clone()
	ddm.Reset()
	assert.Equal(t, 10, c.Width())
	assert.Equal(t, 0, ddm.Width())
}

func TestKSTest(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	same1 := make([]float64, 300)
	same2 := make([]float64, 300)
	shifted := make([]float64, 300)
	for i := range same1 {
		same1[i] = rng.NormFloat64()
		same2[i] = rng.NormFloat64()
		shifted[i] = rng.NormFloat64() + 2
	}

	d, p := KSTest(same1, same2)
	assert.Less(t, d, 0.15)
	assert.Greater(t, p, 0.01)

	d, p = KSTest(same1, shifted)
	assert.Greater(t, d, 0.5)
	assert.Less(t, p, 1e-6)

	d, p = KSTest(nil, same1)
	assert.Equal(t, 0.0, d)
	assert.Equal(t, 1.0, p)
}

func TestSimilarSamples(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	gen := func(n int, shift float64) [][]float64 {
		out := make([][]float64, n)
		for i := range out {
			out[i] = []float64{rng.Float64(), rng.Float64() + shift}
		}
		return out
	}
	a, b, c := gen(200, 0), gen(200, 0), gen(200, 1)
	assert.True(t, SimilarSamples(a, b, 0.01))
	assert.False(t, SimilarSamples(a, c, 0.01))
	assert.False(t, SimilarSamples(nil, a, 0.01))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := SimilarSamplesContext(ctx, a, b, 0.01)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
	ok, err = SimilarSamplesContext(context.Background(), a, b, 0.01)
	require.NoError(t, err)
	assert.True(t, ok)
}
