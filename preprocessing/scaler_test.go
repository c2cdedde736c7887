package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/scistream/core/model"
	scierrors "github.com/YuminosukeSato/scistream/pkg/errors"
)

func TestOnlineStandardScalerMatchesBatchStatistics(t *testing.T) {
	col0 := []float64{1, 4, 2, 8, 5, 7}
	col1 := []float64{10, 10, 10, 10, 10, 10}
	s := NewOnlineStandardScalerDefault()
	for i := range col0 {
		require.NoError(t, s.Learn(model.Instance{X: []float64{col0[i], col1[i]}}))
	}

	mean, variance := stat.PopMeanVariance(col0, nil)
	assert.InDelta(t, mean, s.Mean()[0], 1e-12)
	assert.InDelta(t, 10.0, s.Mean()[1], 1e-12)
	assert.InDelta(t, variance, s.Scale()[0]*s.Scale()[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale()[1], "constant feature keeps unit scale")

	out, err := s.Transform(model.Instance{X: []float64{mean, 10}, Y: 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0}, out.X, 1e-12)
	assert.Equal(t, 1.0, out.Y)

	back, err := s.InverseTransform(model.Instance{X: []float64{1, 0}})
	require.NoError(t, err)
	assert.InDelta(t, mean+s.Scale()[0], back.X[0], 1e-12)
}

func TestOnlineStandardScalerWeights(t *testing.T) {
	weighted := NewOnlineStandardScalerDefault()
	require.NoError(t, weighted.Learn(model.Instance{X: []float64{0}, Weight: 3}))
	require.NoError(t, weighted.Learn(model.Instance{X: []float64{4}}))

	repeated := NewOnlineStandardScalerDefault()
	for _, x := range []float64{0, 0, 0, 4} {
		require.NoError(t, repeated.Learn(model.Instance{X: []float64{x}}))
	}
	assert.InDeltaSlice(t, repeated.Mean(), weighted.Mean(), 1e-12)
	assert.InDeltaSlice(t, repeated.Scale(), weighted.Scale(), 1e-12)
}

func TestOnlineScalersRejectBadInput(t *testing.T) {
	for name, tr := range map[string]model.Transformer{
		"standard": NewOnlineStandardScalerDefault(),
		"minmax":   NewOnlineMinMaxScalerDefault(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tr.Transform(model.Instance{X: []float64{1}})
			assert.ErrorIs(t, err, model.ErrNotFitted)

			require.NoError(t, tr.Learn(model.Instance{X: []float64{1, 2}}))
			var dim *scierrors.DimensionError
			assert.ErrorAs(t, tr.Learn(model.Instance{X: []float64{1}}), &dim)
			_, err = tr.Transform(model.Instance{X: []float64{1, 2, 3}})
			assert.ErrorAs(t, err, &dim)

			var num *scierrors.NumericalInstabilityError
			assert.ErrorAs(t, tr.Learn(model.Instance{X: []float64{math.NaN(), 1}}), &num)

			clone := tr.Clone()
			_, err = clone.Transform(model.Instance{X: []float64{1, 2}})
			assert.ErrorIs(t, err, model.ErrNotFitted)

			tr.Reset()
			_, err = tr.Transform(model.Instance{X: []float64{1, 2}})
			assert.ErrorIs(t, err, model.ErrNotFitted)
		})
	}
}

func TestOnlineMinMaxScaler(t *testing.T) {
	s, err := NewOnlineMinMaxScaler([2]float64{-1, 1})
	require.NoError(t, err)
	for _, x := range [][]float64{{0, 5}, {10, 5}, {4, 5}} {
		require.NoError(t, s.Learn(model.Instance{X: x}))
	}
	out, err := s.Transform(model.Instance{X: []float64{5, 5}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, -1}, out.X, 1e-12)

	_, err = NewOnlineMinMaxScaler([2]float64{1, 1})
	var verr *scierrors.ValidationError
	assert.ErrorAs(t, err, &verr)
}
