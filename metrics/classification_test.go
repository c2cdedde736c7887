package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistream/pkg/errors"
)

func TestClassificationMetrics(t *testing.T) {
	c := NewClassificationMetrics(4)
	pairs := [][2]int{{0, 0}, {0, 0}, {0, 1}, {1, 1}, {1, 0}, {1, 1}, {2, 2}, {2, 1}}
	for _, p := range pairs {
		require.NoError(t, c.Update(p[0], p[1], 1))
	}

	assert.Equal(t, 8.0, c.Weight())
	assert.InDelta(t, 5.0/8.0, c.Accuracy(), 1e-12)
	// last four: {1,0} {1,1} {2,2} {2,1}
	assert.InDelta(t, 0.5, c.WindowedAccuracy(), 1e-12)

	// rows (3,3,2) cols (3,4,1): pe = (9+12+2)/64
	pe := 23.0 / 64.0
	assert.InDelta(t, (5.0/8.0-pe)/(1-pe), c.Kappa(), 1e-12)

	assert.InDelta(t, 2.0/3.0, c.Recall(0), 1e-12)
	assert.InDelta(t, 2.0/4.0, c.Precision(1), 1e-12)
	assert.Equal(t, 0.0, c.Recall(7))

	want := mat.NewDense(3, 3, []float64{
		2, 1, 0,
		1, 2, 0,
		0, 1, 1,
	})
	assert.True(t, mat.Equal(want, c.Confusion()))
}

func TestClassificationMetricsEdgeCases(t *testing.T) {
	c := NewClassificationMetrics(0)
	assert.Nil(t, c.Confusion())
	assert.Equal(t, 0.0, c.Accuracy())
	assert.Equal(t, 0.0, c.Kappa())

	assert.Error(t, c.Update(-1, 0, 1))
	require.NoError(t, c.Update(0, 0, 0))
	assert.Equal(t, 0.0, c.Weight(), "zero weight is ignored")

	// an abstention counts as a mistake
	require.NoError(t, c.Update(2, -1, 1))
	assert.Equal(t, 0.0, c.Accuracy())
	r, _ := c.Confusion().Dims()
	assert.Equal(t, 3, r)

	c.Reset()
	assert.Equal(t, 0.0, c.Weight())
	assert.Equal(t, 0.0, c.WindowedAccuracy())
}

func TestKappaUndefinedWarns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	c := NewClassificationMetrics(10)
	require.NoError(t, c.Update(1, 1, 1))
	require.NoError(t, c.Update(1, 1, 2))
	assert.Equal(t, 0.0, c.Kappa())
	assert.Len(t, warnings, 1)
}

func TestWeightedAccuracy(t *testing.T) {
	c := NewClassificationMetrics(10)
	require.NoError(t, c.Update(0, 0, 3))
	require.NoError(t, c.Update(1, 0, 1))
	assert.InDelta(t, 0.75, c.Accuracy(), 1e-12)
	assert.InDelta(t, 0.5, c.WindowedAccuracy(), 1e-12)
}
