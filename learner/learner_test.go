package learner

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scistream/core/model"
	scierrors "github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/preprocessing"
)

// blobs returns two well separated Gaussian classes in two dimensions.
func blobs(n int, seed uint64) []model.Instance {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]model.Instance, n)
	for i := range out {
		c := i % 2
		center := -2.0
		if c == 1 {
			center = 2.0
		}
		out[i] = model.Instance{
			X: []float64{center + rng.NormFloat64()*0.5, center + rng.NormFloat64()*0.5},
			Y: float64(c),
		}
	}
	return out
}

func accuracy(t *testing.T, l model.Learner, data []model.Instance) float64 {
	t.Helper()
	correct := 0
	for _, in := range data {
		v, err := l.Predict(in)
		require.NoError(t, err)
		if model.UsableVote(v) && model.ArgMax(v) == in.Class() {
			correct++
		}
	}
	return float64(correct) / float64(len(data))
}

func TestClassifiersLearnSeparableData(t *testing.T) {
	tests := []struct {
		name string
		l    model.Learner
	}{
		{"GaussianNB", NewGaussianNB()},
		{"PA-I", NewPassiveAggressiveClassifier()},
		{"PA-II", NewPassiveAggressiveClassifier(WithPALoss("squared_hinge"), WithPAC(0.5))},
	}
	train, test := blobs(400, 1), blobs(200, 2)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.l.Predict(test[0])
			require.NoError(t, err)
			assert.False(t, model.UsableVote(v), "untrained learner abstains")

			for _, in := range train {
				require.NoError(t, tt.l.Train(in, 1))
			}
			assert.Greater(t, accuracy(t, tt.l, test), 0.95)

			v, err = tt.l.Predict(test[0])
			require.NoError(t, err)
			sum := 0.0
			for _, p := range v {
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "votes are probability vectors")
		})
	}
}

func TestCloneHasFreshState(t *testing.T) {
	for _, l := range []model.Learner{NewGaussianNB(), NewPassiveAggressiveClassifier(), NewMajorityClass()} {
		for _, in := range blobs(20, 3) {
			require.NoError(t, l.Train(in, 1))
		}
		c := l.Clone()
		v, err := c.Predict(model.Instance{X: []float64{0, 0}})
		require.NoError(t, err)
		assert.False(t, model.UsableVote(v), "%T clone must be untrained", l)

		l.Reset()
		v, _ = l.Predict(model.Instance{X: []float64{0, 0}})
		assert.False(t, model.UsableVote(v), "%T reset must forget", l)
	}
}

func TestTrainRejectsBadInput(t *testing.T) {
	nb := NewGaussianNB()
	require.NoError(t, nb.Train(model.Instance{X: []float64{1, 2}, Y: 0}, 1))

	err := nb.Train(model.Instance{X: []float64{1}, Y: 0}, 1)
	var dimErr *scierrors.DimensionError
	assert.ErrorAs(t, err, &dimErr)

	err = nb.Train(model.Instance{X: []float64{math.NaN(), 1}, Y: 0}, 1)
	var numErr *scierrors.NumericalInstabilityError
	assert.ErrorAs(t, err, &numErr)

	err = nb.Train(model.Instance{X: []float64{1, 1}, Y: -1}, 1)
	var valErr *scierrors.ValidationError
	assert.ErrorAs(t, err, &valErr)

	_, err = nb.Predict(model.Instance{X: []float64{1, 2, 3}})
	assert.Error(t, err)
}

func TestWeightedTraining(t *testing.T) {
	m := NewMajorityClass()
	require.NoError(t, m.Train(model.Instance{Y: 0}, 3))
	require.NoError(t, m.Train(model.Instance{Y: 1}, 1))
	require.NoError(t, m.Train(model.Instance{Y: 1}, 0), "zero weight is a no-op")
	v, _ := m.Predict(model.Instance{})
	assert.Equal(t, []float64{3, 1}, v)

	// GaussianNB: weight 2 equals two unit updates.
	a, b := NewGaussianNB(), NewGaussianNB()
	for _, in := range blobs(10, 9) {
		require.NoError(t, a.Train(in, 2))
		require.NoError(t, b.Train(in, 1))
		require.NoError(t, b.Train(in, 1))
	}
	q := model.Instance{X: []float64{0.3, -0.1}}
	va, _ := a.Predict(q)
	vb, _ := b.Predict(q)
	assert.InDeltaSlice(t, vb, va, 1e-9)
}

func TestPassiveAggressiveRegressor(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	pa := NewPassiveAggressiveRegressor(WithPAEpsilon(0.01))
	for i := 0; i < 2000; i++ {
		x := []float64{rng.Float64(), rng.Float64()}
		require.NoError(t, pa.Train(model.Instance{X: x, Y: 3*x[0] - 2*x[1] + 1}, 1))
	}
	v, err := pa.Predict(model.Instance{X: []float64{0.5, 0.5}})
	require.NoError(t, err)
	require.Len(t, v, 1)
	assert.InDelta(t, 1.5, v[0], 0.1)

	assert.Error(t, pa.Train(model.Instance{X: []float64{1, 1}, Y: math.Inf(1)}, 1))
}

func TestRegistry(t *testing.T) {
	assert.Subset(t, Names(), []string{"gaussian_nb", "majority", "passive_aggressive", "passive_aggressive_regressor"})

	f, err := NewFactory(Spec{Name: "passive_aggressive", Params: map[string]float64{"C": 0.1}})
	require.NoError(t, err)
	a, b := f(), f()
	assert.NotSame(t, a, b)
	assert.Equal(t, 0.1, a.(*PassiveAggressiveClassifier).C)

	_, err = NewFactory(Spec{Name: "hoeffding_tree"})
	assert.True(t, scierrors.IsFatal(err), "unknown learner is a configuration error")

	_, err = NewFactory(Spec{Name: "passive_aggressive", Params: map[string]float64{"C": -1}})
	assert.Error(t, err)
}

func TestRegistryScaledPipeline(t *testing.T) {
	f, err := NewFactory(Spec{Name: "passive_aggressive", Params: map[string]float64{"standardize": 1}})
	require.NoError(t, err)
	l := f()
	require.IsType(t, &preprocessing.Pipeline{}, l)
	assert.Equal(t, "PassiveAggressiveClassifier", model.NameOf(l))

	v, err := l.Predict(model.Instance{X: []float64{1, 2}})
	require.NoError(t, err)
	assert.Nil(t, v, "untrained pipeline abstains")

	for _, in := range blobs(400, 9) {
		require.NoError(t, l.Train(in, 1))
	}
	assert.Greater(t, accuracy(t, l, blobs(200, 10)), 0.9)

	_, err = NewFactory(Spec{Name: "gaussian_nb", Params: map[string]float64{"standardize": 1, "minmax": 1}})
	assert.True(t, scierrors.IsFatal(err))
}
