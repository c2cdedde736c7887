package evaluation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/ensemble"
	"github.com/YuminosukeSato/scistream/learner"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
	"github.com/YuminosukeSato/scistream/stream"
)

// recorder remembers the order of Predict and Train calls.
type recorder struct {
	calls []string
	fail  bool
}

func (r *recorder) Train(model.Instance, float64) error {
	r.calls = append(r.calls, "train")
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) Predict(model.Instance) ([]float64, error) {
	r.calls = append(r.calls, "predict")
	return []float64{1, 0}, nil
}

func (r *recorder) Reset()               { r.calls = nil }
func (r *recorder) Clone() model.Learner { return &recorder{} }

// brokenSource fails after a number of instances.
type brokenSource struct {
	stream.Source
	after int
}

func (b *brokenSource) Next(ctx context.Context) (model.Instance, error) {
	if b.after == 0 {
		return model.Instance{}, errors.New("truncated file")
	}
	b.after--
	return b.Source.Next(ctx)
}

func sea(t *testing.T, n int, opts ...stream.SEAOption) stream.Source {
	t.Helper()
	g, err := stream.NewSEAGenerator(7, append(opts, stream.WithSEALimit(n))...)
	require.NoError(t, err)
	return g
}

func TestPrequentialIsTestThenTrain(t *testing.T) {
	r := &recorder{}
	p, err := NewPrequential(r, WithSampleEvery(2))
	require.NoError(t, err)
	res, err := p.Run(context.Background(), sea(t, 5))
	require.NoError(t, err)

	assert.Equal(t, int64(5), res.Instances)
	assert.Equal(t, []string{"predict", "train", "predict", "train", "predict", "train", "predict", "train", "predict", "train"}, r.calls)
	require.Len(t, res.Curve, 3)
	assert.Equal(t, []int64{2, 4, 5}, []int64{res.Curve[0].Instances, res.Curve[1].Instances, res.Curve[2].Instances})
	assert.Equal(t, res.Classification.Accuracy(), res.Final().Accuracy)
}

func TestPrequentialEnsembleLearnsSEA(t *testing.T) {
	bag, err := ensemble.NewOzaBag(func() model.Learner { return learner.NewGaussianNB() },
		ensemble.WithEnsembleSize(5), ensemble.WithSeed(3))
	require.NoError(t, err)

	logger, buf := log.NewTestLogger(log.LevelInfo)
	p, err := NewPrequential(bag, WithSampleEvery(500), WithLogger(logger))
	require.NoError(t, err)
	res, err := p.Run(context.Background(), sea(t, 3000, stream.WithSEANoise(0.05)))
	require.NoError(t, err)

	assert.Len(t, res.Curve, 6)
	assert.Greater(t, res.Final().Accuracy, 0.75)
	assert.Greater(t, res.Final().Kappa, 0.35)
	assert.True(t, logger.ContainsMessage("prequential evaluation finished"), buf.String())
}

func TestPrequentialRegression(t *testing.T) {
	data := make([]model.Instance, 400)
	for i := range data {
		x := float64(i%20) / 10
		data[i] = model.Instance{X: []float64{x}, Y: 3*x + 1}
	}
	pa := learner.NewPassiveAggressiveRegressor()
	p, err := NewPrequential(pa, WithRegression(), WithSampleEvery(100))
	require.NoError(t, err)
	res, err := p.Run(context.Background(), stream.NewSliceSource(data))
	require.NoError(t, err)
	require.NotNil(t, res.Regression)
	require.Len(t, res.Curve, 4)
	assert.Less(t, res.Curve[3].MSE, res.Curve[0].MSE)
}

func TestPrequentialStops(t *testing.T) {
	t.Run("max instances", func(t *testing.T) {
		p, err := NewPrequential(&recorder{}, WithMaxInstances(10))
		require.NoError(t, err)
		res, err := p.Run(context.Background(), sea(t, 100))
		require.NoError(t, err)
		assert.Equal(t, int64(10), res.Instances)
		assert.Len(t, res.Curve, 1)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p, err := NewPrequential(&recorder{})
		require.NoError(t, err)
		res, err := p.Run(ctx, sea(t, 100))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int64(0), res.Instances)
	})

	t.Run("training error", func(t *testing.T) {
		p, err := NewPrequential(&recorder{fail: true})
		require.NoError(t, err)
		res, err := p.Run(context.Background(), sea(t, 100))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "train instance 1")
		assert.Equal(t, int64(0), res.Instances)
	})

	t.Run("source error", func(t *testing.T) {
		r := &recorder{}
		p, err := NewPrequential(r)
		require.NoError(t, err)
		res, err := p.Run(context.Background(), &brokenSource{Source: sea(t, 100), after: 3})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read instance")
		assert.Equal(t, int64(3), res.Instances)
		assert.Len(t, r.calls, 6)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := NewPrequential(nil)
		assert.True(t, errors.IsFatal(err))
		_, err = NewPrequential(&recorder{}, WithSampleEvery(0))
		assert.True(t, errors.IsFatal(err))
	})
}

func TestPlotCurves(t *testing.T) {
	curve := []Point{{Instances: 100, Accuracy: 0.6}, {Instances: 200, Accuracy: 0.8}}
	path := filepath.Join(t.TempDir(), "curve.png")
	require.NoError(t, PlotCurves(path, "SEA", "accuracy", MetricAccuracy,
		Series{Name: "a", Curve: curve}, Series{Name: "b", Curve: curve}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.ErrorIs(t, PlotCurves(path, "", "", MetricAccuracy), errors.ErrEmptyData)

	m, err := MetricByName("kappa")
	require.NoError(t, err)
	assert.Equal(t, 0.3, m(Point{Kappa: 0.3}))
	_, err = MetricByName("auc")
	assert.Error(t, err)
}
