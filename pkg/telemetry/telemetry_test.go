package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/ensemble"
	"github.com/YuminosukeSato/scistream/learner"
)

func TestMetricsCountEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Trained("OzaBag", 0, 0)
	m.Trained("OzaBag", 1, 2)
	m.Drift("OzaBag", 1)
	m.Warning("SRP", 0)
	m.Replaced("OzaBag", 1, "reset")
	m.Failed("OzaBag", 1)
	m.Chunk("AWE", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Trainings.WithLabelValues("OzaBag")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Drifts.WithLabelValues("OzaBag")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Warnings.WithLabelValues("SRP")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Replacements.WithLabelValues("OzaBag", "reset")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("OzaBag", "1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Chunks.WithLabelValues("AWE")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LastChunk.WithLabelValues("AWE")))
}

func TestMetricsObserveEnsemble(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e, err := ensemble.NewOzaBag(func() model.Learner { return learner.NewMajorityClass() },
		ensemble.WithEnsembleSize(3), ensemble.WithLambda(20), ensemble.WithObserver(m))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Train(model.Instance{X: []float64{1}, Y: float64(i % 2)}, 1))
	}
	assert.Equal(t, 30.0, testutil.ToFloat64(m.Trainings.WithLabelValues("OzaBag")))

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "scistream_member_trainings_total"))
}
