// Package telemetry exports ensemble events as Prometheus metrics.
package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuminosukeSato/scistream/ensemble"
)

const namespace = "scistream"

// Metrics implements ensemble.Observer with Prometheus collectors.
type Metrics struct {
	Trainings    prometheus.CounterVec
	Multiplicity prometheus.HistogramVec
	Drifts       prometheus.CounterVec
	Warnings     prometheus.CounterVec
	Replacements prometheus.CounterVec
	Failures     prometheus.CounterVec
	Chunks       prometheus.CounterVec
	LastChunk    prometheus.GaugeVec
}

var _ ensemble.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Trainings: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "member",
				Name:      "trainings_total",
				Help:      "Member training calls with a positive multiplicity",
			},
			[]string{"ensemble"},
		),
		Multiplicity: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "member",
				Name:      "training_multiplicity",
				Help:      "Training multiplicity drawn per member and instance",
				Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12, 16},
			},
			[]string{"ensemble"},
		),
		Drifts: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "drift",
				Name:      "detections_total",
				Help:      "Confirmed drifts per ensemble",
			},
			[]string{"ensemble"},
		),
		Warnings: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "drift",
				Name:      "warnings_total",
				Help:      "Warning signals per ensemble",
			},
			[]string{"ensemble"},
		),
		Replacements: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "actions_total",
				Help:      "Pool actions (reset, promote, replace, add, reuse)",
			},
			[]string{"ensemble", "action"},
		),
		Failures: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "member",
				Name:      "failures_total",
				Help:      "Recovered member failures",
			},
			[]string{"ensemble", "member"},
		),
		Chunks: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chunk",
				Name:      "processed_total",
				Help:      "Processed chunk boundaries",
			},
			[]string{"ensemble"},
		),
		LastChunk: *factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "chunk",
				Name:      "last_index",
				Help:      "Index of the most recent chunk",
			},
			[]string{"ensemble"},
		),
	}
}

func (m *Metrics) Trained(e string, _ int, k float64) {
	m.Multiplicity.WithLabelValues(e).Observe(k)
	if k > 0 {
		m.Trainings.WithLabelValues(e).Inc()
	}
}

func (m *Metrics) Drift(e string, _ int)   { m.Drifts.WithLabelValues(e).Inc() }
func (m *Metrics) Warning(e string, _ int) { m.Warnings.WithLabelValues(e).Inc() }

func (m *Metrics) Replaced(e string, _ int, action string) {
	m.Replacements.WithLabelValues(e, action).Inc()
}

func (m *Metrics) Failed(e string, member int) {
	m.Failures.WithLabelValues(e, strconv.Itoa(member)).Inc()
}

func (m *Metrics) Chunk(e string, c int) {
	m.Chunks.WithLabelValues(e).Inc()
	m.LastChunk.WithLabelValues(e).Set(float64(c))
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
