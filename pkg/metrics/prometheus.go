package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SemaforoBot/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analysesTotal    *prometheus.CounterVec
	semaphoreState   *prometheus.GaugeVec
	transitionsTotal *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	activeTrades     prometheus.Gauge
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		analysesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semaforo_analyses_total",
				Help: "Total number of per-asset risk classifications",
			},
			[]string{"asset", "color"},
		),
		semaphoreState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "semaforo_state",
				Help: "Current aggregated semaphore color (1 for the active color)",
			},
			[]string{"color"},
		),
		transitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semaforo_trade_transitions_total",
				Help: "Total number of trade state transitions",
			},
			[]string{"status"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semaforo_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		activeTrades: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "semaforo_active_trades",
				Help: "Number of currently active trades",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "semaforo_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAnalysis records one classification outcome.
func (r *Recorder) RecordAnalysis(asset string, color models.Color) {
	r.analysesTotal.WithLabelValues(asset, string(color)).Inc()
}

// RecordSemaphore records the aggregated color as a one-hot gauge.
func (r *Recorder) RecordSemaphore(color models.Color) {
	for _, c := range []models.Color{models.ColorGreen, models.ColorYellow, models.ColorRed} {
		v := 0.0
		if c == color {
			v = 1
		}
		r.semaphoreState.WithLabelValues(string(c)).Set(v)
	}
}

// RecordTransition records a trade entering the given status.
func (r *Recorder) RecordTransition(status models.TradeStatus) {
	r.transitionsTotal.WithLabelValues(string(status)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// SetActiveTrades records the size of the active trade set.
func (r *Recorder) SetActiveTrades(n int) {
	r.activeTrades.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
