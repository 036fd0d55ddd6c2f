package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	correlations     *prometheus.CounterVec
	suppressed       prometheus.Counter
	tradesIngested   *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	relationsTracked prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		correlations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polycorr_correlations_detected_total",
				Help: "Total number of correlation findings accepted by the ledger",
			},
			[]string{"severity"},
		),
		suppressed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "polycorr_correlations_suppressed_total",
				Help: "Total number of findings suppressed by the per-pair cooldown",
			},
		),
		tradesIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polycorr_trades_ingested_total",
				Help: "Total number of trades accepted from the stream",
			},
			[]string{"market"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polycorr_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polycorr_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		relationsTracked: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "polycorr_relations_tracked",
				Help: "Number of edges currently in the market relation graph",
			},
		),
	}
}

// RecordCorrelation records an accepted finding at the given severity.
func (r *Recorder) RecordCorrelation(severity string) {
	r.correlations.WithLabelValues(severity).Inc()
}

// RecordSuppressed records a cooldown-suppressed finding.
func (r *Recorder) RecordSuppressed() {
	r.suppressed.Inc()
}

// RecordTradeIngested records a trade accepted from the stream.
func (r *Recorder) RecordTradeIngested(marketID string) {
	r.tradesIngested.WithLabelValues(marketID).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// SetRelationsTracked updates the relation graph gauge.
func (r *Recorder) SetRelationsTracked(n int) {
	r.relationsTracked.Set(float64(n))
}
