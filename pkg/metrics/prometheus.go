package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messages    *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	outOfOrder  *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
	entities    prometheus.Gauge
	totalPoints prometheus.Gauge
	avgErrorPct prometheus.Gauge
}

// New registers the recorder's collectors with reg, or with the default
// registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		messages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ensembleview_messages_total",
				Help: "Messages applied to the run state, by type",
			},
			[]string{"type"},
		),
		dropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ensembleview_messages_dropped_total",
				Help: "Messages dropped before reaching the run state, by reason",
			},
			[]string{"reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ensembleview_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		outOfOrder: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ensembleview_out_of_order_total",
				Help: "Observations whose timestamp precedes the previous one",
			},
			[]string{"ticker"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ensembleview_last_price",
				Help: "Last actual price observed for a ticker",
			},
			[]string{"ticker"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ensembleview_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"operation"},
		),
		entities: f.NewGauge(prometheus.GaugeOpts{
			Name: "ensembleview_entities",
			Help: "Entities registered in the current run",
		}),
		totalPoints: f.NewGauge(prometheus.GaugeOpts{
			Name: "ensembleview_points",
			Help: "Observations retained across all entities",
		}),
		avgErrorPct: f.NewGauge(prometheus.GaugeOpts{
			Name: "ensembleview_avg_error_pct",
			Help: "Mean absolute prediction error percentage across entities",
		}),
	}
}

func (r *Recorder) RecordMessage(kind string) { r.messages.WithLabelValues(kind).Inc() }

func (r *Recorder) RecordDropped(reason string) { r.dropped.WithLabelValues(reason).Inc() }

func (r *Recorder) RecordError(kind string) { r.errorsTotal.WithLabelValues(kind).Inc() }

func (r *Recorder) RecordOutOfOrder(ticker string) { r.outOfOrder.WithLabelValues(ticker).Inc() }

func (r *Recorder) RecordLastPrice(ticker string, price float64) {
	r.lastPrice.WithLabelValues(ticker).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordSummary refreshes the run-level gauges.
func (r *Recorder) RecordSummary(entities, totalPoints int, avgErrorPct float64) {
	r.entities.Set(float64(entities))
	r.totalPoints.Set(float64(totalPoints))
	r.avgErrorPct.Set(avgErrorPct)
}

// ResetRun clears per-ticker series left over from a previous run.
func (r *Recorder) ResetRun() {
	r.lastPrice.Reset()
	r.outOfOrder.Reset()
	r.RecordSummary(0, 0, 0)
}
