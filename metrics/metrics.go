// Package metrics records per-run counters for the batch job and can dump them
// in the Prometheus text format for a node-exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"review-insights/models"
)

// Recorder owns a private registry so repeated runs in one process (tests)
// never collide on the default registerer. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	rowsRead       prometheus.Counter
	rowsDropped    prometheus.Counter
	classified     *prometheus.CounterVec
	batches        prometheus.Counter
	batchDuration  prometheus.Histogram
	tailRiskItems  prometheus.Gauge
	bestsellerRows prometheus.Gauge
	lastSuccess    prometheus.Gauge
}

// NewRecorder creates and registers all collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "review_insights_rows_read_total",
			Help: "Rows read from the input spreadsheet",
		}),
		rowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "review_insights_rows_dropped_total",
			Help: "Rows dropped because the review text was missing",
		}),
		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_insights_reviews_classified_total",
			Help: "Reviews classified, by sentiment label",
		}, []string{"label"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "review_insights_classifier_batches_total",
			Help: "Classifier batches invoked",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "review_insights_classifier_batch_seconds",
			Help:    "Wall time of one classifier batch",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		tailRiskItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "review_insights_tail_risk_products",
			Help: "Products flagged in the bottom review-volume percentile",
		}),
		bestsellerRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "review_insights_bestseller_rows",
			Help: "Rows in the bestsellers-by-category report",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "review_insights_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
	r.registry.MustRegister(
		r.rowsRead,
		r.rowsDropped,
		r.classified,
		r.batches,
		r.batchDuration,
		r.tailRiskItems,
		r.bestsellerRows,
		r.lastSuccess,
	)
	return r
}

// ObserveLoad records how many rows were read and how many were dropped.
func (r *Recorder) ObserveLoad(read, dropped int) {
	if r == nil {
		return
	}
	r.rowsRead.Add(float64(read))
	r.rowsDropped.Add(float64(dropped))
}

// ObserveBatch records one classifier call.
func (r *Recorder) ObserveBatch(d time.Duration) {
	if r == nil {
		return
	}
	r.batches.Inc()
	r.batchDuration.Observe(d.Seconds())
}

// ObserveLabel counts one classified review.
func (r *Recorder) ObserveLabel(label models.Sentiment) {
	if r == nil {
		return
	}
	r.classified.WithLabelValues(string(label)).Inc()
}

// ObserveReport records the sizes of both reports and marks the run successful.
func (r *Recorder) ObserveReport(report *models.Report) {
	if r == nil || report == nil {
		return
	}
	r.bestsellerRows.Set(float64(len(report.Bestsellers)))
	r.tailRiskItems.Set(float64(len(report.TailRisk)))
	r.lastSuccess.SetToCurrentTime()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile dumps every metric to path in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
