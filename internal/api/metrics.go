package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricEventsCreatedTotal   = "calendar_events_created_total"
	MetricRecurrenceFanoutSize = "calendar_recurrence_fanout_size"
	MetricPosterAnalysesTotal  = "calendar_poster_analyses_total"
	MetricUploadTicketsTotal   = "calendar_upload_tickets_total"
)

// Analysis status constants for labeling.
const (
	AnalysisStatusSuccess  = "success"
	AnalysisStatusDegraded = "degraded"
	AnalysisStatusFailure  = "failure"
)

// Metrics contains Prometheus metrics for the calendar API handlers.
// All operations are thread-safe.
type Metrics struct {
	eventsCreated    *prometheus.CounterVec
	recurrenceFanout prometheus.Histogram
	posterAnalyses   *prometheus.CounterVec
	uploadTickets    prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		eventsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEventsCreatedTotal,
				Help: "Total number of events created by recurrence rule",
			},
			[]string{"rule"},
		),
		recurrenceFanout: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRecurrenceFanoutSize,
				Help:    "Histogram of rows produced by a single recurring create",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
			},
		),
		posterAnalyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPosterAnalysesTotal,
				Help: "Total number of poster analysis requests by outcome",
			},
			[]string{"status"},
		),
		uploadTickets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricUploadTicketsTotal,
				Help: "Total number of poster upload tickets issued",
			},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncEventsCreated adds n created rows for a recurrence rule, and records
// the fanout size for recurring creates.
func (m *Metrics) IncEventsCreated(rule string, n int) {
	m.eventsCreated.WithLabelValues(rule).Add(float64(n))
	if n > 1 {
		m.recurrenceFanout.Observe(float64(n))
	}
}

// IncPosterAnalyses increments the analysis counter for an outcome.
func (m *Metrics) IncPosterAnalyses(status string) {
	m.posterAnalyses.WithLabelValues(status).Inc()
}

// IncUploadTickets increments the issued upload ticket counter.
func (m *Metrics) IncUploadTickets() {
	m.uploadTickets.Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.eventsCreated,
		m.recurrenceFanout,
		m.posterAnalyses,
		m.uploadTickets,
	}
}
