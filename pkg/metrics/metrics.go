package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
	ErrorTotal      *prometheus.CounterVec

	// Upstream portal API metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec

	// Availability editor metrics
	DraftMutations    *prometheus.CounterVec
	AvailabilitySaves *prometheus.CounterVec
	SaveLatency       prometheus.Histogram

	// Session store metrics
	SessionStoreOps *prometheus.CounterVec

	// Auth flow metrics
	FlowSubmissions *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg. Tests pass
// a fresh prometheus.NewRegistry() so repeated construction does not collide.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		ErrorTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of HTTP errors",
		}, []string{"method", "path", "status"}),

		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of portal API calls",
		}, []string{"operation", "status"}),
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of portal API calls",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),

		DraftMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "draft_mutations_total",
			Help:      "Total number of availability draft edits",
		}, []string{"collection", "operation"}),
		AvailabilitySaves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "saves_total",
			Help:      "Total number of availability save attempts",
		}, []string{"result"}),
		SaveLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "save_duration_seconds",
			Help:      "Time spent submitting availability drafts",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		}),

		SessionStoreOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "store_operations_total",
			Help:      "Total number of session store operations",
		}, []string{"backend", "operation", "status"}),

		FlowSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "submissions_total",
			Help:      "Total number of login and registration submissions",
		}, []string{"role", "kind", "result"}),
	}
}

// The helpers below accept a nil receiver so components can run without
// metrics in tests.

func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
	m.RequestTotal.WithLabelValues(method, path, status).Inc()
	if failed {
		m.ErrorTotal.WithLabelValues(method, path, status).Inc()
	}
}

func (m *Metrics) ObserveUpstream(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(operation, status).Inc()
	m.UpstreamLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) DraftMutation(collection, operation string) {
	if m == nil {
		return
	}
	m.DraftMutations.WithLabelValues(collection, operation).Inc()
}

func (m *Metrics) ObserveSave(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.AvailabilitySaves.WithLabelValues(result(err)).Inc()
	m.SaveLatency.Observe(d.Seconds())
}

func (m *Metrics) SessionOp(backend, operation string, err error) {
	if m == nil {
		return
	}
	m.SessionStoreOps.WithLabelValues(backend, operation, result(err)).Inc()
}

func (m *Metrics) FlowSubmission(role, kind string, err error) {
	if m == nil {
		return
	}
	m.FlowSubmissions.WithLabelValues(role, kind, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
