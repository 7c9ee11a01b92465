package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics wraps the Prometheus collectors exported by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpErrors     *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	sweeps         *prometheus.CounterVec
	sweepRequests  *prometheus.CounterVec
	classifierTime *prometheus.HistogramVec
	fallbacks      *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	notifications  *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry so tests can build many instances.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_http_errors_total",
			Help: "HTTP error responses by route, method and error code.",
		}, []string{"path", "method", "code"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		sweeps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_dispatcher_sweeps_total",
			Help: "Dispatcher sweeps by result.",
		}, []string{"result"}),
		sweepRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_dispatcher_requests_total",
			Help: "Requests handled by the dispatcher by outcome.",
		}, []string{"outcome"}),
		classifierTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_classifier_duration_seconds",
			Help:    "Classifier model call latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_classifier_fallback_total",
			Help: "Classifier results replaced by the fallback, by reason.",
		}, []string{"reason"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_request_transitions_total",
			Help: "Service request lifecycle transitions by operation and result.",
		}, []string{"operation", "result"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_notifications_total",
			Help: "Safety advice notifications by result.",
		}, []string{"result"}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(path, method, code).Inc()
}

// RecordSweep counts one dispatcher sweep and its per-request outcomes.
func (m *Metrics) RecordSweep(aborted bool, analyzed, skipped, failed int) {
	if m == nil {
		return
	}
	result := "completed"
	if aborted {
		result = "aborted"
	}
	m.sweeps.WithLabelValues(result).Inc()
	m.sweepRequests.WithLabelValues("analyzed").Add(float64(analyzed))
	m.sweepRequests.WithLabelValues("skipped").Add(float64(skipped))
	m.sweepRequests.WithLabelValues("failed").Add(float64(failed))
}

// ObserveClassifier records the latency of one model call.
func (m *Metrics) ObserveClassifier(provider string, duration time.Duration) {
	if m == nil {
		return
	}
	m.classifierTime.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordFallback counts a classifier result replaced by the fallback.
func (m *Metrics) RecordFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

// RecordTransition counts a lifecycle operation outcome.
func (m *Metrics) RecordTransition(operation, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation, result).Inc()
}

// RecordNotification counts a safety advice publish attempt.
func (m *Metrics) RecordNotification(ok bool) {
	if m == nil {
		return
	}
	result := "published"
	if !ok {
		result = "failed"
	}
	m.notifications.WithLabelValues(result).Inc()
}
