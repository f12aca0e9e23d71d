package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the Converge backend.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Onboarding metrics.
	RegistrationsTotal *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	ExtractionErrors   prometheus.Counter
	RollbacksTotal     prometheus.Counter

	// Domain counters.
	ProjectsCreatedTotal prometheus.Counter
	TeammatesAddedTotal  prometheus.Counter
	InvitesTotal         *prometheus.CounterVec

	// Forwarder (profile webhook) metrics.
	ForwarderBufferSize   prometheus.Gauge
	ForwarderFlushesTotal *prometheus.CounterVec
	ForwarderEventsTotal  prometheus.Counter

	// Rate limiting.
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "converge_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "converge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		HTTPResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "converge_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path_pattern"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "converge_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"auth_type"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "converge_auth_successes_total",
			Help: "Total number of successful authentications.",
		}, []string{"auth_type"}),

		RegistrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "converge_registrations_total",
			Help: "Total number of registration attempts by outcome.",
		}, []string{"outcome"}),

		ExtractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "converge_extraction_duration_seconds",
			Help:    "Resume extraction request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		ExtractionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "converge_extraction_errors_total",
			Help: "Total number of failed resume extractions.",
		}),

		RollbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "converge_registration_rollbacks_total",
			Help: "Total number of compensating account deletions during onboarding.",
		}),

		ProjectsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "converge_projects_created_total",
			Help: "Total number of projects created.",
		}),

		TeammatesAddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "converge_teammates_added_total",
			Help: "Total number of team memberships created.",
		}),

		InvitesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "converge_invites_total",
			Help: "Total number of invite operations by action.",
		}, []string{"action"}),

		ForwarderBufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "converge_forwarder_buffer_size",
			Help: "Current number of buffered profile events.",
		}),

		ForwarderFlushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "converge_forwarder_flushes_total",
			Help: "Total number of forwarder flushes.",
		}, []string{"status"}),

		ForwarderEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "converge_forwarder_events_total",
			Help: "Total number of profile events published.",
		}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "converge_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}, []string{"scope"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "converge_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	// Register all metrics.
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.RegistrationsTotal,
		m.ExtractionDuration,
		m.ExtractionErrors,
		m.RollbacksTotal,
		m.ProjectsCreatedTotal,
		m.TeammatesAddedTotal,
		m.InvitesTotal,
		m.ForwarderBufferSize,
		m.ForwarderFlushesTotal,
		m.ForwarderEventsTotal,
		m.RateLimitRejectionsTotal,
		m.ServerStartTime,
	)

	// Set server start time.
	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, pathPattern string, statusCode int, seconds float64, responseBytes int) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, fmt.Sprintf("%d", statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(seconds)
	m.HTTPResponseSize.WithLabelValues(method, pathPattern).Observe(float64(responseBytes))
}

// IncAuthFailure increments the auth failure counter for the given auth type.
func (m *Metrics) IncAuthFailure(authType string) {
	m.AuthFailuresTotal.WithLabelValues(authType).Inc()
}

// IncAuthSuccess increments the auth success counter for the given auth type.
func (m *Metrics) IncAuthSuccess(authType string) {
	m.AuthSuccessesTotal.WithLabelValues(authType).Inc()
}

// IncRegistration increments the registration counter for the given outcome.
func (m *Metrics) IncRegistration(outcome string) {
	m.RegistrationsTotal.WithLabelValues(outcome).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection(scope string) {
	m.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}

// IncInvite increments the invite counter for the given action.
func (m *Metrics) IncInvite(action string) {
	m.InvitesTotal.WithLabelValues(action).Inc()
}
