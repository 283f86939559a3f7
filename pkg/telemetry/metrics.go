package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics provides Prometheus metrics for handler invocations.
type Metrics struct {
	config MetricsConfig

	// Invocation metrics
	invocations        *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	callbackDelay      *prometheus.HistogramVec

	// Workflow metrics, one per driven workflow
	workflowsCompleted *prometheus.CounterVec
	workflowAttempts   *prometheus.HistogramVec
	activeWorkflows    prometheus.Gauge

	// Provider metrics
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	providerErrors   *prometheus.CounterVec

	// Classified error metrics
	errorsByKind *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of handler invocations by outcome",
			},
			[]string{"action", "status", "error_code"},
		),
		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Duration of a single handler invocation in seconds",
				Buckets:   buckets,
			},
			[]string{"action"},
		),
		callbackDelay: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "callback_delay_seconds",
				Help:      "Requested delay before the next invocation",
				Buckets:   []float64{0, 1, 5, 15, 60, 300},
			},
			[]string{"action"},
		),

		workflowsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflows_completed_total",
				Help:      "Total number of workflows driven to a terminal outcome",
			},
			[]string{"action", "status"},
		),
		workflowAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_invocations",
				Help:      "Number of invocations a workflow needed",
				Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
			},
			[]string{"action"},
		),
		activeWorkflows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_workflows",
				Help:      "Current number of workflows being driven",
			},
		),

		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Total number of provider calls",
			},
			[]string{"provider", "operation"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_call_duration_seconds",
				Help:      "Duration of provider calls in seconds",
				Buckets:   buckets,
			},
			[]string{"provider", "operation"},
		),
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Total number of provider errors by service error code",
			},
			[]string{"provider", "operation", "code"},
		),

		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classified_errors_total",
				Help:      "Total number of outcomes carrying an error code",
			},
			[]string{"action", "error_code"},
		),
	}

	registry.MustRegister(
		m.invocations,
		m.invocationDuration,
		m.callbackDelay,
		m.workflowsCompleted,
		m.workflowAttempts,
		m.activeWorkflows,
		m.providerCalls,
		m.providerDuration,
		m.providerErrors,
		m.errorsByKind,
	)

	return m, nil
}

// RecordInvocation records one handler invocation and its outcome.
func (m *Metrics) RecordInvocation(action, status, errorCode string, delaySeconds int, duration time.Duration) {
	if m.invocations == nil {
		return
	}
	m.invocations.WithLabelValues(action, status, errorCode).Inc()
	m.invocationDuration.WithLabelValues(action).Observe(duration.Seconds())
	if status == "IN_PROGRESS" {
		m.callbackDelay.WithLabelValues(action).Observe(float64(delaySeconds))
	}
	if errorCode != "" {
		m.errorsByKind.WithLabelValues(action, errorCode).Inc()
	}
}

// RecordWorkflowStarted increments the active workflow gauge.
func (m *Metrics) RecordWorkflowStarted() {
	if m.activeWorkflows == nil {
		return
	}
	m.activeWorkflows.Inc()
}

// RecordWorkflowCompleted records a workflow reaching a terminal outcome.
func (m *Metrics) RecordWorkflowCompleted(action, status string, invocations int) {
	if m.workflowsCompleted == nil {
		return
	}
	m.workflowsCompleted.WithLabelValues(action, status).Inc()
	m.workflowAttempts.WithLabelValues(action).Observe(float64(invocations))
	m.activeWorkflows.Dec()
}

// RecordProviderCall records a provider call with its duration.
func (m *Metrics) RecordProviderCall(provider, operation string, duration time.Duration) {
	if m.providerCalls == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, operation).Inc()
	m.providerDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordProviderError records a provider error.
func (m *Metrics) RecordProviderError(provider, operation, code string) {
	if m.providerErrors == nil {
		return
	}
	m.providerErrors.WithLabelValues(provider, operation, code).Inc()
}

// Registry returns the underlying registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics. The returned
// server is nil when metrics are disabled or no listen address is set.
func (m *Metrics) StartMetricsServer() *http.Server {
	if !m.config.Enabled || m.config.ListenAddress == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", server.Addr).Msg("Metrics server failed")
		}
	}()

	return server
}
