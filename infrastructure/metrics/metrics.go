// Package metrics provides Prometheus metrics collection for the verification engine.
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics exposed by the worker and API server.
type Metrics struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Queue metrics
	QueueDepth        prometheus.Gauge
	JobsEnqueuedTotal *prometheus.CounterVec
	JobsCompletedTotal *prometheus.CounterVec
	JobLeaseDuration  *prometheus.HistogramVec

	// Agent metrics
	AgentRunsTotal    *prometheus.CounterVec
	AgentRunDuration  *prometheus.HistogramVec

	// LLM pool metrics
	LLMConcurrencyInUse prometheus.Gauge
	LLMCallDuration     *prometheus.HistogramVec

	// Database metrics
	DatabaseQueriesTotal  *prometheus.CounterVec
	DatabaseQueryDuration *prometheus.HistogramVec
	DatabaseConnectionsOpen prometheus.Gauge

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a new Metrics instance with all collectors registered against the
// default Prometheus registry.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry.
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total number of HTTP requests"},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "http_requests_in_flight", Help: "Current number of HTTP requests being processed"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "errors_total", Help: "Total number of errors"},
			[]string{"service", "type", "operation"},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "verification_queue_depth", Help: "Current number of jobs waiting in the verification queue"},
		),
		JobsEnqueuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "verification_jobs_enqueued_total", Help: "Total number of verification jobs enqueued"},
			[]string{"job_type"},
		),
		JobsCompletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "verification_jobs_completed_total", Help: "Total number of verification jobs completed"},
			[]string{"job_type", "status"},
		),
		JobLeaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verification_job_lease_duration_seconds",
				Help:    "Time a worker held a job lease before completion",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"job_type"},
		),
		AgentRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agent_runs_total", Help: "Total number of agent executions"},
			[]string{"agent_type", "status"},
		),
		AgentRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_run_duration_seconds",
				Help:    "Agent execution duration in seconds",
				Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"agent_type"},
		),
		LLMConcurrencyInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "llm_concurrency_in_use", Help: "Number of LLM calls currently in flight against the bounded pool"},
		),
		LLMCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_call_duration_seconds",
				Help:    "LLM call duration in seconds",
				Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"operation"},
		),
		DatabaseQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "database_queries_total", Help: "Total number of database queries"},
			[]string{"service", "operation", "status"},
		),
		DatabaseQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "database_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"service", "operation"},
		),
		DatabaseConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "database_connections_open", Help: "Current number of open database connections"},
		),
		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "service_uptime_seconds", Help: "Service uptime in seconds"},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "service_info", Help: "Service information"},
			[]string{"service", "version", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.ErrorsTotal,
			m.QueueDepth,
			m.JobsEnqueuedTotal,
			m.JobsCompletedTotal,
			m.JobLeaseDuration,
			m.AgentRunsTotal,
			m.AgentRunDuration,
			m.LLMConcurrencyInUse,
			m.LLMCallDuration,
			m.DatabaseQueriesTotal,
			m.DatabaseQueryDuration,
			m.DatabaseConnectionsOpen,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0", getEnvironment()).Set(1)

	return m
}

func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordError(service, errorType, operation string) {
	m.ErrorsTotal.WithLabelValues(service, errorType, operation).Inc()
}

func (m *Metrics) RecordJobEnqueued(jobType string) {
	m.JobsEnqueuedTotal.WithLabelValues(jobType).Inc()
}

func (m *Metrics) RecordJobCompleted(jobType, status string, leaseDuration time.Duration) {
	m.JobsCompletedTotal.WithLabelValues(jobType, status).Inc()
	m.JobLeaseDuration.WithLabelValues(jobType).Observe(leaseDuration.Seconds())
}

func (m *Metrics) RecordAgentRun(agentType, status string, duration time.Duration) {
	m.AgentRunsTotal.WithLabelValues(agentType, status).Inc()
	m.AgentRunDuration.WithLabelValues(agentType).Observe(duration.Seconds())
}

func (m *Metrics) RecordLLMCall(operation string, duration time.Duration) {
	m.LLMCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordDatabaseQuery(service, operation, status string, duration time.Duration) {
	m.DatabaseQueriesTotal.WithLabelValues(service, operation, status).Inc()
	m.DatabaseQueryDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func (m *Metrics) SetDatabaseConnections(count int) {
	m.DatabaseConnectionsOpen.Set(float64(count))
}

func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

func (m *Metrics) IncrementInFlight() { m.RequestsInFlight.Inc() }
func (m *Metrics) DecrementInFlight() { m.RequestsInFlight.Dec() }

func getEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	if env == "" {
		return "development"
	}
	return env
}

// Enabled returns whether Prometheus metrics should be exposed.
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return true
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance.
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
