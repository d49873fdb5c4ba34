package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/go-crowd/crowdgate/internal/core"
)

// Recorder is the metrics interface consumed by the rest of the application.
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authentication Metrics
	AuthAttemptsTotal *prometheus.CounterVec
	AuthLoginTotal    *prometheus.CounterVec
	AuthLogoutTotal   prometheus.Counter
	AuthLoginDuration *prometheus.HistogramVec

	// SSO Session Metrics
	SessionsIssuedTotal       prometheus.Counter
	SessionValidationTotal    *prometheus.CounterVec
	SessionValidationDuration prometheus.Histogram
	SessionsInvalidatedTotal  *prometheus.CounterVec
	SessionDuration           prometheus.Histogram

	// Directory API Metrics
	DirectoryRequestsTotal   *prometheus.CounterVec
	DirectoryRequestDuration *prometheus.HistogramVec

	// Cache Metrics
	CacheLookupsTotal *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Audit Metrics
	AuditWriteErrorsTotal prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		// Authentication Metrics
		AuthAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Total number of credential verification attempts",
			},
			[]string{"directory", "result"}, // result: success, failure
		),
		AuthLoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"}, // success, rejected, error
		),
		AuthLogoutTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Total number of logouts",
			},
		),
		AuthLoginDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_login_duration_seconds",
				Help:    "Time taken to complete a credential verification",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"directory"},
		),

		// SSO Session Metrics
		SessionsIssuedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sso_sessions_issued_total",
				Help: "Total number of SSO session tokens issued",
			},
		),
		SessionValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sso_session_validation_total",
				Help: "Total number of SSO token validations",
			},
			[]string{"result"}, // valid, invalid, error
		),
		SessionValidationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sso_session_validation_duration_seconds",
				Help:    "Time taken to validate an SSO token",
				Buckets: prometheus.DefBuckets,
			},
		),
		SessionsInvalidatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sso_sessions_invalidated_total",
				Help: "Total number of SSO sessions invalidated",
			},
			[]string{"reason"}, // logout, logout_everywhere, admin
		),
		SessionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "sso_session_duration_seconds",
				Help: "Duration of SSO sessions at logout",
				Buckets: []float64{
					60,
					300,
					600,
					1800,
					3600,
					7200,
					14400,
					28800,
				}, // 1m, 5m, 10m, 30m, 1h, 2h, 4h, 8h
			},
		),

		// Directory API Metrics
		DirectoryRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_requests_total",
				Help: "Total number of directory REST API calls",
			},
			[]string{"operation", "result"}, // result: success, error
		),
		DirectoryRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "directory_request_duration_seconds",
				Help:    "Latency of directory REST API calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		// Cache Metrics
		CacheLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_cache_lookups_total",
				Help: "Total number of session cache lookups",
			},
			[]string{"result"}, // hit, miss
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		// Audit Metrics
		AuditWriteErrorsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_write_errors_total",
				Help: "Total number of failed audit log writes",
			},
		),
	}

	return m
}
