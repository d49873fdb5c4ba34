package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	resultSuccess = "success"
	resultError   = "error"
	resultFailure = "failure"
)

// HTTPMetricsMiddleware creates a Gin middleware that records HTTP metrics
func HTTPMetricsMiddleware(m Recorder) gin.HandlerFunc {
	// If NoopMetrics, return a lightweight middleware that does nothing
	if _, ok := m.(*NoopMetrics); ok {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// Type assert to concrete Metrics for Prometheus access
	metrics, ok := m.(*Metrics)
	if !ok {
		// Fallback if unknown implementation
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		// Increment in-flight counter
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		// Process request
		c.Next()

		// Record metrics after request completes
		duration := time.Since(start).Seconds()
		method := c.Request.Method
		path := normalizePath(c.FullPath()) // Use route pattern, not actual path
		status := strconv.Itoa(c.Writer.Status())

		// Record request count
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()

		// Record request duration
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// normalizePath converts the actual request path to route pattern
// Returns the route pattern (e.g., "/users/:id") or the path itself if no match
func normalizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

// RecordAuthAttempt records a credential verification attempt
func (m *Metrics) RecordAuthAttempt(directory string, success bool, duration time.Duration) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthAttemptsTotal.WithLabelValues(directory, result).Inc()
	m.AuthLoginDuration.WithLabelValues(directory).Observe(duration.Seconds())
}

// RecordLogin records a login attempt outcome
func (m *Metrics) RecordLogin(result string) {
	// result: success, rejected, error
	m.AuthLoginTotal.WithLabelValues(result).Inc()
}

// RecordLogout records a logout and the session's lifetime
func (m *Metrics) RecordLogout(sessionDuration time.Duration) {
	m.AuthLogoutTotal.Inc()
	m.SessionDuration.Observe(sessionDuration.Seconds())
}

// RecordSessionIssued records a new SSO session token
func (m *Metrics) RecordSessionIssued() {
	m.SessionsIssuedTotal.Inc()
}

// RecordSessionValidation records an SSO token validation
func (m *Metrics) RecordSessionValidation(result string, duration time.Duration) {
	// result: valid, invalid, error
	m.SessionValidationTotal.WithLabelValues(result).Inc()
	m.SessionValidationDuration.Observe(duration.Seconds())
}

// RecordSessionInvalidated records an SSO session invalidation
func (m *Metrics) RecordSessionInvalidated(reason string) {
	m.SessionsInvalidatedTotal.WithLabelValues(reason).Inc()
}

// RecordDirectoryCall records a directory REST API call
func (m *Metrics) RecordDirectoryCall(operation string, success bool, duration time.Duration) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.DirectoryRequestsTotal.WithLabelValues(operation, result).Inc()
	m.DirectoryRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheLookup records a session cache lookup
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordAuditWriteError records a failed audit log write
func (m *Metrics) RecordAuditWriteError() {
	m.AuditWriteErrorsTotal.Inc()
}

// String formats the metrics for logging
func (m *Metrics) String() string {
	return "Metrics{Auth: active, Sessions: active, HTTP: enabled}"
}
