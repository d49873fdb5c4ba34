package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Authentication
	RecordAuthAttempt(directory string, success bool, duration time.Duration)
	RecordLogin(result string)
	RecordLogout(sessionDuration time.Duration)

	// SSO sessions
	RecordSessionIssued()
	RecordSessionValidation(result string, duration time.Duration)
	RecordSessionInvalidated(reason string)

	// Directory API calls
	RecordDirectoryCall(operation string, success bool, duration time.Duration)

	// Cache
	RecordCacheLookup(hit bool)

	// Audit persistence
	RecordAuditWriteError()
}
