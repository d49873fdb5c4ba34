package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Authentication - noop implementations
func (n *NoopMetrics) RecordAuthAttempt(directory string, success bool, duration time.Duration) {}
func (n *NoopMetrics) RecordLogin(result string)                                               {}
func (n *NoopMetrics) RecordLogout(sessionDuration time.Duration)                              {}

// SSO sessions - noop implementations
func (n *NoopMetrics) RecordSessionIssued()                                             {}
func (n *NoopMetrics) RecordSessionValidation(result string, duration time.Duration)    {}
func (n *NoopMetrics) RecordSessionInvalidated(reason string)                           {}

// Directory API - noop implementations
func (n *NoopMetrics) RecordDirectoryCall(operation string, success bool, duration time.Duration) {}

// Cache - noop implementations
func (n *NoopMetrics) RecordCacheLookup(hit bool) {}

// Audit - noop implementations
func (n *NoopMetrics) RecordAuditWriteError() {}
