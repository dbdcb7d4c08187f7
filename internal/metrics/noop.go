package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}

// IncRegistration is a no-op.
func (n *NoopRecorder) IncRegistration(outcome string) {}

// ObserveRegistrationDuration is a no-op.
func (n *NoopRecorder) ObserveRegistrationDuration(duration time.Duration) {}

// IncDirectoryResolution is a no-op.
func (n *NoopRecorder) IncDirectoryResolution(mode string) {}

// ObserveDirectoryCall is a no-op.
func (n *NoopRecorder) ObserveDirectoryCall(op, outcome string, duration time.Duration) {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(outcome string) {}

// IncTokenRefresh is a no-op.
func (n *NoopRecorder) IncTokenRefresh(outcome string) {}

// IncRateLimited is a no-op.
func (n *NoopRecorder) IncRateLimited(scope string) {}
