// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	// Registration metrics
	IncRegistration(outcome string) // outcome: "success" or an error kind
	ObserveRegistrationDuration(duration time.Duration)
	IncDirectoryResolution(mode string) // mode: "matched", "created", "conflict_resolved"

	// Directory client metrics
	ObserveDirectoryCall(op, outcome string, duration time.Duration)

	// Session metrics
	IncLogin(outcome string)
	IncTokenRefresh(outcome string)

	// Rate limiting
	IncRateLimited(scope string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
