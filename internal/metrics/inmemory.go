package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	HTTPRequests          uint64
	Registrations         map[string]uint64
	RegistrationDurations uint64
	DirectoryResolutions  map[string]uint64
	DirectoryCalls        map[string]uint64 // keyed by "op:outcome"
	Logins                map[string]uint64
	TokenRefreshes        map[string]uint64
	RateLimited           map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	httpRequests          uint64
	registrationDurations uint64

	mu                   sync.Mutex
	registrations        map[string]uint64
	directoryResolutions map[string]uint64
	directoryCalls       map[string]uint64
	logins               map[string]uint64
	tokenRefreshes       map[string]uint64
	rateLimited          map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		registrations:        make(map[string]uint64),
		directoryResolutions: make(map[string]uint64),
		directoryCalls:       make(map[string]uint64),
		logins:               make(map[string]uint64),
		tokenRefreshes:       make(map[string]uint64),
		rateLimited:          make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		HTTPRequests:          atomic.LoadUint64(&m.httpRequests),
		Registrations:         copyCounts(m.registrations),
		RegistrationDurations: atomic.LoadUint64(&m.registrationDurations),
		DirectoryResolutions:  copyCounts(m.directoryResolutions),
		DirectoryCalls:        copyCounts(m.directoryCalls),
		Logins:                copyCounts(m.logins),
		TokenRefreshes:        copyCounts(m.tokenRefreshes),
		RateLimited:           copyCounts(m.rateLimited),
	}
}

// ObserveHTTPRequest counts handled requests.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

// IncRegistration counts a registration by outcome.
func (m *InMemoryRecorder) IncRegistration(outcome string) {
	m.inc(m.registrations, outcome)
}

// ObserveRegistrationDuration counts timed registrations.
func (m *InMemoryRecorder) ObserveRegistrationDuration(duration time.Duration) {
	atomic.AddUint64(&m.registrationDurations, 1)
}

// IncDirectoryResolution counts how a directory identity was resolved.
func (m *InMemoryRecorder) IncDirectoryResolution(mode string) {
	m.inc(m.directoryResolutions, mode)
}

// ObserveDirectoryCall counts directory calls by operation and outcome.
func (m *InMemoryRecorder) ObserveDirectoryCall(op, outcome string, duration time.Duration) {
	m.inc(m.directoryCalls, op+":"+outcome)
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	m.inc(m.logins, outcome)
}

// IncTokenRefresh counts a refresh attempt by outcome.
func (m *InMemoryRecorder) IncTokenRefresh(outcome string) {
	m.inc(m.tokenRefreshes, outcome)
}

// IncRateLimited counts a rejected request by scope.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	m.inc(m.rateLimited, scope)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, key string) {
	m.mu.Lock()
	counts[key]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
