package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusOptions configures the Prometheus recorder.
type PrometheusOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
	Buckets    []float64
}

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	registrations    *prometheus.CounterVec
	registrationTime prometheus.Histogram
	resolutions      *prometheus.CounterVec
	directoryCalls   *prometheus.CounterVec
	directoryTime    *prometheus.HistogramVec
	logins           *prometheus.CounterVec
	refreshes        *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
}

// NewPrometheus constructs collectors and registers them with opts.Registerer.
func NewPrometheus(opts PrometheusOptions) (*PrometheusRecorder, error) {
	ns := opts.Namespace
	if ns == "" {
		ns = "koinonia"
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	r := &PrometheusRecorder{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests partitioned by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latencies in seconds.", Buckets: buckets,
		}, []string{"method", "route"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "registration", Name: "attempts_total",
			Help: "Registration attempts partitioned by outcome.",
		}, []string{"outcome"}),
		registrationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "registration", Name: "duration_seconds",
			Help: "End-to-end registration latency in seconds.", Buckets: buckets,
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "registration", Name: "directory_resolutions_total",
			Help: "How directory identities were resolved during registration.",
		}, []string{"mode"}),
		directoryCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "directory", Name: "calls_total",
			Help: "Directory API calls partitioned by operation and outcome.",
		}, []string{"op", "outcome"}),
		directoryTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "directory", Name: "call_duration_seconds",
			Help: "Directory API call latencies in seconds.", Buckets: buckets,
		}, []string{"op"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "auth", Name: "logins_total",
			Help: "Login attempts partitioned by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "auth", Name: "token_refreshes_total",
			Help: "Refresh token redemptions partitioned by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "http", Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter partitioned by scope.",
		}, []string{"scope"}),
	}

	collectors := []prometheus.Collector{
		r.httpRequests, r.httpDuration,
		r.registrations, r.registrationTime, r.resolutions,
		r.directoryCalls, r.directoryTime,
		r.logins, r.refreshes, r.rateLimited,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return r, nil
}

// ObserveHTTPRequest records a handled request.
func (r *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncRegistration records a registration outcome.
func (r *PrometheusRecorder) IncRegistration(outcome string) {
	r.registrations.WithLabelValues(outcome).Inc()
}

// ObserveRegistrationDuration records registration latency.
func (r *PrometheusRecorder) ObserveRegistrationDuration(duration time.Duration) {
	r.registrationTime.Observe(duration.Seconds())
}

// IncDirectoryResolution records how an identity was resolved.
func (r *PrometheusRecorder) IncDirectoryResolution(mode string) {
	r.resolutions.WithLabelValues(mode).Inc()
}

// ObserveDirectoryCall records a directory API call.
func (r *PrometheusRecorder) ObserveDirectoryCall(op, outcome string, duration time.Duration) {
	r.directoryCalls.WithLabelValues(op, outcome).Inc()
	r.directoryTime.WithLabelValues(op).Observe(duration.Seconds())
}

// IncLogin records a login outcome.
func (r *PrometheusRecorder) IncLogin(outcome string) {
	r.logins.WithLabelValues(outcome).Inc()
}

// IncTokenRefresh records a refresh outcome.
func (r *PrometheusRecorder) IncTokenRefresh(outcome string) {
	r.refreshes.WithLabelValues(outcome).Inc()
}

// IncRateLimited records a rate-limited request.
func (r *PrometheusRecorder) IncRateLimited(scope string) {
	r.rateLimited.WithLabelValues(scope).Inc()
}
