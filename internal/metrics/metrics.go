// Package metrics exposes Prometheus collectors for the lead-finder service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
)

var (
	scansTotal                 *prometheus.CounterVec
	auditsTotal                *prometheus.CounterVec
	auditDurationSeconds       prometheus.Histogram
	leadScores                 prometheus.Histogram
	providerRequestsTotal      *prometheus.CounterVec
	overpassAttemptsTotal      *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	tlsHandshakeRetriesTotal   prometheus.Counter
	queueDepth                 prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadfinder_scans_total",
				Help: "Total number of scan requests processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		auditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadfinder_audits_total",
				Help: "Total number of site audits, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		auditDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leadfinder_audit_duration_seconds",
				Help:    "Histogram of site audit durations including contact probes.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
			},
		)

		leadScores = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leadfinder_lead_score",
				Help:    "Distribution of persisted lead scores.",
				Buckets: []float64{0, 5, 10, 15, 20, 25, 30, 35},
			},
		)

		providerRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadfinder_provider_requests_total",
				Help: "Total discovery provider invocations, labeled by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		)

		overpassAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadfinder_overpass_attempts_total",
				Help: "Total Overpass API attempts, labeled by endpoint host and outcome.",
			},
			[]string{"endpoint", "outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		tlsHandshakeRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "leadfinder_tls_handshake_retries_total",
				Help: "Total fetch retries caused by TLS handshake timeouts.",
			},
		)

		queueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadfinder_queue_depth",
				Help: "Number of scan requests waiting in the queue.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadfinder_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScan increments the scan counter for the given outcome.
func ObserveScan(outcome string) {
	Init()
	scansTotal.WithLabelValues(outcome).Inc()
}

// ObserveAudit records one audit outcome and its duration.
func ObserveAudit(outcome string, duration time.Duration) {
	Init()
	auditsTotal.WithLabelValues(outcome).Inc()
	auditDurationSeconds.Observe(duration.Seconds())
}

// ObserveLeadScore records a persisted score.
func ObserveLeadScore(score int) {
	Init()
	leadScores.Observe(float64(score))
}

// ObserveProvider records one provider invocation.
func ObserveProvider(provider, outcome string) {
	Init()
	providerRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveOverpassAttempt records one Overpass request attempt.
func ObserveOverpassAttempt(endpoint, outcome string) {
	Init()
	overpassAttemptsTotal.WithLabelValues(SanitizeSite(endpoint), outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveTLSHandshakeRetry increments the handshake retry counter.
func ObserveTLSHandshakeRetry() {
	Init()
	tlsHandshakeRetriesTotal.Inc()
}

// SetQueueDepth records the current queue length.
func SetQueueDepth(n int) {
	Init()
	queueDepth.Set(float64(n))
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}
