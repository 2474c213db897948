package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"overpass endpoint", "https://overpass-api.de/api/interpreter", "overpass-api.de"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, scansTotal)
	require.NotNil(t, auditsTotal)
	require.NotNil(t, providerRequestsTotal)
	require.NotNil(t, httpRequestsTotal)
}

func TestObserveHelpers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(scansTotal.WithLabelValues(OutcomeEmpty))
	ObserveScan(OutcomeEmpty)
	require.InDelta(t, before+1, testutil.ToFloat64(scansTotal.WithLabelValues(OutcomeEmpty)), 0.001)

	before = testutil.ToFloat64(providerRequestsTotal.WithLabelValues("osm", OutcomeFailure))
	ObserveProvider("osm", OutcomeFailure)
	require.InDelta(t, before+1, testutil.ToFloat64(providerRequestsTotal.WithLabelValues("osm", OutcomeFailure)), 0.001)

	before = testutil.ToFloat64(overpassAttemptsTotal.WithLabelValues("overpass-api.de", OutcomeSuccess))
	ObserveOverpassAttempt("https://overpass-api.de/api/interpreter", OutcomeSuccess)
	require.InDelta(t, before+1,
		testutil.ToFloat64(overpassAttemptsTotal.WithLabelValues("overpass-api.de", OutcomeSuccess)), 0.001)

	SetQueueDepth(3)
	require.InDelta(t, 3, testutil.ToFloat64(queueDepth), 0.001)

	ObserveAudit(OutcomeSuccess, 250*time.Millisecond)
	ObserveLeadScore(35)
	ObserveRateLimitDelay("nominatim.openstreetmap.org", time.Second)
	ObserveTLSHandshakeRetry()
	require.Positive(t, testutil.CollectAndCount(auditDurationSeconds))
	require.Positive(t, testutil.CollectAndCount(leadScores))
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
