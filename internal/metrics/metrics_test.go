package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
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
	first := crawlFetchesTotal
	Init()
	if crawlFetchesTotal != first {
		t.Fatal("Init() replaced collectors on second call")
	}
}

func TestObserveFetchAndRender(t *testing.T) {
	ObserveFetch("https://fetch.example/a", ResultOK)
	ObserveFetch("https://fetch.example/b", ResultOK)
	ObserveFetch("https://fetch.example/c", ResultSkipped)
	if got := testutil.ToFloat64(crawlFetchesTotal.WithLabelValues("fetch.example", ResultOK)); got != 2 {
		t.Fatalf("ok fetches = %v, want 2", got)
	}

	ObserveRender("https://render.example/a", ResultTimedOut)
	if got := testutil.ToFloat64(renderPagesTotal.WithLabelValues("render.example", ResultTimedOut)); got != 1 {
		t.Fatalf("timed out renders = %v, want 1", got)
	}
}

func TestActiveSessionsGauge(t *testing.T) {
	base := func() float64 { Init(); return testutil.ToFloat64(renderSessionsActive) }()
	IncActiveSessions()
	IncActiveSessions()
	DecActiveSessions()
	if got := testutil.ToFloat64(renderSessionsActive); got != base+1 {
		t.Fatalf("active sessions = %v, want %v", got, base+1)
	}
	DecActiveSessions()
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
