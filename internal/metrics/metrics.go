// Package metrics exposes Prometheus collectors for site2pdf runs.
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

// Result labels shared by the crawl and render counters.
const (
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultSkipped  = "skipped"
	ResultTimedOut = "timed_out"
)

var (
	crawlFetchesTotal          *prometheus.CounterVec
	crawlDiscoveredTotal       prometheus.Counter
	renderPagesTotal           *prometheus.CounterVec
	renderSessionsActive       prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site2pdf_crawl_fetches_total",
				Help: "Crawl fetch-and-extract operations, labeled by site and result.",
			},
			[]string{"site", "result"},
		)

		crawlDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "site2pdf_crawl_discovered_total",
				Help: "Distinct URLs added to the discovered set.",
			},
		)

		renderPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site2pdf_render_pages_total",
				Help: "Render tasks, labeled by site and result.",
			},
			[]string{"site", "result"},
		)

		renderSessionsActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "site2pdf_render_sessions_active",
				Help: "Browser sessions currently open.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site2pdf_http_requests_total",
				Help: "Requests served by the metrics endpoint, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "site2pdf_http_request_duration_seconds",
				Help:    "Histogram of metrics endpoint latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
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

// ObserveFetch counts one crawl fetch-and-extract for site.
func ObserveFetch(site, result string) {
	Init()
	crawlFetchesTotal.WithLabelValues(SanitizeSite(site), result).Inc()
}

// ObserveDiscovered adds n newly discovered URLs.
func ObserveDiscovered(n int) {
	Init()
	if n > 0 {
		crawlDiscoveredTotal.Add(float64(n))
	}
}

// ObserveRender counts one finished render task for site.
func ObserveRender(site, result string) {
	Init()
	renderPagesTotal.WithLabelValues(SanitizeSite(site), result).Inc()
}

// IncActiveSessions increments the open browser sessions gauge.
func IncActiveSessions() {
	Init()
	renderSessionsActive.Inc()
}

// DecActiveSessions decrements the open browser sessions gauge.
func DecActiveSessions() {
	Init()
	renderSessionsActive.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
