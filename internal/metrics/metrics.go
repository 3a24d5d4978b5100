// Package metrics exposes Prometheus collectors for the actors service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Item outcomes recorded by ObserveExtractedItem.
const (
	ItemExtracted = "extracted"
	ItemSkipped   = "skipped"
	ItemFailed    = "failed"
)

var (
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
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	scraperFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_fetch_total",
			Help: "Total number of listing page fetches, labeled by site and status.",
		},
		[]string{"site", "status"},
	)

	scraperFetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_fetch_duration_seconds",
			Help:    "Histogram of successful listing page fetch durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"site"},
	)

	scraperItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_items_total",
			Help: "Total number of listing items seen, labeled by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	actorsSeededTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actors_seeded_total",
			Help: "Total number of actor records inserted by seeding, labeled by source.",
		},
		[]string{"source"},
	)

	actorChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actor_changes_total",
			Help: "Total number of actor mutations, labeled by change type.",
		},
		[]string{"type"},
	)

	httpRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Total number of API requests rejected by the per-key rate limiter.",
		},
	)

	actorChangePublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "actor_change_publish_failures_total",
			Help: "Total number of change events that could not be published.",
		},
	)
)

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

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveFetch records one listing page fetch. Duration is only observed
// for successful fetches.
func ObserveFetch(rawURL, status string, duration time.Duration) {
	site := SanitizeSite(rawURL)
	scraperFetchTotal.WithLabelValues(site, status).Inc()
	if duration > 0 {
		scraperFetchDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
	}
}

// ObserveExtractedItem counts one listing item by outcome.
func ObserveExtractedItem(source, outcome string) {
	scraperItemsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveSeeded adds n to the seeded records counter.
func ObserveSeeded(source string, n int) {
	if n <= 0 {
		return
	}
	actorsSeededTotal.WithLabelValues(source).Add(float64(n))
}

// ObserveChange counts a successful actor mutation.
func ObserveChange(changeType string) {
	actorChangesTotal.WithLabelValues(changeType).Inc()
}

// ObservePublishFailure counts a change event that was dropped.
func ObservePublishFailure() {
	actorChangePublishFailuresTotal.Inc()
}

// ObserveRateLimited counts an API request rejected with 429.
func ObserveRateLimited() {
	httpRateLimitedTotal.Inc()
}
