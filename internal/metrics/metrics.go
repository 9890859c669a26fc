// Package metrics holds the Prometheus collectors of the submission server.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the server's Prometheus metrics.
type Metrics struct {
	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Submissions
	SubmissionsCreated prometheus.Counter
	ImagesStored       *prometheus.CounterVec

	// Listing cache
	ListCacheHits   prometheus.Counter
	ListCacheMisses prometheus.Counter
}

// Default returns the process-wide metrics, registering them with the
// default registry on first use.
//
// Metrics:
//   - oxisubmit_http_requests_total{route,method,status}
//   - oxisubmit_http_request_duration_seconds{route,method}
//   - oxisubmit_submissions_created_total
//   - oxisubmit_images_stored_total{backend}
//   - oxisubmit_list_cache_hits_total / oxisubmit_list_cache_misses_total
func Default() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "oxisubmit_http_requests_total",
					Help: "Total number of HTTP requests handled",
				},
				[]string{"route", "method", "status"},
			),
			RequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "oxisubmit_http_request_duration_seconds",
					Help:    "HTTP request latency",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"route", "method"},
			),
			SubmissionsCreated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "oxisubmit_submissions_created_total",
					Help: "Total number of submissions stored",
				},
			),
			ImagesStored: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "oxisubmit_images_stored_total",
					Help: "Total number of images stored",
				},
				[]string{"backend"},
			),
			ListCacheHits: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "oxisubmit_list_cache_hits_total",
					Help: "Listing requests served from the cache",
				},
			),
			ListCacheMisses: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "oxisubmit_list_cache_misses_total",
					Help: "Listing requests that went to the database",
				},
			),
		}
	})
	return globalMetrics
}
