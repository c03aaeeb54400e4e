// Package metrics defines the prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filx_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filx_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filx_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Interaction Metrics
	InteractionToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filx_interaction_toggles_total",
			Help: "Total number of like, bookmark and follow toggles",
		},
		[]string{"type", "state"}, // state: "on", "off"
	)

	// Aggregation Metrics
	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filx_aggregation_duration_seconds",
			Help:    "Duration of feed, trending and explore computations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"view"},
	)

	// Index Sync Metrics
	IndexSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filx_index_sync_duration_seconds",
			Help:    "Duration of search index reconciliation",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	IndexSyncDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filx_index_sync_documents_total",
			Help: "Documents handled by index reconciliation",
		},
		[]string{"outcome"}, // "new", "updated", "skipped", "removed", "error"
	)

	IndexedDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filx_indexed_documents",
			Help: "Number of documents in the search index",
		},
	)
)

// RecordAPIRequest records one completed request
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordToggle records the new state of a toggled interaction
func RecordToggle(kind string, active bool) {
	state := "off"
	if active {
		state = "on"
	}
	InteractionToggles.WithLabelValues(kind, state).Inc()
}

// ObserveAggregation times a feed, trending or explore computation.
// Use as: defer metrics.ObserveAggregation("feed", time.Now())
func ObserveAggregation(view string, start time.Time) {
	AggregationDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
}

// RecordIndexSync records the outcome of one reconciliation pass
func RecordIndexSync(duration time.Duration, added, updated, skipped, removed, errors int) {
	IndexSyncDuration.Observe(duration.Seconds())
	IndexSyncDocuments.WithLabelValues("new").Add(float64(added))
	IndexSyncDocuments.WithLabelValues("updated").Add(float64(updated))
	IndexSyncDocuments.WithLabelValues("skipped").Add(float64(skipped))
	IndexSyncDocuments.WithLabelValues("removed").Add(float64(removed))
	IndexSyncDocuments.WithLabelValues("error").Add(float64(errors))
}
