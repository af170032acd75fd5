// Tetatet - Real-Time One-to-One Chat
// Copyright 2026 Tetatet Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tetatet-chat/tetatet

// Package metrics provides Prometheus instrumentation for the API surface,
// the SQLite repositories, and the realtime delivery path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Database metrics

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlite_query_duration_seconds",
			Help:    "Duration of SQLite queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlite_query_errors_total",
			Help: "Total number of SQLite query errors",
		},
		[]string{"operation", "table"},
	)

	// Realtime delivery metrics

	WSActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Current number of registered websocket sessions",
		},
	)

	WSEventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_delivered_total",
			Help: "Total number of events enqueued for delivery",
		},
		[]string{"event_type"},
	)

	WSEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_dropped_total",
			Help: "Total number of events dropped instead of delivered",
		},
		[]string{"reason"}, // "offline", "buffer_full", "write_error"
	)

	WSAuthRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_auth_rejections_total",
			Help: "Total number of websocket upgrades rejected at authentication",
		},
	)
)

// Drop reasons for WSEventsDropped.
const (
	DropOffline    = "offline"
	DropBufferFull = "buffer_full"
	DropWriteError = "write_error"
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records a repository query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}
