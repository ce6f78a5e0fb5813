/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelter_api_requests_total",
		Help: "Total number of API requests.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shelter_api_request_duration_seconds",
		Help:    "API request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shelter_api_active_connections",
		Help: "Number of in-flight API requests.",
	})
)

// Timeline metrics
var (
	TimelineAssemblyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shelter_timeline_assembly_duration_seconds",
		Help:    "Time spent assembling the occupancy timeline.",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	})

	TimelineConflicts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shelter_timeline_conflicts",
		Help: "Number of conflicting stays in the most recently assembled timeline.",
	})

	TimelineStays = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shelter_timeline_stays",
		Help: "Number of stays in the most recently assembled timeline.",
	})
)

// Materializer metrics
var (
	MaterializerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelter_materializer_ticks_total",
		Help: "Total number of reservation materializer runs.",
	})

	MaterializerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelter_materializer_errors_total",
		Help: "Total number of reservation materializer failures.",
	})

	MaterializedStays = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelter_materialized_stays_total",
		Help: "Total number of stays expanded from recurring reservations.",
	})
)

// Inventory metrics
var (
	InventoryLowStockItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shelter_inventory_low_stock_items",
		Help: "Number of inventory items at or below their reorder level.",
	})

	InventoryAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelter_inventory_adjustments_total",
		Help: "Total number of inventory stock adjustments.",
	}, []string{"direction"})
)

// Infrastructure metrics
var (
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shelter_database_connections_active",
		Help: "Number of active database connections.",
	})

	LeaderElectionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "shelter_leader_election_status",
		Help: "Leader election status (1 = leader, 0 = follower).",
	}, []string{"instance_id"})

	LeaderElectionChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelter_leader_election_changes_total",
		Help: "Total number of leadership transitions.",
	}, []string{"instance_id", "transition"})

	EventsWebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shelter_events_websocket_clients",
		Help: "Number of connected event feed WebSocket clients.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
