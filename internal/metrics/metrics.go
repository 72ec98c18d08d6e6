package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesRequested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridedispatch", Name: "rides_requested_total",
		Help: "Total ride requests created",
	})
	RidesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridedispatch", Name: "rides_accepted_total",
		Help: "Total rides claimed by a driver",
	})
	RidesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridedispatch", Name: "rides_completed_total",
		Help: "Total rides completed",
	})
	RidesCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ridedispatch", Name: "rides_cancelled_total",
		Help: "Total rides cancelled, by cancelling party",
	}, []string{"by"})
	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridedispatch", Name: "accept_conflicts_total",
		Help: "Acceptance attempts that lost the conditional write race",
	})
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ridedispatch", Name: "events_published_total",
		Help: "Lifecycle events published, by type",
	}, []string{"type"})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridedispatch", Name: "events_dropped_total",
		Help: "Events dropped because a subscriber was absent or slow",
	})
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ridedispatch", Name: "ws_connections",
		Help: "Currently connected websocket clients",
	})
)
