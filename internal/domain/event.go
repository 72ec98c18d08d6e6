package domain

import "time"

// EventType identifies a lifecycle event fanned out to subscribers.
type EventType string

const (
	EventRideRequested         EventType = "ride_requested"
	EventRideAccepted          EventType = "ride_accepted"
	EventRideStatusUpdated     EventType = "ride_status_updated"
	EventRideCancelled         EventType = "ride_cancelled"
	EventRideCompleted         EventType = "ride_completed"
	EventDriverStatusUpdated   EventType = "driver_status_updated"
	EventDriverLocationUpdated EventType = "driver_location_updated"
)

// Event is a single state-change notification. Delivery is at-most-once and
// best-effort; within one ride, events follow the order the underlying
// transitions were committed.
type Event struct {
	Type      EventType      `json:"type"`
	RideID    string         `json:"ride_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Topic names. Subscription membership is transient; an event published to a
// topic with no subscribers is dropped.
const TopicDrivers = "drivers"

// TopicRider is the per-rider topic.
func TopicRider(riderID string) string { return "rider:" + riderID }

// TopicDriver is the per-driver topic.
func TopicDriver(driverID string) string { return "driver:" + driverID }

// TopicRide is the per-ride topic for ride-scoped observers.
func TopicRide(rideID string) string { return "ride:" + rideID }
