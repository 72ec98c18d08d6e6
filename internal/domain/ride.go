package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested         RideStatus = "requested"
	RideStatusAccepted          RideStatus = "accepted"
	RideStatusDriverArrived     RideStatus = "driver_arrived"
	RideStatusInProgress        RideStatus = "in_progress"
	RideStatusCompleted         RideStatus = "completed"
	RideStatusCancelledByRider  RideStatus = "cancelled_by_rider"
	RideStatusCancelledByDriver RideStatus = "cancelled_by_driver"
)

// PaymentStatus tracks the payment state of a ride. Payment capture itself
// is handled outside this service; the ride only carries the flag.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// successors is the ride lifecycle graph. Cancellation is legal up to and
// including driver_arrived; an in-progress ride can only complete.
var successors = map[RideStatus][]RideStatus{
	RideStatusRequested:     {RideStatusAccepted, RideStatusCancelledByRider, RideStatusCancelledByDriver},
	RideStatusAccepted:      {RideStatusDriverArrived, RideStatusCancelledByRider, RideStatusCancelledByDriver},
	RideStatusDriverArrived: {RideStatusInProgress, RideStatusCancelledByRider, RideStatusCancelledByDriver},
	RideStatusInProgress:    {RideStatusCompleted},
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to RideStatus) bool {
	for _, s := range successors[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no successors.
func (s RideStatus) IsTerminal() bool {
	switch s {
	case RideStatusCompleted, RideStatusCancelledByRider, RideStatusCancelledByDriver:
		return true
	}
	return false
}

// IsCancelled reports whether the status is one of the cancelled exits.
func (s RideStatus) IsCancelled() bool {
	return s == RideStatusCancelledByRider || s == RideStatusCancelledByDriver
}

// ActiveStatuses are the non-terminal statuses; a rider may hold at most one
// ride in any of them.
func ActiveStatuses() []RideStatus {
	return []RideStatus{RideStatusRequested, RideStatusAccepted, RideStatusDriverArrived, RideStatusInProgress}
}

// DriverActiveStatuses are the statuses that bind a driver to a ride.
func DriverActiveStatuses() []RideStatus {
	return []RideStatus{RideStatusAccepted, RideStatusDriverArrived, RideStatusInProgress}
}

// GeoPoint is a coordinate pair with a free-text address.
type GeoPoint struct {
	Lat     float64
	Lng     float64
	Address string
}

// Ride represents one transportation request tracked through its lifecycle.
// Lifecycle timestamps are each set at most once, in transition order;
// exactly one of CompletedAt/CancelledAt is ever set.
type Ride struct {
	ID              string
	RiderID         string
	DriverID        string // empty until accepted; retained after cancellation
	Status          RideStatus
	Pickup          GeoPoint
	Destination     GeoPoint
	VehicleClass    VehicleClass
	SpecialRequests string

	EstimatedDistanceKm  float64
	EstimatedDurationMin float64
	ActualDistanceKm     float64 // recorded at completion; 0 means "use estimate"
	ActualDurationMin    float64

	Fare          FareBreakdown
	PaymentStatus PaymentStatus

	RequestedAt  time.Time
	AcceptedAt   time.Time
	ArrivedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	CancelledAt  time.Time
	CancelReason string
}
