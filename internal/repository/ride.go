package repository

import (
	"context"
	"time"

	"ridedispatch/internal/domain"
)

// Completion carries the settlement recorded when a ride completes.
type Completion struct {
	ActualDistanceKm  float64
	ActualDurationMin float64
	Fare              domain.FareBreakdown
	At                time.Time
}

// RideRepository defines the persistence operations for rides.
//
// The conditional mutations (Accept, UpdateStatus, Complete, Cancel) specify
// both the ride id and the expected current status, and report how many rows
// they affected. Zero means the caller lost the race to a concurrent commit;
// the store's atomic conditional write is the only serialization point, so
// callers must never fall back to read-modify-write.
type RideRepository interface {
	// Create persists a new ride in requested state.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetActiveByRiderID returns the rider's non-terminal ride, or nil.
	GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Ride, error)

	// GetActiveByDriverID returns the ride the driver is actively serving, or nil.
	GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Ride, error)

	// Accept atomically claims a requested ride for a driver and stamps
	// accepted_at. Returns the number of rows affected.
	Accept(ctx context.Context, rideID, driverID string, at time.Time) (int64, error)

	// UpdateStatus advances a ride from one non-terminal status to the next
	// and stamps the timestamp that corresponds to the target status.
	UpdateStatus(ctx context.Context, rideID string, from, to domain.RideStatus, at time.Time) (int64, error)

	// Complete moves an in_progress ride to completed, recording the
	// settlement fare and actual distance/duration.
	Complete(ctx context.Context, rideID string, res Completion) (int64, error)

	// Cancel moves a ride from a cancellable status to a cancelled exit.
	Cancel(ctx context.Context, rideID string, from, to domain.RideStatus, reason string, at time.Time) (int64, error)

	// ListByParticipant returns rides where the user is rider or driver,
	// newest first, optionally filtered by status.
	ListByParticipant(ctx context.Context, userID string, status domain.RideStatus, limit int) ([]*domain.Ride, error)

	// CountCompletedByDriverID returns the driver's completed ride count.
	CountCompletedByDriverID(ctx context.Context, driverID string) (int, error)
}
