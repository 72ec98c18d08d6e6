package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `
	id, rider_id, driver_id, status,
	pickup_lat, pickup_lng, pickup_address,
	destination_lat, destination_lng, destination_address,
	vehicle_class, special_requests,
	estimated_distance_km, estimated_duration_min,
	actual_distance_km, actual_duration_min,
	fare_base_cents, fare_distance_cents, fare_time_cents, fare_total_cents,
	payment_status,
	requested_at, accepted_at, arrived_at, started_at, completed_at, cancelled_at, cancel_reason`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		nullString(ride.DriverID),
		ride.Status,
		ride.Pickup.Lat,
		ride.Pickup.Lng,
		ride.Pickup.Address,
		ride.Destination.Lat,
		ride.Destination.Lng,
		ride.Destination.Address,
		ride.VehicleClass,
		nullString(ride.SpecialRequests),
		ride.EstimatedDistanceKm,
		ride.EstimatedDurationMin,
		nullFloat(ride.ActualDistanceKm),
		nullFloat(ride.ActualDurationMin),
		int64(ride.Fare.Base),
		int64(ride.Fare.Distance),
		int64(ride.Fare.Time),
		int64(ride.Fare.Total),
		ride.PaymentStatus,
		ride.RequestedAt,
		nullTime(ride.AcceptedAt),
		nullTime(ride.ArrivedAt),
		nullTime(ride.StartedAt),
		nullTime(ride.CompletedAt),
		nullTime(ride.CancelledAt),
		nullString(ride.CancelReason),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// GetActiveByRiderID returns the rider's non-terminal ride, or nil.
func (r *RideRepository) GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE rider_id = $1 AND status = ANY($2) LIMIT 1`
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, riderID, pq.Array(statusStrings(domain.ActiveStatuses()))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ride, nil
}

// GetActiveByDriverID returns the ride the driver is actively serving, or nil.
func (r *RideRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 AND status = ANY($2) LIMIT 1`
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, driverID, pq.Array(statusStrings(domain.DriverActiveStatuses()))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ride, nil
}

// Accept atomically claims a requested ride for a driver. The WHERE clause on
// the current status is the serialization point between concurrent claims:
// exactly one caller sees one row affected.
func (r *RideRepository) Accept(ctx context.Context, rideID, driverID string, at time.Time) (int64, error) {
	query := `
		UPDATE rides SET driver_id = $1, status = $2, accepted_at = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.q.ExecContext(ctx, query, driverID, domain.RideStatusAccepted, at, rideID, domain.RideStatusRequested)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpdateStatus advances a ride between non-terminal statuses, stamping the
// timestamp that belongs to the target status.
func (r *RideRepository) UpdateStatus(ctx context.Context, rideID string, from, to domain.RideStatus, at time.Time) (int64, error) {
	var column string
	switch to {
	case domain.RideStatusDriverArrived:
		column = "arrived_at"
	case domain.RideStatusInProgress:
		column = "started_at"
	default:
		return 0, fmt.Errorf("status %s has no intermediate timestamp", to)
	}

	query := fmt.Sprintf(`UPDATE rides SET status = $1, %s = $2 WHERE id = $3 AND status = $4`, column)
	result, err := r.q.ExecContext(ctx, query, to, at, rideID, from)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Complete moves an in_progress ride to completed with its settlement.
func (r *RideRepository) Complete(ctx context.Context, rideID string, res repository.Completion) (int64, error) {
	query := `
		UPDATE rides SET status = $1, completed_at = $2,
			actual_distance_km = $3, actual_duration_min = $4,
			fare_base_cents = $5, fare_distance_cents = $6, fare_time_cents = $7, fare_total_cents = $8,
			payment_status = $9
		WHERE id = $10 AND status = $11
	`
	result, err := r.q.ExecContext(ctx, query,
		domain.RideStatusCompleted,
		res.At,
		res.ActualDistanceKm,
		res.ActualDurationMin,
		int64(res.Fare.Base),
		int64(res.Fare.Distance),
		int64(res.Fare.Time),
		int64(res.Fare.Total),
		domain.PaymentStatusCompleted,
		rideID,
		domain.RideStatusInProgress,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Cancel moves a ride from a cancellable status to a cancelled exit.
func (r *RideRepository) Cancel(ctx context.Context, rideID string, from, to domain.RideStatus, reason string, at time.Time) (int64, error) {
	query := `
		UPDATE rides SET status = $1, cancelled_at = $2, cancel_reason = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.q.ExecContext(ctx, query, to, at, nullString(reason), rideID, from)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListByParticipant returns rides where the user is rider or driver.
func (r *RideRepository) ListByParticipant(ctx context.Context, userID string, status domain.RideStatus, limit int) ([]*domain.Ride, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + rideColumns + ` FROM rides WHERE (rider_id = $1 OR driver_id = $1)`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY requested_at DESC LIMIT %d`, limit)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// CountCompletedByDriverID returns the driver's completed ride count.
func (r *RideRepository) CountCompletedByDriverID(ctx context.Context, driverID string) (int, error) {
	query := `SELECT COUNT(*) FROM rides WHERE driver_id = $1 AND status = $2`
	var count int
	err := r.q.QueryRowContext(ctx, query, driverID, domain.RideStatusCompleted).Scan(&count)
	return count, err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRide(s scanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, specialRequests, cancelReason sql.NullString
	var actualDistance, actualDuration sql.NullFloat64
	var baseCents, distanceCents, timeCents, totalCents int64
	var acceptedAt, arrivedAt, startedAt, completedAt, cancelledAt sql.NullTime

	err := s.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&ride.Status,
		&ride.Pickup.Lat,
		&ride.Pickup.Lng,
		&ride.Pickup.Address,
		&ride.Destination.Lat,
		&ride.Destination.Lng,
		&ride.Destination.Address,
		&ride.VehicleClass,
		&specialRequests,
		&ride.EstimatedDistanceKm,
		&ride.EstimatedDurationMin,
		&actualDistance,
		&actualDuration,
		&baseCents,
		&distanceCents,
		&timeCents,
		&totalCents,
		&ride.PaymentStatus,
		&ride.RequestedAt,
		&acceptedAt,
		&arrivedAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
		&cancelReason,
	)
	if err != nil {
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.SpecialRequests = specialRequests.String
	ride.CancelReason = cancelReason.String
	ride.ActualDistanceKm = actualDistance.Float64
	ride.ActualDurationMin = actualDuration.Float64
	ride.Fare = domain.FareBreakdown{
		Base:     domain.Money(baseCents),
		Distance: domain.Money(distanceCents),
		Time:     domain.Money(timeCents),
		Total:    domain.Money(totalCents),
	}
	ride.AcceptedAt = acceptedAt.Time
	ride.ArrivedAt = arrivedAt.Time
	ride.StartedAt = startedAt.Time
	ride.CompletedAt = completedAt.Time
	ride.CancelledAt = cancelledAt.Time

	return &ride, nil
}

func statusStrings(statuses []domain.RideStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: f != 0}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
