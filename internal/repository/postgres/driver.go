package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `
	id, name, phone, license_number, license_plate,
	vehicle_model, vehicle_year, vehicle_color, vehicle_class,
	online, approved, current_lat, current_lng, earnings_cents`

// Create adds a new driver profile.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (` + driverColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	var lat, lng sql.NullFloat64
	if driver.Location != nil {
		lat = sql.NullFloat64{Float64: driver.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: driver.Location.Lng, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.Name,
		driver.Phone,
		driver.LicenseNumber,
		driver.LicensePlate,
		driver.VehicleModel,
		driver.VehicleYear,
		driver.VehicleColor,
		driver.VehicleClass,
		driver.Online,
		driver.Approved,
		lat,
		lng,
		int64(driver.Earnings),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`
	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// SetOnline flips the driver's availability flag.
func (r *DriverRepository) SetOnline(ctx context.Context, id string, online bool) error {
	return r.exec(ctx, `UPDATE drivers SET online = $1 WHERE id = $2`, online, id)
}

// SetApproved flips the driver's approval flag.
func (r *DriverRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	return r.exec(ctx, `UPDATE drivers SET approved = $1 WHERE id = $2`, approved, id)
}

// UpdateLocation records the driver's last known position.
func (r *DriverRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	return r.exec(ctx, `UPDATE drivers SET current_lat = $1, current_lng = $2 WHERE id = $3`, lat, lng, id)
}

// AddEarnings credits a completed fare to the driver's cumulative earnings.
func (r *DriverRepository) AddEarnings(ctx context.Context, id string, amount domain.Money) error {
	return r.exec(ctx, `UPDATE drivers SET earnings_cents = earnings_cents + $1 WHERE id = $2`, int64(amount), id)
}

// FindAvailable returns online, approved drivers with a known location inside
// the bounding box. Ordering is not guaranteed.
func (r *DriverRepository) FindAvailable(ctx context.Context, q repository.AvailableQuery) ([]*domain.Driver, error) {
	query := `
		SELECT ` + driverColumns + ` FROM drivers
		WHERE online = TRUE AND approved = TRUE
			AND current_lat IS NOT NULL AND current_lng IS NOT NULL
			AND current_lat BETWEEN $1 AND $2
			AND current_lng BETWEEN $3 AND $4
	`
	args := []any{q.MinLat, q.MaxLat, q.MinLng, q.MaxLng}
	if q.VehicleClass != "" {
		query += ` AND vehicle_class = $5`
		args = append(args, q.VehicleClass)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(` LIMIT %d`, limit)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

func (r *DriverRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanDriver(s scanner) (*domain.Driver, error) {
	var driver domain.Driver
	var lat, lng sql.NullFloat64
	var earnings int64

	err := s.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Phone,
		&driver.LicenseNumber,
		&driver.LicensePlate,
		&driver.VehicleModel,
		&driver.VehicleYear,
		&driver.VehicleColor,
		&driver.VehicleClass,
		&driver.Online,
		&driver.Approved,
		&lat,
		&lng,
		&earnings,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		driver.Location = &domain.Location{Lat: lat.Float64, Lng: lng.Float64}
	}
	driver.Earnings = domain.Money(earnings)

	return &driver, nil
}
