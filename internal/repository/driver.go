package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// AvailableQuery selects available drivers inside a bounding box.
type AvailableQuery struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	VehicleClass   domain.VehicleClass // empty means any class
	Limit          int
}

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver profile. Returns ErrDuplicate when the
	// license number or plate is already registered.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// SetOnline flips the driver's availability flag.
	SetOnline(ctx context.Context, id string, online bool) error

	// SetApproved flips the driver's approval flag.
	SetApproved(ctx context.Context, id string, approved bool) error

	// UpdateLocation records the driver's last known position.
	UpdateLocation(ctx context.Context, id string, lat, lng float64) error

	// FindAvailable returns online, approved drivers with a known location
	// inside the query's bounding box.
	FindAvailable(ctx context.Context, q AvailableQuery) ([]*domain.Driver, error)

	// AddEarnings credits a completed fare to the driver's cumulative earnings.
	AddEarnings(ctx context.Context, id string, amount domain.Money) error
}
