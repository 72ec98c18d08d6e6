package redis

import (
	"context"

	"ridedispatch/internal/domain"
)

// CacheStoreInterface defines the snapshot cache operations consumed by the
// services. Failures are always safe to swallow: the record store is the
// source of truth.
type CacheStoreInterface interface {
	GetRide(ctx context.Context, rideID string) (*domain.Ride, error)
	SetRide(ctx context.Context, ride *domain.Ride) error
	InvalidateRide(ctx context.Context, rideID string) error
	GetDriver(ctx context.Context, driverID string) (*domain.Driver, error)
	SetDriver(ctx context.Context, driver *domain.Driver) error
	InvalidateDriver(ctx context.Context, driverID string) error
	GetDriverStats(ctx context.Context, driverID string) (*DriverStats, error)
	SetDriverStats(ctx context.Context, stats *DriverStats) error
	InvalidateDriverStats(ctx context.Context, driverID string) error
	SetDriverLocation(ctx context.Context, driverID string, loc domain.Location) error
	GetDriverLocation(ctx context.Context, driverID string) (*domain.Location, error)
}

// LocationStoreInterface defines the live geo index operations.
type LocationStoreInterface interface {
	Update(ctx context.Context, driverID string, lat, lng float64) error
	Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error)
	Remove(ctx context.Context, driverID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ CacheStoreInterface    = (*CacheStore)(nil)
	_ LocationStoreInterface = (*LocationStore)(nil)
)
