package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"ridedispatch/internal/domain"
)

// CacheStore mirrors ride and driver snapshots in Redis. It is a disposable
// read accelerator: every successful mutation rewrites the snapshot, reads
// fall through to the record store on a miss, and it is never consulted to
// decide whether a write may proceed.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Snapshot TTLs. Volatile fields get the shortest TTL.
const (
	RideSnapshotTTL   = 30 * time.Minute
	DriverSnapshotTTL = 5 * time.Minute
	DriverStatsTTL    = 5 * time.Minute
	DriverLocationTTL = 60 * time.Second
)

// Key prefixes
const (
	rideCachePrefix     = "cache:ride:"
	driverCachePrefix   = "cache:driver:"
	statsCachePrefix    = "cache:driver_stats:"
	locationCachePrefix = "cache:driver_location:"
)

// DriverStats is a cached summary of a driver's completed work.
type DriverStats struct {
	DriverID       string  `json:"driver_id"`
	CompletedRides int     `json:"completed_rides"`
	EarningsCents  int64   `json:"earnings_cents"`
	Online         bool    `json:"online"`
	Approved       bool    `json:"approved"`
	Rating         float64 `json:"rating,omitempty"`
}

// GetRide retrieves a ride snapshot. A nil ride with nil error is a miss.
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	var ride domain.Ride
	ok, err := s.get(ctx, rideCachePrefix+rideID, &ride)
	if err != nil || !ok {
		return nil, err
	}
	return &ride, nil
}

// SetRide stores a fresh ride snapshot.
func (s *CacheStore) SetRide(ctx context.Context, ride *domain.Ride) error {
	return s.set(ctx, rideCachePrefix+ride.ID, ride, RideSnapshotTTL)
}

// InvalidateRide removes a ride snapshot.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	return s.client.Del(ctx, rideCachePrefix+rideID).Err()
}

// GetDriver retrieves a driver snapshot. A nil driver with nil error is a miss.
func (s *CacheStore) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	var driver domain.Driver
	ok, err := s.get(ctx, driverCachePrefix+driverID, &driver)
	if err != nil || !ok {
		return nil, err
	}
	return &driver, nil
}

// SetDriver stores a fresh driver snapshot.
func (s *CacheStore) SetDriver(ctx context.Context, driver *domain.Driver) error {
	return s.set(ctx, driverCachePrefix+driver.ID, driver, DriverSnapshotTTL)
}

// InvalidateDriver removes a driver's snapshot and stats.
func (s *CacheStore) InvalidateDriver(ctx context.Context, driverID string) error {
	return s.client.Del(ctx, driverCachePrefix+driverID, statsCachePrefix+driverID).Err()
}

// GetDriverStats retrieves cached driver stats. Nil with nil error is a miss.
func (s *CacheStore) GetDriverStats(ctx context.Context, driverID string) (*DriverStats, error) {
	var stats DriverStats
	ok, err := s.get(ctx, statsCachePrefix+driverID, &stats)
	if err != nil || !ok {
		return nil, err
	}
	return &stats, nil
}

// SetDriverStats stores computed driver stats.
func (s *CacheStore) SetDriverStats(ctx context.Context, stats *DriverStats) error {
	return s.set(ctx, statsCachePrefix+stats.DriverID, stats, DriverStatsTTL)
}

// InvalidateDriverStats removes cached driver stats so the next read
// recomputes them.
func (s *CacheStore) InvalidateDriverStats(ctx context.Context, driverID string) error {
	return s.client.Del(ctx, statsCachePrefix+driverID).Err()
}

// SetDriverLocation stores a short-lived location snapshot.
func (s *CacheStore) SetDriverLocation(ctx context.Context, driverID string, loc domain.Location) error {
	return s.set(ctx, locationCachePrefix+driverID, loc, DriverLocationTTL)
}

// GetDriverLocation retrieves a location snapshot. Nil with nil error is a miss.
func (s *CacheStore) GetDriverLocation(ctx context.Context, driverID string) (*domain.Location, error) {
	var loc domain.Location
	ok, err := s.get(ctx, locationCachePrefix+driverID, &loc)
	if err != nil || !ok {
		return nil, err
	}
	return &loc, nil
}

func (s *CacheStore) get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil // cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheStore) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}
