package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ridedispatch/internal/broadcast"
	"ridedispatch/internal/domain"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// DriverService manages driver profiles, presence and locations.
type DriverService struct {
	driverRepo repository.DriverRepository
	rideRepo   repository.RideRepository
	cache      redis.CacheStoreInterface
	locations  redis.LocationStoreInterface
	events     broadcast.Broadcaster
	logger     *slog.Logger
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	driverRepo repository.DriverRepository,
	rideRepo repository.RideRepository,
	cache redis.CacheStoreInterface,
	locations redis.LocationStoreInterface,
	events broadcast.Broadcaster,
	logger *slog.Logger,
) *DriverService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DriverService{
		driverRepo: driverRepo,
		rideRepo:   rideRepo,
		cache:      cache,
		locations:  locations,
		events:     events,
		logger:     logger,
	}
}

// RegisterInput contains the parameters for registering a driver profile.
type RegisterInput struct {
	UserID        string
	Name          string
	Phone         string
	LicenseNumber string
	LicensePlate  string
	VehicleModel  string
	VehicleYear   int
	VehicleColor  string
	VehicleClass  domain.VehicleClass
}

// Register creates a driver profile. The profile starts offline and
// unapproved; an operator approves it before the driver can go online.
func (s *DriverService) Register(ctx context.Context, in RegisterInput) (*domain.Driver, error) {
	if in.LicenseNumber == "" || in.LicensePlate == "" {
		return nil, ErrInvalidDriverID
	}

	class := in.VehicleClass
	if class == "" {
		class = domain.VehicleClassEconomy
	}

	id := in.UserID
	if id == "" {
		id = uuid.New().String()
	}
	driver := &domain.Driver{
		ID:            id,
		Name:          in.Name,
		Phone:         in.Phone,
		LicenseNumber: in.LicenseNumber,
		LicensePlate:  in.LicensePlate,
		VehicleModel:  in.VehicleModel,
		VehicleYear:   in.VehicleYear,
		VehicleColor:  in.VehicleColor,
		VehicleClass:  class,
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDriverAlreadyRegistered
		}
		return nil, storeErr(err)
	}
	return driver, nil
}

// GetDriver returns a driver profile, serving from the snapshot cache when
// possible.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if cached, err := s.cache.GetDriver(ctx, driverID); err != nil {
		s.logger.Warn("driver cache read failed", "driver_id", driverID, "err", err)
	} else if cached != nil {
		return cached, nil
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetDriver(ctx, driver); err != nil {
		s.logger.Warn("driver cache write failed", "driver_id", driverID, "err", err)
	}
	return driver, nil
}

// SetOnline toggles a driver's availability. Going online requires an
// approved profile; going offline drops the driver from the live geo index.
func (s *DriverService) SetOnline(ctx context.Context, driverID string, online bool) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if online && !driver.Approved {
		return nil, ErrDriverNotApproved
	}

	if err := s.driverRepo.SetOnline(ctx, driverID, online); err != nil {
		return nil, storeErr(err)
	}
	driver.Online = online

	if !online {
		if err := s.locations.Remove(ctx, driverID); err != nil {
			s.logger.Warn("geo index remove failed", "driver_id", driverID, "err", err)
		}
	}
	if err := s.cache.SetDriver(ctx, driver); err != nil {
		s.logger.Warn("driver cache write failed", "driver_id", driverID, "err", err)
	}

	s.events.Publish(domain.TopicDrivers, domain.Event{
		Type:      domain.EventDriverStatusUpdated,
		Data:      map[string]any{"driver_id": driverID, "online": online},
		Timestamp: time.Now().UTC(),
	})

	return driver, nil
}

// Approve marks a driver profile as approved to take rides.
func (s *DriverService) Approve(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if err := s.driverRepo.SetApproved(ctx, driverID, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return storeErr(err)
	}
	if err := s.cache.InvalidateDriver(ctx, driverID); err != nil {
		s.logger.Warn("driver cache invalidation failed", "driver_id", driverID, "err", err)
	}
	return nil
}

// UpdateLocation records a driver's position in the record store, refreshes
// the live geo index and the short-lived location snapshot, and notifies the
// drivers topic.
func (s *DriverService) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return ErrInvalidLocation
	}

	if err := s.driverRepo.UpdateLocation(ctx, driverID, lat, lng); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return storeErr(err)
	}

	if err := s.locations.Update(ctx, driverID, lat, lng); err != nil {
		s.logger.Warn("geo index update failed", "driver_id", driverID, "err", err)
	}
	if err := s.cache.SetDriverLocation(ctx, driverID, domain.Location{Lat: lat, Lng: lng}); err != nil {
		s.logger.Warn("location cache write failed", "driver_id", driverID, "err", err)
	}

	s.events.Publish(domain.TopicDrivers, domain.Event{
		Type:      domain.EventDriverLocationUpdated,
		Data:      map[string]any{"driver_id": driverID, "lat": lat, "lng": lng},
		Timestamp: time.Now().UTC(),
	})

	return nil
}

// Stats returns a driver's completed-work summary, cached for a few minutes.
func (s *DriverService) Stats(ctx context.Context, driverID string) (*redis.DriverStats, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if cached, err := s.cache.GetDriverStats(ctx, driverID); err != nil {
		s.logger.Warn("stats cache read failed", "driver_id", driverID, "err", err)
	} else if cached != nil {
		return cached, nil
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	completed, err := s.rideRepo.CountCompletedByDriverID(ctx, driverID)
	if err != nil {
		return nil, storeErr(err)
	}

	stats := &redis.DriverStats{
		DriverID:       driver.ID,
		CompletedRides: completed,
		EarningsCents:  int64(driver.Earnings),
		Online:         driver.Online,
		Approved:       driver.Approved,
	}
	if err := s.cache.SetDriverStats(ctx, stats); err != nil {
		s.logger.Warn("stats cache write failed", "driver_id", driverID, "err", err)
	}
	return stats, nil
}
