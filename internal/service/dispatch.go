package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ridedispatch/internal/broadcast"
	"ridedispatch/internal/domain"
	"ridedispatch/internal/metrics"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// DispatchService is the entry point for ride requests and driver acceptance.
//
// Acceptance is serialized by a single conditional write in the record store:
// no in-process lock is taken, so the exactly-one-winner guarantee holds even
// when concurrent attempts run in separate processes.
type DispatchService struct {
	rideRepo   repository.RideRepository
	driverRepo repository.DriverRepository
	tx         repository.Transactor
	proximity  *ProximityIndex
	fare       *FareCalculator
	cache      redis.CacheStoreInterface
	locations  redis.LocationStoreInterface
	events     broadcast.Broadcaster
	logger     *slog.Logger
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	tx repository.Transactor,
	proximity *ProximityIndex,
	fare *FareCalculator,
	cache redis.CacheStoreInterface,
	locations redis.LocationStoreInterface,
	events broadcast.Broadcaster,
	logger *slog.Logger,
) *DispatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchService{
		rideRepo:   rideRepo,
		driverRepo: driverRepo,
		tx:         tx,
		proximity:  proximity,
		fare:       fare,
		cache:      cache,
		locations:  locations,
		events:     events,
		logger:     logger,
	}
}

// RequestRideInput contains the parameters for requesting a ride.
type RequestRideInput struct {
	RiderID         string
	Pickup          domain.GeoPoint
	Destination     domain.GeoPoint
	VehicleClass    domain.VehicleClass
	SpecialRequests string
}

// RequestRide creates a ride in requested state with an upfront fare estimate
// and announces it to nearby drivers.
func (s *DispatchService) RequestRide(ctx context.Context, in RequestRideInput) (*domain.Ride, error) {
	if in.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if !isValidLatitude(in.Pickup.Lat) || !isValidLongitude(in.Pickup.Lng) {
		return nil, ErrInvalidPickupLocation
	}
	if !isValidLatitude(in.Destination.Lat) || !isValidLongitude(in.Destination.Lng) {
		return nil, ErrInvalidDestinationLocation
	}

	class := in.VehicleClass
	if class == "" {
		class = domain.VehicleClassEconomy
	}

	active, err := s.rideRepo.GetActiveByRiderID(ctx, in.RiderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if active != nil {
		return nil, ErrRiderHasActiveRide
	}

	distanceKm := HaversineKm(in.Pickup.Lat, in.Pickup.Lng, in.Destination.Lat, in.Destination.Lng)
	durationMin := EstimateDurationMin(distanceKm)

	ride := &domain.Ride{
		ID:                   uuid.New().String(),
		RiderID:              in.RiderID,
		Status:               domain.RideStatusRequested,
		Pickup:               in.Pickup,
		Destination:          in.Destination,
		VehicleClass:         class,
		SpecialRequests:      in.SpecialRequests,
		EstimatedDistanceKm:  distanceKm,
		EstimatedDurationMin: durationMin,
		Fare:                 s.fare.Quote(distanceKm, durationMin, class),
		PaymentStatus:        domain.PaymentStatusPending,
		RequestedAt:          time.Now().UTC(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		// The partial unique index on active rides backs the one-active-ride
		// invariant even when two requests race past the read above.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRiderHasActiveRide
		}
		return nil, storeErr(err)
	}

	metrics.RidesRequested.Inc()
	s.cacheRide(ctx, ride)
	s.announceRide(ctx, ride)

	return ride, nil
}

// AcceptRide resolves concurrent claims on a requested ride into exactly one
// winner via a conditional write; losers receive ErrRideAlreadyTaken and must
// not be retried automatically.
func (s *DispatchService) AcceptRide(ctx context.Context, driverID, rideID string) (*domain.Ride, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotEligible
		}
		return nil, storeErr(err)
	}
	if !driver.Approved || !driver.Online {
		return nil, ErrDriverNotEligible
	}

	active, err := s.rideRepo.GetActiveByDriverID(ctx, driverID)
	if err != nil {
		return nil, storeErr(err)
	}
	if active != nil {
		return nil, ErrDriverHasActiveRide
	}

	now := time.Now().UTC()
	err = s.tx.InTx(ctx, func(rides repository.RideRepository, drivers repository.DriverRepository) error {
		affected, err := rides.Accept(ctx, rideID, driverID, now)
		if err != nil {
			return storeErr(err)
		}
		if affected == 0 {
			return ErrRideAlreadyTaken
		}
		// The winner goes off the board while serving the ride.
		if err := drivers.SetOnline(ctx, driverID, false); err != nil {
			return storeErr(err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRideAlreadyTaken) {
			if _, getErr := s.rideRepo.GetByID(ctx, rideID); errors.Is(getErr, repository.ErrNotFound) {
				return nil, repository.ErrNotFound
			}
			metrics.AcceptConflicts.Inc()
			return nil, ErrRideAlreadyTaken
		}
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, storeErr(err)
	}

	metrics.RidesAccepted.Inc()

	driver.Online = false
	s.cacheRide(ctx, ride)
	s.cacheDriver(ctx, driver)
	if err := s.locations.Remove(ctx, driverID); err != nil {
		s.logger.Warn("geo index remove failed", "driver_id", driverID, "err", err)
	}

	event := domain.Event{
		Type:   domain.EventRideAccepted,
		RideID: ride.ID,
		Data: map[string]any{
			"driver_id":     driver.ID,
			"driver_name":   driver.Name,
			"driver_phone":  driver.Phone,
			"vehicle_model": driver.VehicleModel,
			"vehicle_color": driver.VehicleColor,
			"license_plate": driver.LicensePlate,
		},
		Timestamp: now,
	}
	s.events.Publish(domain.TopicRider(ride.RiderID), event)
	s.events.Publish(domain.TopicRide(ride.ID), event)

	return ride, nil
}

// GetRide returns a ride, serving from the snapshot cache when possible.
// The actor must be one of the ride's parties.
func (s *DispatchService) GetRide(ctx context.Context, rideID, actorID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if actorID == "" {
		return nil, ErrInvalidActorID
	}

	if cached, err := s.cache.GetRide(ctx, rideID); err != nil {
		s.logger.Warn("ride cache read failed", "ride_id", rideID, "err", err)
	} else if cached != nil {
		if actorID != cached.RiderID && actorID != cached.DriverID {
			return nil, ErrNotRideParty
		}
		return cached, nil
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if actorID != ride.RiderID && actorID != ride.DriverID {
		return nil, ErrNotRideParty
	}
	s.cacheRide(ctx, ride)
	return ride, nil
}

// ListRides returns a user's ride history, newest first.
func (s *DispatchService) ListRides(ctx context.Context, userID string, status domain.RideStatus, limit int) ([]*domain.Ride, error) {
	if userID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.rideRepo.ListByParticipant(ctx, userID, status, limit)
}

// FindNearbyDrivers returns available drivers near the center point.
func (s *DispatchService) FindNearbyDrivers(ctx context.Context, center domain.GeoPoint, radiusKm float64, class domain.VehicleClass) ([]*domain.Driver, error) {
	return s.proximity.FindCandidates(ctx, center, radiusKm, class)
}

// announceRide notifies the global drivers topic and each nearby candidate.
// Best-effort: a failed candidate search still announces globally.
func (s *DispatchService) announceRide(ctx context.Context, ride *domain.Ride) {
	event := domain.Event{
		Type:   domain.EventRideRequested,
		RideID: ride.ID,
		Data: map[string]any{
			"pickup":         ride.Pickup,
			"destination":    ride.Destination,
			"vehicle_class":  ride.VehicleClass,
			"estimated_fare": ride.Fare.Total,
		},
		Timestamp: ride.RequestedAt,
	}
	s.events.Publish(domain.TopicDrivers, event)

	for _, id := range s.announceTargets(ctx, ride) {
		s.events.Publish(domain.TopicDriver(id), event)
	}
}

// announceTargets picks the drivers to notify directly about a new request.
// The live geo index is consulted first; when it is empty or unreachable the
// record store's bounding-box search takes over.
func (s *DispatchService) announceTargets(ctx context.Context, ride *domain.Ride) []string {
	locs, err := s.locations.Nearby(ctx, ride.Pickup.Lat, ride.Pickup.Lng, DefaultSearchRadiusKm)
	if err != nil {
		s.logger.Warn("geo index read failed", "ride_id", ride.ID, "err", err)
	}
	if len(locs) > 0 {
		if len(locs) > MaxCandidates {
			locs = locs[:MaxCandidates]
		}
		ids := make([]string, len(locs))
		for i, l := range locs {
			ids[i] = l.DriverID
		}
		return ids
	}

	candidates, err := s.proximity.FindCandidates(ctx, ride.Pickup, 0, ride.VehicleClass)
	if err != nil {
		s.logger.Warn("candidate search failed", "ride_id", ride.ID, "err", err)
		return nil
	}
	ids := make([]string, len(candidates))
	for i, d := range candidates {
		ids[i] = d.ID
	}
	return ids
}

func (s *DispatchService) cacheRide(ctx context.Context, ride *domain.Ride) {
	if err := s.cache.SetRide(ctx, ride); err != nil {
		s.logger.Warn("ride cache write failed", "ride_id", ride.ID, "err", err)
	}
}

func (s *DispatchService) cacheDriver(ctx context.Context, driver *domain.Driver) {
	if err := s.cache.SetDriver(ctx, driver); err != nil {
		s.logger.Warn("driver cache write failed", "driver_id", driver.ID, "err", err)
	}
}

// storeErr marks a record-store failure on the authoritative path.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
