package service

import (
	"context"
	"log/slog"
	"time"

	"ridedispatch/internal/broadcast"
	"ridedispatch/internal/domain"
	"ridedispatch/internal/metrics"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// LifecycleService advances rides through the status graph after acceptance.
// Every transition is a conditional write on the current status, so a stale
// caller loses to a concurrent commit instead of overwriting it.
type LifecycleService struct {
	rideRepo   repository.RideRepository
	driverRepo repository.DriverRepository
	tx         repository.Transactor
	fare       *FareCalculator
	cache      redis.CacheStoreInterface
	events     broadcast.Broadcaster
	logger     *slog.Logger
}

// NewLifecycleService creates a new LifecycleService.
func NewLifecycleService(
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	tx repository.Transactor,
	fare *FareCalculator,
	cache redis.CacheStoreInterface,
	events broadcast.Broadcaster,
	logger *slog.Logger,
) *LifecycleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleService{
		rideRepo:   rideRepo,
		driverRepo: driverRepo,
		tx:         tx,
		fare:       fare,
		cache:      cache,
		events:     events,
		logger:     logger,
	}
}

// TransitionInput carries a status update request. Actual distance and
// duration are only consulted when the target is completed; zero values fall
// back to the upfront estimates.
type TransitionInput struct {
	RideID            string
	ActorID           string
	Target            domain.RideStatus
	ActualDistanceKm  float64
	ActualDurationMin float64
}

// Transition moves a ride to the target status on behalf of the actor.
// The actor must be a party to the ride and the move must be a legal edge of
// the status graph; anything else is rejected without touching the store.
func (s *LifecycleService) Transition(ctx context.Context, in TransitionInput) (*domain.Ride, error) {
	if in.RideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, in.RideID)
	if err != nil {
		return nil, err
	}
	if in.ActorID != ride.RiderID && in.ActorID != ride.DriverID {
		return nil, ErrNotRideParty
	}
	// Acceptance binds a driver and has its own claim protocol; it cannot be
	// reached through a plain status update.
	if in.Target == domain.RideStatusAccepted || !domain.CanTransition(ride.Status, in.Target) {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	switch in.Target {
	case domain.RideStatusDriverArrived, domain.RideStatusInProgress:
		affected, err := s.rideRepo.UpdateStatus(ctx, ride.ID, ride.Status, in.Target, now)
		if err != nil {
			return nil, storeErr(err)
		}
		if affected == 0 {
			// Lost to a concurrent commit; the precondition no longer holds.
			return nil, ErrInvalidTransition
		}

	case domain.RideStatusCompleted:
		if err := s.complete(ctx, ride, in, now); err != nil {
			return nil, err
		}

	case domain.RideStatusCancelledByRider, domain.RideStatusCancelledByDriver:
		if err := s.cancel(ctx, ride, in.Target, "", now); err != nil {
			return nil, err
		}

	default:
		return nil, ErrInvalidTransition
	}

	updated, err := s.rideRepo.GetByID(ctx, ride.ID)
	if err != nil {
		return nil, storeErr(err)
	}

	s.afterTransition(ctx, updated, now)
	return updated, nil
}

// CancelInput carries a cancellation request.
type CancelInput struct {
	RideID  string
	ActorID string
	Reason  string
}

// Cancel cancels a ride on behalf of the rider or the bound driver. The
// terminal status records who cancelled.
func (s *LifecycleService) Cancel(ctx context.Context, in CancelInput) (*domain.Ride, error) {
	if in.RideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, in.RideID)
	if err != nil {
		return nil, err
	}

	var target domain.RideStatus
	switch in.ActorID {
	case ride.RiderID:
		target = domain.RideStatusCancelledByRider
	case ride.DriverID:
		if ride.DriverID == "" {
			return nil, ErrNotRideParty
		}
		target = domain.RideStatusCancelledByDriver
	default:
		return nil, ErrNotRideParty
	}

	if !domain.CanTransition(ride.Status, target) {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	if err := s.cancel(ctx, ride, target, in.Reason, now); err != nil {
		return nil, err
	}

	updated, err := s.rideRepo.GetByID(ctx, ride.ID)
	if err != nil {
		return nil, storeErr(err)
	}

	s.afterTransition(ctx, updated, now)
	return updated, nil
}

// complete settles the ride: the fare is recomputed from actuals (falling
// back to the estimates) and the driver is released and credited in the same
// transaction as the status flip.
func (s *LifecycleService) complete(ctx context.Context, ride *domain.Ride, in TransitionInput, now time.Time) error {
	distanceKm := in.ActualDistanceKm
	if distanceKm <= 0 {
		distanceKm = ride.EstimatedDistanceKm
	}
	durationMin := in.ActualDurationMin
	if durationMin <= 0 {
		durationMin = ride.EstimatedDurationMin
	}
	fare := s.fare.Quote(distanceKm, durationMin, ride.VehicleClass)

	err := s.tx.InTx(ctx, func(rides repository.RideRepository, drivers repository.DriverRepository) error {
		affected, err := rides.Complete(ctx, ride.ID, repository.Completion{
			ActualDistanceKm:  distanceKm,
			ActualDurationMin: durationMin,
			Fare:              fare,
			At:                now,
		})
		if err != nil {
			return storeErr(err)
		}
		if affected == 0 {
			return ErrInvalidTransition
		}
		if err := drivers.SetOnline(ctx, ride.DriverID, true); err != nil {
			return storeErr(err)
		}
		if err := drivers.AddEarnings(ctx, ride.DriverID, fare.Total); err != nil {
			return storeErr(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RidesCompleted.Inc()
	return nil
}

// cancel flips the ride to a terminal cancelled status and releases the bound
// driver, if any, in the same transaction.
func (s *LifecycleService) cancel(ctx context.Context, ride *domain.Ride, target domain.RideStatus, reason string, now time.Time) error {
	err := s.tx.InTx(ctx, func(rides repository.RideRepository, drivers repository.DriverRepository) error {
		affected, err := rides.Cancel(ctx, ride.ID, ride.Status, target, reason, now)
		if err != nil {
			return storeErr(err)
		}
		if affected == 0 {
			return ErrInvalidTransition
		}
		if ride.DriverID != "" {
			if err := drivers.SetOnline(ctx, ride.DriverID, true); err != nil {
				return storeErr(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	by := "rider"
	if target == domain.RideStatusCancelledByDriver {
		by = "driver"
	}
	metrics.RidesCancelled.WithLabelValues(by).Inc()
	return nil
}

// afterTransition refreshes cached snapshots and publishes the change. Both
// are best-effort; the committed store row is already authoritative.
func (s *LifecycleService) afterTransition(ctx context.Context, ride *domain.Ride, at time.Time) {
	if err := s.cache.SetRide(ctx, ride); err != nil {
		s.logger.Warn("ride cache write failed", "ride_id", ride.ID, "err", err)
	}
	if ride.DriverID != "" && ride.Status.IsTerminal() {
		if driver, err := s.driverRepo.GetByID(ctx, ride.DriverID); err != nil {
			s.logger.Warn("driver snapshot refresh failed", "driver_id", ride.DriverID, "err", err)
		} else if err := s.cache.SetDriver(ctx, driver); err != nil {
			s.logger.Warn("driver cache write failed", "driver_id", ride.DriverID, "err", err)
		}
		if err := s.cache.InvalidateDriverStats(ctx, ride.DriverID); err != nil {
			s.logger.Warn("driver stats invalidation failed", "driver_id", ride.DriverID, "err", err)
		}
	}

	event := domain.Event{
		Type:      eventForStatus(ride.Status),
		RideID:    ride.ID,
		Data:      map[string]any{"status": ride.Status},
		Timestamp: at,
	}
	if ride.Status == domain.RideStatusCompleted {
		event.Data["fare"] = ride.Fare
	}
	if ride.Status.IsCancelled() && ride.CancelReason != "" {
		event.Data["reason"] = ride.CancelReason
	}

	s.events.Publish(domain.TopicRide(ride.ID), event)
	s.events.Publish(domain.TopicRider(ride.RiderID), event)
	if ride.DriverID != "" {
		s.events.Publish(domain.TopicDriver(ride.DriverID), event)
	}
}

func eventForStatus(status domain.RideStatus) domain.EventType {
	switch {
	case status == domain.RideStatusCompleted:
		return domain.EventRideCompleted
	case status.IsCancelled():
		return domain.EventRideCancelled
	default:
		return domain.EventRideStatusUpdated
	}
}
