package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

func newLifecycleService(rides *MockRideRepository, drivers *MockDriverRepository, cache *MockCacheStore, events *MockBroadcaster) *service.LifecycleService {
	return service.NewLifecycleService(
		rides,
		drivers,
		NewMockTransactor(rides, drivers),
		service.NewFareCalculator(nil),
		cache,
		events,
		nil,
	)
}

func acceptedRide(id, riderID, driverID string) *domain.Ride {
	ride := requestedRide(id, riderID)
	ride.Status = domain.RideStatusAccepted
	ride.DriverID = driverID
	ride.AcceptedAt = time.Now().UTC()
	return ride
}

func TestTransition_FullLifecycleWalk(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	drivers := NewMockDriverRepository()
	events := NewMockBroadcaster()
	svc := newLifecycleService(rides, drivers, NewMockCacheStore(), events)

	rides.AddRide(acceptedRide("ride-1", "rider-1", "driver-1"))
	driver := availableDriver("driver-1")
	driver.Online = false // serving the ride
	drivers.AddDriver(driver)

	ride, err := svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-1", ActorID: "driver-1", Target: domain.RideStatusDriverArrived,
	})
	if err != nil {
		t.Fatalf("arrive failed: %v", err)
	}
	if ride.Status != domain.RideStatusDriverArrived || ride.ArrivedAt.IsZero() {
		t.Errorf("arrived: status=%s arrived_at zero=%v", ride.Status, ride.ArrivedAt.IsZero())
	}

	ride, err = svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-1", ActorID: "driver-1", Target: domain.RideStatusInProgress,
	})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if ride.Status != domain.RideStatusInProgress || ride.StartedAt.IsZero() {
		t.Errorf("started: status=%s started_at zero=%v", ride.Status, ride.StartedAt.IsZero())
	}

	ride, err = svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-1", ActorID: "driver-1", Target: domain.RideStatusCompleted,
		ActualDistanceKm: 6.0, ActualDurationMin: 15,
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if ride.Status != domain.RideStatusCompleted || ride.CompletedAt.IsZero() {
		t.Errorf("completed: status=%s completed_at zero=%v", ride.Status, ride.CompletedAt.IsZero())
	}

	// Settlement fare recomputed from actuals: 2.50 + 7.20 + 2.25 = 11.95.
	if ride.Fare.Total != 1195 {
		t.Errorf("settlement total = %d, want 1195", ride.Fare.Total)
	}
	if ride.ActualDistanceKm != 6.0 || ride.ActualDurationMin != 15 {
		t.Error("actuals not recorded")
	}

	// Driver released and credited.
	final := drivers.GetDriver("driver-1")
	if !final.Online {
		t.Error("driver not released after completion")
	}
	if final.Earnings != 1195 {
		t.Errorf("earnings = %d, want 1195", final.Earnings)
	}

	// Each committed transition was published to the ride topic.
	if got := events.EventCount(domain.TopicRide("ride-1")); got != 3 {
		t.Errorf("ride topic got %d events, want 3", got)
	}
}

func TestTransition_CompletionFallsBackToEstimates(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	drivers := NewMockDriverRepository()
	svc := newLifecycleService(rides, drivers, NewMockCacheStore(), NewMockBroadcaster())

	ride := acceptedRide("ride-1", "rider-1", "driver-1")
	ride.Status = domain.RideStatusInProgress
	ride.EstimatedDistanceKm = 5.0
	ride.EstimatedDurationMin = 13
	rides.AddRide(ride)
	drivers.AddDriver(availableDriver("driver-1"))

	got, err := svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-1", ActorID: "driver-1", Target: domain.RideStatusCompleted,
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	// 2.50 + 6.00 + 1.95 on the 5 km / 13 min estimates.
	if got.Fare.Total != 1045 {
		t.Errorf("fare total = %d, want 1045", got.Fare.Total)
	}
	if got.ActualDistanceKm != 5.0 || got.ActualDurationMin != 13 {
		t.Error("estimates not carried into actuals")
	}
}

func TestTransition_SettlementStoreFailureIsUnavailable(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	drivers := NewMockDriverRepository()
	svc := newLifecycleService(rides, drivers, NewMockCacheStore(), NewMockBroadcaster())

	ride := acceptedRide("ride-1", "rider-1", "driver-1")
	ride.Status = domain.RideStatusInProgress
	rides.AddRide(ride)
	drivers.AddDriver(availableDriver("driver-1"))
	drivers.AddEarningsError = errors.New("connection reset")

	_, err := svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-1", ActorID: "driver-1", Target: domain.RideStatusCompleted,
	})
	if !errors.Is(err, service.ErrStoreUnavailable) {
		t.Errorf("complete err = %v, want ErrStoreUnavailable", err)
	}
}

func TestCancel_DriverReleaseFailureIsUnavailable(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	drivers := NewMockDriverRepository()
	svc := newLifecycleService(rides, drivers, NewMockCacheStore(), NewMockBroadcaster())

	rides.AddRide(acceptedRide("ride-1", "rider-1", "driver-1"))
	drivers.AddDriver(availableDriver("driver-1"))
	drivers.SetOnlineError = errors.New("connection reset")

	_, err := svc.Cancel(ctx, service.CancelInput{RideID: "ride-1", ActorID: "rider-1"})
	if !errors.Is(err, service.ErrStoreUnavailable) {
		t.Errorf("cancel err = %v, want ErrStoreUnavailable", err)
	}
}

func TestTransition_RejectsCancellingInProgressRide(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	drivers := NewMockDriverRepository()
	svc := newLifecycleService(rides, drivers, NewMockCacheStore(), NewMockBroadcaster())

	ride := acceptedRide("ride-1", "rider-1", "driver-1")
	ride.Status = domain.RideStatusInProgress
	rides.AddRide(ride)
	drivers.AddDriver(availableDriver("driver-1"))

	_, err := svc.Cancel(ctx, service.CancelInput{RideID: "ride-1", ActorID: "rider-1"})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
	if rides.GetRide("ride-1").Status != domain.RideStatusInProgress {
		t.Error("ride status must be unchanged after rejected cancel")
	}
}

func TestTransition_RejectsSkippingAndRepeats(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	drivers := NewMockDriverRepository()
	svc := newLifecycleService(rides, drivers, NewMockCacheStore(), NewMockBroadcaster())

	rides.AddRide(acceptedRide("ride-1", "rider-1", "driver-1"))
	drivers.AddDriver(availableDriver("driver-1"))

	// Skipping driver_arrived.
	_, err := svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-1", ActorID: "driver-1", Target: domain.RideStatusInProgress,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("skip err = %v, want ErrInvalidTransition", err)
	}

	// Repeating the current status.
	_, err = svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-1", ActorID: "driver-1", Target: domain.RideStatusAccepted,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("repeat err = %v, want ErrInvalidTransition", err)
	}

	// A duplicate delivery of a legal transition fails the second time.
	if _, err := svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-1", ActorID: "driver-1", Target: domain.RideStatusDriverArrived,
	}); err != nil {
		t.Fatalf("first arrive failed: %v", err)
	}
	_, err = svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-1", ActorID: "driver-1", Target: domain.RideStatusDriverArrived,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("duplicate err = %v, want ErrInvalidTransition", err)
	}
}

func TestTransition_RejectsTerminalReentry(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	drivers := NewMockDriverRepository()
	svc := newLifecycleService(rides, drivers, NewMockCacheStore(), NewMockBroadcaster())

	ride := acceptedRide("ride-1", "rider-1", "driver-1")
	ride.Status = domain.RideStatusCompleted
	rides.AddRide(ride)
	drivers.AddDriver(availableDriver("driver-1"))

	for _, target := range []domain.RideStatus{
		domain.RideStatusDriverArrived, domain.RideStatusInProgress,
		domain.RideStatusCompleted, domain.RideStatusCancelledByRider,
	} {
		_, err := svc.Transition(ctx, service.TransitionInput{
			RideID: "ride-1", ActorID: "driver-1", Target: target,
		})
		if !errors.Is(err, service.ErrInvalidTransition) {
			t.Errorf("terminal -> %s: err = %v, want ErrInvalidTransition", target, err)
		}
	}
}

func TestTransition_RejectsNonParties(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	drivers := NewMockDriverRepository()
	svc := newLifecycleService(rides, drivers, NewMockCacheStore(), NewMockBroadcaster())

	rides.AddRide(acceptedRide("ride-1", "rider-1", "driver-1"))
	drivers.AddDriver(availableDriver("driver-1"))

	_, err := svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-1", ActorID: "stranger", Target: domain.RideStatusDriverArrived,
	})
	if !errors.Is(err, service.ErrNotRideParty) {
		t.Errorf("transition err = %v, want ErrNotRideParty", err)
	}

	_, err = svc.Cancel(ctx, service.CancelInput{RideID: "ride-1", ActorID: "stranger"})
	if !errors.Is(err, service.ErrNotRideParty) {
		t.Errorf("cancel err = %v, want ErrNotRideParty", err)
	}
}

func TestTransition_AcceptedIsNotReachableViaStatusUpdate(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	svc := newLifecycleService(rides, NewMockDriverRepository(), NewMockCacheStore(), NewMockBroadcaster())

	rides.AddRide(requestedRide("ride-1", "rider-1"))

	_, err := svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-1", ActorID: "rider-1", Target: domain.RideStatusAccepted,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancel_RiderCancelReleasesDriver(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	drivers := NewMockDriverRepository()
	events := NewMockBroadcaster()
	svc := newLifecycleService(rides, drivers, NewMockCacheStore(), events)

	rides.AddRide(acceptedRide("ride-1", "rider-1", "driver-1"))
	driver := availableDriver("driver-1")
	driver.Online = false
	drivers.AddDriver(driver)

	ride, err := svc.Cancel(ctx, service.CancelInput{
		RideID: "ride-1", ActorID: "rider-1", Reason: "changed plans",
	})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if ride.Status != domain.RideStatusCancelledByRider {
		t.Errorf("status = %s, want cancelled_by_rider", ride.Status)
	}
	if ride.CancelReason != "changed plans" {
		t.Errorf("reason = %q", ride.CancelReason)
	}
	if ride.CancelledAt.IsZero() {
		t.Error("cancelled_at not stamped")
	}
	if ride.DriverID != "driver-1" {
		t.Error("driver binding must be retained for audit")
	}
	if !drivers.GetDriver("driver-1").Online {
		t.Error("driver not released after cancellation")
	}
	if got := events.EventCount(domain.TopicRide("ride-1")); got != 1 {
		t.Errorf("ride topic got %d events, want 1", got)
	}
}

func TestCancel_DriverCancelRecordsActor(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	drivers := NewMockDriverRepository()
	svc := newLifecycleService(rides, drivers, NewMockCacheStore(), NewMockBroadcaster())

	rides.AddRide(acceptedRide("ride-1", "rider-1", "driver-1"))
	drivers.AddDriver(availableDriver("driver-1"))

	ride, err := svc.Cancel(ctx, service.CancelInput{RideID: "ride-1", ActorID: "driver-1"})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if ride.Status != domain.RideStatusCancelledByDriver {
		t.Errorf("status = %s, want cancelled_by_driver", ride.Status)
	}
}

func TestCancel_UnassignedRequestedRide(t *testing.T) {
	ctx := context.Background()
	rides := NewMockRideRepository()
	drivers := NewMockDriverRepository()
	svc := newLifecycleService(rides, drivers, NewMockCacheStore(), NewMockBroadcaster())

	rides.AddRide(requestedRide("ride-1", "rider-1"))

	ride, err := svc.Cancel(ctx, service.CancelInput{RideID: "ride-1", ActorID: "rider-1"})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if ride.Status != domain.RideStatusCancelledByRider {
		t.Errorf("status = %s, want cancelled_by_rider", ride.Status)
	}
	// No driver was bound, so no release should happen.
	if drivers.SetOnlineCallCount != 0 {
		t.Error("unexpected driver release for unassigned ride")
	}
}

func TestTransition_UnknownRideIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService(NewMockRideRepository(), NewMockDriverRepository(), NewMockCacheStore(), NewMockBroadcaster())

	_, err := svc.Transition(ctx, service.TransitionInput{
		RideID: "ride-missing", ActorID: "rider-1", Target: domain.RideStatusDriverArrived,
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
