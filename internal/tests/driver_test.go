package tests

import (
	"context"
	"errors"
	"testing"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

func newDriverService(drivers *MockDriverRepository, rides *MockRideRepository, cache *MockCacheStore, locations *MockLocationStore, events *MockBroadcaster) *service.DriverService {
	return service.NewDriverService(drivers, rides, cache, locations, events, nil)
}

func TestRegister_CreatesOfflineUnapprovedProfile(t *testing.T) {
	ctx := context.Background()
	drivers := NewMockDriverRepository()
	svc := newDriverService(drivers, NewMockRideRepository(), NewMockCacheStore(), NewMockLocationStore(), NewMockBroadcaster())

	driver, err := svc.Register(ctx, service.RegisterInput{
		UserID:        "user-1",
		Name:          "Dana",
		LicenseNumber: "LIC-1",
		LicensePlate:  "PLATE-1",
		VehicleModel:  "Corolla",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if driver.ID != "user-1" {
		t.Errorf("id = %s, want user-1", driver.ID)
	}
	if driver.Online || driver.Approved {
		t.Error("new profile must start offline and unapproved")
	}
	if driver.VehicleClass != domain.VehicleClassEconomy {
		t.Errorf("class = %s, want economy default", driver.VehicleClass)
	}
}

func TestRegister_DuplicateLicenseConflicts(t *testing.T) {
	ctx := context.Background()
	drivers := NewMockDriverRepository()
	svc := newDriverService(drivers, NewMockRideRepository(), NewMockCacheStore(), NewMockLocationStore(), NewMockBroadcaster())

	in := service.RegisterInput{UserID: "user-1", LicenseNumber: "LIC-1", LicensePlate: "PLATE-1"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	in.UserID = "user-2"
	if _, err := svc.Register(ctx, in); !errors.Is(err, service.ErrDriverAlreadyRegistered) {
		t.Errorf("err = %v, want ErrDriverAlreadyRegistered", err)
	}
}

func TestSetOnline_RequiresApproval(t *testing.T) {
	ctx := context.Background()
	drivers := NewMockDriverRepository()
	svc := newDriverService(drivers, NewMockRideRepository(), NewMockCacheStore(), NewMockLocationStore(), NewMockBroadcaster())

	unapproved := availableDriver("driver-1")
	unapproved.Approved = false
	unapproved.Online = false
	drivers.AddDriver(unapproved)

	if _, err := svc.SetOnline(ctx, "driver-1", true); !errors.Is(err, service.ErrDriverNotApproved) {
		t.Errorf("err = %v, want ErrDriverNotApproved", err)
	}

	if err := svc.Approve(ctx, "driver-1"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	driver, err := svc.SetOnline(ctx, "driver-1", true)
	if err != nil {
		t.Fatalf("set online failed: %v", err)
	}
	if !driver.Online {
		t.Error("driver not online after toggle")
	}
}

func TestSetOnline_GoingOfflineDropsGeoIndex(t *testing.T) {
	ctx := context.Background()
	drivers := NewMockDriverRepository()
	locations := NewMockLocationStore()
	events := NewMockBroadcaster()
	svc := newDriverService(drivers, NewMockRideRepository(), NewMockCacheStore(), locations, events)

	drivers.AddDriver(availableDriver("driver-1"))
	_ = locations.Update(ctx, "driver-1", 40.71, -74.0)

	driver, err := svc.SetOnline(ctx, "driver-1", false)
	if err != nil {
		t.Fatalf("set offline failed: %v", err)
	}
	if driver.Online {
		t.Error("driver still online")
	}
	if locations.Has("driver-1") {
		t.Error("offline driver not removed from geo index")
	}
	if got := events.EventCount(domain.TopicDrivers); got != 1 {
		t.Errorf("drivers topic got %d events, want 1", got)
	}
}

func TestUpdateLocation_WritesThroughAllStores(t *testing.T) {
	ctx := context.Background()
	drivers := NewMockDriverRepository()
	cache := NewMockCacheStore()
	locations := NewMockLocationStore()
	svc := newDriverService(drivers, NewMockRideRepository(), cache, locations, NewMockBroadcaster())

	drivers.AddDriver(availableDriver("driver-1"))

	if err := svc.UpdateLocation(ctx, "driver-1", 40.73, -73.99); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	stored := drivers.GetDriver("driver-1")
	if stored.Location == nil || stored.Location.Lat != 40.73 {
		t.Error("record store location not updated")
	}
	if !locations.Has("driver-1") {
		t.Error("geo index not updated")
	}
	loc, _ := cache.GetDriverLocation(ctx, "driver-1")
	if loc == nil || loc.Lng != -73.99 {
		t.Error("location snapshot not cached")
	}

	if err := svc.UpdateLocation(ctx, "driver-1", 95, 0); !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("err = %v, want ErrInvalidLocation", err)
	}
}

func TestUpdateLocation_GeoIndexFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	drivers := NewMockDriverRepository()
	locations := NewMockLocationStore()
	locations.UpdateError = errors.New("redis down")
	svc := newDriverService(drivers, NewMockRideRepository(), NewMockCacheStore(), locations, NewMockBroadcaster())

	drivers.AddDriver(availableDriver("driver-1"))

	if err := svc.UpdateLocation(ctx, "driver-1", 40.73, -73.99); err != nil {
		t.Errorf("update failed despite geo index being non-authoritative: %v", err)
	}
	if drivers.GetDriver("driver-1").Location == nil {
		t.Error("record store location not updated")
	}
}

func TestStats_CachedReadThrough(t *testing.T) {
	ctx := context.Background()
	drivers := NewMockDriverRepository()
	rides := NewMockRideRepository()
	cache := NewMockCacheStore()
	svc := newDriverService(drivers, rides, cache, NewMockLocationStore(), NewMockBroadcaster())

	driver := availableDriver("driver-1")
	driver.Earnings = 2390
	drivers.AddDriver(driver)

	done := requestedRide("ride-done", "rider-1")
	done.Status = domain.RideStatusCompleted
	done.DriverID = "driver-1"
	rides.AddRide(done)

	stats, err := svc.Stats(ctx, "driver-1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.CompletedRides != 1 {
		t.Errorf("completed = %d, want 1", stats.CompletedRides)
	}
	if stats.EarningsCents != 2390 {
		t.Errorf("earnings = %d, want 2390", stats.EarningsCents)
	}

	// Second read must come from the cache even if the store changes.
	done2 := requestedRide("ride-done-2", "rider-2")
	done2.Status = domain.RideStatusCompleted
	done2.DriverID = "driver-1"
	rides.AddRide(done2)

	stats, err = svc.Stats(ctx, "driver-1")
	if err != nil {
		t.Fatalf("second stats read failed: %v", err)
	}
	if stats.CompletedRides != 1 {
		t.Errorf("cached completed = %d, want 1 until the snapshot expires", stats.CompletedRides)
	}
}

func TestGetDriver_CacheMissPopulates(t *testing.T) {
	ctx := context.Background()
	drivers := NewMockDriverRepository()
	cache := NewMockCacheStore()
	svc := newDriverService(drivers, NewMockRideRepository(), cache, NewMockLocationStore(), NewMockBroadcaster())

	drivers.AddDriver(availableDriver("driver-1"))

	if _, err := svc.GetDriver(ctx, "driver-1"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	cached, _ := cache.GetDriver(ctx, "driver-1")
	if cached == nil {
		t.Error("miss did not populate the cache")
	}
}
