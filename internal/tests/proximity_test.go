package tests

import (
	"context"
	"fmt"
	"testing"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

func TestProximity_FiltersByVehicleClass(t *testing.T) {
	ctx := context.Background()
	drivers := NewMockDriverRepository()
	index := service.NewProximityIndex(drivers, 0, 0)

	economy := availableDriver("driver-economy")
	economy.Location = &domain.Location{Lat: 40.71, Lng: -74.0}
	drivers.AddDriver(economy)

	premium := availableDriver("driver-premium")
	premium.VehicleClass = domain.VehicleClassPremium
	premium.LicenseNumber = "LIC-P"
	premium.LicensePlate = "PLATE-P"
	premium.Location = &domain.Location{Lat: 40.712, Lng: -74.0}
	drivers.AddDriver(premium)

	found, err := index.FindCandidates(ctx, domain.GeoPoint{Lat: 40.71, Lng: -74.0}, 5, domain.VehicleClassPremium)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != "driver-premium" {
		t.Errorf("found %d drivers, want only driver-premium", len(found))
	}

	// Empty class matches every class.
	found, err = index.FindCandidates(ctx, domain.GeoPoint{Lat: 40.71, Lng: -74.0}, 5, "")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("found %d drivers, want 2", len(found))
	}
}

func TestProximity_CapsCandidateCount(t *testing.T) {
	ctx := context.Background()
	drivers := NewMockDriverRepository()
	index := service.NewProximityIndex(drivers, 0, 0)

	for i := 0; i < 30; i++ {
		d := availableDriver(fmt.Sprintf("driver-%d", i))
		d.Location = &domain.Location{Lat: 40.71, Lng: -74.0}
		drivers.AddDriver(d)
	}

	found, err := index.FindCandidates(ctx, domain.GeoPoint{Lat: 40.71, Lng: -74.0}, 5, "")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(found) != service.MaxCandidates {
		t.Errorf("found %d drivers, want capped at %d", len(found), service.MaxCandidates)
	}
}

func TestProximity_BoundingBoxUsesDegreeApproximation(t *testing.T) {
	ctx := context.Background()
	drivers := NewMockDriverRepository()
	index := service.NewProximityIndex(drivers, 0, 0)

	// 5 km radius is about 0.045 degrees. Just inside vs just outside.
	inside := availableDriver("driver-inside")
	inside.Location = &domain.Location{Lat: 40.71 + 0.044, Lng: -74.0}
	drivers.AddDriver(inside)

	outside := availableDriver("driver-outside")
	outside.Location = &domain.Location{Lat: 40.71 + 0.046, Lng: -74.0}
	drivers.AddDriver(outside)

	found, err := index.FindCandidates(ctx, domain.GeoPoint{Lat: 40.71, Lng: -74.0}, 5, "")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != "driver-inside" {
		t.Errorf("found %v, want only driver-inside", len(found))
	}
}
