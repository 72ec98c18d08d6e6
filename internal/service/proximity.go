package service

import (
	"context"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

const (
	// DefaultSearchRadiusKm is used when the caller does not specify a radius.
	DefaultSearchRadiusKm = 5.0

	// MaxCandidates bounds the candidate set returned by a proximity search.
	MaxCandidates = 20

	// kmPerDegree approximates one degree of latitude/longitude as 111 km.
	// The bounding box it yields only approximates the search circle, and the
	// error grows with latitude; precise geodesics are not needed here.
	kmPerDegree = 111.0
)

// ProximityIndex finds available drivers near a point. It is read-only: the
// record store's flags (online, approved, location present) decide
// availability, and drivers serving an active ride are offline by policy, so
// they never surface.
type ProximityIndex struct {
	driverRepo repository.DriverRepository
	radiusKm   float64
	limit      int
}

// NewProximityIndex creates a proximity index over the driver store.
// Non-positive radius or limit fall back to the defaults.
func NewProximityIndex(driverRepo repository.DriverRepository, radiusKm float64, limit int) *ProximityIndex {
	if radiusKm <= 0 {
		radiusKm = DefaultSearchRadiusKm
	}
	if limit <= 0 {
		limit = MaxCandidates
	}
	return &ProximityIndex{driverRepo: driverRepo, radiusKm: radiusKm, limit: limit}
}

// FindCandidates returns available drivers whose last known location falls in
// the bounding box around center. Ordering carries no guarantee. An empty
// vehicle class matches any class; zero radius uses the configured default.
func (p *ProximityIndex) FindCandidates(ctx context.Context, center domain.GeoPoint, radiusKm float64, class domain.VehicleClass) ([]*domain.Driver, error) {
	if !isValidLatitude(center.Lat) || !isValidLongitude(center.Lng) {
		return nil, ErrInvalidLocation
	}

	if radiusKm <= 0 {
		radiusKm = p.radiusKm
	}
	delta := radiusKm / kmPerDegree

	return p.driverRepo.FindAvailable(ctx, repository.AvailableQuery{
		MinLat:       center.Lat - delta,
		MaxLat:       center.Lat + delta,
		MinLng:       center.Lng - delta,
		MaxLng:       center.Lng + delta,
		VehicleClass: class,
		Limit:        p.limit,
	})
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
