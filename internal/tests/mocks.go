package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ridedispatch/internal/broadcast"
	"ridedispatch/internal/domain"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is an in-memory RideRepository. The conditional
// mutations take the write lock for their whole read-check-write, mirroring
// the row-level atomicity of the real store, so concurrent Accept calls see
// exactly one winner.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount int32
	AcceptCallCount int32

	// Error injection
	CreateError error
	AcceptError error
	GetError    error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

// GetRide returns the stored ride for test assertions.
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rides {
		if r.RiderID == ride.RiderID && !r.Status.IsTerminal() {
			return repository.ErrDuplicate
		}
	}
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Ride, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.RiderID == riderID && !r.Status.IsTerminal() {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockRideRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Ride, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.DriverID == driverID && !r.Status.IsTerminal() && r.Status != domain.RideStatusRequested {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockRideRepository) Accept(ctx context.Context, rideID, driverID string, at time.Time) (int64, error) {
	atomic.AddInt32(&m.AcceptCallCount, 1)
	if m.AcceptError != nil {
		return 0, m.AcceptError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusRequested {
		return 0, nil
	}
	ride.DriverID = driverID
	ride.Status = domain.RideStatusAccepted
	ride.AcceptedAt = at
	return 1, nil
}

func (m *MockRideRepository) UpdateStatus(ctx context.Context, rideID string, from, to domain.RideStatus, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != from {
		return 0, nil
	}
	ride.Status = to
	switch to {
	case domain.RideStatusDriverArrived:
		ride.ArrivedAt = at
	case domain.RideStatusInProgress:
		ride.StartedAt = at
	}
	return 1, nil
}

func (m *MockRideRepository) Complete(ctx context.Context, rideID string, res repository.Completion) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusInProgress {
		return 0, nil
	}
	ride.Status = domain.RideStatusCompleted
	ride.ActualDistanceKm = res.ActualDistanceKm
	ride.ActualDurationMin = res.ActualDurationMin
	ride.Fare = res.Fare
	ride.PaymentStatus = domain.PaymentStatusCompleted
	ride.CompletedAt = res.At
	return 1, nil
}

func (m *MockRideRepository) Cancel(ctx context.Context, rideID string, from, to domain.RideStatus, reason string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != from {
		return 0, nil
	}
	ride.Status = to
	ride.CancelReason = reason
	ride.CancelledAt = at
	return 1, nil
}

func (m *MockRideRepository) ListByParticipant(ctx context.Context, userID string, status domain.RideStatus, limit int) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.RiderID != userID && r.DriverID != userID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockRideRepository) CountCompletedByDriverID(ctx context.Context, driverID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.rides {
		if r.DriverID == driverID && r.Status == domain.RideStatusCompleted {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is an in-memory DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	SetOnlineCallCount   int32
	AddEarningsCallCount int32

	// Error injection
	CreateError      error
	SetOnlineError   error
	AddEarningsError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

// GetDriver returns the stored driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.drivers {
		if d.LicenseNumber == driver.LicenseNumber || d.LicensePlate == driver.LicensePlate {
			return repository.ErrDuplicate
		}
	}
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) SetOnline(ctx context.Context, id string, online bool) error {
	atomic.AddInt32(&m.SetOnlineCallCount, 1)
	if m.SetOnlineError != nil {
		return m.SetOnlineError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Online = online
	return nil
}

func (m *MockDriverRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Approved = approved
	return nil
}

func (m *MockDriverRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Location = &domain.Location{Lat: lat, Lng: lng}
	return nil
}

func (m *MockDriverRepository) FindAvailable(ctx context.Context, q repository.AvailableQuery) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Driver
	for _, d := range m.drivers {
		if !d.Online || !d.Approved || d.Location == nil {
			continue
		}
		if d.Location.Lat < q.MinLat || d.Location.Lat > q.MaxLat ||
			d.Location.Lng < q.MinLng || d.Location.Lng > q.MaxLng {
			continue
		}
		if q.VehicleClass != "" && d.VehicleClass != q.VehicleClass {
			continue
		}
		copy := *d
		result = append(result, &copy)
		if q.Limit > 0 && len(result) == q.Limit {
			break
		}
	}
	return result, nil
}

func (m *MockDriverRepository) AddEarnings(ctx context.Context, id string, amount domain.Money) error {
	atomic.AddInt32(&m.AddEarningsCallCount, 1)
	if m.AddEarningsError != nil {
		return m.AddEarningsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Earnings += amount
	return nil
}

// ──────────────────────────────────────────────
// MOCK TRANSACTOR
// ──────────────────────────────────────────────

// MockTransactor runs the transactional function directly against the mock
// repositories. Atomicity is approximated: each mock mutation is individually
// locked, which is enough for the race the services guard against.
type MockTransactor struct {
	Rides   *MockRideRepository
	Drivers *MockDriverRepository

	// Error injection: returned before fn runs.
	BeginError error
}

// NewMockTransactor creates a transactor over the given mock repositories.
func NewMockTransactor(rides *MockRideRepository, drivers *MockDriverRepository) *MockTransactor {
	return &MockTransactor{Rides: rides, Drivers: drivers}
}

func (m *MockTransactor) InTx(ctx context.Context, fn func(rides repository.RideRepository, drivers repository.DriverRepository) error) error {
	if m.BeginError != nil {
		return m.BeginError
	}
	return fn(m.Rides, m.Drivers)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is an in-memory CacheStoreInterface without TTL behavior.
type MockCacheStore struct {
	mu        sync.RWMutex
	rides     map[string]*domain.Ride
	drivers   map[string]*domain.Driver
	stats     map[string]*redis.DriverStats
	locations map[string]domain.Location

	// Counters for verification
	SetRideCallCount int32

	// Error injection
	GetError error
	SetError error
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		rides:     make(map[string]*domain.Ride),
		drivers:   make(map[string]*domain.Driver),
		stats:     make(map[string]*redis.DriverStats),
		locations: make(map[string]domain.Location),
	}
}

func (m *MockCacheStore) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[rideID], nil
}

func (m *MockCacheStore) SetRide(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.SetRideCallCount, 1)
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockCacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rides, rideID)
	return nil
}

func (m *MockCacheStore) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[driverID], nil
}

func (m *MockCacheStore) SetDriver(ctx context.Context, driver *domain.Driver) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

func (m *MockCacheStore) InvalidateDriver(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drivers, driverID)
	delete(m.stats, driverID)
	return nil
}

func (m *MockCacheStore) GetDriverStats(ctx context.Context, driverID string) (*redis.DriverStats, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats[driverID], nil
}

func (m *MockCacheStore) SetDriverStats(ctx context.Context, stats *redis.DriverStats) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *stats
	m.stats[stats.DriverID] = &copy
	return nil
}

func (m *MockCacheStore) InvalidateDriverStats(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stats, driverID)
	return nil
}

func (m *MockCacheStore) SetDriverLocation(ctx context.Context, driverID string, loc domain.Location) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = loc
	return nil
}

func (m *MockCacheStore) GetDriverLocation(ctx context.Context, driverID string) (*domain.Location, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[driverID]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

// CachedRide returns the cached ride for test assertions.
func (m *MockCacheStore) CachedRide(rideID string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[rideID]
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is an in-memory geo index.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.DriverLocation

	UpdateError error
	NearbyError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]redis.DriverLocation),
	}
}

func (m *MockLocationStore) Update(ctx context.Context, driverID string, lat, lng float64) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockLocationStore) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	if m.NearbyError != nil {
		return nil, m.NearbyError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]redis.DriverLocation, 0, len(m.locations))
	for _, loc := range m.locations {
		result = append(result, loc)
	}
	return result, nil
}

func (m *MockLocationStore) Remove(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// Has reports whether the driver is present in the index.
func (m *MockLocationStore) Has(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[driverID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK BROADCASTER
// ──────────────────────────────────────────────

// MockBroadcaster records published events per topic. Subscribe is served by
// a real hub so session-level code can still be exercised against it.
type MockBroadcaster struct {
	mu     sync.RWMutex
	events map[string][]domain.Event
	hub    *broadcast.Hub
}

// NewMockBroadcaster creates a new mock broadcaster.
func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{
		events: make(map[string][]domain.Event),
		hub:    broadcast.NewHub(nil),
	}
}

func (m *MockBroadcaster) Publish(topic string, event domain.Event) {
	m.mu.Lock()
	m.events[topic] = append(m.events[topic], event)
	m.mu.Unlock()
	m.hub.Publish(topic, event)
}

func (m *MockBroadcaster) Subscribe(topic string) *broadcast.Subscription {
	return m.hub.Subscribe(topic)
}

// Events returns the events published to a topic.
func (m *MockBroadcaster) Events(topic string) []domain.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Event, len(m.events[topic]))
	copy(out, m.events[topic])
	return out
}

// EventCount returns the total number of events published to a topic.
func (m *MockBroadcaster) EventCount(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events[topic])
}

// Interface conformance checks.
var (
	_ repository.RideRepository    = (*MockRideRepository)(nil)
	_ repository.DriverRepository  = (*MockDriverRepository)(nil)
	_ repository.Transactor        = (*MockTransactor)(nil)
	_ redis.CacheStoreInterface    = (*MockCacheStore)(nil)
	_ redis.LocationStoreInterface = (*MockLocationStore)(nil)
	_ broadcast.Broadcaster        = (*MockBroadcaster)(nil)
)
