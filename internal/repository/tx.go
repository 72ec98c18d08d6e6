package repository

import "context"

// Transactor runs a function against transaction-scoped repositories. The
// function's writes commit atomically; any error rolls everything back.
// Acceptance and terminal transitions use this to pair the ride's conditional
// write with the driver availability flip.
type Transactor interface {
	InTx(ctx context.Context, fn func(rides RideRepository, drivers DriverRepository) error) error
}
