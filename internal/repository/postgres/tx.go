package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ridedispatch/internal/repository"
)

// Transactor runs repository operations inside a single database transaction.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a new Transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// InTx begins a transaction, hands transaction-scoped repositories to fn,
// and commits if fn returns nil.
func (t *Transactor) InTx(ctx context.Context, fn func(rides repository.RideRepository, drivers repository.DriverRepository) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(NewRideRepositoryWithTx(tx), NewDriverRepositoryWithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

var _ repository.Transactor = (*Transactor)(nil)
