package persistence

import (
	"context"
	"errors"
	"fmt"

	appinv "github.com/erp/warehouse/internal/application/inventory"
	apptrade "github.com/erp/warehouse/internal/application/trade"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATEs that abort a transaction only because of concurrent work
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// GormTransactionScope implements the application TransactionScopes using
// GORM transactions. If the function returns an error the transaction is
// rolled back, otherwise it is committed.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn inside a transaction with inventory repositories bound to it.
// Deadlocks and serialization failures come back as ErrConcurrencyConflict so
// callers retry them.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return translateTxError(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	}))
}

// Trade returns a scope that hands out the repositories used by receiving.
func (s *GormTransactionScope) Trade() *GormTradeTransactionScope {
	return &GormTradeTransactionScope{db: s.db}
}

// GormTradeTransactionScope runs receiving work in a single transaction
type GormTradeTransactionScope struct {
	db *gorm.DB
}

// Execute runs fn inside a transaction with trade repositories bound to it.
func (s *GormTradeTransactionScope) Execute(ctx context.Context, fn func(repos apptrade.TransactionalRepositories) error) error {
	return translateTxError(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	}))
}

func translateTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgDeadlockDetected, pgSerializationFailure:
			return fmt.Errorf("%w: %w", shared.ErrConcurrencyConflict, err)
		}
	}
	return err
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// BatchRepo returns the batch repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BatchRepo() inventory.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

// AllocationRepo returns the allocation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AllocationRepo() inventory.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

// MovementRepo returns the movement repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MovementRepo() inventory.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

// PurchaseOrderRepo returns the purchase order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PurchaseOrderRepo() trade.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}

var (
	_ appinv.TransactionScope            = (*GormTransactionScope)(nil)
	_ apptrade.TransactionScope          = (*GormTradeTransactionScope)(nil)
	_ appinv.TransactionalRepositories   = (*gormTransactionalRepositories)(nil)
	_ apptrade.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
