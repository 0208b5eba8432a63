package inventory

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
)

// TransactionScope provides transactional access to inventory repositories.
// All repository operations inside Execute are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to one transaction.
//   - BatchRepo: on-hand quantities; the only writer of batch quantity.
//   - AllocationRepo: the allocation ledger.
//   - MovementRepo: append-only movement ledger for stock entering the warehouse.
type TransactionalRepositories interface {
	BatchRepo() inventory.BatchRepository
	AllocationRepo() inventory.AllocationRepository
	MovementRepo() inventory.MovementRepository
}
