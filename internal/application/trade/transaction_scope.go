package trade

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/trade"
)

// TransactionScope provides transactional access to the repositories touched
// by a receipt. Everything inside Execute commits or rolls back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to one transaction
type TransactionalRepositories interface {
	PurchaseOrderRepo() trade.PurchaseOrderRepository
	BatchRepo() inventory.BatchRepository
	MovementRepo() inventory.MovementRepository
}
