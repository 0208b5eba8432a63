package inventory

import (
	"context"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// BatchRepository defines the interface for batch persistence.
// Quantity changes go through DecrementQuantity and IncrementQuantity so the
// floor check is enforced by the store.
type BatchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	FindByProductAndWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) ([]Batch, error)
	FindAll(ctx context.Context, filter BatchFilter) ([]Batch, int64, error)

	// FindAvailableForUpdate returns the batches with quantity > 0 for a product
	// in a warehouse, locking the rows until the transaction ends.
	FindAvailableForUpdate(ctx context.Context, productID, warehouseID uuid.UUID) ([]Batch, error)

	// FindByIDsForUpdate locks and returns the given batches
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Batch, error)

	// FindMergeCandidate returns a batch received against the same purchase
	// order line that may absorb a further identical receipt.
	FindMergeCandidate(ctx context.Context, poLineID uuid.UUID) (*Batch, error)

	Create(ctx context.Context, batch *Batch) error

	// DecrementQuantity subtracts quantity only if the batch still holds at
	// least that much. Returns shared.ErrConcurrencyConflict otherwise.
	DecrementQuantity(ctx context.Context, id uuid.UUID, quantity int64) error

	// IncrementQuantity adds quantity back to a batch
	IncrementQuantity(ctx context.Context, id uuid.UUID, quantity int64) error

	// Replenish raises both on-hand and received quantity of a merged lot
	Replenish(ctx context.Context, id uuid.UUID, quantity int64) error

	// SumAvailable returns on-hand stock for a product in a warehouse
	SumAvailable(ctx context.Context, productID, warehouseID uuid.UUID) (int64, error)
}

// BatchFilter narrows batch listings
type BatchFilter struct {
	shared.Filter
	ProductID     *uuid.UUID
	WarehouseID   *uuid.UUID
	AvailableOnly bool
}

// AllocationRepository defines the interface for the allocation ledger
type AllocationRepository interface {
	CreateBatch(ctx context.Context, allocations []Allocation) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Allocation, error)
	FindByOrderForUpdate(ctx context.Context, orderID uuid.UUID) ([]Allocation, error)
	FindByOrderLine(ctx context.Context, orderLineID uuid.UUID) ([]Allocation, error)
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]Allocation, error)
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	SumByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	// ClaimOrder records that an order is being fulfilled. It returns false
	// when the order already holds a claim; a concurrent claimant waits for
	// the first one to commit or roll back.
	ClaimOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	// ReleaseOrder drops the claim of an order and reports whether one existed
	ReleaseOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// MovementRepository defines the interface for the inventory movement ledger
type MovementRepository interface {
	Create(ctx context.Context, movement *InventoryMovement) error
	FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]InventoryMovement, error)
	FindByProductAndWarehouse(ctx context.Context, productID, warehouseID uuid.UUID, filter shared.Filter) ([]InventoryMovement, int64, error)
}
