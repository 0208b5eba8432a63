package trade

import (
	"context"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByID finds a purchase order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByLineIDForUpdate finds the order owning a line, locking the order
	// and its lines until the transaction ends
	FindByLineIDForUpdate(ctx context.Context, lineID uuid.UUID) (*PurchaseOrder, error)

	// FindAll lists purchase orders, optionally filtered by status
	FindAll(ctx context.Context, filter PurchaseOrderFilter) ([]PurchaseOrder, int64, error)

	// ExistsByOrderNumber checks if an order number is already used
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)

	// Create inserts a new purchase order with its lines
	Create(ctx context.Context, order *PurchaseOrder) error

	// SaveLine persists a line's received quantity
	SaveLine(ctx context.Context, line *PurchaseOrderLine) error

	// SaveStatus persists the derived status with a version check.
	// Returns shared.ErrConcurrencyConflict if the version changed.
	SaveStatus(ctx context.Context, order *PurchaseOrder) error
}

// PurchaseOrderFilter narrows purchase order listings
type PurchaseOrderFilter struct {
	shared.Filter
	Status      *PurchaseOrderStatus
	WarehouseID *uuid.UUID
}

// OrderStageRepository stores the custom order stages
type OrderStageRepository interface {
	FindAll(ctx context.Context) ([]OrderStage, error)
	// ReplaceAll overwrites the stored custom stages with the given set
	ReplaceAll(ctx context.Context, stages []OrderStage) error
}
