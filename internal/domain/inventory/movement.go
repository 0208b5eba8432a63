package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// MovementType classifies an inventory movement
type MovementType string

const (
	MovementTypeReceipt MovementType = "RECEIPT"
	MovementTypeOpening MovementType = "OPENING"
)

// IsValid checks if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeReceipt, MovementTypeOpening:
		return true
	}
	return false
}

// InventoryMovement is an append-only ledger row for stock entering a
// warehouse outside of order allocation. Quantity is always positive.
type InventoryMovement struct {
	ID                  uuid.UUID
	ProductID           uuid.UUID
	WarehouseID         uuid.UUID
	BatchID             *uuid.UUID
	MovementType        MovementType
	Quantity            int64
	StockAfter          int64
	PurchaseOrderID     *uuid.UUID
	PurchaseOrderLineID *uuid.UUID
	Reference           string
	CreatedAt           time.Time
}

// MovementInput carries the fields for a new movement
type MovementInput struct {
	ProductID           uuid.UUID
	WarehouseID         uuid.UUID
	BatchID             *uuid.UUID
	MovementType        MovementType
	Quantity            int64
	StockAfter          int64
	PurchaseOrderID     *uuid.UUID
	PurchaseOrderLineID *uuid.UUID
	Reference           string
}

// NewInventoryMovement validates and creates a movement row
func NewInventoryMovement(in MovementInput) (*InventoryMovement, error) {
	if !in.MovementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Invalid movement type")
	}
	if in.Quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Movement quantity must be positive")
	}
	if in.StockAfter < 0 {
		return nil, shared.NewDomainError("INVALID_STATE", "Stock after movement cannot be negative")
	}
	return &InventoryMovement{
		ID:                  uuid.New(),
		ProductID:           in.ProductID,
		WarehouseID:         in.WarehouseID,
		BatchID:             in.BatchID,
		MovementType:        in.MovementType,
		Quantity:            in.Quantity,
		StockAfter:          in.StockAfter,
		PurchaseOrderID:     in.PurchaseOrderID,
		PurchaseOrderLineID: in.PurchaseOrderLineID,
		Reference:           in.Reference,
		CreatedAt:           time.Now(),
	}, nil
}
