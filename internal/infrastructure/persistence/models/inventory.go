package models

import (
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchModel is the persistence model for the Batch entity.
type BatchModel struct {
	BaseModel
	ProductID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_product_warehouse,priority:1"`
	WarehouseID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_product_warehouse,priority:2"`
	BatchNumber         string          `gorm:"type:varchar(50);not null;index"`
	Quantity            int64           `gorm:"not null;check:chk_batches_quantity,quantity >= 0"`
	OriginalQuantity    int64           `gorm:"not null"`
	UnitCost            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReceivedAt          time.Time       `gorm:"not null;index"`
	ExpiresAt           *time.Time      `gorm:"index"`
	Location            string          `gorm:"type:varchar(100)"`
	PurchaseOrderLineID *uuid.UUID      `gorm:"type:uuid;index"`
	Version             int             `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "batches"
}

// ToDomain converts the persistence model to a domain Batch entity.
func (m *BatchModel) ToDomain() *inventory.Batch {
	return &inventory.Batch{
		BaseEntity:          m.BaseModel.ToDomain(),
		ProductID:           m.ProductID,
		WarehouseID:         m.WarehouseID,
		BatchNumber:         m.BatchNumber,
		Quantity:            m.Quantity,
		OriginalQuantity:    m.OriginalQuantity,
		UnitCost:            m.UnitCost,
		ReceivedAt:          m.ReceivedAt,
		ExpiresAt:           m.ExpiresAt,
		Location:            m.Location,
		PurchaseOrderLineID: m.PurchaseOrderLineID,
		Version:             m.Version,
	}
}

// FromDomain populates the persistence model from a domain Batch entity.
func (m *BatchModel) FromDomain(b *inventory.Batch) {
	m.FromDomainBaseEntity(b.BaseEntity)
	m.ProductID = b.ProductID
	m.WarehouseID = b.WarehouseID
	m.BatchNumber = b.BatchNumber
	m.Quantity = b.Quantity
	m.OriginalQuantity = b.OriginalQuantity
	m.UnitCost = b.UnitCost
	m.ReceivedAt = b.ReceivedAt
	m.ExpiresAt = b.ExpiresAt
	m.Location = b.Location
	m.PurchaseOrderLineID = b.PurchaseOrderLineID
	m.Version = b.Version
}

// BatchModelFromDomain creates a new persistence model from a domain Batch entity.
func BatchModelFromDomain(b *inventory.Batch) *BatchModel {
	m := &BatchModel{}
	m.FromDomain(b)
	return m
}

// AllocationModel is the persistence model for an allocation ledger row.
type AllocationModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderLineID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_allocations_line_batch,priority:1"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null"`
	BatchID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_allocations_line_batch,priority:2"`
	Quantity    int64     `gorm:"not null"`
	Strategy    string    `gorm:"type:varchar(10);not null"`
	AllocatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "allocations"
}

// ToDomain converts the persistence model to a domain Allocation.
func (m *AllocationModel) ToDomain() *inventory.Allocation {
	return &inventory.Allocation{
		ID:          m.ID,
		OrderID:     m.OrderID,
		OrderLineID: m.OrderLineID,
		ProductID:   m.ProductID,
		WarehouseID: m.WarehouseID,
		BatchID:     m.BatchID,
		Quantity:    m.Quantity,
		Strategy:    inventory.AllocationStrategy(m.Strategy),
		AllocatedAt: m.AllocatedAt,
	}
}

// AllocationModelFromDomain creates a new persistence model from a domain Allocation.
func AllocationModelFromDomain(a *inventory.Allocation) *AllocationModel {
	return &AllocationModel{
		ID:          a.ID,
		OrderID:     a.OrderID,
		OrderLineID: a.OrderLineID,
		ProductID:   a.ProductID,
		WarehouseID: a.WarehouseID,
		BatchID:     a.BatchID,
		Quantity:    a.Quantity,
		Strategy:    string(a.Strategy),
		AllocatedAt: a.AllocatedAt,
	}
}

// OrderClaimModel marks an order as fulfilled. Its primary key serializes
// concurrent fulfillments and reversals of the same order.
type OrderClaimModel struct {
	OrderID   uuid.UUID `gorm:"type:uuid;primary_key"`
	ClaimedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderClaimModel) TableName() string {
	return "order_claims"
}

// InventoryMovementModel is the persistence model for a movement ledger row.
type InventoryMovementModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primary_key"`
	ProductID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_movements_product_warehouse,priority:1"`
	WarehouseID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_movements_product_warehouse,priority:2"`
	BatchID             *uuid.UUID `gorm:"type:uuid;index"`
	MovementType        string     `gorm:"type:varchar(20);not null"`
	Quantity            int64      `gorm:"not null"`
	StockAfter          int64      `gorm:"not null"`
	PurchaseOrderID     *uuid.UUID `gorm:"type:uuid;index"`
	PurchaseOrderLineID *uuid.UUID `gorm:"type:uuid"`
	Reference           string     `gorm:"type:varchar(100)"`
	CreatedAt           time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InventoryMovementModel) TableName() string {
	return "inventory_movements"
}

// ToDomain converts the persistence model to a domain InventoryMovement.
func (m *InventoryMovementModel) ToDomain() *inventory.InventoryMovement {
	return &inventory.InventoryMovement{
		ID:                  m.ID,
		ProductID:           m.ProductID,
		WarehouseID:         m.WarehouseID,
		BatchID:             m.BatchID,
		MovementType:        inventory.MovementType(m.MovementType),
		Quantity:            m.Quantity,
		StockAfter:          m.StockAfter,
		PurchaseOrderID:     m.PurchaseOrderID,
		PurchaseOrderLineID: m.PurchaseOrderLineID,
		Reference:           m.Reference,
		CreatedAt:           m.CreatedAt,
	}
}

// InventoryMovementModelFromDomain creates a new persistence model from a domain InventoryMovement.
func InventoryMovementModelFromDomain(mv *inventory.InventoryMovement) *InventoryMovementModel {
	return &InventoryMovementModel{
		ID:                  mv.ID,
		ProductID:           mv.ProductID,
		WarehouseID:         mv.WarehouseID,
		BatchID:             mv.BatchID,
		MovementType:        string(mv.MovementType),
		Quantity:            mv.Quantity,
		StockAfter:          mv.StockAfter,
		PurchaseOrderID:     mv.PurchaseOrderID,
		PurchaseOrderLineID: mv.PurchaseOrderLineID,
		Reference:           mv.Reference,
		CreatedAt:           mv.CreatedAt,
	}
}
