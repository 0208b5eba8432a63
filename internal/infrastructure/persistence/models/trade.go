package models

import (
	"time"

	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root.
type PurchaseOrderModel struct {
	AggregateModel
	OrderNumber  string                   `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierName string                   `gorm:"type:varchar(200)"`
	WarehouseID  uuid.UUID                `gorm:"type:uuid;not null;index"`
	Status       string                   `gorm:"type:varchar(20);not null;index"`
	ReceivedAt   *time.Time
	Lines        []PurchaseOrderLineModel `gorm:"foreignKey:PurchaseOrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder.
func (m *PurchaseOrderModel) ToDomain() *trade.PurchaseOrder {
	order := &trade.PurchaseOrder{
		BaseAggregateRoot: m.ToAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		SupplierName:      m.SupplierName,
		WarehouseID:       m.WarehouseID,
		Status:            trade.PurchaseOrderStatus(m.Status),
		ReceivedAt:        m.ReceivedAt,
		Lines:             make([]trade.PurchaseOrderLine, len(m.Lines)),
	}
	for i := range m.Lines {
		order.Lines[i] = *m.Lines[i].ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain PurchaseOrder.
func (m *PurchaseOrderModel) FromDomain(o *trade.PurchaseOrder) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.SupplierName = o.SupplierName
	m.WarehouseID = o.WarehouseID
	m.Status = string(o.Status)
	m.ReceivedAt = o.ReceivedAt
	m.Lines = make([]PurchaseOrderLineModel, len(o.Lines))
	for i := range o.Lines {
		m.Lines[i] = *PurchaseOrderLineModelFromDomain(&o.Lines[i])
	}
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain PurchaseOrder.
func PurchaseOrderModelFromDomain(o *trade.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(o)
	return m
}

// PurchaseOrderLineModel is the persistence model for a purchase order line.
type PurchaseOrderLineModel struct {
	BaseModel
	PurchaseOrderID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderedQuantity  int64           `gorm:"not null"`
	ReceivedQuantity int64           `gorm:"not null;default:0"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLineModel) TableName() string {
	return "purchase_order_lines"
}

// ToDomain converts the persistence model to a domain PurchaseOrderLine.
func (m *PurchaseOrderLineModel) ToDomain() *trade.PurchaseOrderLine {
	return &trade.PurchaseOrderLine{
		BaseEntity:       m.BaseModel.ToDomain(),
		PurchaseOrderID:  m.PurchaseOrderID,
		ProductID:        m.ProductID,
		OrderedQuantity:  m.OrderedQuantity,
		ReceivedQuantity: m.ReceivedQuantity,
		UnitPrice:        m.UnitPrice,
	}
}

// PurchaseOrderLineModelFromDomain creates a new persistence model from a domain PurchaseOrderLine.
func PurchaseOrderLineModelFromDomain(l *trade.PurchaseOrderLine) *PurchaseOrderLineModel {
	m := &PurchaseOrderLineModel{
		PurchaseOrderID:  l.PurchaseOrderID,
		ProductID:        l.ProductID,
		OrderedQuantity:  l.OrderedQuantity,
		ReceivedQuantity: l.ReceivedQuantity,
		UnitPrice:        l.UnitPrice,
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	return m
}

// OrderStageModel is the persistence model for a custom order stage.
// The reserved Ready to Ship stage is never stored.
type OrderStageModel struct {
	Code      string    `gorm:"type:varchar(50);primary_key"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Position  int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderStageModel) TableName() string {
	return "order_stages"
}

// ToDomain converts the persistence model to a domain OrderStage.
func (m *OrderStageModel) ToDomain() trade.OrderStage {
	return trade.OrderStage{
		Code:     m.Code,
		Name:     m.Name,
		Position: m.Position,
	}
}
