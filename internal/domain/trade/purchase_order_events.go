package trade

import (
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event type constants
const (
	EventTypeGoodsReceived              = "GoodsReceived"
	EventTypePurchaseOrderStatusChanged = "PurchaseOrderStatusChanged"
)

// GoodsReceivedEvent is raised for every accepted receipt against a line
type GoodsReceivedEvent struct {
	shared.BaseDomainEvent
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	LineID           uuid.UUID `json:"line_id"`
	ProductID        uuid.UUID `json:"product_id"`
	WarehouseID      uuid.UUID `json:"warehouse_id"`
	Quantity         int64     `json:"quantity"`
	ReceivedQuantity int64     `json:"received_quantity"`
	OrderedQuantity  int64     `json:"ordered_quantity"`
}

// NewGoodsReceivedEvent creates a new GoodsReceivedEvent
func NewGoodsReceivedEvent(order *PurchaseOrder, line *PurchaseOrderLine, quantity int64) *GoodsReceivedEvent {
	return &GoodsReceivedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeGoodsReceived, AggregateTypePurchaseOrder, order.ID),
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		LineID:           line.ID,
		ProductID:        line.ProductID,
		WarehouseID:      order.WarehouseID,
		Quantity:         quantity,
		ReceivedQuantity: line.ReceivedQuantity,
		OrderedQuantity:  line.OrderedQuantity,
	}
}

// PurchaseOrderStatusChangedEvent is raised when the derived status moves
type PurchaseOrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	From        PurchaseOrderStatus `json:"from"`
	To          PurchaseOrderStatus `json:"to"`
}

// NewPurchaseOrderStatusChangedEvent creates a new PurchaseOrderStatusChangedEvent
func NewPurchaseOrderStatusChangedEvent(order *PurchaseOrder, from PurchaseOrderStatus) *PurchaseOrderStatusChangedEvent {
	return &PurchaseOrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderStatusChanged, AggregateTypePurchaseOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		From:            from,
		To:              order.Status,
	}
}
