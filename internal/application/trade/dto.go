package trade

import (
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePurchaseOrderLineInput is one line of a new purchase order
type CreatePurchaseOrderLineInput struct {
	ProductID       uuid.UUID
	OrderedQuantity int64
	UnitPrice       decimal.Decimal
}

// CreatePurchaseOrderRequest creates a confirmed purchase order
type CreatePurchaseOrderRequest struct {
	OrderNumber  string
	SupplierName string
	WarehouseID  uuid.UUID
	Lines        []CreatePurchaseOrderLineInput
}

// ReceiveRequest records goods received against one purchase order line
type ReceiveRequest struct {
	POLineID    uuid.UUID
	Quantity    int64
	UnitCost    *decimal.Decimal
	BatchNumber string
	ReceivedAt  time.Time
	ExpiresAt   *time.Time
	Location    string
}

// PurchaseOrderLineResponse represents a purchase order line
type PurchaseOrderLineResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	OrderedQuantity   int64           `json:"ordered_quantity"`
	ReceivedQuantity  int64           `json:"received_quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
}

// PurchaseOrderResponse represents a purchase order
type PurchaseOrderResponse struct {
	ID           uuid.UUID                   `json:"id"`
	OrderNumber  string                      `json:"order_number"`
	SupplierName string                      `json:"supplier_name"`
	WarehouseID  uuid.UUID                   `json:"warehouse_id"`
	Status       string                      `json:"status"`
	TotalAmount  decimal.Decimal             `json:"total_amount"`
	Lines        []PurchaseOrderLineResponse `json:"lines"`
	ReceivedAt   *time.Time                  `json:"received_at,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	Version      int                         `json:"version"`
}

// ToPurchaseOrderResponse converts a domain purchase order
func ToPurchaseOrderResponse(o *trade.PurchaseOrder) PurchaseOrderResponse {
	lines := make([]PurchaseOrderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = PurchaseOrderLineResponse{
			ID:                l.ID,
			ProductID:         l.ProductID,
			OrderedQuantity:   l.OrderedQuantity,
			ReceivedQuantity:  l.ReceivedQuantity,
			RemainingQuantity: l.RemainingQuantity(),
			UnitPrice:         l.UnitPrice,
		}
	}
	return PurchaseOrderResponse{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		SupplierName: o.SupplierName,
		WarehouseID:  o.WarehouseID,
		Status:       o.Status.String(),
		TotalAmount:  o.TotalAmount(),
		Lines:        lines,
		ReceivedAt:   o.ReceivedAt,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		Version:      o.Version,
	}
}

// ReceivedBatch describes the batch a receipt landed in
type ReceivedBatch struct {
	ID          uuid.UUID       `json:"id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Merged      bool            `json:"merged"`
}

// ReceivingResult is returned by a successful receipt
type ReceivingResult struct {
	PurchaseOrderID   uuid.UUID     `json:"purchase_order_id"`
	OrderNumber       string        `json:"order_number"`
	POLineID          uuid.UUID     `json:"po_line_id"`
	ReceivedQuantity  int64         `json:"received_quantity"`
	OrderedQuantity   int64         `json:"ordered_quantity"`
	RemainingQuantity int64         `json:"remaining_quantity"`
	Status            string        `json:"status"`
	Batch             ReceivedBatch `json:"batch"`
	MovementID        uuid.UUID     `json:"movement_id"`
	StockAfter        int64         `json:"stock_after"`
}

// MovementResponse represents an inventory movement
type MovementResponse struct {
	ID                  uuid.UUID  `json:"id"`
	ProductID           uuid.UUID  `json:"product_id"`
	WarehouseID         uuid.UUID  `json:"warehouse_id"`
	BatchID             *uuid.UUID `json:"batch_id,omitempty"`
	MovementType        string     `json:"movement_type"`
	Quantity            int64      `json:"quantity"`
	StockAfter          int64      `json:"stock_after"`
	PurchaseOrderID     *uuid.UUID `json:"purchase_order_id,omitempty"`
	PurchaseOrderLineID *uuid.UUID `json:"purchase_order_line_id,omitempty"`
	Reference           string     `json:"reference,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ToMovementResponses converts movements
func ToMovementResponses(movements []inventory.InventoryMovement) []MovementResponse {
	out := make([]MovementResponse, len(movements))
	for i, m := range movements {
		out[i] = MovementResponse{
			ID:                  m.ID,
			ProductID:           m.ProductID,
			WarehouseID:         m.WarehouseID,
			BatchID:             m.BatchID,
			MovementType:        string(m.MovementType),
			Quantity:            m.Quantity,
			StockAfter:          m.StockAfter,
			PurchaseOrderID:     m.PurchaseOrderID,
			PurchaseOrderLineID: m.PurchaseOrderLineID,
			Reference:           m.Reference,
			CreatedAt:           m.CreatedAt,
		}
	}
	return out
}
