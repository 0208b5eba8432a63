package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineInput is one line of an order to fulfill
type OrderLineInput struct {
	OrderLineID uuid.UUID
	ProductID   uuid.UUID
	Quantity    int64
}

// FulfillOrderRequest asks for every line of an order to be allocated
type FulfillOrderRequest struct {
	OrderID     uuid.UUID
	WarehouseID uuid.UUID
	Strategy    inventory.AllocationStrategy
	Lines       []OrderLineInput
}

// PlanAllocationRequest asks for a read-only allocation preview
type PlanAllocationRequest struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    int64
	Strategy    inventory.AllocationStrategy
}

// ImportBatchRequest loads opening stock as a new batch
type ImportBatchRequest struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	BatchNumber string
	Quantity    int64
	UnitCost    decimal.Decimal
	ReceivedAt  time.Time
	ExpiresAt   *time.Time
	Location    string
	Reference   string
}

// BatchResponse represents a batch in API responses
type BatchResponse struct {
	ID                  uuid.UUID       `json:"id"`
	ProductID           uuid.UUID       `json:"product_id"`
	WarehouseID         uuid.UUID       `json:"warehouse_id"`
	BatchNumber         string          `json:"batch_number"`
	Quantity            int64           `json:"quantity"`
	OriginalQuantity    int64           `json:"original_quantity"`
	UnitCost            decimal.Decimal `json:"unit_cost"`
	Value               decimal.Decimal `json:"value"`
	ReceivedAt          time.Time       `json:"received_at"`
	ExpiresAt           *time.Time      `json:"expires_at,omitempty"`
	Location            string          `json:"location,omitempty"`
	PurchaseOrderLineID *uuid.UUID      `json:"purchase_order_line_id,omitempty"`
}

// ToBatchResponse converts a domain batch to a response
func ToBatchResponse(b *inventory.Batch) BatchResponse {
	return BatchResponse{
		ID:                  b.ID,
		ProductID:           b.ProductID,
		WarehouseID:         b.WarehouseID,
		BatchNumber:         b.BatchNumber,
		Quantity:            b.Quantity,
		OriginalQuantity:    b.OriginalQuantity,
		UnitCost:            b.UnitCost,
		Value:               b.Value(),
		ReceivedAt:          b.ReceivedAt,
		ExpiresAt:           b.ExpiresAt,
		Location:            b.Location,
		PurchaseOrderLineID: b.PurchaseOrderLineID,
	}
}

// ToBatchResponses converts a slice of domain batches
func ToBatchResponses(batches []inventory.Batch) []BatchResponse {
	out := make([]BatchResponse, len(batches))
	for i := range batches {
		out[i] = ToBatchResponse(&batches[i])
	}
	return out
}

// AllocationResponse represents an allocation ledger row
type AllocationResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderLineID uuid.UUID `json:"order_line_id"`
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	BatchID     uuid.UUID `json:"batch_id"`
	Quantity    int64     `json:"quantity"`
	Strategy    string    `json:"strategy"`
	AllocatedAt time.Time `json:"allocated_at"`
}

// ToAllocationResponses converts allocation rows
func ToAllocationResponses(allocations []inventory.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, len(allocations))
	for i, a := range allocations {
		out[i] = AllocationResponse{
			ID:          a.ID,
			OrderID:     a.OrderID,
			OrderLineID: a.OrderLineID,
			ProductID:   a.ProductID,
			WarehouseID: a.WarehouseID,
			BatchID:     a.BatchID,
			Quantity:    a.Quantity,
			Strategy:    a.Strategy.String(),
			AllocatedAt: a.AllocatedAt,
		}
	}
	return out
}

// AllocationPlanResponse is the read-only allocation preview
type AllocationPlanResponse struct {
	ProductID   uuid.UUID                  `json:"product_id"`
	WarehouseID uuid.UUID                  `json:"warehouse_id"`
	Requested   int64                      `json:"requested"`
	Strategy    string                     `json:"strategy"`
	Draws       []inventory.AllocationDraw `json:"draws"`
}

// FulfillOrderResult summarises a committed fulfillment
type FulfillOrderResult struct {
	OrderID     uuid.UUID            `json:"order_id"`
	Strategy    string               `json:"strategy"`
	Allocations []AllocationResponse `json:"allocations"`
	Attempts    int                  `json:"attempts"`
}

// ReversalResult summarises a reversal
type ReversalResult struct {
	OrderID          uuid.UUID `json:"order_id"`
	Reversed         int       `json:"reversed"`
	QuantityRestored int64     `json:"quantity_restored"`
}

// BatchListResult is a page of batches
type BatchListResult struct {
	Items []BatchResponse `json:"items"`
	Total int64           `json:"total"`
}
