package inventory

import (
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeOrderAllocation = "OrderAllocation"

// Event type constants
const (
	EventTypeOrderAllocated           = "OrderAllocated"
	EventTypeOrderAllocationsReversed = "OrderAllocationsReversed"
	EventTypeBatchImported            = "BatchImported"
)

// OrderAllocatedEvent is raised after all lines of an order were allocated
type OrderAllocatedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID          `json:"order_id"`
	Strategy      AllocationStrategy `json:"strategy"`
	LineCount     int                `json:"line_count"`
	RowCount      int                `json:"row_count"`
	TotalQuantity int64              `json:"total_quantity"`
}

// NewOrderAllocatedEvent creates a new OrderAllocatedEvent
func NewOrderAllocatedEvent(orderID uuid.UUID, strategy AllocationStrategy, lineCount int, allocations []Allocation) *OrderAllocatedEvent {
	return &OrderAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderAllocated, AggregateTypeOrderAllocation, orderID),
		OrderID:         orderID,
		Strategy:        strategy,
		LineCount:       lineCount,
		RowCount:        len(allocations),
		TotalQuantity:   SumAllocated(allocations),
	}
}

// OrderAllocationsReversedEvent is raised after an order's allocations were restored
type OrderAllocationsReversedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID `json:"order_id"`
	RowCount      int       `json:"row_count"`
	TotalQuantity int64     `json:"total_quantity"`
}

// NewOrderAllocationsReversedEvent creates a new OrderAllocationsReversedEvent
func NewOrderAllocationsReversedEvent(orderID uuid.UUID, allocations []Allocation) *OrderAllocationsReversedEvent {
	return &OrderAllocationsReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderAllocationsReversed, AggregateTypeOrderAllocation, orderID),
		OrderID:         orderID,
		RowCount:        len(allocations),
		TotalQuantity:   SumAllocated(allocations),
	}
}

// BatchImportedEvent is raised when opening stock is loaded as a batch
type BatchImportedEvent struct {
	shared.BaseDomainEvent
	BatchID     uuid.UUID `json:"batch_id"`
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Quantity    int64     `json:"quantity"`
}

// NewBatchImportedEvent creates a new BatchImportedEvent
func NewBatchImportedEvent(b *Batch) *BatchImportedEvent {
	return &BatchImportedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchImported, "Batch", b.ID),
		BatchID:         b.ID,
		ProductID:       b.ProductID,
		WarehouseID:     b.WarehouseID,
		Quantity:        b.Quantity,
	}
}
