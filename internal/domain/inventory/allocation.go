package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// Allocation records a quantity drawn from one batch for one order line.
// Rows are written when an order is fulfilled and deleted only when its
// allocations are reversed; they are never updated in place.
type Allocation struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	OrderLineID uuid.UUID
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	BatchID     uuid.UUID
	Quantity    int64
	Strategy    AllocationStrategy
	AllocatedAt time.Time
}

// NewAllocation creates an allocation row for a single draw
func NewAllocation(orderID, orderLineID uuid.UUID, plan *AllocationPlan, draw AllocationDraw, at time.Time) (*Allocation, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if orderLineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER_LINE", "Order line ID cannot be empty")
	}
	if draw.Quantity <= 0 {
		return nil, shared.ErrInvalidQuantity
	}
	return &Allocation{
		ID:          uuid.New(),
		OrderID:     orderID,
		OrderLineID: orderLineID,
		ProductID:   plan.ProductID,
		WarehouseID: plan.WarehouseID,
		BatchID:     draw.BatchID,
		Quantity:    draw.Quantity,
		Strategy:    plan.Strategy,
		AllocatedAt: at,
	}, nil
}

// AllocationDraw is one planned draw from a batch
type AllocationDraw struct {
	BatchID     uuid.UUID `json:"batch_id"`
	BatchNumber string    `json:"batch_number"`
	Quantity    int64     `json:"quantity"`
}

// AllocationPlan is the side-effect-free result of planning a draw across
// batches. It is only produced when the full requested quantity is covered.
type AllocationPlan struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Requested   int64
	Strategy    AllocationStrategy
	Draws       []AllocationDraw
}

// TotalQuantity returns the sum of all draws
func (p *AllocationPlan) TotalQuantity() int64 {
	var total int64
	for _, d := range p.Draws {
		total += d.Quantity
	}
	return total
}

// SumAllocated returns the total quantity across allocation rows
func SumAllocated(allocations []Allocation) int64 {
	var total int64
	for _, a := range allocations {
		total += a.Quantity
	}
	return total
}
