package inventory

import (
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// Allocator plans how a requested quantity is drawn across batches. It never
// mutates the batches it is given; applying a plan is the caller's job.
type Allocator struct{}

// NewAllocator creates a new allocator
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Plan orders the candidate batches by strategy and walks them greedily,
// drawing min(remaining, batch quantity) from each until the request is met.
// Candidates belonging to another product or warehouse are ignored.
func (a *Allocator) Plan(
	productID, warehouseID uuid.UUID,
	requested int64,
	strategy AllocationStrategy,
	candidates []Batch,
) (*AllocationPlan, error) {
	if requested <= 0 {
		return nil, shared.ErrInvalidQuantity
	}

	eligible := make([]Batch, 0, len(candidates))
	for _, b := range candidates {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			eligible = append(eligible, b)
		}
	}

	ordered, err := OrderBatches(eligible, strategy)
	if err != nil {
		return nil, err
	}

	plan := &AllocationPlan{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Requested:   requested,
		Strategy:    strategy,
		Draws:       make([]AllocationDraw, 0),
	}

	remaining := requested
	var available int64
	for _, b := range ordered {
		available += b.Quantity
		if remaining == 0 {
			continue
		}
		take := min(remaining, b.Quantity)
		plan.Draws = append(plan.Draws, AllocationDraw{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Quantity:    take,
		})
		remaining -= take
	}

	if remaining > 0 {
		return nil, &InsufficientStockError{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Requested:   requested,
			Available:   available,
		}
	}
	return plan, nil
}
