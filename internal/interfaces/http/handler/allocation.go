package handler

import (
	"bytes"
	"context"
	"fmt"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AllocationService is the part of the allocation application service the handler uses
type AllocationService interface {
	PlanAllocation(ctx context.Context, req inventoryapp.PlanAllocationRequest) (*inventoryapp.AllocationPlanResponse, error)
	FulfillOrder(ctx context.Context, req inventoryapp.FulfillOrderRequest, idempotencyKey string) (*inventoryapp.FulfillOrderResult, error)
	ReverseAllocations(ctx context.Context, orderID uuid.UUID) (*inventoryapp.ReversalResult, error)
	GetOrderAllocations(ctx context.Context, orderID uuid.UUID) ([]inventoryapp.AllocationResponse, error)
}

// AllocationHandler handles allocation preview, fulfillment and reversal
type AllocationHandler struct {
	BaseHandler
	allocations AllocationService
	reports     StockReporter
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocations AllocationService, reports StockReporter) *AllocationHandler {
	return &AllocationHandler{allocations: allocations, reports: reports}
}

// PlanAllocationRequest asks for a read-only allocation preview
// @Description Preview of how a quantity would be drawn from batches
type PlanAllocationRequest struct {
	ProductID   string `json:"product_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	WarehouseID string `json:"warehouse_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0" example:"12"`
	Strategy    string `json:"strategy" binding:"omitempty,allocation_strategy" example:"FEFO"`
}

// FulfillOrderLine is one order line to allocate
type FulfillOrderLine struct {
	OrderLineID string `json:"order_line_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440010"`
	ProductID   string `json:"product_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0" example:"12"`
}

// FulfillOrderRequest is the body of an order fulfillment
// @Description All lines are allocated or none are
type FulfillOrderRequest struct {
	WarehouseID string             `json:"warehouse_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Strategy    string             `json:"strategy" binding:"omitempty,allocation_strategy" example:"FIFO"`
	Lines       []FulfillOrderLine `json:"lines" binding:"required,min=1,dive"`
}

// normalizeStrategy maps a validated tag to its canonical form. Empty stays
// empty so the service default applies.
func normalizeStrategy(s string) inventory.AllocationStrategy {
	if s == "" {
		return ""
	}
	strategy, err := inventory.ParseAllocationStrategy(s)
	if err != nil {
		return inventory.AllocationStrategy(s)
	}
	return strategy
}

// Plan godoc
// @Summary      Preview an allocation
// @Description  Read-only. Returns the batch draws or a shortage with requested and available
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        request  body  PlanAllocationRequest  true  "Plan request"
// @Success      200  {object}  APIResponse[inventoryapp.AllocationPlanResponse]
// @Failure      422  {object}  ErrorResponse
// @Router       /allocations/plan [post]
func (h *AllocationHandler) Plan(c *gin.Context) {
	var req PlanAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	plan, err := h.allocations.PlanAllocation(c.Request.Context(), inventoryapp.PlanAllocationRequest{
		ProductID:   uuid.MustParse(req.ProductID),
		WarehouseID: uuid.MustParse(req.WarehouseID),
		Quantity:    req.Quantity,
		Strategy:    normalizeStrategy(req.Strategy),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// Fulfill godoc
// @Summary      Fulfill an order
// @Description  Allocates every line of the order in one transaction
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        id               path    string               true   "Order ID"
// @Param        Idempotency-Key  header  string               false  "Request key"
// @Param        request          body    FulfillOrderRequest  true   "Order lines"
// @Success      201  {object}  APIResponse[inventoryapp.FulfillOrderResult]
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /orders/{id}/allocations [post]
func (h *AllocationHandler) Fulfill(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req FulfillOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	lines := make([]inventoryapp.OrderLineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = inventoryapp.OrderLineInput{
			OrderLineID: uuid.MustParse(l.OrderLineID),
			ProductID:   uuid.MustParse(l.ProductID),
			Quantity:    l.Quantity,
		}
	}

	result, err := h.allocations.FulfillOrder(c.Request.Context(), inventoryapp.FulfillOrderRequest{
		OrderID:     orderID,
		WarehouseID: uuid.MustParse(req.WarehouseID),
		Strategy:    normalizeStrategy(req.Strategy),
		Lines:       lines,
	}, idempotencyKey(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// List godoc
// @Summary      Allocation ledger of an order
// @Tags         allocations
// @Produce      json
// @Param        id   path  string  true  "Order ID"
// @Success      200  {object}  APIResponse[[]inventoryapp.AllocationResponse]
// @Router       /orders/{id}/allocations [get]
func (h *AllocationHandler) List(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	allocations, err := h.allocations.GetOrderAllocations(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, allocations)
}

// Reverse godoc
// @Summary      Reverse an order's allocations
// @Description  Restores the drawn batch quantities. Reversing twice is a no-op
// @Tags         allocations
// @Produce      json
// @Param        id   path  string  true  "Order ID"
// @Success      200  {object}  APIResponse[inventoryapp.ReversalResult]
// @Router       /orders/{id}/allocations [delete]
func (h *AllocationHandler) Reverse(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.allocations.ReverseAllocations(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Export godoc
// @Summary      Export an order's allocation ledger
// @Tags         allocations
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id   path  string  true  "Order ID"
// @Success      200
// @Router       /orders/{id}/allocations/export [get]
func (h *AllocationHandler) Export(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.reports.ExportOrderAllocations(c.Request.Context(), orderID, &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	sendWorkbook(c, fmt.Sprintf("allocations_%s.xlsx", orderID), &buf)
}
