package handler

import (
	"context"
	"time"

	tradeapp "github.com/erp/warehouse/internal/application/trade"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivingService is the part of the receiving application service the handler uses
type ReceivingService interface {
	CreatePurchaseOrder(ctx context.Context, req tradeapp.CreatePurchaseOrderRequest) (*tradeapp.PurchaseOrderResponse, error)
	GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*tradeapp.PurchaseOrderResponse, error)
	ListPurchaseOrders(ctx context.Context, filter trade.PurchaseOrderFilter) (shared.Paginated[tradeapp.PurchaseOrderResponse], error)
	ListMovements(ctx context.Context, purchaseOrderID uuid.UUID) ([]tradeapp.MovementResponse, error)
	Receive(ctx context.Context, req tradeapp.ReceiveRequest, idempotencyKey string) (*tradeapp.ReceivingResult, error)
}

// PurchaseOrderHandler handles purchase order and receiving endpoints
type PurchaseOrderHandler struct {
	BaseHandler
	receiving ReceivingService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(receiving ReceivingService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{receiving: receiving}
}

// CreatePurchaseOrderLine is one line of a new purchase order
type CreatePurchaseOrderLine struct {
	ProductID       string          `json:"product_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	OrderedQuantity int64           `json:"ordered_quantity" binding:"required,gt=0" example:"100"`
	UnitPrice       decimal.Decimal `json:"unit_price" example:"2.40"`
}

// CreatePurchaseOrderRequest creates a confirmed purchase order
// @Description Purchase order with at least one line
type CreatePurchaseOrderRequest struct {
	OrderNumber  string                    `json:"order_number" binding:"required,max=50" example:"PO-2024-0001"`
	SupplierName string                    `json:"supplier_name" binding:"required,max=200" example:"Acme Foods"`
	WarehouseID  string                    `json:"warehouse_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Lines        []CreatePurchaseOrderLine `json:"lines" binding:"required,min=1,dive"`
}

// ReceiveRequest records goods received against a purchase order line
// @Description Each receipt lands in its own batch with a RECEIPT movement
type ReceiveRequest struct {
	Quantity    int64            `json:"quantity" binding:"required,gt=0" example:"40"`
	UnitCost    *decimal.Decimal `json:"unit_cost" example:"2.40"`
	BatchNumber string           `json:"batch_number" binding:"max=50" example:"LOT-7781"`
	ReceivedAt  *time.Time       `json:"received_at" example:"2024-02-01T08:00:00Z"`
	ExpiresAt   *time.Time       `json:"expires_at" example:"2024-08-01T00:00:00Z"`
	Location    string           `json:"location" binding:"max=50" example:"B-02-01"`
}

// ListPurchaseOrdersQuery holds purchase order listing query parameters
type ListPurchaseOrdersQuery struct {
	dto.ListRequest
	Status      string `form:"status" binding:"omitempty,oneof=confirmed partially_received received"`
	WarehouseID string `form:"warehouse_id" binding:"omitempty,uuid"`
}

// Create godoc
// @Summary      Create a purchase order
// @Description  The order is created confirmed and ready to receive
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        request  body  CreatePurchaseOrderRequest  true  "Purchase order"
// @Success      201  {object}  APIResponse[tradeapp.PurchaseOrderResponse]
// @Failure      409  {object}  ErrorResponse
// @Router       /purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	lines := make([]tradeapp.CreatePurchaseOrderLineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = tradeapp.CreatePurchaseOrderLineInput{
			ProductID:       uuid.MustParse(l.ProductID),
			OrderedQuantity: l.OrderedQuantity,
			UnitPrice:       l.UnitPrice,
		}
	}

	order, err := h.receiving.CreatePurchaseOrder(c.Request.Context(), tradeapp.CreatePurchaseOrderRequest{
		OrderNumber:  req.OrderNumber,
		SupplierName: req.SupplierName,
		WarehouseID:  uuid.MustParse(req.WarehouseID),
		Lines:        lines,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// Get godoc
// @Summary      Get a purchase order
// @Tags         purchase-orders
// @Produce      json
// @Param        id   path  string  true  "Purchase order ID"
// @Success      200  {object}  APIResponse[tradeapp.PurchaseOrderResponse]
// @Failure      404  {object}  ErrorResponse
// @Router       /purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.receiving.GetPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// List godoc
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Produce      json
// @Param        status        query  string  false  "confirmed, partially_received or received"
// @Param        warehouse_id  query  string  false  "Warehouse ID"
// @Param        page          query  int     false  "Page"
// @Param        page_size     query  int     false  "Page size"
// @Success      200  {object}  APIResponse[[]tradeapp.PurchaseOrderResponse]
// @Router       /purchase-orders [get]
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var q ListPurchaseOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter := trade.PurchaseOrderFilter{Filter: toFilter(q.ListRequest)}
	if q.Status != "" {
		status := trade.PurchaseOrderStatus(q.Status)
		filter.Status = &status
	}
	filter.WarehouseID, _ = parseOptionalUUID(q.WarehouseID)

	page, err := h.receiving.ListPurchaseOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Receive godoc
// @Summary      Receive goods against a purchase order line
// @Description  Creates a batch and a RECEIPT movement and updates the line and order status atomically
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        lineId           path    string          true   "Purchase order line ID"
// @Param        Idempotency-Key  header  string          false  "Request key"
// @Param        request          body    ReceiveRequest  true   "Receipt"
// @Success      201  {object}  APIResponse[tradeapp.ReceivingResult]
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /purchase-orders/lines/{lineId}/receive [post]
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	lineID, ok := h.parseUUIDParam(c, "lineId")
	if !ok {
		return
	}
	var req ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	appReq := tradeapp.ReceiveRequest{
		POLineID:    lineID,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		BatchNumber: req.BatchNumber,
		ExpiresAt:   req.ExpiresAt,
		Location:    req.Location,
	}
	if req.ReceivedAt != nil {
		appReq.ReceivedAt = *req.ReceivedAt
	}

	result, err := h.receiving.Receive(c.Request.Context(), appReq, idempotencyKey(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListMovements godoc
// @Summary      Movements of a purchase order
// @Tags         purchase-orders
// @Produce      json
// @Param        id   path  string  true  "Purchase order ID"
// @Success      200  {object}  APIResponse[[]tradeapp.MovementResponse]
// @Router       /purchase-orders/{id}/movements [get]
func (h *PurchaseOrderHandler) ListMovements(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	movements, err := h.receiving.ListMovements(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movements)
}
