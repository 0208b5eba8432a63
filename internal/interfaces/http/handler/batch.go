package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	tradeapp "github.com/erp/warehouse/internal/application/trade"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/export"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchService is the part of the batch application service the handler uses
type BatchService interface {
	GetBatch(ctx context.Context, id uuid.UUID) (*inventoryapp.BatchResponse, error)
	ListBatches(ctx context.Context, filter inventory.BatchFilter) (*inventoryapp.BatchListResult, error)
	ListMovements(ctx context.Context, productID, warehouseID uuid.UUID, filter shared.Filter) ([]inventory.InventoryMovement, int64, error)
	ImportBatch(ctx context.Context, req inventoryapp.ImportBatchRequest) (*inventoryapp.BatchResponse, error)
}

// StockReporter renders spreadsheet reports
type StockReporter interface {
	ExportStock(ctx context.Context, filter inventory.BatchFilter, w io.Writer) error
	ExportOrderAllocations(ctx context.Context, orderID uuid.UUID, w io.Writer) error
}

// BatchHandler handles batch and stock movement endpoints
type BatchHandler struct {
	BaseHandler
	batches BatchService
	reports StockReporter
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(batches BatchService, reports StockReporter) *BatchHandler {
	return &BatchHandler{batches: batches, reports: reports}
}

// ListBatchesQuery holds batch listing query parameters
type ListBatchesQuery struct {
	dto.ListRequest
	ProductID     string `form:"product_id" binding:"omitempty,uuid"`
	WarehouseID   string `form:"warehouse_id" binding:"omitempty,uuid"`
	AvailableOnly bool   `form:"available_only"`
}

func (q ListBatchesQuery) toFilter() inventory.BatchFilter {
	productID, _ := parseOptionalUUID(q.ProductID)
	warehouseID, _ := parseOptionalUUID(q.WarehouseID)
	return inventory.BatchFilter{
		Filter:        toFilter(q.ListRequest),
		ProductID:     productID,
		WarehouseID:   warehouseID,
		AvailableOnly: q.AvailableOnly,
	}
}

// ImportBatchRequest is the body of an opening stock import
// @Description Opening stock for one product in one warehouse
type ImportBatchRequest struct {
	ProductID   string          `json:"product_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	WarehouseID string          `json:"warehouse_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	BatchNumber string          `json:"batch_number" binding:"max=50" example:"OPEN-2024-001"`
	Quantity    int64           `json:"quantity" binding:"required,gt=0" example:"120"`
	UnitCost    decimal.Decimal `json:"unit_cost" example:"3.25"`
	ReceivedAt  *time.Time      `json:"received_at" example:"2024-01-15T10:30:00Z"`
	ExpiresAt   *time.Time      `json:"expires_at" example:"2025-06-30T00:00:00Z"`
	Location    string          `json:"location" binding:"max=50" example:"A-01-03"`
	Reference   string          `json:"reference" binding:"max=100" example:"stock count 2024-01"`
}

// List godoc
// @Summary      List batches
// @Tags         batches
// @Produce      json
// @Param        product_id     query  string  false  "Product ID"
// @Param        warehouse_id   query  string  false  "Warehouse ID"
// @Param        available_only query  bool    false  "Only batches with quantity > 0"
// @Success      200  {object}  APIResponse[[]inventoryapp.BatchResponse]
// @Router       /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	var q ListBatchesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	filter := q.toFilter()

	result, err := h.batches.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get a batch
// @Tags         batches
// @Produce      json
// @Param        id   path  string  true  "Batch ID"
// @Success      200  {object}  APIResponse[inventoryapp.BatchResponse]
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	batch, err := h.batches.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Import godoc
// @Summary      Import opening stock
// @Description  Creates a batch and its OPENING movement in one transaction
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        request  body  ImportBatchRequest  true  "Opening stock"
// @Success      201  {object}  APIResponse[inventoryapp.BatchResponse]
// @Failure      400  {object}  ErrorResponse
// @Router       /batches [post]
func (h *BatchHandler) Import(c *gin.Context) {
	var req ImportBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	appReq := inventoryapp.ImportBatchRequest{
		ProductID:   uuid.MustParse(req.ProductID),
		WarehouseID: uuid.MustParse(req.WarehouseID),
		BatchNumber: req.BatchNumber,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		ExpiresAt:   req.ExpiresAt,
		Location:    req.Location,
		Reference:   req.Reference,
	}
	if req.ReceivedAt != nil {
		appReq.ReceivedAt = *req.ReceivedAt
	}

	batch, err := h.batches.ImportBatch(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, batch)
}

// Export godoc
// @Summary      Export stock report
// @Description  XLSX stock valuation of the batches matching the filter
// @Tags         batches
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        product_id     query  string  false  "Product ID"
// @Param        warehouse_id   query  string  false  "Warehouse ID"
// @Success      200
// @Router       /batches/export [get]
func (h *BatchHandler) Export(c *gin.Context) {
	var q ListBatchesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.reports.ExportStock(c.Request.Context(), q.toFilter(), &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	sendWorkbook(c, fmt.Sprintf("stock_%s.xlsx", time.Now().Format("20060102")), &buf)
}

// MovementsQuery selects the movement history of a product in a warehouse
type MovementsQuery struct {
	dto.ListRequest
	ProductID   string `form:"product_id" binding:"required,uuid"`
	WarehouseID string `form:"warehouse_id" binding:"required,uuid"`
}

// ListMovements godoc
// @Summary      Stock movement history
// @Tags         batches
// @Produce      json
// @Param        product_id    query  string  true  "Product ID"
// @Param        warehouse_id  query  string  true  "Warehouse ID"
// @Success      200  {object}  APIResponse[[]tradeapp.MovementResponse]
// @Router       /movements [get]
func (h *BatchHandler) ListMovements(c *gin.Context) {
	var q MovementsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	filter := toFilter(q.ListRequest)

	movements, total, err := h.batches.ListMovements(c.Request.Context(),
		uuid.MustParse(q.ProductID), uuid.MustParse(q.WarehouseID), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, tradeapp.ToMovementResponses(movements), total, filter.Page, filter.PageSize)
}

func sendWorkbook(c *gin.Context, filename string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
