package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/export"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupAllocationHandler() (*gin.Engine, *MockAllocationService, *MockStockReporter) {
	svc := new(MockAllocationService)
	reports := new(MockStockReporter)
	h := NewAllocationHandler(svc, reports)

	r := newTestEngine()
	r.POST("/allocations/plan", h.Plan)
	r.POST("/orders/:id/allocations", h.Fulfill)
	r.GET("/orders/:id/allocations", h.List)
	r.GET("/orders/:id/allocations/export", h.Export)
	r.DELETE("/orders/:id/allocations", h.Reverse)
	return r, svc, reports
}

func TestAllocationHandler_Plan(t *testing.T) {
	productID := uuid.New()
	warehouseID := uuid.New()

	t.Run("normalizes strategy and returns draws", func(t *testing.T) {
		r, svc, _ := setupAllocationHandler()
		expected := inventoryapp.PlanAllocationRequest{
			ProductID: productID, WarehouseID: warehouseID, Quantity: 12, Strategy: inventory.AllocationStrategyFEFO,
		}
		svc.On("PlanAllocation", mock.Anything, expected).Return(&inventoryapp.AllocationPlanResponse{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Requested:   12,
			Strategy:    "FEFO",
			Draws: []inventory.AllocationDraw{
				{BatchID: uuid.New(), Quantity: 10},
				{BatchID: uuid.New(), Quantity: 2},
			},
		}, nil)

		w := performRequest(r, http.MethodPost, "/allocations/plan", map[string]any{
			"product_id": productID, "warehouse_id": warehouseID, "quantity": 12, "strategy": "fefo",
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var plan inventoryapp.AllocationPlanResponse
		decodeData(t, decodeResponse(t, w), &plan)
		assert.Len(t, plan.Draws, 2)
		svc.AssertExpectations(t)
	})

	t.Run("shortage is 422 with requested and available", func(t *testing.T) {
		r, svc, _ := setupAllocationHandler()
		svc.On("PlanAllocation", mock.Anything, mock.Anything).Return(nil, &inventory.InsufficientStockError{
			ProductID: productID, WarehouseID: warehouseID, Requested: 12, Available: 10,
		})

		w := performRequest(r, http.MethodPost, "/allocations/plan", map[string]any{
			"product_id": productID, "warehouse_id": warehouseID, "quantity": 12,
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInsufficientStock, resp.Error.Code)
		details := resp.Error.Details.(map[string]any)
		assert.EqualValues(t, 12, details["requested"])
		assert.EqualValues(t, 10, details["available"])
		assert.EqualValues(t, 2, details["shortfall"])
	})

	t.Run("unknown strategy never reaches the service", func(t *testing.T) {
		r, svc, _ := setupAllocationHandler()

		w := performRequest(r, http.MethodPost, "/allocations/plan", map[string]any{
			"product_id": productID, "warehouse_id": warehouseID, "quantity": 1, "strategy": "RANDOM",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
		svc.AssertNotCalled(t, "PlanAllocation", mock.Anything, mock.Anything)
	})
}

func TestAllocationHandler_Fulfill(t *testing.T) {
	orderID := uuid.New()
	warehouseID := uuid.New()
	lineA := uuid.New()
	lineB := uuid.New()
	productA := uuid.New()
	productB := uuid.New()

	body := map[string]any{
		"warehouse_id": warehouseID,
		"strategy":     "FIFO",
		"lines": []map[string]any{
			{"order_line_id": lineA, "product_id": productA, "quantity": 3},
			{"order_line_id": lineB, "product_id": productB, "quantity": 5},
		},
	}
	path := "/orders/" + orderID.String() + "/allocations"

	t.Run("forwards lines in order with the request key", func(t *testing.T) {
		r, svc, _ := setupAllocationHandler()
		svc.On("FulfillOrder", mock.Anything, mock.MatchedBy(func(req inventoryapp.FulfillOrderRequest) bool {
			return req.OrderID == orderID &&
				req.WarehouseID == warehouseID &&
				req.Strategy == inventory.AllocationStrategyFIFO &&
				len(req.Lines) == 2 &&
				req.Lines[0].OrderLineID == lineA &&
				req.Lines[1].Quantity == 5
		}), "fulfill-1").Return(&inventoryapp.FulfillOrderResult{OrderID: orderID, Strategy: "FIFO", Attempts: 1}, nil)

		w := performRequest(r, http.MethodPost, path, body, "Idempotency-Key", " fulfill-1 ")

		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("failing line is reported with shortage details", func(t *testing.T) {
		r, svc, _ := setupAllocationHandler()
		svc.On("FulfillOrder", mock.Anything, mock.Anything, "").Return(nil, &inventory.FulfillmentError{
			OrderID:     orderID,
			OrderLineID: lineB,
			Cause: &inventory.InsufficientStockError{
				ProductID: productB, WarehouseID: warehouseID, Requested: 5, Available: 4,
			},
		})

		w := performRequest(r, http.MethodPost, path, body)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeInsufficientStock, resp.Error.Code)
		details := resp.Error.Details.(map[string]any)
		assert.Equal(t, lineB.String(), details["order_line_id"])
		assert.EqualValues(t, 1, details["shortfall"])
	})

	t.Run("repeated key is 409", func(t *testing.T) {
		r, svc, _ := setupAllocationHandler()
		svc.On("FulfillOrder", mock.Anything, mock.Anything, "k").Return(nil, shared.ErrDuplicateRequest)

		w := performRequest(r, http.MethodPost, path, body, "Idempotency-Key", "k")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeDuplicateRequest, decodeResponse(t, w).Error.Code)
	})

	t.Run("already allocated order is 409", func(t *testing.T) {
		r, svc, _ := setupAllocationHandler()
		svc.On("FulfillOrder", mock.Anything, mock.Anything, "").Return(nil, fmt.Errorf("order %s: %w", orderID, shared.ErrAlreadyExists))

		w := performRequest(r, http.MethodPost, path, body)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		r, svc, _ := setupAllocationHandler()

		w := performRequest(r, http.MethodPost, "/orders/not-a-uuid/allocations", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = performRequest(r, http.MethodPost, path, map[string]any{"warehouse_id": warehouseID, "lines": []any{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = performRequest(r, http.MethodPost, path, map[string]any{
			"warehouse_id": warehouseID,
			"lines":        []map[string]any{{"order_line_id": lineA, "product_id": productA, "quantity": 0}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		svc.AssertNotCalled(t, "FulfillOrder", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAllocationHandler_ListAndReverse(t *testing.T) {
	orderID := uuid.New()
	path := "/orders/" + orderID.String() + "/allocations"

	t.Run("list", func(t *testing.T) {
		r, svc, _ := setupAllocationHandler()
		svc.On("GetOrderAllocations", mock.Anything, orderID).Return([]inventoryapp.AllocationResponse{
			{ID: uuid.New(), OrderID: orderID, Quantity: 4, Strategy: "FIFO", AllocatedAt: time.Now()},
		}, nil)

		w := performRequest(r, http.MethodGet, path, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var rows []inventoryapp.AllocationResponse
		decodeData(t, decodeResponse(t, w), &rows)
		assert.Len(t, rows, 1)
	})

	t.Run("reverse", func(t *testing.T) {
		r, svc, _ := setupAllocationHandler()
		svc.On("ReverseAllocations", mock.Anything, orderID).Return(&inventoryapp.ReversalResult{
			OrderID: orderID, Reversed: 2, QuantityRestored: 12,
		}, nil)

		w := performRequest(r, http.MethodDelete, path, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var result inventoryapp.ReversalResult
		decodeData(t, decodeResponse(t, w), &result)
		assert.Equal(t, int64(12), result.QuantityRestored)
	})

	t.Run("reverse with nothing to undo", func(t *testing.T) {
		r, svc, _ := setupAllocationHandler()
		svc.On("ReverseAllocations", mock.Anything, orderID).Return(&inventoryapp.ReversalResult{OrderID: orderID}, nil)

		w := performRequest(r, http.MethodDelete, path, nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("export", func(t *testing.T) {
		r, _, reports := setupAllocationHandler()
		reports.On("ExportOrderAllocations", mock.Anything, orderID, mock.Anything).Return(nil)

		w := performRequest(r, http.MethodGet, path+"/export", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), orderID.String())
		assert.Equal(t, "xlsx-ledger", w.Body.String())
	})
}
