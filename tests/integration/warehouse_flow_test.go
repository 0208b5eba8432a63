//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	tradeapp "github.com/erp/warehouse/internal/application/trade"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/erp/warehouse/internal/infrastructure/cache"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

type engine struct {
	db         *TestDB
	batches    *inventoryapp.BatchService
	allocation *inventoryapp.AllocationService
	receiving  *tradeapp.ReceivingService
	batchRepo  *persistence.GormBatchRepository
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	tdb := NewSharedTestDB(t)

	batchRepo := persistence.NewGormBatchRepository(tdb.DB)
	allocationRepo := persistence.NewGormAllocationRepository(tdb.DB)
	movementRepo := persistence.NewGormMovementRepository(tdb.DB)
	orderRepo := persistence.NewGormPurchaseOrderRepository(tdb.DB)
	scope := persistence.NewGormTransactionScope(tdb.DB)

	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	return &engine{
		db:      tdb,
		batches: inventoryapp.NewBatchService(scope, batchRepo, movementRepo, nil),
		allocation: inventoryapp.NewAllocationService(scope, batchRepo, allocationRepo,
			inventoryapp.WithMaxRetries(5),
			inventoryapp.WithAllocationIdempotency(store, time.Minute),
		),
		receiving: tradeapp.NewReceivingService(scope.Trade(), orderRepo, movementRepo,
			tradeapp.WithReceivingIdempotency(store, time.Minute),
		),
		batchRepo: batchRepo,
	}
}

func (e *engine) seedBatch(t *testing.T, productID, warehouseID uuid.UUID, number string, qty int64, receivedAt time.Time) uuid.UUID {
	t.Helper()
	resp, err := e.batches.ImportBatch(context.Background(), inventoryapp.ImportBatchRequest{
		ProductID:   productID,
		WarehouseID: warehouseID,
		BatchNumber: number,
		Quantity:    qty,
		UnitCost:    decimal.NewFromInt(10),
		ReceivedAt:  receivedAt,
	})
	require.NoError(t, err)
	return resp.ID
}

func (e *engine) remaining(t *testing.T, batchID uuid.UUID) int64 {
	t.Helper()
	b, err := e.batchRepo.FindByID(context.Background(), batchID)
	require.NoError(t, err)
	return b.Quantity
}

func TestFulfillment_FIFOAndReversal(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	product, warehouse := uuid.New(), uuid.New()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	older := e.seedBatch(t, product, warehouse, "B-OLD", 10, base)
	newer := e.seedBatch(t, product, warehouse, "B-NEW", 10, base.Add(24*time.Hour))

	orderID := uuid.New()
	result, err := e.allocation.FulfillOrder(ctx, inventoryapp.FulfillOrderRequest{
		OrderID:     orderID,
		WarehouseID: warehouse,
		Strategy:    inventory.AllocationStrategyFIFO,
		Lines:       []inventoryapp.OrderLineInput{{OrderLineID: uuid.New(), ProductID: product, Quantity: 14}},
	}, "")
	require.NoError(t, err)
	require.Len(t, result.Allocations, 2)
	assert.Equal(t, older, result.Allocations[0].BatchID)
	assert.Equal(t, int64(10), result.Allocations[0].Quantity)
	assert.Equal(t, int64(4), result.Allocations[1].Quantity)

	assert.Equal(t, int64(0), e.remaining(t, older))
	assert.Equal(t, int64(6), e.remaining(t, newer))

	reversal, err := e.allocation.ReverseAllocations(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(14), reversal.QuantityRestored)
	assert.Equal(t, int64(10), e.remaining(t, older))
	assert.Equal(t, int64(10), e.remaining(t, newer))

	again, err := e.allocation.ReverseAllocations(ctx, orderID)
	require.NoError(t, err)
	assert.Zero(t, again.Reversed)
	assert.Equal(t, int64(10), e.remaining(t, older))
}

func TestFulfillment_AllOrNothing(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	warehouse := uuid.New()
	stocked, scarce := uuid.New(), uuid.New()
	now := time.Now().UTC()

	stockedBatch := e.seedBatch(t, stocked, warehouse, "S-1", 20, now)
	e.seedBatch(t, scarce, warehouse, "X-1", 2, now)

	orderID := uuid.New()
	scarceLine := uuid.New()
	_, err := e.allocation.FulfillOrder(ctx, inventoryapp.FulfillOrderRequest{
		OrderID:     orderID,
		WarehouseID: warehouse,
		Lines: []inventoryapp.OrderLineInput{
			{OrderLineID: uuid.New(), ProductID: stocked, Quantity: 5},
			{OrderLineID: scarceLine, ProductID: scarce, Quantity: 3},
		},
	}, "")

	var ferr *inventory.FulfillmentError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, scarceLine, ferr.OrderLineID)
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

	assert.Equal(t, int64(20), e.remaining(t, stockedBatch))
	allocations, err := e.allocation.GetOrderAllocations(ctx, orderID)
	require.NoError(t, err)
	assert.Empty(t, allocations)
}

func TestFulfillment_ConcurrentOrdersNeverOversell(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	product, warehouse := uuid.New(), uuid.New()
	batchID := e.seedBatch(t, product, warehouse, "HOT-1", 10, time.Now().UTC())

	const orders = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		shortages int
	)
	for i := 0; i < orders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.allocation.FulfillOrder(ctx, inventoryapp.FulfillOrderRequest{
				OrderID:     uuid.New(),
				WarehouseID: warehouse,
				Lines:       []inventoryapp.OrderLineInput{{OrderLineID: uuid.New(), ProductID: product, Quantity: 3}},
			}, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, shared.ErrInsufficientStock):
				shortages++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, orders-3, shortages)
	assert.Equal(t, int64(1), e.remaining(t, batchID))
}

func TestFulfillment_SameOrderTwiceConcurrently(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	product, warehouse := uuid.New(), uuid.New()
	base := time.Now().UTC()
	first := e.seedBatch(t, product, warehouse, "DUP-1", 5, base)
	second := e.seedBatch(t, product, warehouse, "DUP-2", 5, base.Add(time.Hour))

	req := inventoryapp.FulfillOrderRequest{
		OrderID:     uuid.New(),
		WarehouseID: warehouse,
		Lines:       []inventoryapp.OrderLineInput{{OrderLineID: uuid.New(), ProductID: product, Quantity: 5}},
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.allocation.FulfillOrder(ctx, req, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, shared.ErrAlreadyExists):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dups)
	assert.Equal(t, int64(5), e.remaining(t, first)+e.remaining(t, second))

	rows, err := e.allocation.GetOrderAllocations(ctx, req.OrderID)
	require.NoError(t, err)
	var drawn int64
	for _, r := range rows {
		drawn += r.Quantity
	}
	assert.Equal(t, int64(5), drawn)
}

func TestReversal_SameOrderTwiceConcurrently(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	product, warehouse := uuid.New(), uuid.New()
	batchID := e.seedBatch(t, product, warehouse, "REV-1", 10, time.Now().UTC())

	reversed := inventoryapp.FulfillOrderRequest{
		OrderID:     uuid.New(),
		WarehouseID: warehouse,
		Lines:       []inventoryapp.OrderLineInput{{OrderLineID: uuid.New(), ProductID: product, Quantity: 3}},
	}
	kept := inventoryapp.FulfillOrderRequest{
		OrderID:     uuid.New(),
		WarehouseID: warehouse,
		Lines:       []inventoryapp.OrderLineInput{{OrderLineID: uuid.New(), ProductID: product, Quantity: 5}},
	}
	_, err := e.allocation.FulfillOrder(ctx, reversed, "")
	require.NoError(t, err)
	_, err = e.allocation.FulfillOrder(ctx, kept, "")
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		restored int64
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.allocation.ReverseAllocations(ctx, reversed.OrderID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			restored += res.QuantityRestored
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(3), restored)
	assert.Equal(t, int64(5), e.remaining(t, batchID))
}

func TestFulfillment_DuplicateRequestKey(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	product, warehouse := uuid.New(), uuid.New()
	batchID := e.seedBatch(t, product, warehouse, "K-1", 10, time.Now().UTC())

	req := inventoryapp.FulfillOrderRequest{
		OrderID:     uuid.New(),
		WarehouseID: warehouse,
		Lines:       []inventoryapp.OrderLineInput{{OrderLineID: uuid.New(), ProductID: product, Quantity: 4}},
	}
	_, err := e.allocation.FulfillOrder(ctx, req, "fulfill-1")
	require.NoError(t, err)

	_, err = e.allocation.FulfillOrder(ctx, req, "fulfill-1")
	assert.ErrorIs(t, err, shared.ErrDuplicateRequest)
	assert.Equal(t, int64(6), e.remaining(t, batchID))
}

func TestReceiving_PartialThenFullAndOverReceipt(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	product, warehouse := uuid.New(), uuid.New()

	po, err := e.receiving.CreatePurchaseOrder(ctx, tradeapp.CreatePurchaseOrderRequest{
		OrderNumber:  "PO-1001",
		SupplierName: "Acme Farms",
		WarehouseID:  warehouse,
		Lines: []tradeapp.CreatePurchaseOrderLineInput{
			{ProductID: product, OrderedQuantity: 10, UnitPrice: decimal.NewFromInt(4)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, trade.PurchaseOrderStatusConfirmed.String(), po.Status)
	lineID := po.Lines[0].ID

	first, err := e.receiving.Receive(ctx, tradeapp.ReceiveRequest{POLineID: lineID, Quantity: 6, BatchNumber: "LOT-A"}, "recv-1")
	require.NoError(t, err)
	assert.Equal(t, trade.PurchaseOrderStatusPartiallyReceived.String(), first.Status)
	assert.Equal(t, int64(4), first.RemainingQuantity)
	assert.True(t, first.Batch.UnitCost.Equal(decimal.NewFromInt(4)))

	_, err = e.receiving.Receive(ctx, tradeapp.ReceiveRequest{POLineID: lineID, Quantity: 5}, "recv-2")
	var over *trade.OverReceiptError
	require.ErrorAs(t, err, &over)
	assert.Equal(t, int64(6), over.AlreadyReceived)
	assert.Equal(t, int64(5), over.Attempted)

	second, err := e.receiving.Receive(ctx, tradeapp.ReceiveRequest{POLineID: lineID, Quantity: 4, BatchNumber: "LOT-B"}, "recv-3")
	require.NoError(t, err)
	assert.Equal(t, trade.PurchaseOrderStatusReceived.String(), second.Status)
	assert.NotEqual(t, first.Batch.ID, second.Batch.ID)

	movements, err := e.receiving.ListMovements(ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, string(inventory.MovementTypeReceipt), m.MovementType)
	}

	stored, err := e.receiving.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.Lines[0].ReceivedQuantity)
	assert.NotNil(t, stored.ReceivedAt)
}

func TestReceiving_ReceivedStockIsAllocatable(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	product, warehouse := uuid.New(), uuid.New()

	po, err := e.receiving.CreatePurchaseOrder(ctx, tradeapp.CreatePurchaseOrderRequest{
		OrderNumber: "PO-2001",
		WarehouseID: warehouse,
		Lines: []tradeapp.CreatePurchaseOrderLineInput{
			{ProductID: product, OrderedQuantity: 8, UnitPrice: decimal.NewFromInt(3)},
		},
	})
	require.NoError(t, err)

	_, err = e.receiving.Receive(ctx, tradeapp.ReceiveRequest{POLineID: po.Lines[0].ID, Quantity: 8}, "")
	require.NoError(t, err)

	plan, err := e.allocation.PlanAllocation(ctx, inventoryapp.PlanAllocationRequest{
		ProductID:   product,
		WarehouseID: warehouse,
		Quantity:    8,
	})
	require.NoError(t, err)
	require.Len(t, plan.Draws, 1)
	assert.Equal(t, int64(8), plan.Draws[0].Quantity)
}
