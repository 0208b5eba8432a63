package event

import (
	"context"
	"testing"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader sdkmetric.Reader) map[string]metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Sum[int64])
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				out[m.Name] = sum
			}
		}
	}
	return out
}

func total(sum metricdata.Sum[int64]) int64 {
	var n int64
	for _, dp := range sum.DataPoints {
		n += dp.Value
	}
	return n
}

func TestMetricsHandler_CountsStockEvents(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	handler, err := NewMetricsHandler(provider.Meter("warehouse-engine"))
	require.NoError(t, err)
	ctx := context.Background()

	orderID := uuid.New()
	allocations := []inventory.Allocation{{Quantity: 3}, {Quantity: 2}}
	require.NoError(t, handler.Handle(ctx, inventory.NewOrderAllocatedEvent(orderID, inventory.AllocationStrategyFEFO, 1, allocations)))
	require.NoError(t, handler.Handle(ctx, inventory.NewOrderAllocationsReversedEvent(orderID, allocations)))

	order, err := trade.NewPurchaseOrder("PO-2024-0002", "Acme", uuid.New())
	require.NoError(t, err)
	line, err := order.AddLine(uuid.New(), 10, decimal.NewFromInt(3))
	require.NoError(t, err)
	_, err = order.ReceiveLine(line.ID, 10)
	require.NoError(t, err)
	for _, e := range order.GetDomainEvents() {
		require.NoError(t, handler.Handle(ctx, e))
	}

	sums := collectSums(t, reader)
	assert.Equal(t, int64(5), total(sums["wms.allocation.units"]))
	assert.Equal(t, int64(1), total(sums["wms.allocation.orders"]))
	assert.Equal(t, int64(5), total(sums["wms.reversal.units"]))
	assert.Equal(t, int64(10), total(sums["wms.receipt.units"]))

	transitions := sums["wms.purchase_order.transitions"]
	require.Len(t, transitions.DataPoints, 1)
	status, ok := transitions.DataPoints[0].Attributes.Value(telemetry.AttrPOStatus)
	require.True(t, ok)
	assert.Equal(t, "received", status.AsString())

	allocated := sums["wms.allocation.units"]
	require.Len(t, allocated.DataPoints, 1)
	strategy, ok := allocated.DataPoints[0].Attributes.Value(telemetry.AttrStrategy)
	require.True(t, ok)
	assert.Equal(t, "FEFO", strategy.AsString())
}

func TestMetricsHandler_IgnoresUnknownEvents(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	handler, err := NewMetricsHandler(provider.Meter("warehouse-engine"))
	require.NoError(t, err)

	assert.NoError(t, handler.Handle(context.Background(), newTestEvent("Unrelated")))
	assert.Len(t, handler.EventTypes(), 5)
}
