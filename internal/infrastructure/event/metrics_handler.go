package event

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
)

// MetricsHandler turns stock events into OpenTelemetry counters
type MetricsHandler struct {
	allocatedUnits    *telemetry.Counter
	allocatedOrders   *telemetry.Counter
	reversedUnits     *telemetry.Counter
	receivedUnits     *telemetry.Counter
	importedUnits     *telemetry.Counter
	statusTransitions *telemetry.Counter
}

// NewMetricsHandler registers the stock instruments on meter
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	h := &MetricsHandler{}
	specs := []struct {
		target            **telemetry.Counter
		name, descr, unit string
	}{
		{&h.allocatedUnits, "wms.allocation.units", "Units drawn from batches by fulfilled orders", "{unit}"},
		{&h.allocatedOrders, "wms.allocation.orders", "Orders fully allocated", "{order}"},
		{&h.reversedUnits, "wms.reversal.units", "Units restored to batches by reversals", "{unit}"},
		{&h.receivedUnits, "wms.receipt.units", "Units received against purchase order lines", "{unit}"},
		{&h.importedUnits, "wms.import.units", "Units loaded as opening stock", "{unit}"},
		{&h.statusTransitions, "wms.purchase_order.transitions", "Purchase order status transitions", "{transition}"},
	}
	for _, spec := range specs {
		c, err := telemetry.NewCounter(meter, spec.name, spec.descr, spec.unit)
		if err != nil {
			return nil, err
		}
		*spec.target = c
	}
	return h, nil
}

// EventTypes returns the stock event types
func (h *MetricsHandler) EventTypes() []string {
	return []string{
		inventory.EventTypeOrderAllocated,
		inventory.EventTypeOrderAllocationsReversed,
		inventory.EventTypeBatchImported,
		trade.EventTypeGoodsReceived,
		trade.EventTypePurchaseOrderStatusChanged,
	}
}

// Handle records the quantities carried by event
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.OrderAllocatedEvent:
		strategy := telemetry.AttrStrategy.String(e.Strategy.String())
		h.allocatedUnits.Add(ctx, e.TotalQuantity, strategy)
		h.allocatedOrders.Add(ctx, 1, strategy)
	case *inventory.OrderAllocationsReversedEvent:
		h.reversedUnits.Add(ctx, e.TotalQuantity)
	case *inventory.BatchImportedEvent:
		h.importedUnits.Add(ctx, e.Quantity)
	case *trade.GoodsReceivedEvent:
		h.receivedUnits.Add(ctx, e.Quantity)
	case *trade.PurchaseOrderStatusChangedEvent:
		h.statusTransitions.Add(ctx, 1, telemetry.AttrPOStatus.String(e.To.String()))
	}
	return nil
}

var _ shared.EventHandler = (*MetricsHandler)(nil)
