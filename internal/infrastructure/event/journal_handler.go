package event

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/trade"
	"go.uber.org/zap"
)

// JournalHandler writes one structured log line per stock event. It is the
// audit trail of allocations, reversals and receipts.
type JournalHandler struct {
	logger *zap.Logger
}

// NewJournalHandler creates a journal that logs to logger
func NewJournalHandler(logger *zap.Logger) *JournalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalHandler{logger: logger.Named("journal")}
}

// EventTypes returns every event type the engine raises
func (h *JournalHandler) EventTypes() []string {
	return []string{
		inventory.EventTypeOrderAllocated,
		inventory.EventTypeOrderAllocationsReversed,
		inventory.EventTypeBatchImported,
		trade.EventTypeGoodsReceived,
		trade.EventTypePurchaseOrderStatusChanged,
	}
}

// Handle logs the event with its domain fields
func (h *JournalHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *inventory.OrderAllocatedEvent:
		fields = append(fields,
			zap.String("strategy", e.Strategy.String()),
			zap.Int("lines", e.LineCount),
			zap.Int("rows", e.RowCount),
			zap.Int64("quantity", e.TotalQuantity),
		)
	case *inventory.OrderAllocationsReversedEvent:
		fields = append(fields,
			zap.Int("rows", e.RowCount),
			zap.Int64("quantity", e.TotalQuantity),
		)
	case *inventory.BatchImportedEvent:
		fields = append(fields,
			zap.String("product_id", e.ProductID.String()),
			zap.String("warehouse_id", e.WarehouseID.String()),
			zap.Int64("quantity", e.Quantity),
		)
	case *trade.GoodsReceivedEvent:
		fields = append(fields,
			zap.String("order_number", e.OrderNumber),
			zap.String("line_id", e.LineID.String()),
			zap.Int64("quantity", e.Quantity),
			zap.Int64("received", e.ReceivedQuantity),
			zap.Int64("ordered", e.OrderedQuantity),
		)
	case *trade.PurchaseOrderStatusChangedEvent:
		fields = append(fields,
			zap.String("order_number", e.OrderNumber),
			zap.String("from", e.From.String()),
			zap.String("to", e.To.String()),
		)
	}

	h.logger.Info(event.EventType(), fields...)
	return nil
}

var _ shared.EventHandler = (*JournalHandler)(nil)
