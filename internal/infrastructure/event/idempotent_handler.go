package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"go.uber.org/zap"
)

// eventKeyPrefix keeps event IDs apart from request keys in a shared store
const eventKeyPrefix = "event:"

// DeliveryStats is a snapshot of an IdempotentHandler's counters
type DeliveryStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// IdempotentHandler wraps a handler so each event ID is handled at most once
// within the TTL, even when the same event is published again
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	ttl     time.Duration
	logger  *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// NewIdempotentHandler wraps handler with event-ID deduplication
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return &IdempotentHandler{
		handler: handler,
		store:   store,
		ttl:     ttl,
		logger:  logger,
	}
}

// EventTypes returns the wrapped handler's event types
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle claims the event ID and runs the wrapped handler. A store failure
// does not drop the event; a handler failure releases the claim.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	key := eventKeyPrefix + event.EventID().String()

	claimed, err := h.store.MarkProcessed(ctx, key, h.ttl)
	switch {
	case err != nil:
		h.logger.Warn("idempotency store unavailable, handling event anyway",
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
	case !claimed:
		h.duplicate.Add(1)
		h.logger.Debug("duplicate event skipped",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.failed.Add(1)
		if claimed {
			if ferr := h.store.Forget(ctx, key); ferr != nil {
				h.logger.Warn("failed to release event key", zap.String("key", key), zap.Error(ferr))
			}
		}
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns the handler's counters
func (h *IdempotentHandler) Stats() DeliveryStats {
	return DeliveryStats{
		Processed: h.processed.Load(),
		Duplicate: h.duplicate.Load(),
		Failed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
