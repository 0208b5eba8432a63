package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const idempotencyPrefixReceive = "receive:"

// ReceivingService reconciles goods received against purchase order lines.
// Each receipt updates the line, lands the goods in a batch, appends a
// movement and re-derives the order status in a single transaction.
type ReceivingService struct {
	scope             TransactionScope
	orderRepo         trade.PurchaseOrderRepository
	movementRepo      inventory.MovementRepository
	eventPublisher    shared.EventPublisher
	idempotency       shared.IdempotencyStore
	idempotencyTTL    time.Duration
	mergeIdenticalLot bool
	logger            *zap.Logger
	now               func() time.Time
}

// ReceivingServiceOption configures a ReceivingService
type ReceivingServiceOption func(*ReceivingService)

// WithMergeIdenticalLots lets a receipt top up the previous batch of the same
// line when cost, expiry, location and receipt day all match
func WithMergeIdenticalLots(enabled bool) ReceivingServiceOption {
	return func(s *ReceivingService) {
		s.mergeIdenticalLot = enabled
	}
}

// WithReceivingIdempotency enables Idempotency-Key handling for receipts
func WithReceivingIdempotency(store shared.IdempotencyStore, ttl time.Duration) ReceivingServiceOption {
	return func(s *ReceivingService) {
		s.idempotency = store
		s.idempotencyTTL = ttl
	}
}

// WithReceivingLogger sets the logger
func WithReceivingLogger(logger *zap.Logger) ReceivingServiceOption {
	return func(s *ReceivingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewReceivingService creates a new ReceivingService
func NewReceivingService(
	scope TransactionScope,
	orderRepo trade.PurchaseOrderRepository,
	movementRepo inventory.MovementRepository,
	opts ...ReceivingServiceOption,
) *ReceivingService {
	s := &ReceivingService{
		scope:          scope,
		orderRepo:      orderRepo,
		movementRepo:   movementRepo,
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReceivingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreatePurchaseOrder creates a confirmed purchase order with its lines
func (s *ReceivingService) CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Purchase order must have at least one line")
	}

	order, err := trade.NewPurchaseOrder(req.OrderNumber, req.SupplierName, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	for _, l := range req.Lines {
		if _, err := order.AddLine(l.ProductID, l.OrderedQuantity, l.UnitPrice); err != nil {
			return nil, err
		}
	}

	exists, err := s.orderRepo.ExistsByOrderNumber(ctx, order.OrderNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Purchase order %s already exists", order.OrderNumber))
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("purchase order created",
		zap.String("purchase_order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("lines", len(order.Lines)),
	)
	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

// GetPurchaseOrder returns a purchase order by ID
func (s *ReceivingService) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

// ListPurchaseOrders returns a page of purchase orders
func (s *ReceivingService) ListPurchaseOrders(ctx context.Context, filter trade.PurchaseOrderFilter) (shared.Paginated[PurchaseOrderResponse], error) {
	orders, total, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[PurchaseOrderResponse]{}, err
	}
	items := make([]PurchaseOrderResponse, len(orders))
	for i := range orders {
		items[i] = ToPurchaseOrderResponse(&orders[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// ListMovements returns the movement ledger of a purchase order
func (s *ReceivingService) ListMovements(ctx context.Context, purchaseOrderID uuid.UUID) ([]MovementResponse, error) {
	movements, err := s.movementRepo.FindByPurchaseOrder(ctx, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// Receive records quantity received against a purchase order line. The
// received quantity is never clamped: a receipt that would exceed the
// ordered quantity fails with trade.OverReceiptError and changes nothing.
func (s *ReceivingService) Receive(ctx context.Context, req ReceiveRequest, idempotencyKey string) (*ReceivingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receiving", "receive",
		telemetry.WithAttribute(telemetry.SpanAttrPOLineID, req.POLineID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity),
	)
	defer span.End()

	if req.POLineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Purchase order line ID cannot be empty")
	}
	if req.Quantity <= 0 {
		return nil, shared.ErrInvalidQuantity
	}

	release, err := s.claimIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		order  *trade.PurchaseOrder
		result *ReceivingResult
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.PurchaseOrderRepo().FindByLineIDForUpdate(ctx, req.POLineID)
		if err != nil {
			return err
		}

		line, err := order.ReceiveLine(req.POLineID, req.Quantity)
		if err != nil {
			return err
		}
		if err := repos.PurchaseOrderRepo().SaveLine(ctx, line); err != nil {
			return fmt.Errorf("save line: %w", err)
		}

		received, err := s.landInBatch(ctx, repos.BatchRepo(), order, line, req)
		if err != nil {
			return err
		}

		stockAfter, err := repos.BatchRepo().SumAvailable(ctx, line.ProductID, order.WarehouseID)
		if err != nil {
			return fmt.Errorf("sum stock: %w", err)
		}
		movement, err := inventory.NewInventoryMovement(inventory.MovementInput{
			ProductID:           line.ProductID,
			WarehouseID:         order.WarehouseID,
			BatchID:             &received.ID,
			MovementType:        inventory.MovementTypeReceipt,
			Quantity:            req.Quantity,
			StockAfter:          stockAfter,
			PurchaseOrderID:     &order.ID,
			PurchaseOrderLineID: &line.ID,
			Reference:           order.OrderNumber,
		})
		if err != nil {
			return err
		}
		if err := repos.MovementRepo().Create(ctx, movement); err != nil {
			return fmt.Errorf("write movement: %w", err)
		}

		if err := repos.PurchaseOrderRepo().SaveStatus(ctx, order); err != nil {
			return err
		}

		result = &ReceivingResult{
			PurchaseOrderID:   order.ID,
			OrderNumber:       order.OrderNumber,
			POLineID:          line.ID,
			ReceivedQuantity:  line.ReceivedQuantity,
			OrderedQuantity:   line.OrderedQuantity,
			RemainingQuantity: line.RemainingQuantity(),
			Status:            order.Status.String(),
			Batch:             *received,
			MovementID:        movement.ID,
			StockAfter:        stockAfter,
		}
		return nil
	})
	if err != nil {
		release()
		s.logReceiveFailure(req, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("goods received",
		zap.String("purchase_order_id", result.PurchaseOrderID.String()),
		zap.String("po_line_id", result.POLineID.String()),
		zap.Int64("quantity", req.Quantity),
		zap.Int64("received_quantity", result.ReceivedQuantity),
		zap.String("status", result.Status),
		zap.String("batch_id", result.Batch.ID.String()),
		zap.Bool("merged", result.Batch.Merged),
	)
	s.publish(ctx, order)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPOStatus, result.Status,
		telemetry.SpanAttrBatchID, result.Batch.ID.String(),
	)
	telemetry.SetOK(span)
	return result, nil
}

// landInBatch creates a new batch for the receipt, or tops up the line's
// previous batch when lot merging is enabled and the lots are identical
func (s *ReceivingService) landInBatch(
	ctx context.Context,
	batchRepo inventory.BatchRepository,
	order *trade.PurchaseOrder,
	line *trade.PurchaseOrderLine,
	req ReceiveRequest,
) (*ReceivedBatch, error) {
	unitCost := line.UnitPrice
	if req.UnitCost != nil {
		unitCost = *req.UnitCost
	}
	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	batch, err := inventory.NewBatch(line.ProductID, order.WarehouseID, req.BatchNumber, req.Quantity,
		unitCost, receivedAt, req.ExpiresAt, req.Location)
	if err != nil {
		return nil, err
	}
	batch.PurchaseOrderLineID = &line.ID

	if s.mergeIdenticalLot {
		candidate, err := batchRepo.FindMergeCandidate(ctx, line.ID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("find merge candidate: %w", err)
		}
		if candidate != nil && candidate.SameLot(batch) {
			if err := batchRepo.Replenish(ctx, candidate.ID, req.Quantity); err != nil {
				return nil, fmt.Errorf("replenish batch: %w", err)
			}
			return &ReceivedBatch{
				ID:          candidate.ID,
				BatchNumber: candidate.BatchNumber,
				Quantity:    candidate.Quantity + req.Quantity,
				UnitCost:    candidate.UnitCost,
				ExpiresAt:   candidate.ExpiresAt,
				Merged:      true,
			}, nil
		}
	}

	if err := batchRepo.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	return &ReceivedBatch{
		ID:          batch.ID,
		BatchNumber: batch.BatchNumber,
		Quantity:    batch.Quantity,
		UnitCost:    batch.UnitCost,
		ExpiresAt:   batch.ExpiresAt,
	}, nil
}

func (s *ReceivingService) logReceiveFailure(req ReceiveRequest, err error) {
	var ore *trade.OverReceiptError
	if errors.As(err, &ore) {
		s.logger.Warn("over-receipt rejected",
			zap.String("po_line_id", req.POLineID.String()),
			zap.Int64("already_received", ore.AlreadyReceived),
			zap.Int64("attempted", ore.Attempted),
			zap.Int64("ordered", ore.Ordered),
		)
		return
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		s.logger.Warn("receipt rejected", zap.String("po_line_id", req.POLineID.String()), zap.String("code", de.Code))
		return
	}
	s.logger.Error("receipt failed", zap.String("po_line_id", req.POLineID.String()), zap.Error(err))
}

func (s *ReceivingService) claimIdempotencyKey(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if s.idempotency == nil || key == "" {
		return noop, nil
	}
	fullKey := idempotencyPrefixReceive + key
	fresh, err := s.idempotency.MarkProcessed(ctx, fullKey, s.idempotencyTTL)
	if err != nil {
		return noop, fmt.Errorf("idempotency check: %w", err)
	}
	if !fresh {
		return noop, shared.ErrDuplicateRequest
	}
	return func() {
		if err := s.idempotency.Forget(ctx, fullKey); err != nil {
			s.logger.Warn("failed to release idempotency key", zap.String("key", fullKey), zap.Error(err))
		}
	}, nil
}

func (s *ReceivingService) publish(ctx context.Context, order *trade.PurchaseOrder) {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish events", zap.Error(err))
	}
}
