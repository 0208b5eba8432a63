package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries is how many times a fulfillment or reversal is
	// retried after a concurrent writer changed the rows it read
	DefaultMaxRetries = 3

	idempotencyPrefixFulfill = "fulfill:"
)

// AllocationService fulfills orders from batches and reverses them again.
// FulfillOrder, ReverseAllocations and the stock receipt paths are the only
// writers of batch quantities and allocation rows.
type AllocationService struct {
	scope           TransactionScope
	batchRepo       inventory.BatchRepository
	allocationRepo  inventory.AllocationRepository
	allocator       *inventory.Allocator
	eventPublisher  shared.EventPublisher
	idempotency     shared.IdempotencyStore
	idempotencyTTL  time.Duration
	logger          *zap.Logger
	defaultStrategy inventory.AllocationStrategy
	maxRetries      int
	now             func() time.Time
}

// AllocationServiceOption configures an AllocationService
type AllocationServiceOption func(*AllocationService)

// WithDefaultStrategy sets the strategy used when a request names none
func WithDefaultStrategy(strategy inventory.AllocationStrategy) AllocationServiceOption {
	return func(s *AllocationService) {
		if strategy.IsValid() {
			s.defaultStrategy = strategy
		}
	}
}

// WithMaxRetries sets how many times a conflicting fulfillment is retried
func WithMaxRetries(n int) AllocationServiceOption {
	return func(s *AllocationService) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithAllocationIdempotency enables Idempotency-Key handling for fulfillments
func WithAllocationIdempotency(store shared.IdempotencyStore, ttl time.Duration) AllocationServiceOption {
	return func(s *AllocationService) {
		s.idempotency = store
		s.idempotencyTTL = ttl
	}
}

// WithAllocationLogger sets the logger
func WithAllocationLogger(logger *zap.Logger) AllocationServiceOption {
	return func(s *AllocationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	scope TransactionScope,
	batchRepo inventory.BatchRepository,
	allocationRepo inventory.AllocationRepository,
	opts ...AllocationServiceOption,
) *AllocationService {
	s := &AllocationService{
		scope:           scope,
		batchRepo:       batchRepo,
		allocationRepo:  allocationRepo,
		allocator:       inventory.NewAllocator(),
		logger:          zap.NewNop(),
		defaultStrategy: inventory.AllocationStrategyFIFO,
		maxRetries:      DefaultMaxRetries,
		idempotencyTTL:  shared.DefaultIdempotencyConfig().TTL,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// DefaultStrategy returns the strategy used when a request names none
func (s *AllocationService) DefaultStrategy() inventory.AllocationStrategy {
	return s.defaultStrategy
}

// PlanAllocation previews how a quantity would be drawn without changing anything
func (s *AllocationService) PlanAllocation(ctx context.Context, req PlanAllocationRequest) (*AllocationPlanResponse, error) {
	strategy, err := s.resolveStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, shared.ErrInvalidQuantity
	}

	batches, err := s.batchRepo.FindByProductAndWarehouse(ctx, req.ProductID, req.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}

	plan, err := s.allocator.Plan(req.ProductID, req.WarehouseID, req.Quantity, strategy, batches)
	if err != nil {
		return nil, err
	}

	return &AllocationPlanResponse{
		ProductID:   plan.ProductID,
		WarehouseID: plan.WarehouseID,
		Requested:   plan.Requested,
		Strategy:    plan.Strategy.String(),
		Draws:       plan.Draws,
	}, nil
}

// FulfillOrder allocates every line of an order in one transaction. Either
// every line is fully drawn and recorded, or nothing is persisted and a
// FulfillmentError names the first failing line.
func (s *AllocationService) FulfillOrder(ctx context.Context, req FulfillOrderRequest, idempotencyKey string) (*FulfillOrderResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "fulfill_order",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, req.OrderID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrLines, len(req.Lines)),
	)
	defer span.End()

	strategy, err := s.validateFulfillRequest(&req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	release, err := s.claimIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var allocations []inventory.Allocation
	attempt := 0
	for {
		attempt++
		allocations, err = s.fulfillOnce(ctx, req, strategy)
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrConcurrencyConflict) && attempt <= s.maxRetries {
			s.logger.Warn("batch changed during fulfillment, retrying",
				zap.String("order_id", req.OrderID.String()),
				zap.Int("attempt", attempt),
			)
			telemetry.AddEvent(span, "allocation.retry", telemetry.SpanAttrRetryCount, attempt)
			continue
		}
		release()
		s.logFulfillFailure(req, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("order allocated",
		zap.String("order_id", req.OrderID.String()),
		zap.String("strategy", strategy.String()),
		zap.Int("lines", len(req.Lines)),
		zap.Int("allocations", len(allocations)),
		zap.Int("attempts", attempt),
	)
	s.publish(ctx, inventory.NewOrderAllocatedEvent(req.OrderID, strategy, len(req.Lines), allocations))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStrategy, strategy.String(),
		telemetry.SpanAttrDraws, len(allocations),
	)
	telemetry.SetOK(span)

	return &FulfillOrderResult{
		OrderID:     req.OrderID,
		Strategy:    strategy.String(),
		Allocations: ToAllocationResponses(allocations),
		Attempts:    attempt,
	}, nil
}

func (s *AllocationService) validateFulfillRequest(req *FulfillOrderRequest) (inventory.AllocationStrategy, error) {
	if req.OrderID == uuid.Nil {
		return "", shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if req.WarehouseID == uuid.Nil {
		return "", shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	strategy, err := s.resolveStrategy(req.Strategy)
	if err != nil {
		return "", err
	}

	seen := make(map[uuid.UUID]bool, len(req.Lines))
	for _, line := range req.Lines {
		if line.OrderLineID == uuid.Nil || line.ProductID == uuid.Nil {
			return "", shared.NewDomainError("INVALID_INPUT", "Order line and product IDs are required")
		}
		if seen[line.OrderLineID] {
			return "", shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Order line %s appears twice", line.OrderLineID))
		}
		seen[line.OrderLineID] = true
		if line.Quantity <= 0 {
			return "", &inventory.FulfillmentError{OrderID: req.OrderID, OrderLineID: line.OrderLineID, Cause: shared.ErrInvalidQuantity}
		}
	}
	return strategy, nil
}

// fulfillOnce runs one transactional attempt. The order claim is taken
// first so a second fulfillment of the same order waits and then fails.
// Candidate batches of every product are locked up front in product ID
// order, the full plan for a line is computed before any batch is touched,
// and every decrement is conditional on the batch still holding the quantity.
func (s *AllocationService) fulfillOnce(ctx context.Context, req FulfillOrderRequest, strategy inventory.AllocationStrategy) ([]inventory.Allocation, error) {
	var allocations []inventory.Allocation

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		allocations = allocations[:0]

		claimed, err := repos.AllocationRepo().ClaimOrder(ctx, req.OrderID)
		if err != nil {
			return fmt.Errorf("claim order: %w", err)
		}
		exists, err := repos.AllocationRepo().ExistsForOrder(ctx, req.OrderID)
		if err != nil {
			return fmt.Errorf("check existing allocations: %w", err)
		}
		if !claimed || exists {
			return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Order %s already has allocations", req.OrderID))
		}

		for _, productID := range lineProducts(req.Lines) {
			if _, err := repos.BatchRepo().FindAvailableForUpdate(ctx, productID, req.WarehouseID); err != nil {
				return fmt.Errorf("lock batches for product %s: %w", productID, err)
			}
		}

		now := s.now()
		for _, line := range req.Lines {
			batches, err := repos.BatchRepo().FindAvailableForUpdate(ctx, line.ProductID, req.WarehouseID)
			if err != nil {
				return fmt.Errorf("lock batches for line %s: %w", line.OrderLineID, err)
			}

			plan, err := s.allocator.Plan(line.ProductID, req.WarehouseID, line.Quantity, strategy, batches)
			if err != nil {
				return &inventory.FulfillmentError{OrderID: req.OrderID, OrderLineID: line.OrderLineID, Cause: err}
			}

			for _, draw := range plan.Draws {
				if err := repos.BatchRepo().DecrementQuantity(ctx, draw.BatchID, draw.Quantity); err != nil {
					return err
				}
				alloc, err := inventory.NewAllocation(req.OrderID, line.OrderLineID, plan, draw, now)
				if err != nil {
					return err
				}
				allocations = append(allocations, *alloc)
			}
		}

		if len(allocations) == 0 {
			return nil
		}
		if err := repos.AllocationRepo().CreateBatch(ctx, allocations); err != nil {
			return fmt.Errorf("write allocations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (s *AllocationService) logFulfillFailure(req FulfillOrderRequest, err error) {
	var fe *inventory.FulfillmentError
	if errors.As(err, &fe) {
		fields := []zap.Field{
			zap.String("order_id", req.OrderID.String()),
			zap.String("order_line_id", fe.OrderLineID.String()),
			zap.Error(fe.Cause),
		}
		if shortage, ok := fe.Shortage(); ok {
			fields = append(fields,
				zap.String("product_id", shortage.ProductID.String()),
				zap.Int64("requested", shortage.Requested),
				zap.Int64("available", shortage.Available),
			)
		}
		s.logger.Warn("order fulfillment rejected", fields...)
		return
	}
	s.logger.Error("order fulfillment failed",
		zap.String("order_id", req.OrderID.String()),
		zap.Error(err),
	)
}

// ReverseAllocations restores every batch drawn for an order and deletes its
// allocation rows in one transaction. An order without allocations is a
// successful no-op, so calling it twice is safe.
func (s *AllocationService) ReverseAllocations(ctx context.Context, orderID uuid.UUID) (*ReversalResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "reverse_allocations",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID.String()),
	)
	defer span.End()

	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}

	var (
		reversed []inventory.Allocation
		err      error
	)
	for attempt := 1; ; attempt++ {
		reversed, err = s.reverseOnce(ctx, orderID)
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) || attempt > s.maxRetries {
			break
		}
		s.logger.Warn("ledger changed during reversal, retrying",
			zap.String("order_id", orderID.String()),
			zap.Int("attempt", attempt),
		)
		telemetry.AddEvent(span, "reversal.retry", telemetry.SpanAttrRetryCount, attempt)
	}
	if err != nil {
		s.logger.Error("reversal failed", zap.String("order_id", orderID.String()), zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &ReversalResult{
		OrderID:          orderID,
		Reversed:         len(reversed),
		QuantityRestored: inventory.SumAllocated(reversed),
	}
	if result.Reversed > 0 {
		s.logger.Info("order allocations reversed",
			zap.String("order_id", orderID.String()),
			zap.Int("rows", result.Reversed),
			zap.Int64("quantity", result.QuantityRestored),
		)
		s.publish(ctx, inventory.NewOrderAllocationsReversedEvent(orderID, reversed))
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrReversed, result.Reversed)
	telemetry.SetOK(span)
	return result, nil
}

// reverseOnce runs one transactional reversal. Dropping the order claim
// and reading the ledger FOR UPDATE serialize concurrent reversals of the
// same order; the delete must then remove exactly the rows that were read,
// otherwise the transaction rolls back with ErrConcurrencyConflict.
func (s *AllocationService) reverseOnce(ctx context.Context, orderID uuid.UUID) ([]inventory.Allocation, error) {
	var reversed []inventory.Allocation
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		reversed = nil
		if _, err := repos.AllocationRepo().ReleaseOrder(ctx, orderID); err != nil {
			return fmt.Errorf("release order: %w", err)
		}
		allocations, err := repos.AllocationRepo().FindByOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load allocations: %w", err)
		}
		if len(allocations) == 0 {
			return nil
		}

		if _, err := repos.BatchRepo().FindByIDsForUpdate(ctx, batchIDs(allocations)); err != nil {
			return fmt.Errorf("lock batches: %w", err)
		}
		for _, a := range allocations {
			if err := repos.BatchRepo().IncrementQuantity(ctx, a.BatchID, a.Quantity); err != nil {
				return fmt.Errorf("restore batch %s: %w", a.BatchID, err)
			}
		}
		deleted, err := repos.AllocationRepo().DeleteByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("delete allocations: %w", err)
		}
		if deleted != int64(len(allocations)) {
			return shared.ErrConcurrencyConflict
		}
		reversed = allocations
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reversed, nil
}

// GetOrderAllocations returns the ledger rows of an order
func (s *AllocationService) GetOrderAllocations(ctx context.Context, orderID uuid.UUID) ([]AllocationResponse, error) {
	allocations, err := s.allocationRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToAllocationResponses(allocations), nil
}

func (s *AllocationService) resolveStrategy(strategy inventory.AllocationStrategy) (inventory.AllocationStrategy, error) {
	if strategy == "" {
		return s.defaultStrategy, nil
	}
	if !strategy.IsValid() {
		return "", inventory.ErrInvalidStrategy(string(strategy))
	}
	return strategy, nil
}

// claimIdempotencyKey marks the key as in use and returns a func that frees
// it again when the request fails.
func (s *AllocationService) claimIdempotencyKey(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if s.idempotency == nil || key == "" {
		return noop, nil
	}
	fullKey := idempotencyPrefixFulfill + key
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

func (s *AllocationService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish events", zap.Error(err))
	}
}

// batchIDs returns the distinct batch IDs in a stable order so concurrent
// reversals lock rows in the same sequence
func batchIDs(allocations []inventory.Allocation) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(allocations))
	ids := make([]uuid.UUID, 0, len(allocations))
	for _, a := range allocations {
		if !seen[a.BatchID] {
			seen[a.BatchID] = true
			ids = append(ids, a.BatchID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// lineProducts returns the distinct products of an order in ID order, the
// sequence every fulfillment locks batches in
func lineProducts(lines []OrderLineInput) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
