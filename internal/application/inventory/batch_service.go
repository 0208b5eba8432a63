package inventory

import (
	"context"
	"fmt"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchService handles batch queries and opening stock import
type BatchService struct {
	scope          TransactionScope
	batchRepo      inventory.BatchRepository
	movementRepo   inventory.MovementRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewBatchService creates a new BatchService
func NewBatchService(
	scope TransactionScope,
	batchRepo inventory.BatchRepository,
	movementRepo inventory.MovementRepository,
	logger *zap.Logger,
) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		scope:        scope,
		batchRepo:    batchRepo,
		movementRepo: movementRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *BatchService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetBatch returns a batch by ID
func (s *BatchService) GetBatch(ctx context.Context, id uuid.UUID) (*BatchResponse, error) {
	b, err := s.batchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToBatchResponse(b)
	return &resp, nil
}

// ListBatches lists batches, optionally narrowed by product and warehouse
func (s *BatchService) ListBatches(ctx context.Context, filter inventory.BatchFilter) (*BatchListResult, error) {
	batches, total, err := s.batchRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &BatchListResult{Items: ToBatchResponses(batches), Total: total}, nil
}

// ListMovements returns the movement ledger of a product in a warehouse
func (s *BatchService) ListMovements(ctx context.Context, productID, warehouseID uuid.UUID, filter shared.Filter) ([]inventory.InventoryMovement, int64, error) {
	return s.movementRepo.FindByProductAndWarehouse(ctx, productID, warehouseID, filter)
}

// ImportBatch loads opening stock as a new batch together with an OPENING
// movement in one transaction
func (s *BatchService) ImportBatch(ctx context.Context, req ImportBatchRequest) (*BatchResponse, error) {
	batch, err := inventory.NewBatch(
		req.ProductID,
		req.WarehouseID,
		req.BatchNumber,
		req.Quantity,
		req.UnitCost,
		req.ReceivedAt,
		req.ExpiresAt,
		req.Location,
	)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.BatchRepo().Create(ctx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		stockAfter, err := repos.BatchRepo().SumAvailable(ctx, batch.ProductID, batch.WarehouseID)
		if err != nil {
			return fmt.Errorf("sum stock: %w", err)
		}
		movement, err := inventory.NewInventoryMovement(inventory.MovementInput{
			ProductID:    batch.ProductID,
			WarehouseID:  batch.WarehouseID,
			BatchID:      &batch.ID,
			MovementType: inventory.MovementTypeOpening,
			Quantity:     batch.Quantity,
			StockAfter:   stockAfter,
			Reference:    req.Reference,
		})
		if err != nil {
			return err
		}
		return repos.MovementRepo().Create(ctx, movement)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("opening stock imported",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.String("product_id", batch.ProductID.String()),
		zap.Int64("quantity", batch.Quantity),
	)
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, inventory.NewBatchImportedEvent(batch)); err != nil {
			s.logger.Warn("failed to publish events", zap.Error(err))
		}
	}

	resp := ToBatchResponse(batch)
	return &resp, nil
}
