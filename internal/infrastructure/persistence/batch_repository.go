package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProductAndWarehouse finds every batch of a product in a warehouse,
// including exhausted ones
func (r *GormBatchRepository) FindByProductAndWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) ([]inventory.Batch, error) {
	var batchModels []models.BatchModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Order("received_at ASC, id ASC").
		Find(&batchModels).Error; err != nil {
		return nil, err
	}
	return toDomainBatches(batchModels), nil
}

// FindAll lists batches matching the filter and returns the total count
func (r *GormBatchRepository) FindAll(ctx context.Context, filter inventory.BatchFilter) ([]inventory.Batch, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.BatchModel{}).
		Scopes(batchFilterScope(filter)).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var batchModels []models.BatchModel
	query := r.db.WithContext(ctx).Model(&models.BatchModel{}).Scopes(batchFilterScope(filter))
	if err := applySortAndPage(query, filter.Filter, BatchSortFields, "received_at ASC, id ASC").
		Find(&batchModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainBatches(batchModels), total, nil
}

func batchFilterScope(filter inventory.BatchFilter) func(*gorm.DB) *gorm.DB {
	return func(query *gorm.DB) *gorm.DB {
		if filter.ProductID != nil {
			query = query.Where("product_id = ?", *filter.ProductID)
		}
		if filter.WarehouseID != nil {
			query = query.Where("warehouse_id = ?", *filter.WarehouseID)
		}
		if filter.AvailableOnly {
			query = query.Where("quantity > 0")
		}
		return query
	}
}

// FindAvailableForUpdate locks the batches with stock left for a product in
// a warehouse. Rows are locked in ID order so concurrent allocators for the
// same product always acquire locks in the same sequence.
func (r *GormBatchRepository) FindAvailableForUpdate(ctx context.Context, productID, warehouseID uuid.UUID) ([]inventory.Batch, error) {
	var batchModels []models.BatchModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND warehouse_id = ? AND quantity > 0", productID, warehouseID).
		Order("id ASC").
		Find(&batchModels).Error; err != nil {
		return nil, err
	}
	return toDomainBatches(batchModels), nil
}

// FindByIDsForUpdate locks and returns the given batches in ID order
func (r *GormBatchRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]inventory.Batch, error) {
	if len(ids) == 0 {
		return []inventory.Batch{}, nil
	}
	var batchModels []models.BatchModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&batchModels).Error; err != nil {
		return nil, err
	}
	return toDomainBatches(batchModels), nil
}

// FindMergeCandidate returns the most recent batch received against a
// purchase order line, locked for update
func (r *GormBatchRepository) FindMergeCandidate(ctx context.Context, poLineID uuid.UUID) (*inventory.Batch, error) {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("purchase_order_line_id = ?", poLineID).
		Order("received_at DESC, created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new batch
func (r *GormBatchRepository) Create(ctx context.Context, batch *inventory.Batch) error {
	model := models.BatchModelFromDomain(batch)
	return r.db.WithContext(ctx).Create(model).Error
}

// DecrementQuantity subtracts quantity from a batch in a single conditional
// update. The WHERE clause is the floor check: if another transaction has
// drawn the batch down in the meantime no row matches.
func (r *GormBatchRepository) DecrementQuantity(ctx context.Context, id uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return shared.ErrInvalidQuantity
	}
	result := r.db.WithContext(ctx).
		Model(&models.BatchModel{}).
		Where("id = ? AND quantity >= ?", id, quantity).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", quantity),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// IncrementQuantity returns quantity to a batch. A batch never holds more
// than it was received with.
func (r *GormBatchRepository) IncrementQuantity(ctx context.Context, id uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return shared.ErrInvalidQuantity
	}
	result := r.db.WithContext(ctx).
		Model(&models.BatchModel{}).
		Where("id = ? AND quantity + ? <= original_quantity", id, quantity).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", quantity),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return shared.NewDomainError("INVALID_STATE", "Restoring would exceed the batch's received quantity")
	}
	return nil
}

// Replenish raises both the on-hand and the received quantity of a batch
func (r *GormBatchRepository) Replenish(ctx context.Context, id uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return shared.ErrInvalidQuantity
	}
	result := r.db.WithContext(ctx).
		Model(&models.BatchModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity":          gorm.Expr("quantity + ?", quantity),
			"original_quantity": gorm.Expr("original_quantity + ?", quantity),
			"version":           gorm.Expr("version + 1"),
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SumAvailable returns on-hand stock for a product in a warehouse
func (r *GormBatchRepository) SumAvailable(ctx context.Context, productID, warehouseID uuid.UUID) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.BatchModel{}).
		Select("COALESCE(SUM(quantity), 0) as total").
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

func toDomainBatches(batchModels []models.BatchModel) []inventory.Batch {
	batches := make([]inventory.Batch, len(batchModels))
	for i := range batchModels {
		batches[i] = *batchModels[i].ToDomain()
	}
	return batches
}

// Ensure GormBatchRepository implements BatchRepository
var _ inventory.BatchRepository = (*GormBatchRepository)(nil)
