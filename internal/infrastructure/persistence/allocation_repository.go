package persistence

import (
	"context"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// CreateBatch inserts the allocation rows of one fulfillment
func (r *GormAllocationRepository) CreateBatch(ctx context.Context, allocations []inventory.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	rows := make([]*models.AllocationModel, len(allocations))
	for i := range allocations {
		rows[i] = models.AllocationModelFromDomain(&allocations[i])
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindByOrder returns the allocations of an order
func (r *GormAllocationRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]inventory.Allocation, error) {
	return r.find(ctx, "order_id = ?", orderID)
}

// FindByOrderForUpdate returns the allocations of an order and locks the
// rows until the surrounding transaction ends
func (r *GormAllocationRepository) FindByOrderForUpdate(ctx context.Context, orderID uuid.UUID) ([]inventory.Allocation, error) {
	var rows []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		Order("allocated_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return allocationsToDomain(rows), nil
}

// FindByOrderLine returns the allocations of an order line
func (r *GormAllocationRepository) FindByOrderLine(ctx context.Context, orderLineID uuid.UUID) ([]inventory.Allocation, error) {
	return r.find(ctx, "order_line_id = ?", orderLineID)
}

// FindByBatch returns the allocations drawn from a batch
func (r *GormAllocationRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]inventory.Allocation, error) {
	return r.find(ctx, "batch_id = ?", batchID)
}

// ExistsForOrder checks whether an order already holds allocations
func (r *GormAllocationRepository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Where("order_id = ?", orderID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SumByBatch returns the quantity currently allocated from a batch
func (r *GormAllocationRepository) SumByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Select("COALESCE(SUM(quantity), 0) as total").
		Where("batch_id = ?", batchID).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

// DeleteByOrder removes every allocation of an order and returns how many
// rows were deleted
func (r *GormAllocationRepository) DeleteByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.AllocationModel{}, "order_id = ?", orderID)
	return result.RowsAffected, result.Error
}

// ClaimOrder inserts the claim row of an order. The insert skips on
// conflict, so a second claimant sees zero affected rows once the first
// one has committed.
func (r *GormAllocationRepository) ClaimOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.OrderClaimModel{OrderID: orderID, ClaimedAt: time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseOrder deletes the claim row of an order
func (r *GormAllocationRepository) ReleaseOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.OrderClaimModel{}, "order_id = ?", orderID)
	return result.RowsAffected > 0, result.Error
}

func (r *GormAllocationRepository) find(ctx context.Context, where string, arg uuid.UUID) ([]inventory.Allocation, error) {
	var rows []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where(where, arg).
		Order("allocated_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return allocationsToDomain(rows), nil
}

func allocationsToDomain(rows []models.AllocationModel) []inventory.Allocation {
	allocations := make([]inventory.Allocation, len(rows))
	for i := range rows {
		allocations[i] = *rows[i].ToDomain()
	}
	return allocations
}

// Ensure GormAllocationRepository implements AllocationRepository
var _ inventory.AllocationRepository = (*GormAllocationRepository)(nil)
