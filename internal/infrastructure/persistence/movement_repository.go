package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMovementRepository implements MovementRepository using GORM.
// Movements are append-only.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Create appends a movement
func (r *GormMovementRepository) Create(ctx context.Context, movement *inventory.InventoryMovement) error {
	return r.db.WithContext(ctx).Create(models.InventoryMovementModelFromDomain(movement)).Error
}

// FindByPurchaseOrder returns the movements recorded against a purchase order, oldest first
func (r *GormMovementRepository) FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]inventory.InventoryMovement, error) {
	var rows []models.InventoryMovementModel
	if err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", purchaseOrderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainMovements(rows), nil
}

// FindByProductAndWarehouse returns a page of movements for a product in a warehouse
func (r *GormMovementRepository) FindByProductAndWarehouse(ctx context.Context, productID, warehouseID uuid.UUID, filter shared.Filter) ([]inventory.InventoryMovement, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryMovementModel{}).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InventoryMovementModel
	query := r.db.WithContext(ctx).
		Model(&models.InventoryMovementModel{}).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID)
	if err := applySortAndPage(query, filter, MovementSortFields, "created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainMovements(rows), total, nil
}

func toDomainMovements(rows []models.InventoryMovementModel) []inventory.InventoryMovement {
	movements := make([]inventory.InventoryMovement, len(rows))
	for i := range rows {
		movements[i] = *rows[i].ToDomain()
	}
	return movements
}

// Ensure GormMovementRepository implements MovementRepository
var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
