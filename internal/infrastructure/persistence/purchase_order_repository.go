package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// FindByID finds a purchase order with its lines
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", preloadLines).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLineIDForUpdate locks the purchase order owning a line. Receipts
// against any line of the same order are serialized on the order row.
func (r *GormPurchaseOrderRepository) FindByLineIDForUpdate(ctx context.Context, lineID uuid.UUID) (*trade.PurchaseOrder, error) {
	var line models.PurchaseOrderLineModel
	if err := r.db.WithContext(ctx).
		Select("id", "purchase_order_id").
		First(&line, "id = ?", lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", line.PurchaseOrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Scopes(preloadLines).
		Where("purchase_order_id = ?", model.ID).
		Find(&model.Lines).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists purchase orders matching the filter and returns the total count
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter trade.PurchaseOrderFilter) ([]trade.PurchaseOrder, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Scopes(purchaseOrderFilterScope(filter)).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orderModels []models.PurchaseOrderModel
	query := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Scopes(purchaseOrderFilterScope(filter)).
		Preload("Lines", preloadLines)
	if err := applySortAndPage(query, filter.Filter, PurchaseOrderSortFields, "created_at DESC").
		Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}
	orders := make([]trade.PurchaseOrder, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, total, nil
}

func purchaseOrderFilterScope(filter trade.PurchaseOrderFilter) func(*gorm.DB) *gorm.DB {
	return func(query *gorm.DB) *gorm.DB {
		if filter.Status != nil {
			query = query.Where("status = ?", string(*filter.Status))
		}
		if filter.WarehouseID != nil {
			query = query.Where("warehouse_id = ?", *filter.WarehouseID)
		}
		return query
	}
}

// ExistsByOrderNumber checks if an order number is already used
func (r *GormPurchaseOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a purchase order together with its lines
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, order *trade.PurchaseOrder) error {
	model := models.PurchaseOrderModelFromDomain(order)
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveLine persists a line's received quantity. The update is refused if it
// would take the line past its ordered quantity.
func (r *GormPurchaseOrderRepository) SaveLine(ctx context.Context, line *trade.PurchaseOrderLine) error {
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderLineModel{}).
		Where("id = ? AND ordered_quantity >= ?", line.ID, line.ReceivedQuantity).
		Updates(map[string]interface{}{
			"received_quantity": line.ReceivedQuantity,
			"updated_at":        line.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SaveStatus persists the derived status with an optimistic version check
func (r *GormPurchaseOrderRepository) SaveStatus(ctx context.Context, order *trade.PurchaseOrder) error {
	updatedAt := order.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version-1).
		Updates(map[string]interface{}{
			"status":      string(order.Status),
			"received_at": order.ReceivedAt,
			"version":     order.Version,
			"updated_at":  updatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormPurchaseOrderRepository implements PurchaseOrderRepository
var _ trade.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
