package persistence

import (
	"context"
	"time"

	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderStageRepository stores custom order stages using GORM
type GormOrderStageRepository struct {
	db *gorm.DB
}

// NewGormOrderStageRepository creates a new GormOrderStageRepository
func NewGormOrderStageRepository(db *gorm.DB) *GormOrderStageRepository {
	return &GormOrderStageRepository{db: db}
}

// FindAll returns the custom stages in position order
func (r *GormOrderStageRepository) FindAll(ctx context.Context) ([]trade.OrderStage, error) {
	var rows []models.OrderStageModel
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	stages := make([]trade.OrderStage, len(rows))
	for i := range rows {
		stages[i] = rows[i].ToDomain()
	}
	return stages, nil
}

// ReplaceAll overwrites the stored stages in one transaction
func (r *GormOrderStageRepository) ReplaceAll(ctx context.Context, stages []trade.OrderStage) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.OrderStageModel{}).Error; err != nil {
			return err
		}
		if len(stages) == 0 {
			return nil
		}
		rows := make([]models.OrderStageModel, 0, len(stages))
		for i, s := range stages {
			if s.Reserved || trade.IsReservedStageCode(s.Code) {
				continue
			}
			rows = append(rows, models.OrderStageModel{Code: s.Code, Name: s.Name, Position: i, CreatedAt: now})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// Ensure GormOrderStageRepository implements OrderStageRepository
var _ trade.OrderStageRepository = (*GormOrderStageRepository)(nil)
