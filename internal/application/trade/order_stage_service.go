package trade

import (
	"context"

	"github.com/erp/warehouse/internal/domain/trade"
	"go.uber.org/zap"
)

// OrderStageService manages the order stage pipeline. Only custom stages are
// stored; Ready to Ship is added by the domain on every read.
type OrderStageService struct {
	repo   trade.OrderStageRepository
	logger *zap.Logger
}

// NewOrderStageService creates a new OrderStageService
func NewOrderStageService(repo trade.OrderStageRepository, logger *zap.Logger) *OrderStageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderStageService{repo: repo, logger: logger}
}

// ListStages returns the full pipeline
func (s *OrderStageService) ListStages(ctx context.Context) ([]trade.OrderStage, error) {
	p, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return p.Stages(), nil
}

// AddStage appends a custom stage before Ready to Ship
func (s *OrderStageService) AddStage(ctx context.Context, code, name string) ([]trade.OrderStage, error) {
	stage, err := trade.NewOrderStage(code, name)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, func(p *trade.StagePipeline) error {
		return p.AddStage(*stage)
	})
}

// RemoveStage removes a custom stage
func (s *OrderStageService) RemoveStage(ctx context.Context, code string) ([]trade.OrderStage, error) {
	return s.mutate(ctx, func(p *trade.StagePipeline) error {
		return p.RemoveStage(code)
	})
}

// ReorderStages sets the order of the custom stages
func (s *OrderStageService) ReorderStages(ctx context.Context, codes []string) ([]trade.OrderStage, error) {
	return s.mutate(ctx, func(p *trade.StagePipeline) error {
		return p.Reorder(codes)
	})
}

func (s *OrderStageService) load(ctx context.Context) (*trade.StagePipeline, error) {
	stored, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return trade.NewStagePipeline(stored)
}

func (s *OrderStageService) mutate(ctx context.Context, fn func(p *trade.StagePipeline) error) ([]trade.OrderStage, error) {
	p, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceAll(ctx, p.CustomStages()); err != nil {
		return nil, err
	}
	s.logger.Info("order stages updated", zap.Int("custom_stages", len(p.CustomStages())))
	return p.Stages(), nil
}
