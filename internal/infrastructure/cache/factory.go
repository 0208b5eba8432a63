package cache

import (
	"context"
	"fmt"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory picks the request-key store for the configuration
type IdempotencyStoreFactory struct {
	redisConfig config.RedisConfig
	idemConfig  config.IdempotencyConfig
	logger      *zap.Logger
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(redisCfg config.RedisConfig, idemCfg config.IdempotencyConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig: redisCfg,
		idemConfig:  idemCfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns nil when idempotency is disabled. Otherwise it uses
// Redis when enabled and reachable, and falls back to an in-memory store
// only if the configuration allows it.
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context) (shared.IdempotencyStore, error) {
	if !f.idemConfig.Enabled {
		f.logger.Info("request idempotency disabled")
		return nil, nil
	}
	if !f.redisConfig.Enabled {
		f.logger.Info("using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(f.idemConfig.SweepInterval), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, RedisConfig{
		Host:      f.redisConfig.Host,
		Port:      f.redisConfig.Port,
		Password:  f.redisConfig.Password,
		DB:        f.redisConfig.DB,
		KeyPrefix: f.redisConfig.KeyPrefix,
	})
	if err == nil {
		f.logger.Info("using Redis idempotency store",
			zap.String("addr", fmt.Sprintf("%s:%d", f.redisConfig.Host, f.redisConfig.Port)),
		)
		return store, nil
	}

	if !f.idemConfig.AllowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(f.idemConfig.SweepInterval), nil
}
