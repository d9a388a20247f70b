package cache

import (
	"context"
	"fmt"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a Redis store when Redis is enabled and reachable.
// It falls back to an in-memory store when Redis is disabled, or unreachable
// and fallback is allowed.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("Redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, RedisConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err == nil {
		logger.Info("Using Redis idempotency store",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
		)
		return store, nil
	}
	if !allowFallback {
		return nil, fmt.Errorf("redis required for idempotency: %w", err)
	}
	logger.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}
