// internal/repository/rate_cache.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
)

// RateBackend is a durable rate store sitting behind the memory layer.
type RateBackend interface {
	Get(ctx context.Context, base, quote currency.Code) (*models.ExchangeRate, error)
	Put(ctx context.Context, rate *models.ExchangeRate) error
}

// RateCache layers a short-lived memory cache over a shared backend (redis or postgres).
// The memory layer only shortens reads; freshness is always judged on UpdatedAt.
type RateCache struct {
	backend  RateBackend
	memCache *MemoryCache
	logger   *zap.Logger
}

func NewRateCache(backend RateBackend, memoryTTL time.Duration, logger *zap.Logger) *RateCache {
	return &RateCache{
		backend:  backend,
		memCache: NewMemoryCache(memoryTTL),
		logger:   logger,
	}
}

// Get checks memory first, then the backend.
func (rc *RateCache) Get(ctx context.Context, base, quote currency.Code) (*models.ExchangeRate, error) {
	if rate, err := rc.memCache.Get(ctx, base, quote); err == nil {
		rc.logger.Debug("cache hit (memory)",
			zap.String("base", base.String()),
			zap.String("quote", quote.String()))
		return rate, nil
	}

	rate, err := rc.backend.Get(ctx, base, quote)
	if err != nil {
		if !errors.Is(err, ErrRateNotFound) {
			return nil, fmt.Errorf("backend get %s/%s: %w", base, quote, err)
		}
		return nil, err
	}

	rc.logger.Debug("cache hit (backend)",
		zap.String("base", base.String()),
		zap.String("quote", quote.String()))

	rc.memCache.putPair(rate, rc.inverseOf(ctx, rate))
	return rate, nil
}

// inverseOf returns the backend's inverse when it belongs to the same write as
// rate, and a freshly computed one otherwise. Both memory keys are always
// refreshed together so another instance's newer write can't leave them split.
func (rc *RateCache) inverseOf(ctx context.Context, rate *models.ExchangeRate) *models.ExchangeRate {
	inverse, err := rc.backend.Get(ctx, rate.Quote, rate.Base)
	if err == nil && rate.IsInverseOf(inverse) {
		return inverse
	}
	if err != nil && !errors.Is(err, ErrRateNotFound) {
		rc.logger.Warn("failed to read inverse rate",
			zap.String("base", rate.Quote.String()),
			zap.String("quote", rate.Base.String()),
			zap.Error(err))
	}
	return rate.Inverse()
}

// Put writes the backend first so a memory hit never outlives a failed durable write.
func (rc *RateCache) Put(ctx context.Context, rate *models.ExchangeRate) error {
	if err := rc.backend.Put(ctx, rate); err != nil {
		return fmt.Errorf("backend put %s/%s: %w", rate.Base, rate.Quote, err)
	}

	if err := rc.memCache.Put(ctx, rate); err != nil {
		return err
	}

	rc.logger.Debug("rate cached",
		zap.String("base", rate.Base.String()),
		zap.String("quote", rate.Quote.String()),
		zap.String("rate", rate.Rate.String()),
		zap.String("source", string(rate.Source)))

	return nil
}

// Run purges expired memory entries until ctx is done.
func (rc *RateCache) Run(ctx context.Context) {
	rc.memCache.Run(ctx, time.Minute)
}

func (rc *RateCache) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"memory_cache_size": rc.memCache.Len(),
		"memory_cache_ttl":  rc.memCache.maxAge.String(),
	}
}
