// internal/service/resolver.go
package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"currency-conversion/internal/apperrors"
	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
	"currency-conversion/internal/provider"
	"currency-conversion/pkg/metrics"
)

const (
	DefaultFreshnessWindow = time.Hour
	DefaultProviderTimeout = 5 * time.Second
)

// RateStore is the shared rate cache. Put must write the pair and its inverse together.
type RateStore interface {
	Get(ctx context.Context, base, quote currency.Code) (*models.ExchangeRate, error)
	Put(ctx context.Context, rate *models.ExchangeRate) error
}

type ResolverConfig struct {
	FreshnessWindow time.Duration
	ProviderTimeout time.Duration
	Now             func() time.Time
}

// RateResolver answers rate lookups through the fallback chain:
// fresh cache, live provider, static table, then any cached entry however old.
type RateResolver struct {
	store   RateStore
	static  *currency.StaticTable
	live    provider.Provider
	cfg     ResolverConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRateResolver builds a resolver. live may be nil when no provider is configured.
func NewRateResolver(store RateStore, static *currency.StaticTable, live provider.Provider, cfg ResolverConfig, m *metrics.Metrics, logger *zap.Logger) *RateResolver {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = DefaultFreshnessWindow
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultProviderTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &RateResolver{
		store:   store,
		static:  static,
		live:    live,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

func (r *RateResolver) Resolve(ctx context.Context, base, quote currency.Code) (*models.ResolvedRate, error) {
	now := r.cfg.Now()

	if base == quote {
		r.metrics.ObserveResolution("identity")
		return &models.ResolvedRate{ExchangeRate: models.ExchangeRate{
			Base:      base,
			Quote:     quote,
			Rate:      decimal.NewFromInt(1),
			UpdatedAt: now,
			Source:    models.SourceLive,
		}}, nil
	}

	cached := r.lookup(ctx, base, quote)
	if cached != nil && cached.IsFresh(now, r.cfg.FreshnessWindow) {
		r.metrics.ObserveResolution("cache")
		resolved := &models.ResolvedRate{ExchangeRate: *cached}
		if cached.FromStaticTable() {
			resolved.Stale = true
			resolved.Warning = r.warning(cached, apperrors.ReasonStatic)
		}
		return resolved, nil
	}

	if r.live != nil {
		rate, err := r.fetchLive(ctx, base, quote, now)
		if err == nil {
			r.save(ctx, rate)
			r.metrics.ObserveResolution(string(models.SourceLive))
			resolved := &models.ResolvedRate{ExchangeRate: *rate}
			if !rate.IsFresh(now, r.cfg.FreshnessWindow) {
				resolved.Stale = true
				resolved.Warning = r.warning(rate, apperrors.ReasonStale)
				r.logger.Warn("provider returned an outdated rate",
					zap.String("warning", resolved.Warning.String()),
					zap.Duration("age", now.Sub(rate.UpdatedAt)))
			}
			return resolved, nil
		}
		r.logger.Warn("live rate provider failed, falling back",
			zap.String("provider", r.live.Name()),
			zap.String("base", base.String()),
			zap.String("quote", quote.String()),
			zap.Error(err))
	}

	if value, ok := r.static.Rate(base, quote); ok {
		rate := &models.ExchangeRate{
			Base:      base,
			Quote:     quote,
			Rate:      value,
			UpdatedAt: now,
			Source:    models.SourceStatic,
		}
		r.save(ctx, rate)
		r.metrics.ObserveResolution(string(models.SourceStatic))

		warning := r.warning(rate, apperrors.ReasonStatic)
		r.logger.Warn("serving static exchange rate", zap.String("warning", warning.String()))
		return &models.ResolvedRate{ExchangeRate: *rate, Stale: true, Warning: warning}, nil
	}

	if cached != nil {
		r.metrics.ObserveResolution("stale")

		warning := r.warning(cached, apperrors.ReasonStale)
		r.logger.Warn("serving stale exchange rate",
			zap.String("warning", warning.String()),
			zap.Duration("age", now.Sub(cached.UpdatedAt)))
		return &models.ResolvedRate{ExchangeRate: *cached, Stale: true, Warning: warning}, nil
	}

	r.metrics.ObserveResolution("unavailable")
	return nil, &apperrors.RateUnavailableError{Base: base.String(), Quote: quote.String()}
}

// lookup treats read errors as a miss.
func (r *RateResolver) lookup(ctx context.Context, base, quote currency.Code) *models.ExchangeRate {
	rate, err := r.store.Get(ctx, base, quote)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			r.logger.Error("failed to read rate cache",
				zap.String("base", base.String()),
				zap.String("quote", quote.String()),
				zap.Error(err))
		}
		return nil
	}
	return rate
}

func (r *RateResolver) fetchLive(ctx context.Context, base, quote currency.Code, now time.Time) (*models.ExchangeRate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProviderTimeout)
	defer cancel()

	start := time.Now()
	q, err := r.live.Rate(ctx, base, quote)
	r.metrics.ObserveProviderCall(r.live.Name(), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	// the upstream publish time is the rate's age; a missing or future one falls back to now
	updatedAt := now
	if !q.Timestamp.IsZero() && !q.Timestamp.After(now) {
		updatedAt = q.Timestamp
	}

	return &models.ExchangeRate{
		Base:      base,
		Quote:     quote,
		Rate:      q.Rate,
		UpdatedAt: updatedAt,
		Source:    models.SourceLive,
	}, nil
}

// save never fails resolution; a lost write only costs a later refetch.
func (r *RateResolver) save(ctx context.Context, rate *models.ExchangeRate) {
	if err := r.store.Put(ctx, rate); err != nil {
		r.logger.Error("failed to write rate cache",
			zap.String("base", rate.Base.String()),
			zap.String("quote", rate.Quote.String()),
			zap.Error(err))
	}
}

func (r *RateResolver) warning(rate *models.ExchangeRate, reason string) *apperrors.DegradedRateWarning {
	return &apperrors.DegradedRateWarning{
		Base:      rate.Base.String(),
		Quote:     rate.Quote.String(),
		Source:    string(rate.Source),
		Reason:    reason,
		UpdatedAt: rate.UpdatedAt,
	}
}
