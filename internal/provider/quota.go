// internal/provider/quota.go
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"currency-conversion/internal/currency"
)

// AttemptCounter counts provider attempts in a fixed window. Implementations shared
// across instances (redis) give every replica one combined budget.
type AttemptCounter interface {
	IncrWithExpire(ctx context.Context, key string, window time.Duration) (int64, error)
}

type QuotaConfig struct {
	RequestsPerSecond float64
	Burst             int
	MaxAttempts       int64
	Window            time.Duration
}

// QuotaGuard throttles calls with a local token bucket and enforces the shared
// attempt budget before delegating to the wrapped provider.
type QuotaGuard struct {
	next    Provider
	limiter *rate.Limiter
	counter AttemptCounter
	cfg     QuotaConfig
}

func NewQuotaGuard(next Provider, counter AttemptCounter, cfg QuotaConfig) *QuotaGuard {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}

	return &QuotaGuard{
		next:    next,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		counter: counter,
		cfg:     cfg,
	}
}

func (q *QuotaGuard) Name() string {
	return q.next.Name()
}

func (q *QuotaGuard) Rate(ctx context.Context, base, quote currency.Code) (*Quote, error) {
	if err := q.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}

	if q.counter != nil && q.cfg.MaxAttempts > 0 {
		attempts, err := q.counter.IncrWithExpire(ctx, q.counterKey(), q.cfg.Window)
		// an unreachable counter does not block live rates
		if err == nil && attempts > q.cfg.MaxAttempts {
			return nil, fmt.Errorf("%w: %d attempts in %s", ErrQuotaExceeded, attempts, q.cfg.Window)
		}
	}

	return q.next.Rate(ctx, base, quote)
}

func (q *QuotaGuard) counterKey() string {
	return "fx:provider:" + q.next.Name() + ":attempts"
}

// LocalCounter is an in-process AttemptCounter for single-instance deployments.
type LocalCounter struct {
	mu      sync.Mutex
	windows map[string]*localWindow
	now     func() time.Time
}

type localWindow struct {
	count     int64
	expiresAt time.Time
}

func NewLocalCounter() *LocalCounter {
	return &LocalCounter{
		windows: make(map[string]*localWindow),
		now:     time.Now,
	}
}

func (c *LocalCounter) IncrWithExpire(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &localWindow{expiresAt: now.Add(window)}
		c.windows[key] = w
	}
	w.count++
	return w.count, nil
}
