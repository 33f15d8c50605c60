// internal/repository/memory_cache.go
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
)

// MemoryCache is an in-process rate store. With maxAge zero entries never expire,
// which makes it a complete store for single-instance deployments and tests.
type MemoryCache struct {
	mu     sync.RWMutex
	data   map[string]*CacheEntry
	maxAge time.Duration
	now    func() time.Time
}

// CacheEntry represents a cached rate with timestamp
type CacheEntry struct {
	Rate     models.ExchangeRate
	CachedAt time.Time
}

func NewMemoryCache(maxAge time.Duration) *MemoryCache {
	return &MemoryCache{
		data:   make(map[string]*CacheEntry),
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (mc *MemoryCache) Get(_ context.Context, base, quote currency.Code) (*models.ExchangeRate, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	entry, exists := mc.data[rateKey(base, quote)]
	if !exists || mc.expired(entry) {
		return nil, ErrRateNotFound
	}

	rate := entry.Rate
	return &rate, nil
}

// Put stores the rate and its computed inverse in one critical section.
func (mc *MemoryCache) Put(_ context.Context, rate *models.ExchangeRate) error {
	if err := rate.Validate(); err != nil {
		return err
	}
	mc.putPair(rate, rate.Inverse())
	return nil
}

// putPair stores both directions with one CachedAt so they expire together.
func (mc *MemoryCache) putPair(forward, inverse *models.ExchangeRate) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	cachedAt := mc.now()
	mc.data[rateKey(forward.Base, forward.Quote)] = &CacheEntry{Rate: *forward, CachedAt: cachedAt}
	mc.data[rateKey(inverse.Base, inverse.Quote)] = &CacheEntry{Rate: *inverse, CachedAt: cachedAt}
}

func (mc *MemoryCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.data)
}

// Run removes expired entries every interval until ctx is done.
// It is a no-op for caches that never expire.
func (mc *MemoryCache) Run(ctx context.Context, interval time.Duration) {
	if mc.maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mc.purge()
		}
	}
}

func (mc *MemoryCache) purge() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for key, entry := range mc.data {
		if mc.expired(entry) {
			delete(mc.data, key)
		}
	}
}

func (mc *MemoryCache) expired(entry *CacheEntry) bool {
	return mc.maxAge > 0 && mc.now().Sub(entry.CachedAt) > mc.maxAge
}

func rateKey(base, quote currency.Code) string {
	return fmt.Sprintf("rate:%s:%s", base, quote)
}
