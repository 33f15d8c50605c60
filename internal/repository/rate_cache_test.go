// internal/repository/rate_cache_test.go
package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
)

type backendMock struct {
	mock.Mock
}

func (b *backendMock) Get(ctx context.Context, base, quote currency.Code) (*models.ExchangeRate, error) {
	args := b.Called(ctx, base, quote)
	if rate, ok := args.Get(0).(*models.ExchangeRate); ok {
		return rate, args.Error(1)
	}
	return nil, args.Error(1)
}

func (b *backendMock) Put(ctx context.Context, rate *models.ExchangeRate) error {
	return b.Called(ctx, rate).Error(0)
}

func TestRateCacheReadsThroughOnce(t *testing.T) {
	ctx := context.Background()
	backend := &backendMock{}
	forward := testRate("USD", "EUR", "0.85")
	backend.On("Get", ctx, currency.Code("USD"), currency.Code("EUR")).Return(forward, nil).Once()
	backend.On("Get", ctx, currency.Code("EUR"), currency.Code("USD")).Return(forward.Inverse(), nil).Once()

	cache := NewRateCache(backend, time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		rate, err := cache.Get(ctx, "USD", "EUR")
		require.NoError(t, err)
		assert.Equal(t, "0.85", rate.Rate.String())
	}

	inverse, err := cache.Get(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.True(t, forward.Inverse().Rate.Equal(inverse.Rate))
	backend.AssertExpectations(t)
}

func TestRateCacheBackendHitKeepsPairConsistent(t *testing.T) {
	ctx := context.Background()
	shared := NewMemoryCache(0)
	writer := NewRateCache(shared, time.Minute, zap.NewNop())
	reader := NewRateCache(shared, time.Minute, zap.NewNop())

	first := testRate("USD", "NGN", "1600")
	require.NoError(t, writer.Put(ctx, first))

	_, err := reader.Get(ctx, "USD", "NGN")
	require.NoError(t, err)

	second := testRate("USD", "NGN", "1700")
	second.UpdatedAt = first.UpdatedAt.Add(time.Hour)
	require.NoError(t, writer.Put(ctx, second))

	forward, err := reader.Get(ctx, "USD", "NGN")
	require.NoError(t, err)
	inverse, err := reader.Get(ctx, "NGN", "USD")
	require.NoError(t, err)

	assert.True(t, forward.IsInverseOf(inverse), "forward %s and inverse %s come from different writes", forward.Rate, inverse.Rate)
	assert.Equal(t, forward.UpdatedAt, inverse.UpdatedAt)
}

func TestRateCacheRecomputesMismatchedInverse(t *testing.T) {
	ctx := context.Background()
	forward := testRate("USD", "EUR", "0.85")
	older := testRate("USD", "EUR", "0.80").Inverse()
	older.UpdatedAt = forward.UpdatedAt.Add(-time.Hour)

	backend := &backendMock{}
	backend.On("Get", ctx, currency.Code("USD"), currency.Code("EUR")).Return(forward, nil).Once()
	backend.On("Get", ctx, currency.Code("EUR"), currency.Code("USD")).Return(older, nil).Once()

	cache := NewRateCache(backend, time.Minute, zap.NewNop())

	_, err := cache.Get(ctx, "USD", "EUR")
	require.NoError(t, err)

	inverse, err := cache.Get(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.True(t, forward.Inverse().Rate.Equal(inverse.Rate))
	assert.Equal(t, forward.UpdatedAt, inverse.UpdatedAt)
	assert.Equal(t, models.SourceComputed, inverse.Source)
	assert.Equal(t, models.SourceLive, inverse.DerivedFrom)
	backend.AssertExpectations(t)
}

func TestRateCacheInverseReadErrorFallsBackToComputed(t *testing.T) {
	ctx := context.Background()
	forward := testRate("USD", "EUR", "0.85")

	backend := &backendMock{}
	backend.On("Get", ctx, currency.Code("USD"), currency.Code("EUR")).Return(forward, nil).Once()
	backend.On("Get", ctx, currency.Code("EUR"), currency.Code("USD")).Return(nil, errors.New("i/o timeout")).Once()

	cache := NewRateCache(backend, time.Minute, zap.NewNop())

	rate, err := cache.Get(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "0.85", rate.Rate.String())
	assert.Equal(t, 2, cache.memCache.Len())
	backend.AssertExpectations(t)
}

func TestRateCacheMissPassesThroughNotFound(t *testing.T) {
	ctx := context.Background()
	backend := &backendMock{}
	backend.On("Get", ctx, currency.Code("USD"), currency.Code("EUR")).Return(nil, ErrRateNotFound)

	cache := NewRateCache(backend, time.Minute, zap.NewNop())

	_, err := cache.Get(ctx, "USD", "EUR")
	assert.ErrorIs(t, err, ErrRateNotFound)
}

func TestRateCachePutWritesBackendFirst(t *testing.T) {
	ctx := context.Background()
	rate := testRate("USD", "EUR", "0.85")

	backend := &backendMock{}
	backend.On("Put", ctx, rate).Return(errors.New("connection refused")).Once()

	cache := NewRateCache(backend, time.Minute, zap.NewNop())

	err := cache.Put(ctx, rate)
	require.Error(t, err)
	assert.Equal(t, 0, cache.memCache.Len())

	backend.On("Put", ctx, rate).Return(nil).Once()
	require.NoError(t, cache.Put(ctx, rate))
	assert.Equal(t, 2, cache.memCache.Len())

	inverse, err := cache.Get(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, models.SourceComputed, inverse.Source)
	backend.AssertExpectations(t)
}

func TestRateCacheStats(t *testing.T) {
	cache := NewRateCache(&backendMock{}, 30*time.Second, zap.NewNop())
	stats := cache.GetStats()

	assert.Equal(t, 0, stats["memory_cache_size"])
	assert.Equal(t, "30s", stats["memory_cache_ttl"])
}
