// internal/service/resolver_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"currency-conversion/internal/apperrors"
	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
	"currency-conversion/internal/provider"
	"currency-conversion/internal/repository"
)

func cachedRate(base, quote currency.Code, value string, age time.Duration, source models.RateSource) *models.ExchangeRate {
	return &models.ExchangeRate{
		Base:      base,
		Quote:     quote,
		Rate:      decimal.RequireFromString(value),
		UpdatedAt: testNow.Add(-age),
		Source:    source,
	}
}

func TestResolveIdentityDoesNoIO(t *testing.T) {
	store := &storeMock{}
	live := &providerMock{}

	rate, err := newTestResolver(store, live).Resolve(context.Background(), currency.EUR, currency.EUR)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(rate.Rate))
	assert.False(t, rate.Stale)

	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	live.AssertNotCalled(t, "Rate", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveFreshCacheSkipsProvider(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCache(0)
	require.NoError(t, store.Put(ctx, cachedRate("USD", "EUR", "0.9", 10*time.Minute, models.SourceLive)))
	live := &providerMock{}

	rate, err := newTestResolver(store, live).Resolve(ctx, currency.USD, currency.EUR)
	require.NoError(t, err)
	assert.Equal(t, "0.9", rate.Rate.String())
	assert.Nil(t, rate.Warning)
	live.AssertNotCalled(t, "Rate", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveLiveWritesBothDirections(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCache(0)
	live := &providerMock{}
	live.On("Rate", mock.Anything, currency.USD, currency.NGN).
		Return(&provider.Quote{Rate: decimal.NewFromInt(1600)}, nil).Once()

	rate, err := newTestResolver(store, live).Resolve(ctx, currency.USD, currency.NGN)
	require.NoError(t, err)
	assert.Equal(t, models.SourceLive, rate.Source)
	assert.False(t, rate.Stale)
	assert.Equal(t, testNow, rate.UpdatedAt)

	inverse, err := store.Get(ctx, currency.NGN, currency.USD)
	require.NoError(t, err)
	assert.Equal(t, models.SourceComputed, inverse.Source)
	assert.True(t, inverse.Rate.Mul(rate.Rate).Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.New(1, -12)))
	live.AssertExpectations(t)
}

func TestResolveIsIdempotentWithinWindow(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCache(0)
	live := &providerMock{}
	live.On("Rate", mock.Anything, currency.USD, currency.GBP).
		Return(&provider.Quote{Rate: decimal.RequireFromString("0.79")}, nil).Once()

	resolver := newTestResolver(store, live)
	first, err := resolver.Resolve(ctx, currency.USD, currency.GBP)
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, currency.USD, currency.GBP)
	require.NoError(t, err)

	assert.True(t, first.Rate.Equal(second.Rate))
	live.AssertNumberOfCalls(t, "Rate", 1)
}

func TestResolveRefetchesStaleEntry(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCache(0)
	require.NoError(t, store.Put(ctx, cachedRate("USD", "EUR", "0.9", 2*time.Hour, models.SourceLive)))
	live := &providerMock{}
	live.On("Rate", mock.Anything, currency.USD, currency.EUR).
		Return(&provider.Quote{Rate: decimal.RequireFromString("0.92")}, nil).Once()

	rate, err := newTestResolver(store, live).Resolve(ctx, currency.USD, currency.EUR)
	require.NoError(t, err)
	assert.Equal(t, "0.92", rate.Rate.String())

	stored, err := store.Get(ctx, currency.USD, currency.EUR)
	require.NoError(t, err)
	assert.Equal(t, testNow, stored.UpdatedAt)
}

func TestResolveFallsBackToStatic(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCache(0)
	live := &providerMock{}
	live.On("Rate", mock.Anything, currency.USD, currency.NGN).Return(nil, provider.ErrServer)

	rate, err := newTestResolver(store, live).Resolve(ctx, currency.USD, currency.NGN)
	require.NoError(t, err)
	assert.Equal(t, models.SourceStatic, rate.Source)
	assert.True(t, rate.Stale)
	require.NotNil(t, rate.Warning)
	assert.Equal(t, apperrors.ReasonStatic, rate.Warning.Reason)
	assert.True(t, decimal.NewFromInt(1640).Equal(rate.Rate))

	stored, err := store.Get(ctx, currency.USD, currency.NGN)
	require.NoError(t, err)
	assert.Equal(t, models.SourceStatic, stored.Source)
}

func TestResolveStaticPreferredOverStaleCache(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCache(0)
	require.NoError(t, store.Put(ctx, cachedRate("USD", "NGN", "1500", 3*time.Hour, models.SourceLive)))

	rate, err := newTestResolver(store, nil).Resolve(ctx, currency.USD, currency.NGN)
	require.NoError(t, err)
	assert.Equal(t, models.SourceStatic, rate.Source)
	assert.True(t, decimal.NewFromInt(1640).Equal(rate.Rate))
}

func TestResolveFallbackOrderingServesStaleEntry(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCache(0)
	stale := cachedRate("USD", "ETB", "56.5", 5*time.Hour, models.SourceLive)
	require.NoError(t, store.Put(ctx, stale))

	live := &providerMock{}
	live.On("Rate", mock.Anything, currency.USD, currency.Code("ETB")).Return(nil, provider.ErrAPILimitReached)

	rate, err := newTestResolver(store, live).Resolve(ctx, currency.USD, "ETB")
	require.NoError(t, err)
	assert.Equal(t, "56.5", rate.Rate.String())
	assert.Equal(t, stale.UpdatedAt, rate.UpdatedAt)
	assert.True(t, rate.Stale)
	require.NotNil(t, rate.Warning)
	assert.Equal(t, apperrors.ReasonStale, rate.Warning.Reason)

	stored, err := store.Get(ctx, currency.USD, "ETB")
	require.NoError(t, err)
	assert.Equal(t, stale.UpdatedAt, stored.UpdatedAt, "stale entries are never rewritten")
}

func TestResolveUnavailableWhenNothingKnown(t *testing.T) {
	store := repository.NewMemoryCache(0)

	_, err := newTestResolver(store, nil).Resolve(context.Background(), currency.USD, "ZMW")

	var unavailable *apperrors.RateUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "USD", unavailable.Base)
	assert.Equal(t, "ZMW", unavailable.Quote)
}

func TestResolveProviderTimeoutIsBounded(t *testing.T) {
	live := &providerMock{}
	live.On("Rate", mock.Anything, currency.USD, currency.EUR).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	start := time.Now()
	rate, err := newTestResolver(repository.NewMemoryCache(0), live).Resolve(context.Background(), currency.USD, currency.EUR)
	require.NoError(t, err)
	assert.Equal(t, models.SourceStatic, rate.Source)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolveCacheErrorsDoNotFailResolution(t *testing.T) {
	ctx := context.Background()
	store := &storeMock{}
	store.On("Get", ctx, currency.USD, currency.EUR).Return(nil, errors.New("redis: connection refused"))
	store.On("Put", ctx, mock.AnythingOfType("*models.ExchangeRate")).Return(errors.New("redis: connection refused"))

	rate, err := newTestResolver(store, nil).Resolve(ctx, currency.USD, currency.EUR)
	require.NoError(t, err)
	assert.Equal(t, "0.85", rate.Rate.String())
	store.AssertExpectations(t)
}

func TestResolveFreshStaticEntryIsFlagged(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCache(0)
	require.NoError(t, store.Put(ctx, cachedRate("USD", "KES", "129.5", time.Minute, models.SourceStatic)))

	rate, err := newTestResolver(store, &providerMock{}).Resolve(ctx, currency.USD, "KES")
	require.NoError(t, err)
	assert.True(t, rate.Stale)
	require.NotNil(t, rate.Warning)
	assert.Equal(t, apperrors.ReasonStatic, rate.Warning.Reason)
}

func TestResolveInverseOfStaticRateIsFlagged(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCache(0)
	live := &providerMock{}
	live.On("Rate", mock.Anything, currency.USD, currency.NGN).Return(nil, provider.ErrServer).Once()

	resolver := newTestResolver(store, live)
	_, err := resolver.Resolve(ctx, currency.USD, currency.NGN)
	require.NoError(t, err)

	inverse, err := resolver.Resolve(ctx, currency.NGN, currency.USD)
	require.NoError(t, err)
	assert.Equal(t, models.SourceComputed, inverse.Source)
	assert.Equal(t, models.SourceStatic, inverse.DerivedFrom)
	assert.True(t, inverse.Stale)
	require.NotNil(t, inverse.Warning)
	assert.Equal(t, apperrors.ReasonStatic, inverse.Warning.Reason)
	live.AssertExpectations(t)
}

func TestResolveInverseOfLiveRateIsNotFlagged(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCache(0)
	require.NoError(t, store.Put(ctx, cachedRate("USD", "EUR", "0.9", time.Minute, models.SourceLive)))

	rate, err := newTestResolver(store, &providerMock{}).Resolve(ctx, currency.EUR, currency.USD)
	require.NoError(t, err)
	assert.Equal(t, models.SourceComputed, rate.Source)
	assert.False(t, rate.Stale)
	assert.Nil(t, rate.Warning)
}

func TestResolveUsesProviderTimestamp(t *testing.T) {
	published := testNow.Add(-20 * time.Minute)

	tests := []struct {
		name      string
		timestamp time.Time
		want      time.Time
	}{
		{name: "upstream publish time", timestamp: published, want: published},
		{name: "missing timestamp", want: testNow},
		{name: "future timestamp", timestamp: testNow.Add(time.Hour), want: testNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := repository.NewMemoryCache(0)
			live := &providerMock{}
			live.On("Rate", mock.Anything, currency.USD, currency.GBP).
				Return(&provider.Quote{Rate: decimal.RequireFromString("0.79"), Timestamp: tt.timestamp}, nil).Once()

			rate, err := newTestResolver(store, live).Resolve(ctx, currency.USD, currency.GBP)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rate.UpdatedAt)
			assert.False(t, rate.Stale)

			stored, err := store.Get(ctx, currency.USD, currency.GBP)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.UpdatedAt)
		})
	}
}

func TestResolveOutdatedProviderRateIsFlaggedStale(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCache(0)
	live := &providerMock{}
	live.On("Rate", mock.Anything, currency.USD, currency.GBP).
		Return(&provider.Quote{Rate: decimal.RequireFromString("0.79"), Timestamp: testNow.Add(-26 * time.Hour)}, nil).Once()

	rate, err := newTestResolver(store, live).Resolve(ctx, currency.USD, currency.GBP)
	require.NoError(t, err)
	assert.Equal(t, models.SourceLive, rate.Source)
	assert.True(t, rate.Stale)
	require.NotNil(t, rate.Warning)
	assert.Equal(t, apperrors.ReasonStale, rate.Warning.Reason)
	assert.Equal(t, testNow.Add(-26*time.Hour), rate.UpdatedAt)
}
