// internal/service/helpers_test.go
package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
	"currency-conversion/internal/provider"
	"currency-conversion/internal/repository"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type providerMock struct {
	mock.Mock
}

func (p *providerMock) Name() string { return "mock" }

func (p *providerMock) Rate(ctx context.Context, base, quote currency.Code) (*provider.Quote, error) {
	args := p.Called(ctx, base, quote)
	if q, ok := args.Get(0).(*provider.Quote); ok {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}

type storeMock struct {
	mock.Mock
}

func (s *storeMock) Get(ctx context.Context, base, quote currency.Code) (*models.ExchangeRate, error) {
	args := s.Called(ctx, base, quote)
	if rate, ok := args.Get(0).(*models.ExchangeRate); ok {
		return rate, args.Error(1)
	}
	return nil, args.Error(1)
}

func (s *storeMock) Put(ctx context.Context, rate *models.ExchangeRate) error {
	return s.Called(ctx, rate).Error(0)
}

type auditRecorderMock struct {
	mu      sync.Mutex
	records []*models.ConversionAuditRecord
}

func (a *auditRecorderMock) Record(record *models.ConversionAuditRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
}

func (a *auditRecorderMock) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

func newTestResolver(store RateStore, live provider.Provider) *RateResolver {
	return NewRateResolver(store, currency.NewStaticTable(nil), live, ResolverConfig{
		FreshnessWindow: time.Hour,
		ProviderTimeout: 50 * time.Millisecond,
		Now:             func() time.Time { return testNow },
	}, nil, zap.NewNop())
}

// newTestService wires the conversion service over an in-memory store and no live provider.
func newTestService() (*ExchangeService, *repository.MemoryCache, *auditRecorderMock) {
	store := repository.NewMemoryCache(0)
	audit := &auditRecorderMock{}
	svc := NewExchangeService(newTestResolver(store, nil), currency.NewRegistry(), audit, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc, store, audit
}
