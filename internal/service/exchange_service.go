// internal/service/exchange_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"currency-conversion/internal/apperrors"
	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
)

// AuditRecorder accepts conversion audit records without blocking.
type AuditRecorder interface {
	Record(record *models.ConversionAuditRecord)
}

type ExchangeService struct {
	resolver *RateResolver
	registry *currency.Registry
	audit    AuditRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewExchangeService(resolver *RateResolver, registry *currency.Registry, audit AuditRecorder, logger *zap.Logger) *ExchangeService {
	return &ExchangeService{
		resolver: resolver,
		registry: registry,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// maxAmountLength caps the textual size of an amount before it is parsed.
const maxAmountLength = 64

// ParseAmount parses a boundary amount, accepting JSON numbers or numeric strings.
// Amounts must be non-negative and within models.ValidateAmount's bounds.
func ParseAmount(raw string) (decimal.Decimal, error) {
	value := strings.Trim(strings.TrimSpace(raw), `"`)
	if len(value) > maxAmountLength {
		return decimal.Zero, &apperrors.InvalidAmountError{Value: value[:maxAmountLength] + "...", Reason: "too long"}
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, &apperrors.InvalidAmountError{Value: raw, Reason: "not a number"}
	}
	if err := models.ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// Convert converts an amount from one currency to another
func (s *ExchangeService) Convert(ctx context.Context, in models.ConversionInput) (*models.ConversionResult, error) {
	if err := s.validatePair(in.From, in.To); err != nil {
		return nil, err
	}
	if err := models.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}

	now := s.now()
	if in.From == in.To {
		return &models.ConversionResult{
			ID:             ulid.Make().String(),
			Amount:         in.Amount,
			OriginalAmount: in.Amount,
			Rate:           decimal.NewFromInt(1),
			FromCurrency:   in.From,
			ToCurrency:     in.To,
			ConvertedAt:    now,
			RateUpdatedAt:  now,
			Source:         models.SourceLive,
		}, nil
	}

	rate, err := s.resolver.Resolve(ctx, in.From, in.To)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	result := &models.ConversionResult{
		ID:             ulid.Make().String(),
		Amount:         in.Amount.Mul(rate.Rate).Round(2),
		OriginalAmount: in.Amount,
		Rate:           rate.Rate,
		FromCurrency:   in.From,
		ToCurrency:     in.To,
		ConvertedAt:    now,
		RateUpdatedAt:  rate.UpdatedAt,
		Source:         rate.Source,
		Stale:          rate.Stale,
		Warning:        rate.Warning,
	}

	if s.audit != nil {
		s.audit.Record(&models.ConversionAuditRecord{
			ID:              uuid.New().String(),
			ConversionID:    result.ID,
			FromCurrency:    result.FromCurrency,
			ToCurrency:      result.ToCurrency,
			OriginalAmount:  result.OriginalAmount,
			ConvertedAmount: result.Amount,
			Rate:            result.Rate,
			RateSource:      result.Source,
			CreatedAt:       now,
		})
	}

	return result, nil
}

func (s *ExchangeService) ToUSD(ctx context.Context, amount decimal.Decimal, from currency.Code) (*models.ConversionResult, error) {
	return s.Convert(ctx, models.ConversionInput{Amount: amount, From: from, To: currency.USD})
}

func (s *ExchangeService) FromUSD(ctx context.Context, amount decimal.Decimal, to currency.Code) (*models.ConversionResult, error) {
	return s.Convert(ctx, models.ConversionInput{Amount: amount, From: currency.USD, To: to})
}

// GetExchangeRate resolves the rate for a validated pair.
func (s *ExchangeService) GetExchangeRate(ctx context.Context, from, to currency.Code) (*models.ResolvedRate, error) {
	if err := s.validatePair(from, to); err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, from, to)
}

// RatesFor resolves base against every target concurrently. A failed target
// carries its error and does not affect the others.
func (s *ExchangeService) RatesFor(ctx context.Context, base currency.Code, targets []currency.Code) ([]models.RateQuote, error) {
	if !s.registry.IsSupported(base.String()) {
		return nil, &apperrors.InvalidCurrencyError{Code: base.String()}
	}

	quotes := make([]models.RateQuote, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target currency.Code) {
			defer wg.Done()

			quotes[i].Target = target
			rate, err := s.GetExchangeRate(ctx, base, target)
			if err != nil {
				quotes[i].Error = err.Error()
				return
			}
			quotes[i].Rate = rate
		}(i, target)
	}
	wg.Wait()

	return quotes, nil
}

func (s *ExchangeService) IsValidCurrency(code string) bool {
	return s.registry.IsSupported(code)
}

func (s *ExchangeService) SupportedCurrencies(country, region string) []currency.Code {
	return s.registry.SupportedCurrencies(country, region)
}

func (s *ExchangeService) FormatCurrency(amount decimal.Decimal, code currency.Code, locale string) (string, error) {
	return s.registry.Format(amount, code, locale)
}

func (s *ExchangeService) Registry() *currency.Registry {
	return s.registry
}

func (s *ExchangeService) validatePair(from, to currency.Code) error {
	if !s.registry.IsSupported(from.String()) {
		return &apperrors.InvalidCurrencyError{Code: from.String()}
	}
	if !s.registry.IsSupported(to.String()) {
		return &apperrors.InvalidCurrencyError{Code: to.String()}
	}
	return nil
}
