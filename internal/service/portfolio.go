// internal/service/portfolio.go
package service

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
)

const defaultPortfolioWorkers = 8

type Converter interface {
	Convert(ctx context.Context, in models.ConversionInput) (*models.ConversionResult, error)
}

// PortfolioAdapter re-expresses stored records in a viewer's currency.
type PortfolioAdapter struct {
	converter Converter
	registry  *currency.Registry
	workers   int
	logger    *zap.Logger
}

func NewPortfolioAdapter(converter Converter, registry *currency.Registry, workers int, logger *zap.Logger) *PortfolioAdapter {
	if workers <= 0 {
		workers = defaultPortfolioWorkers
	}
	return &PortfolioAdapter{
		converter: converter,
		registry:  registry,
		workers:   workers,
		logger:    logger,
	}
}

// ApplyViewCurrency converts every record independently. A record that cannot be
// converted keeps its original amount and currency and is flagged as failed.
func (p *PortfolioAdapter) ApplyViewCurrency(ctx context.Context, records []models.PortfolioRecord, viewCurrency string) ([]models.PortfolioView, error) {
	view, err := p.registry.Parse(viewCurrency)
	if err != nil {
		return nil, err
	}

	out := make([]models.PortfolioView, len(records))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < p.workers && i < len(records); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				out[idx] = p.convertRecord(ctx, records[idx], view)
			}
		}()
	}

	for idx := range records {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return out, nil
}

func (p *PortfolioAdapter) convertRecord(ctx context.Context, record models.PortfolioRecord, view currency.Code) models.PortfolioView {
	result := models.PortfolioView{
		ID:               record.ID,
		DisplayAmount:    record.Amount,
		DisplayCurrency:  record.Currency,
		OriginalAmount:   record.Amount,
		OriginalCurrency: record.Currency,
	}

	converted, err := p.convert(ctx, record, view)
	if err == nil {
		rate := converted.Rate
		result.DisplayAmount = json.RawMessage(converted.Amount.String())
		result.DisplayCurrency = view.String()
		result.ExchangeRate = &rate
		result.Stale = converted.Stale
		return result
	}

	p.logger.Warn("portfolio record conversion failed",
		zap.String("record_id", record.ID),
		zap.String("currency", record.Currency),
		zap.String("view_currency", view.String()),
		zap.Error(err))

	result.ConversionFailed = true
	result.Error = err.Error()
	return result
}

func (p *PortfolioAdapter) convert(ctx context.Context, record models.PortfolioRecord, view currency.Code) (*models.ConversionResult, error) {
	from, err := p.registry.Parse(record.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := ParseAmount(string(record.Amount))
	if err != nil {
		return nil, err
	}
	return p.converter.Convert(ctx, models.ConversionInput{Amount: amount, From: from, To: view})
}
