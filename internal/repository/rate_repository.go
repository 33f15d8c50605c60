// internal/repository/rate_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
)

// RateRepository stores the latest rate per pair in postgres.
type RateRepository struct {
	db *sql.DB
}

func NewRateRepository(db *sql.DB) *RateRepository {
	return &RateRepository{db: db}
}

const upsertRateQuery = `
		INSERT INTO exchange_rates (base_currency, quote_currency, rate, source, derived_from, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (base_currency, quote_currency)
		DO UPDATE SET rate = EXCLUDED.rate, source = EXCLUDED.source,
			derived_from = EXCLUDED.derived_from, updated_at = EXCLUDED.updated_at
	`

// Put upserts the pair and its inverse in one transaction.
func (r *RateRepository) Put(ctx context.Context, rate *models.ExchangeRate) (err error) {
	if err := rate.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, entry := range []*models.ExchangeRate{rate, rate.Inverse()} {
		if _, err = tx.ExecContext(ctx, upsertRateQuery,
			entry.Base,
			entry.Quote,
			entry.Rate,
			entry.Source,
			entry.DerivedFrom,
			entry.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert %s/%s: %w", entry.Base, entry.Quote, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rate: %w", err)
	}
	return nil
}

func (r *RateRepository) Get(ctx context.Context, base, quote currency.Code) (*models.ExchangeRate, error) {
	query := `
		SELECT base_currency, quote_currency, rate, source, derived_from, updated_at
		FROM exchange_rates
		WHERE base_currency = $1 AND quote_currency = $2
	`

	rate := &models.ExchangeRate{}
	err := r.db.QueryRowContext(ctx, query, base, quote).Scan(
		&rate.Base,
		&rate.Quote,
		&rate.Rate,
		&rate.Source,
		&rate.DerivedFrom,
		&rate.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRateNotFound
	}
	if err != nil {
		return nil, err
	}

	return rate, nil
}

// ListByBase returns every stored quote for base, ordered by quote.
func (r *RateRepository) ListByBase(ctx context.Context, base currency.Code) ([]*models.ExchangeRate, error) {
	query := `
		SELECT base_currency, quote_currency, rate, source, derived_from, updated_at
		FROM exchange_rates
		WHERE base_currency = $1
		ORDER BY quote_currency ASC
	`

	rows, err := r.db.QueryContext(ctx, query, base)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []*models.ExchangeRate
	for rows.Next() {
		rate := &models.ExchangeRate{}
		if err := rows.Scan(&rate.Base, &rate.Quote, &rate.Rate, &rate.Source, &rate.DerivedFrom, &rate.UpdatedAt); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}

	return rates, rows.Err()
}
