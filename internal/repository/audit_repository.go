// internal/repository/audit_repository.go
package repository

import (
	"context"
	"database/sql"

	"currency-conversion/internal/models"
)

// AuditRepository appends conversion audit rows. It has no update or delete path.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Save(ctx context.Context, record *models.ConversionAuditRecord) error {
	query := `
		INSERT INTO conversion_audit (id, conversion_id, from_currency, to_currency, original_amount, converted_amount, rate, rate_source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.ConversionID,
		record.FromCurrency,
		record.ToCurrency,
		record.OriginalAmount,
		record.ConvertedAmount,
		record.Rate,
		record.RateSource,
		record.CreatedAt,
	)
	return err
}
