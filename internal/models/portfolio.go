// internal/models/portfolio.go
package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"currency-conversion/internal/currency"
)

// PortfolioRecord is a stored amount in its own currency. Amount stays raw so a
// malformed value fails only its own record.
type PortfolioRecord struct {
	ID       string          `json:"id" binding:"required"`
	Amount   json.RawMessage `json:"amount"`
	Currency string          `json:"currency" binding:"required"`
}

// PortfolioView is a record re-expressed in the viewer's currency. On failure the
// display fields echo the original amount and currency as given.
type PortfolioView struct {
	ID               string           `json:"id"`
	DisplayAmount    json.RawMessage  `json:"displayAmount"`
	DisplayCurrency  string           `json:"displayCurrency"`
	OriginalAmount   json.RawMessage  `json:"originalAmount"`
	OriginalCurrency string           `json:"originalCurrency"`
	ExchangeRate     *decimal.Decimal `json:"exchangeRate,omitempty"`
	Stale            bool             `json:"stale,omitempty"`
	ConversionFailed bool             `json:"conversionFailed"`
	Error            string           `json:"error,omitempty"`
}

type BulkConversionRequest struct {
	ViewCurrency string            `json:"view_currency" binding:"required,supported_currency"`
	Records      []PortfolioRecord `json:"records" binding:"required,dive"`
}

type BulkConversionResponse struct {
	ViewCurrency currency.Code   `json:"view_currency"`
	Records      []PortfolioView `json:"records"`
	Failed       int             `json:"failed"`
}
