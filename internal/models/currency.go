// internal/models/currency.go
package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"currency-conversion/internal/apperrors"
	"currency-conversion/internal/currency"
)

func init() {
	// amounts and rates travel as plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type RateSource string

const (
	SourceLive     RateSource = "live"
	SourceStatic   RateSource = "static"
	SourceComputed RateSource = "computed"
)

// inversePrecision bounds the decimal places of a computed inverse rate.
const inversePrecision = 16

// Bounds on decimal exponents. Rounding and encoding cost grows with 10^|exponent|,
// so values outside these ranges are rejected before any arithmetic.
const (
	maxAmountExponent = 18
	minAmountExponent = -18
	maxRateExponent   = 18
	minRateExponent   = -32
)

// MaxAmount is the largest amount accepted for conversion.
var MaxAmount = decimal.New(1, 15)

// inverseTolerance is how far forward*inverse may drift from 1 for two
// entries to count as halves of the same write.
var inverseTolerance = decimal.New(1, -9)

type ExchangeRate struct {
	Base      currency.Code   `json:"base" db:"base_currency"`
	Quote     currency.Code   `json:"quote" db:"quote_currency"`
	Rate      decimal.Decimal `json:"rate" db:"rate"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
	Source    RateSource      `json:"source" db:"source"`

	// DerivedFrom is the source of the rate a computed entry was inverted from.
	DerivedFrom RateSource `json:"derived_from,omitempty" db:"derived_from"`
}

// Inverse returns the (quote, base) entry tagged as computed. It remembers where
// the original came from, so the inverse of a static rate is still known as static.
func (r *ExchangeRate) Inverse() *ExchangeRate {
	origin := r.Source
	if r.Source == SourceComputed {
		origin = r.DerivedFrom
	}
	return &ExchangeRate{
		Base:        r.Quote,
		Quote:       r.Base,
		Rate:        decimal.NewFromInt(1).DivRound(r.Rate, inversePrecision),
		UpdatedAt:   r.UpdatedAt,
		Source:      SourceComputed,
		DerivedFrom: origin,
	}
}

// FromStaticTable reports whether the rate, or the rate it was inverted from,
// came from the static table.
func (r *ExchangeRate) FromStaticTable() bool {
	return r.Source == SourceStatic || (r.Source == SourceComputed && r.DerivedFrom == SourceStatic)
}

// IsInverseOf reports whether r and other are the two halves of one write.
func (r *ExchangeRate) IsInverseOf(other *ExchangeRate) bool {
	if other == nil || r.Base != other.Quote || r.Quote != other.Base || !r.UpdatedAt.Equal(other.UpdatedAt) {
		return false
	}
	return r.Rate.Mul(other.Rate).Sub(decimal.NewFromInt(1)).Abs().LessThanOrEqual(inverseTolerance)
}

// IsFresh reports whether the entry was updated within window of now.
func (r *ExchangeRate) IsFresh(now time.Time, window time.Duration) bool {
	return now.Sub(r.UpdatedAt) < window
}

func (r *ExchangeRate) Validate() error {
	if r.Base == "" || r.Quote == "" {
		return &apperrors.InvalidCurrencyError{Code: string(r.Base) + "/" + string(r.Quote)}
	}
	if exp := r.Rate.Exponent(); exp > maxRateExponent || exp < minRateExponent {
		return &apperrors.InvalidAmountError{Value: "rate", Reason: "rate precision out of range"}
	}
	if !r.Rate.IsPositive() {
		return &apperrors.InvalidAmountError{Value: r.Rate.String(), Reason: "rate must be positive"}
	}
	return nil
}

// ValidateAmount rejects negative amounts and amounts too large or too precise to
// convert. The exponent is checked first so no expensive arithmetic runs on hostile input.
func ValidateAmount(amount decimal.Decimal) error {
	if exp := amount.Exponent(); exp > maxAmountExponent || exp < minAmountExponent {
		return &apperrors.InvalidAmountError{Value: "amount", Reason: "too many digits"}
	}
	if amount.IsNegative() {
		return &apperrors.InvalidAmountError{Value: amount.String(), Reason: "must not be negative"}
	}
	if amount.GreaterThan(MaxAmount) {
		return &apperrors.InvalidAmountError{Value: amount.String(), Reason: "exceeds " + MaxAmount.String()}
	}
	return nil
}

// ResolvedRate is what the resolver hands back: the rate plus how trustworthy it is.
type ResolvedRate struct {
	ExchangeRate
	Stale   bool                           `json:"stale"`
	Warning *apperrors.DegradedRateWarning `json:"warning,omitempty"`
}

// ConversionRequest is the wire shape of POST /currency/convert.
// Amount stays raw so non-numeric input surfaces as an invalid amount.
type ConversionRequest struct {
	Amount       json.RawMessage `json:"amount" binding:"required"`
	FromCurrency string          `json:"from_currency" binding:"required,supported_currency"`
	ToCurrency   string          `json:"to_currency" binding:"required,supported_currency"`
}

// ConversionInput is a request that passed boundary validation.
type ConversionInput struct {
	Amount decimal.Decimal
	From   currency.Code
	To     currency.Code
}

type ConversionResult struct {
	ID             string                         `json:"conversion_id"`
	Amount         decimal.Decimal                `json:"amount"`
	OriginalAmount decimal.Decimal                `json:"original_amount"`
	Rate           decimal.Decimal                `json:"rate"`
	FromCurrency   currency.Code                  `json:"from_currency"`
	ToCurrency     currency.Code                  `json:"to_currency"`
	ConvertedAt    time.Time                      `json:"converted_at"`
	RateUpdatedAt  time.Time                      `json:"rate_updated_at"`
	Source         RateSource                     `json:"source"`
	Stale          bool                           `json:"stale"`
	Warning        *apperrors.DegradedRateWarning `json:"warning,omitempty"`
}

// ConversionAuditRecord is append-only; it is never updated or deleted.
type ConversionAuditRecord struct {
	ID              string          `json:"id" db:"id"`
	ConversionID    string          `json:"conversion_id" db:"conversion_id"`
	FromCurrency    currency.Code   `json:"from_currency" db:"from_currency"`
	ToCurrency      currency.Code   `json:"to_currency" db:"to_currency"`
	OriginalAmount  decimal.Decimal `json:"original_amount" db:"original_amount"`
	ConvertedAmount decimal.Decimal `json:"converted_amount" db:"converted_amount"`
	Rate            decimal.Decimal `json:"rate" db:"rate"`
	RateSource      RateSource      `json:"rate_source" db:"rate_source"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// RateQuote is one entry of a base-vs-targets listing.
type RateQuote struct {
	Target currency.Code `json:"target"`
	Rate   *ResolvedRate `json:"rate,omitempty"`
	Error  string        `json:"error,omitempty"`
}
