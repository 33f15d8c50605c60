// internal/apperrors/errors.go

// Package apperrors holds the error vocabulary shared by the conversion
// engine and its HTTP surface.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	ErrNotFound        = errors.New("not found")
)

// InvalidCurrencyError reports a code outside the supported registry.
type InvalidCurrencyError struct {
	Code string
}

func (e *InvalidCurrencyError) Error() string {
	return fmt.Sprintf("unsupported currency code %q", e.Code)
}

func (e *InvalidCurrencyError) Is(target error) bool {
	return target == ErrInvalidCurrency
}

// InvalidAmountError reports a negative or non-numeric amount.
type InvalidAmountError struct {
	Value  string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Value, e.Reason)
}

func (e *InvalidAmountError) Is(target error) bool {
	return target == ErrInvalidAmount
}

// RateUnavailableError is returned when no live, static or cached rate exists for a pair.
type RateUnavailableError struct {
	Base  string
	Quote string
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("no exchange rate available for %s/%s", e.Base, e.Quote)
}

func (e *RateUnavailableError) Is(target error) bool {
	return target == ErrRateUnavailable
}

const (
	ReasonStatic = "static"
	ReasonStale  = "stale"
)

// DegradedRateWarning describes a rate served from a non-live source.
// It is attached to results rather than returned as an error.
type DegradedRateWarning struct {
	Base      string    `json:"base"`
	Quote     string    `json:"quote"`
	Source    string    `json:"source"`
	Reason    string    `json:"reason"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *DegradedRateWarning) String() string {
	switch w.Reason {
	case ReasonStale:
		return fmt.Sprintf("%s/%s served from a stale cache entry last updated %s",
			w.Base, w.Quote, w.UpdatedAt.UTC().Format(time.RFC3339))
	case ReasonStatic:
		return fmt.Sprintf("%s/%s served from the static rate table", w.Base, w.Quote)
	default:
		return fmt.Sprintf("%s/%s served from %s", w.Base, w.Quote, w.Source)
	}
}
