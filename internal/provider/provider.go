// internal/provider/provider.go

// Package provider fetches live exchange rates from upstream APIs.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"currency-conversion/internal/currency"
)

var (
	ErrUnauthorized    = errors.New("unauthorized, API key is missing or invalid")
	ErrClient          = errors.New("client error")
	ErrServer          = errors.New("server error")
	ErrUnknown         = errors.New("unknown error")
	ErrAPILimitReached = errors.New("API limit reached")
	ErrUnsupportedPair = errors.New("currency pair not supported by provider")
	ErrInvalidResponse = errors.New("invalid provider response")
	ErrQuotaExceeded   = errors.New("provider attempt budget exhausted")
)

// Quote is a single live rate as reported upstream.
type Quote struct {
	Base      currency.Code
	Quote     currency.Code
	Rate      decimal.Decimal
	Timestamp time.Time
}

type Provider interface {
	Name() string
	Rate(ctx context.Context, base, quote currency.Code) (*Quote, error)
}
