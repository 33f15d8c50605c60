// internal/currency/format.go
package currency

import (
	"github.com/shopspring/decimal"
	xcurrency "golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"currency-conversion/internal/apperrors"
)

// Format renders amount in the given locale with the currency symbol.
// Display only; the float conversion never feeds back into arithmetic.
func (r *Registry) Format(amount decimal.Decimal, code Code, locale string) (string, error) {
	if !r.IsSupported(string(code)) {
		return "", &apperrors.InvalidCurrencyError{Code: string(code)}
	}

	unit, err := xcurrency.ParseISO(string(code))
	if err != nil {
		return "", &apperrors.InvalidCurrencyError{Code: string(code)}
	}

	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}

	value, _ := amount.Float64()
	p := message.NewPrinter(tag)
	return p.Sprint(xcurrency.Symbol(unit.Amount(value))), nil
}
