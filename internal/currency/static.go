// internal/currency/static.go
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// rateDivisionPrecision is the number of decimal places kept when deriving cross rates.
const rateDivisionPrecision = 16

// Units of each currency per 1 USD.
var defaultPivot = map[Code]string{
	"USD": "1",
	"EUR": "0.85",
	"GBP": "0.73",
	"JPY": "149.5",
	"CAD": "1.36",
	"AUD": "1.52",
	"CHF": "0.88",
	"CNY": "7.24",
	"INR": "83.2",
	"NGN": "1640.0",
	"KES": "129.5",
	"GHS": "15.2",
	"ZAR": "18.6",
	"EGP": "48.3",
	"MAD": "9.9",
	"UGX": "3700",
	"TZS": "2680",
	"RWF": "1340",
	"XOF": "557.5",
	"XAF": "557.5",
	"BRL": "5.6",
	"MXN": "18.2",
	"AED": "3.6725",
	"SAR": "3.75",
	"SGD": "1.33",
	"HKD": "7.8",
	"NZD": "1.65",
}

// StaticTable is the last-resort USD pivot table used when no live provider answers.
type StaticTable struct {
	pivot map[Code]decimal.Decimal
}

// NewStaticTable builds the default table with overrides applied on top.
// Overrides with non-positive values are ignored.
func NewStaticTable(overrides map[string]float64) *StaticTable {
	t := &StaticTable{pivot: make(map[Code]decimal.Decimal, len(defaultPivot))}
	for code, value := range defaultPivot {
		t.pivot[code] = decimal.RequireFromString(value)
	}
	for code, value := range overrides {
		if value <= 0 {
			continue
		}
		t.pivot[Code(strings.ToUpper(code))] = decimal.NewFromFloat(value)
	}
	return t
}

// Rate returns pivot[to] / pivot[from]. It reports false when either side is missing.
func (t *StaticTable) Rate(from, to Code) (decimal.Decimal, bool) {
	fromPivot, ok := t.pivot[from]
	if !ok || !fromPivot.IsPositive() {
		return decimal.Zero, false
	}
	toPivot, ok := t.pivot[to]
	if !ok || !toPivot.IsPositive() {
		return decimal.Zero, false
	}
	if from == to {
		return decimal.NewFromInt(1), true
	}
	return toPivot.DivRound(fromPivot, rateDivisionPrecision), true
}

func (t *StaticTable) Has(code Code) bool {
	_, ok := t.pivot[code]
	return ok
}
