// internal/currency/registry.go
package currency

import (
	"sort"
	"strings"

	"currency-conversion/internal/apperrors"
)

// RegistryVersion identifies the set of codes below. Bump it whenever the set changes.
const RegistryVersion = "2024.2"

// Code is an ISO 4217 code that passed registry validation.
type Code string

func (c Code) String() string { return string(c) }

const (
	USD Code = "USD"
	EUR Code = "EUR"
	GBP Code = "GBP"
	NGN Code = "NGN"
)

// Info describes a supported currency.
type Info struct {
	Code        Code   `json:"code"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	MinorDigits int    `json:"minor_digits"`
}

var defaultCurrencies = []Info{
	{"USD", "US Dollar", "$", 2},
	{"EUR", "Euro", "€", 2},
	{"GBP", "British Pound", "£", 2},
	{"JPY", "Japanese Yen", "¥", 0},
	{"CAD", "Canadian Dollar", "CA$", 2},
	{"AUD", "Australian Dollar", "A$", 2},
	{"CHF", "Swiss Franc", "CHF", 2},
	{"CNY", "Chinese Yuan", "¥", 2},
	{"INR", "Indian Rupee", "₹", 2},
	{"NGN", "Nigerian Naira", "₦", 2},
	{"KES", "Kenyan Shilling", "KSh", 2},
	{"GHS", "Ghanaian Cedi", "GH₵", 2},
	{"ZAR", "South African Rand", "R", 2},
	{"EGP", "Egyptian Pound", "E£", 2},
	{"MAD", "Moroccan Dirham", "MAD", 2},
	{"UGX", "Ugandan Shilling", "USh", 0},
	{"TZS", "Tanzanian Shilling", "TSh", 2},
	{"RWF", "Rwandan Franc", "RF", 0},
	{"XOF", "West African CFA Franc", "CFA", 0},
	{"XAF", "Central African CFA Franc", "FCFA", 0},
	{"ETB", "Ethiopian Birr", "Br", 2},
	{"ZMW", "Zambian Kwacha", "ZK", 2},
	{"BRL", "Brazilian Real", "R$", 2},
	{"MXN", "Mexican Peso", "MX$", 2},
	{"AED", "UAE Dirham", "AED", 2},
	{"SAR", "Saudi Riyal", "SAR", 2},
	{"SGD", "Singapore Dollar", "S$", 2},
	{"HKD", "Hong Kong Dollar", "HK$", 2},
	{"NZD", "New Zealand Dollar", "NZ$", 2},
}

var defaultCountries = map[string][]Code{
	"US": {"USD"}, "CA": {"CAD"}, "MX": {"MXN"}, "BR": {"BRL"},
	"GB": {"GBP"}, "CH": {"CHF"},
	"DE": {"EUR"}, "FR": {"EUR"}, "IT": {"EUR"}, "ES": {"EUR"},
	"NL": {"EUR"}, "IE": {"EUR"}, "PT": {"EUR"}, "BE": {"EUR"},
	"NG": {"NGN"}, "KE": {"KES"}, "GH": {"GHS"}, "ZA": {"ZAR"},
	"EG": {"EGP"}, "MA": {"MAD"}, "UG": {"UGX"}, "TZ": {"TZS"},
	"RW": {"RWF"}, "ET": {"ETB"}, "ZM": {"ZMW"},
	"SN": {"XOF"}, "CI": {"XOF"}, "BJ": {"XOF"}, "ML": {"XOF"},
	"CM": {"XAF"}, "GA": {"XAF"}, "CG": {"XAF"},
	"JP": {"JPY"}, "CN": {"CNY"}, "IN": {"INR"}, "SG": {"SGD"}, "HK": {"HKD"},
	"AE": {"AED"}, "SA": {"SAR"},
	"AU": {"AUD"}, "NZ": {"NZD"},
}

var defaultRegions = map[string][]Code{
	"africa":        {"NGN", "KES", "GHS", "ZAR", "EGP", "MAD", "UGX", "TZS", "RWF", "XOF", "XAF", "ETB", "ZMW"},
	"europe":        {"EUR", "GBP", "CHF"},
	"north_america": {"CAD", "MXN"},
	"south_america": {"BRL"},
	"asia":          {"JPY", "CNY", "INR", "SGD", "HKD"},
	"middle_east":   {"AED", "SAR", "EGP"},
	"oceania":       {"AUD", "NZD"},
}

// Registry is the closed set of currencies the engine accepts.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	currencies map[Code]Info
	countries  map[string][]Code
	regions    map[string][]Code
}

func NewRegistry() *Registry {
	r := &Registry{
		currencies: make(map[Code]Info, len(defaultCurrencies)),
		countries:  defaultCountries,
		regions:    defaultRegions,
	}
	for _, info := range defaultCurrencies {
		r.currencies[info.Code] = info
	}
	return r
}

// IsSupported reports whether code is an exact registry member.
func (r *Registry) IsSupported(code string) bool {
	_, ok := r.currencies[Code(code)]
	return ok
}

// Parse normalizes user input and validates it against the registry.
func (r *Registry) Parse(code string) (Code, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != 3 || !r.IsSupported(normalized) {
		return "", &apperrors.InvalidCurrencyError{Code: code}
	}
	return Code(normalized), nil
}

func (r *Registry) Info(code Code) (Info, bool) {
	info, ok := r.currencies[code]
	return info, ok
}

func (r *Registry) Supported() []Code {
	codes := make([]Code, 0, len(r.currencies))
	for code := range r.currencies {
		codes = append(codes, code)
	}
	return sortCodes(codes)
}

func (r *Registry) SupportedForCountry(country string) []Code {
	codes, ok := r.countries[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		return []Code{}
	}
	return withUSD(codes)
}

func (r *Registry) SupportedForRegion(region string) []Code {
	codes, ok := r.regions[strings.ToLower(strings.TrimSpace(region))]
	if !ok {
		return []Code{}
	}
	return withUSD(codes)
}

// SupportedCurrencies narrows by country first, then region, else returns everything.
func (r *Registry) SupportedCurrencies(country, region string) []Code {
	switch {
	case country != "":
		return r.SupportedForCountry(country)
	case region != "":
		return r.SupportedForRegion(region)
	default:
		return r.Supported()
	}
}

func withUSD(codes []Code) []Code {
	seen := map[Code]bool{USD: true}
	out := []Code{USD}
	for _, code := range codes {
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	return sortCodes(out)
}

func sortCodes(codes []Code) []Code {
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
