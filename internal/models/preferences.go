// internal/models/preferences.go
package models

import (
	"time"

	"currency-conversion/internal/currency"
)

// CurrencyPreferences uses the field names existing clients already send.
// Currency is the legacy field and always mirrors BusinessCurrency.
type CurrencyPreferences struct {
	UserID                string        `json:"userId" db:"user_id"`
	BusinessCurrency      currency.Code `json:"businessCurrency" db:"business_currency"`
	PreferredViewCurrency currency.Code `json:"preferredViewCurrency" db:"preferred_view_currency"`
	Currency              currency.Code `json:"currency" db:"currency"`
	UpdatedAt             time.Time     `json:"updatedAt" db:"updated_at"`
}

func DefaultPreferences(userID string) *CurrencyPreferences {
	return &CurrencyPreferences{
		UserID:                userID,
		BusinessCurrency:      currency.USD,
		PreferredViewCurrency: currency.USD,
		Currency:              currency.USD,
	}
}

// PreferencesUpdate holds optional fields; nil means unchanged.
type PreferencesUpdate struct {
	BusinessCurrency      *string `json:"businessCurrency"`
	PreferredViewCurrency *string `json:"preferredViewCurrency"`
	Currency              *string `json:"currency"`
}
