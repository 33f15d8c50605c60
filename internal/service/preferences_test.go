// internal/service/preferences_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"currency-conversion/internal/apperrors"
	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
	"currency-conversion/internal/repository"
)

type failingPreferencesStore struct{}

func (failingPreferencesStore) Get(context.Context, string) (*models.CurrencyPreferences, error) {
	return nil, errors.New("database is down")
}

func (failingPreferencesStore) Save(context.Context, *models.CurrencyPreferences) error {
	return errors.New("database is down")
}

func newTestPreferences() *PreferencesService {
	svc := NewPreferencesService(repository.NewMemoryPreferencesStore(), currency.NewRegistry(), zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func strPtr(s string) *string { return &s }

func TestPreferencesDefaults(t *testing.T) {
	prefs, err := newTestPreferences().Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, currency.USD, prefs.BusinessCurrency)
	assert.Equal(t, currency.USD, prefs.PreferredViewCurrency)
	assert.Equal(t, currency.USD, prefs.Currency)
}

func TestPreferencesUpdateSyncsLegacyField(t *testing.T) {
	tests := []struct {
		name         string
		update       models.PreferencesUpdate
		wantBusiness currency.Code
		wantView     currency.Code
	}{
		{
			name:         "business currency only",
			update:       models.PreferencesUpdate{BusinessCurrency: strPtr("ngn")},
			wantBusiness: "NGN",
			wantView:     "USD",
		},
		{
			name:         "legacy currency only",
			update:       models.PreferencesUpdate{Currency: strPtr("KES")},
			wantBusiness: "KES",
			wantView:     "USD",
		},
		{
			name:         "both differ, business wins",
			update:       models.PreferencesUpdate{BusinessCurrency: strPtr("GHS"), Currency: strPtr("EUR")},
			wantBusiness: "GHS",
			wantView:     "USD",
		},
		{
			name:         "view currency only",
			update:       models.PreferencesUpdate{PreferredViewCurrency: strPtr("EUR")},
			wantBusiness: "USD",
			wantView:     "EUR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestPreferences()
			ctx := context.Background()

			updated, err := svc.Update(ctx, "user-1", tt.update)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBusiness, updated.BusinessCurrency)
			assert.Equal(t, tt.wantBusiness, updated.Currency)
			assert.Equal(t, tt.wantView, updated.PreferredViewCurrency)
			assert.Equal(t, testNow, updated.UpdatedAt)

			stored, err := svc.Get(ctx, "user-1")
			require.NoError(t, err)
			assert.Equal(t, updated, stored)
		})
	}
}

func TestPreferencesUpdateRejectsUnknownCurrency(t *testing.T) {
	svc := newTestPreferences()

	_, err := svc.Update(context.Background(), "user-1", models.PreferencesUpdate{
		BusinessCurrency: strPtr("NGN"),
		Currency:         strPtr("XYZ"),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCurrency)

	prefs, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, currency.USD, prefs.BusinessCurrency)
}

func TestPreferencesStoreFailure(t *testing.T) {
	svc := NewPreferencesService(failingPreferencesStore{}, currency.NewRegistry(), zap.NewNop())

	_, err := svc.Get(context.Background(), "user-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}
