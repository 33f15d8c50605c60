// internal/repository/preferences_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"currency-conversion/internal/models"
)

type PreferencesRepository struct {
	db *sql.DB
}

func NewPreferencesRepository(db *sql.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

func (r *PreferencesRepository) Get(ctx context.Context, userID string) (*models.CurrencyPreferences, error) {
	query := `
		SELECT user_id, business_currency, preferred_view_currency, currency, updated_at
		FROM currency_preferences
		WHERE user_id = $1
	`

	prefs := &models.CurrencyPreferences{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&prefs.UserID,
		&prefs.BusinessCurrency,
		&prefs.PreferredViewCurrency,
		&prefs.Currency,
		&prefs.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPreferencesNotFound
	}
	if err != nil {
		return nil, err
	}

	return prefs, nil
}

func (r *PreferencesRepository) Save(ctx context.Context, prefs *models.CurrencyPreferences) error {
	query := `
		INSERT INTO currency_preferences (user_id, business_currency, preferred_view_currency, currency, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id)
		DO UPDATE SET business_currency = EXCLUDED.business_currency,
			preferred_view_currency = EXCLUDED.preferred_view_currency,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		prefs.UserID,
		prefs.BusinessCurrency,
		prefs.PreferredViewCurrency,
		prefs.Currency,
		prefs.UpdatedAt,
	)
	return err
}

// MemoryPreferencesStore backs preferences when no database is configured.
type MemoryPreferencesStore struct {
	mu    sync.RWMutex
	prefs map[string]models.CurrencyPreferences
}

func NewMemoryPreferencesStore() *MemoryPreferencesStore {
	return &MemoryPreferencesStore{prefs: make(map[string]models.CurrencyPreferences)}
}

func (s *MemoryPreferencesStore) Get(_ context.Context, userID string) (*models.CurrencyPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs, ok := s.prefs[userID]
	if !ok {
		return nil, ErrPreferencesNotFound
	}
	return &prefs, nil
}

func (s *MemoryPreferencesStore) Save(_ context.Context, prefs *models.CurrencyPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[prefs.UserID] = *prefs
	return nil
}
