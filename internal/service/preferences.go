// internal/service/preferences.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"currency-conversion/internal/apperrors"
	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
)

type PreferencesStore interface {
	Get(ctx context.Context, userID string) (*models.CurrencyPreferences, error)
	Save(ctx context.Context, prefs *models.CurrencyPreferences) error
}

type PreferencesService struct {
	store    PreferencesStore
	registry *currency.Registry
	logger   *zap.Logger
	now      func() time.Time
}

func NewPreferencesService(store PreferencesStore, registry *currency.Registry, logger *zap.Logger) *PreferencesService {
	return &PreferencesService{
		store:    store,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the stored preferences or USD defaults for unknown users.
func (s *PreferencesService) Get(ctx context.Context, userID string) (*models.CurrencyPreferences, error) {
	prefs, err := s.store.Get(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	prefs.Currency = prefs.BusinessCurrency
	return prefs, nil
}

// Update applies the supplied fields. businessCurrency and the legacy currency field
// are kept equal; when both are sent and differ, businessCurrency wins.
func (s *PreferencesService) Update(ctx context.Context, userID string, update models.PreferencesUpdate) (*models.CurrencyPreferences, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	var legacy, business, view currency.Code
	if update.Currency != nil {
		if legacy, err = s.registry.Parse(*update.Currency); err != nil {
			return nil, err
		}
	}
	if update.BusinessCurrency != nil {
		if business, err = s.registry.Parse(*update.BusinessCurrency); err != nil {
			return nil, err
		}
	}
	if update.PreferredViewCurrency != nil {
		if view, err = s.registry.Parse(*update.PreferredViewCurrency); err != nil {
			return nil, err
		}
	}

	switch {
	case business != "":
		if legacy != "" && legacy != business {
			s.logger.Info("legacy currency differs from businessCurrency, keeping businessCurrency",
				zap.String("user_id", userID),
				zap.String("currency", legacy.String()),
				zap.String("business_currency", business.String()))
		}
		prefs.BusinessCurrency = business
	case legacy != "":
		prefs.BusinessCurrency = legacy
	}
	if view != "" {
		prefs.PreferredViewCurrency = view
	}

	prefs.Currency = prefs.BusinessCurrency
	prefs.UserID = userID
	prefs.UpdatedAt = s.now().UTC()

	if err := s.store.Save(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}
