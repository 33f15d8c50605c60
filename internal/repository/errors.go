// internal/repository/errors.go
package repository

import (
	"fmt"

	"currency-conversion/internal/apperrors"
)

var (
	ErrRateNotFound        = fmt.Errorf("exchange rate %w", apperrors.ErrNotFound)
	ErrPreferencesNotFound = fmt.Errorf("currency preferences %w", apperrors.ErrNotFound)
)
