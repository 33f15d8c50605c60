// internal/handler/errors.go
package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"currency-conversion/internal/apperrors"
)

const (
	codeInvalidCurrency = "INVALID_CURRENCY"
	codeInvalidAmount   = "INVALID_AMOUNT"
	codeInvalidRequest  = "INVALID_REQUEST"
	codeRateUnavailable = "RATE_UNAVAILABLE"
	codeInternal        = "INTERNAL_ERROR"
)

// respondError maps domain errors onto HTTP statuses. Anything unrecognised is a 500
// and its detail stays in the log.
func respondError(c *gin.Context, logger *zap.Logger, err error, message string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidCurrency):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": codeInvalidCurrency})
	case errors.Is(err, apperrors.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": codeInvalidAmount})
	case errors.Is(err, apperrors.ErrRateUnavailable):
		logger.Warn(message, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "code": codeRateUnavailable})
	default:
		logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "code": codeInternal})
	}
}

// respondBindError reports a request body that failed binding. A failed
// supported_currency rule is reported as an invalid currency.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == supportedCurrencyTag {
				code := &apperrors.InvalidCurrencyError{Code: fmt.Sprint(fe.Value())}
				c.JSON(http.StatusBadRequest, gin.H{"error": code.Error(), "code": codeInvalidCurrency})
				return
			}
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": codeInvalidRequest})
}
