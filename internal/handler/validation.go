// internal/handler/validation.go
package handler

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"currency-conversion/internal/currency"
)

const supportedCurrencyTag = "supported_currency"

// RegisterValidators installs the supported_currency rule on gin's binding engine.
func RegisterValidators(registry *currency.Registry) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}

	return v.RegisterValidation(supportedCurrencyTag, func(fl validator.FieldLevel) bool {
		_, err := registry.Parse(fl.Field().String())
		return err == nil
	})
}
