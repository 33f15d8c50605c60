// internal/handler/currency_handler.go
package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
	"currency-conversion/internal/service"
)

type CurrencyHandler struct {
	service   *service.ExchangeService
	portfolio *service.PortfolioAdapter
	logger    *zap.Logger
}

func NewCurrencyHandler(service *service.ExchangeService, portfolio *service.PortfolioAdapter, logger *zap.Logger) *CurrencyHandler {
	return &CurrencyHandler{
		service:   service,
		portfolio: portfolio,
		logger:    logger,
	}
}

func (h *CurrencyHandler) ConvertCurrency(c *gin.Context) {
	var req models.ConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	amount, err := service.ParseAmount(string(req.Amount))
	if err != nil {
		respondError(c, h.logger, err, "Failed to convert currency")
		return
	}

	registry := h.service.Registry()
	from, err := registry.Parse(req.FromCurrency)
	if err != nil {
		respondError(c, h.logger, err, "Failed to convert currency")
		return
	}
	to, err := registry.Parse(req.ToCurrency)
	if err != nil {
		respondError(c, h.logger, err, "Failed to convert currency")
		return
	}

	result, err := h.service.Convert(c.Request.Context(), models.ConversionInput{Amount: amount, From: from, To: to})
	if err != nil {
		respondError(c, h.logger, err, "Failed to convert currency")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ConvertBulk re-expresses portfolio records in the requested view currency.
func (h *CurrencyHandler) ConvertBulk(c *gin.Context) {
	var req models.BulkConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	views, err := h.portfolio.ApplyViewCurrency(c.Request.Context(), req.Records, req.ViewCurrency)
	if err != nil {
		respondError(c, h.logger, err, "Failed to convert records")
		return
	}

	resp := models.BulkConversionResponse{
		ViewCurrency: currency.Code(strings.ToUpper(strings.TrimSpace(req.ViewCurrency))),
		Records:      views,
	}
	for _, v := range views {
		if v.ConversionFailed {
			resp.Failed++
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CurrencyHandler) GetRate(c *gin.Context) {
	registry := h.service.Registry()

	from, err := registry.Parse(c.Param("from"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get exchange rate")
		return
	}
	to, err := registry.Parse(c.Param("to"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get exchange rate")
		return
	}

	rate, err := h.service.GetExchangeRate(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get exchange rate")
		return
	}

	c.JSON(http.StatusOK, rate)
}

// GetRates lists the base currency against ?targets=, or against every
// supported currency when no targets are given.
func (h *CurrencyHandler) GetRates(c *gin.Context) {
	registry := h.service.Registry()

	base, err := registry.Parse(c.Param("from"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get exchange rates")
		return
	}

	var targets []currency.Code
	if raw := c.Query("targets"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			code, err := registry.Parse(part)
			if err != nil {
				respondError(c, h.logger, err, "Failed to get exchange rates")
				return
			}
			targets = append(targets, code)
		}
	} else {
		for _, code := range registry.Supported() {
			if code != base {
				targets = append(targets, code)
			}
		}
	}

	quotes, err := h.service.RatesFor(c.Request.Context(), base, targets)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get exchange rates")
		return
	}

	c.JSON(http.StatusOK, gin.H{"base": base, "rates": quotes})
}

func (h *CurrencyHandler) GetSupportedCurrencies(c *gin.Context) {
	codes := h.service.SupportedCurrencies(c.Query("country"), c.Query("region"))

	registry := h.service.Registry()
	currencies := make([]currency.Info, 0, len(codes))
	for _, code := range codes {
		if info, ok := registry.Info(code); ok {
			currencies = append(currencies, info)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"currencies": currencies,
		"version":    currency.RegistryVersion,
	})
}

func (h *CurrencyHandler) FormatAmount(c *gin.Context) {
	amount, err := service.ParseAmount(c.Query("amount"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to format amount")
		return
	}
	code, err := h.service.Registry().Parse(c.Query("code"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to format amount")
		return
	}

	formatted, err := h.service.FormatCurrency(amount, code, c.Query("locale"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to format amount")
		return
	}

	c.JSON(http.StatusOK, gin.H{"formatted": formatted, "code": code})
}
