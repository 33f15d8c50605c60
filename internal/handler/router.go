// internal/handler/router.go
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	"currency-conversion/pkg/middleware"
)

type RouterConfig struct {
	Release        bool
	AllowedOrigins []string
	Limiter        *limiter.Limiter
	// MetricsEnabled exposes Gatherer on /metrics. Off unless configured.
	MetricsEnabled bool
	Gatherer       prometheus.Gatherer
}

func NewRouter(cfg RouterConfig, currency *CurrencyHandler, prefs *PreferencesHandler, health *HealthHandler, log *zap.Logger) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	if cfg.MetricsEnabled {
		gatherer := cfg.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	if cfg.Limiter != nil {
		v1.Use(middleware.RateLimit(cfg.Limiter, log))
	}
	{
		cur := v1.Group("/currency")
		{
			cur.POST("/convert", currency.ConvertCurrency)
			cur.POST("/convert/bulk", currency.ConvertBulk)
			cur.GET("/rates/:from", currency.GetRates)
			cur.GET("/rates/:from/:to", currency.GetRate)
			cur.GET("/supported", currency.GetSupportedCurrencies)
			cur.GET("/format", currency.FormatAmount)
		}

		users := v1.Group("/users")
		{
			users.GET("/:userID/preferences", prefs.GetPreferences)
			users.PUT("/:userID/preferences", prefs.UpdatePreferences)
		}
	}

	return router
}
