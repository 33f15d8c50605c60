// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"currency-conversion/internal/app"
	"currency-conversion/internal/config"
	"currency-conversion/internal/handler"
	"currency-conversion/pkg/logger"
	"currency-conversion/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(app.ServiceName, cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize service", zap.Error(err))
	}

	if err := a.MigrateMongo(ctx); err != nil {
		log.Warn("failed to create mongo audit indexes", zap.Error(err))
	}

	if err := handler.RegisterValidators(a.Registry); err != nil {
		log.Fatal("failed to register validators", zap.Error(err))
	}

	limiter, err := middleware.NewIPRateLimiter(cfg.RateLimit)
	if err != nil {
		log.Fatal("invalid rate limit", zap.Error(err))
	}

	health := handler.NewHealthHandler(app.ServiceName, 2*time.Second, log)
	for name, check := range a.HealthChecks() {
		health.AddCheck(name, handler.PingFunc(check))
	}
	if a.RateCache != nil {
		health.SetStats(a.RateCache.GetStats)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Release:        cfg.IsProduction(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Limiter:        limiter,
		MetricsEnabled: cfg.MetricsEnabled,
		Gatherer:       a.Gatherer,
	},
		handler.NewCurrencyHandler(a.Exchange, a.Portfolio, log),
		handler.NewPreferencesHandler(a.Preferences, log),
		health,
		log,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	background := make(chan struct{})
	go func() {
		defer close(background)
		a.Run(ctx)
	}()

	go func() {
		log.Info("starting currency conversion service",
			zap.String("port", cfg.Port),
			zap.String("cache_driver", cfg.CacheDriver),
			zap.String("audit_driver", cfg.AuditDriver),
			zap.Bool("metrics_enabled", cfg.MetricsEnabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	<-background

	// flushes queued audit records before the stores close
	if err := a.Close(shutdownCtx); err != nil {
		log.Error("failed to release resources", zap.Error(err))
	}

	log.Info("server exited")
}
