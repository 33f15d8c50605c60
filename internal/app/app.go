// internal/app/app.go

// Package app wires configuration into the stores, provider and services shared
// by the HTTP server and the fxctl CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"currency-conversion/internal/config"
	"currency-conversion/internal/currency"
	"currency-conversion/internal/notifier"
	"currency-conversion/internal/provider"
	"currency-conversion/internal/repository"
	"currency-conversion/internal/service"
	"currency-conversion/pkg/database"
	"currency-conversion/pkg/metrics"
	"currency-conversion/pkg/redis"
)

const ServiceName = "currency-conversion"

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *currency.Registry
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	DB    *database.PostgresDB
	Redis *redis.Client
	Mongo *mongo.Client

	Rates       service.RateStore
	RateCache   *repository.RateCache
	RateHistory *repository.RateRepository
	Resolver    *service.RateResolver
	Exchange    *service.ExchangeService
	Portfolio   *service.PortfolioAdapter
	Preferences *service.PreferencesService
	Audit       *service.AuditWriter
	Notifier    *notifier.RateNotifier

	closers []func(context.Context) error
}

// New connects every configured dependency and builds the services. On error,
// anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Config:   cfg,
		Logger:   log,
		Registry: currency.NewRegistry(),
		Metrics:  metrics.New(reg),
		Gatherer: reg,
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if err = a.connect(ctx); err != nil {
		return nil, err
	}

	a.Rates = a.buildRateStore()

	a.Resolver = service.NewRateResolver(
		a.Rates,
		currency.NewStaticTable(cfg.StaticRates),
		a.buildProvider(),
		service.ResolverConfig{
			FreshnessWindow: cfg.FreshnessWindow,
			ProviderTimeout: cfg.ProviderTimeout,
		},
		a.Metrics,
		log,
	)

	var recorder service.AuditRecorder
	if store := a.buildAuditStore(); store != nil {
		a.Audit = service.NewAuditWriter(store, cfg.AuditBufferSize, a.Metrics, log)
		a.closers = append(a.closers, a.Audit.Close)
		recorder = a.Audit
	}

	a.Exchange = service.NewExchangeService(a.Resolver, a.Registry, recorder, log)
	a.Portfolio = service.NewPortfolioAdapter(a.Exchange, a.Registry, cfg.PortfolioWorkers, log)

	var prefs service.PreferencesStore = repository.NewMemoryPreferencesStore()
	if a.DB != nil {
		prefs = repository.NewPreferencesRepository(a.DB.DB)
	}
	a.Preferences = service.NewPreferencesService(prefs, a.Registry, log)

	if cfg.NotifierEnabled {
		reader := notifier.NewKafkaReader(notifier.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		})
		a.closers = append(a.closers, func(context.Context) error { return reader.Close() })
		a.Notifier = notifier.NewRateNotifier(reader, a.Rates, a.Registry, log)
	}

	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			applied, err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath)
			if err != nil {
				return err
			}
			a.Logger.Info("database migrations checked", zap.Bool("applied", applied))
		}

		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = db
		a.RateHistory = repository.NewRateRepository(db.DB)
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	}

	if cfg.RedisURL != "" {
		client, err := redis.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		a.Redis = client
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })

		if err := client.Ping(ctx); err != nil {
			// the shared cache is optional for reads; keep the client so it can recover
			a.Logger.Warn("redis unreachable at startup", zap.Error(err))
		}
	}

	if cfg.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		a.Mongo = client
		a.closers = append(a.closers, client.Disconnect)
	}

	return nil
}

func (a *App) buildRateStore() service.RateStore {
	var backend repository.RateBackend
	switch a.Config.CacheDriver {
	case config.CacheRedis:
		backend = repository.NewRedisRateStore(a.Redis)
	case config.CachePostgres:
		backend = a.RateHistory
	default:
		return repository.NewMemoryCache(0)
	}

	a.RateCache = repository.NewRateCache(backend, a.Config.MemoryCacheTTL, a.Logger)
	return a.RateCache
}

// buildProvider returns nil when no API key is configured, so the resolver
// goes straight to the static table.
func (a *App) buildProvider() provider.Provider {
	cfg := a.Config
	if cfg.ExchangeAPIKey == "" {
		a.Logger.Warn("EXCHANGE_RATE_API_KEY not set, live rates disabled")
		return nil
	}

	api := provider.NewExchangeRateAPI(cfg.ExchangeAPIURL, cfg.ExchangeAPIKey, &http.Client{Timeout: cfg.ProviderTimeout})

	var counter provider.AttemptCounter = provider.NewLocalCounter()
	if a.Redis != nil {
		counter = a.Redis
	}

	return provider.NewQuotaGuard(api, counter, provider.QuotaConfig{
		RequestsPerSecond: cfg.ProviderRequestsPerSecond,
		Burst:             1,
		MaxAttempts:       cfg.ProviderMaxAttempts,
		Window:            cfg.ProviderWindow,
	})
}

func (a *App) buildAuditStore() service.AuditStore {
	switch a.Config.AuditDriver {
	case config.AuditPostgres:
		return repository.NewAuditRepository(a.DB.DB)
	case config.AuditMongo:
		return repository.NewMongoAuditRepository(a.Mongo.Database(a.Config.MongoDatabase))
	default:
		return nil
	}
}

// MigrateMongo creates the audit collection indexes when mongo is the audit sink.
func (a *App) MigrateMongo(ctx context.Context) error {
	if a.Config.AuditDriver != config.AuditMongo {
		return nil
	}
	return repository.NewMongoAuditRepository(a.Mongo.Database(a.Config.MongoDatabase)).Migrate(ctx)
}

// HealthChecks returns a pinger per connected dependency.
func (a *App) HealthChecks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error)
	if a.DB != nil {
		checks["postgres"] = a.DB.Ping
	}
	if a.Redis != nil {
		checks["redis"] = a.Redis.Ping
	}
	if a.Mongo != nil {
		client := a.Mongo
		checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	}
	return checks
}

// Run starts the background loops (memory cache purge and the notifier) and
// blocks until ctx is done.
func (a *App) Run(ctx context.Context) {
	if a.RateCache != nil {
		go a.RateCache.Run(ctx)
	}

	if a.Notifier == nil {
		<-ctx.Done()
		return
	}

	if err := a.Notifier.Run(ctx); err != nil {
		a.Logger.Error("rate notifier exited", zap.Error(err))
	}
	<-ctx.Done()
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
