// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CachePostgres = "postgres"

	AuditNone     = "none"
	AuditPostgres = "postgres"
	AuditMongo    = "mongo"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	DatabaseURL   string
	RedisURL      string
	MongoURI      string
	MongoDatabase string

	ExchangeAPIKey            string
	ExchangeAPIURL            string
	ProviderTimeout           time.Duration
	ProviderRequestsPerSecond float64
	ProviderMaxAttempts       int64
	ProviderWindow            time.Duration

	CacheDriver     string
	MemoryCacheTTL  time.Duration
	FreshnessWindow time.Duration
	StaticRates     map[string]float64

	AuditDriver     string
	AuditBufferSize int

	PortfolioWorkers int

	RunMigrations  bool
	MigrationsPath string

	NotifierEnabled bool
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaGroupID    string

	RateLimit          string
	CORSAllowedOrigins []string
	MetricsEnabled     bool
}

var defaults = map[string]interface{}{
	"PORT":                         "8081",
	"ENVIRONMENT":                  "development",
	"LOG_LEVEL":                    "",
	"DATABASE_URL":                 "",
	"REDIS_URL":                    "",
	"MONGO_URI":                    "",
	"MONGO_DATABASE":               "currency_conversion",
	"EXCHANGE_RATE_API_KEY":        "",
	"EXCHANGE_RATE_API_URL":        "https://v6.exchangerate-api.com/v6",
	"PROVIDER_TIMEOUT":             "5s",
	"PROVIDER_REQUESTS_PER_SECOND": 5.0,
	"PROVIDER_MAX_ATTEMPTS":        1000,
	"PROVIDER_WINDOW":              "1h",
	"CACHE_DRIVER":                 CacheMemory,
	"MEMORY_CACHE_TTL":             "30s",
	"FRESHNESS_WINDOW":             "1h",
	"STATIC_RATES":                 "",
	"AUDIT_DRIVER":                 AuditNone,
	"AUDIT_BUFFER_SIZE":            1024,
	"PORTFOLIO_WORKERS":            8,
	"RUN_MIGRATIONS":               false,
	"MIGRATIONS_PATH":              "file://migrations",
	"NOTIFIER_ENABLED":             false,
	"KAFKA_BROKERS":                "localhost:9092",
	"KAFKA_TOPIC":                  "fx.rate-updates",
	"KAFKA_GROUP_ID":               "currency-conversion",
	"RATE_LIMIT":                   "300-M",
	"CORS_ALLOWED_ORIGINS":         "*",
	"METRICS_ENABLED":              false,
}

// Load reads defaults, then an optional config.yaml, then the environment
// (a .env file is loaded first when present). Every key may be set either
// bare (PORT) or with the FX_ prefix (FX_PORT); the prefixed form wins.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key, "FX_"+key, key); err != nil {
			return nil, err
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/currency-conversion")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                      v.GetString("PORT"),
		Environment:               v.GetString("ENVIRONMENT"),
		LogLevel:                  v.GetString("LOG_LEVEL"),
		DatabaseURL:               v.GetString("DATABASE_URL"),
		RedisURL:                  v.GetString("REDIS_URL"),
		MongoURI:                  v.GetString("MONGO_URI"),
		MongoDatabase:             v.GetString("MONGO_DATABASE"),
		ExchangeAPIKey:            v.GetString("EXCHANGE_RATE_API_KEY"),
		ExchangeAPIURL:            v.GetString("EXCHANGE_RATE_API_URL"),
		ProviderTimeout:           v.GetDuration("PROVIDER_TIMEOUT"),
		ProviderRequestsPerSecond: v.GetFloat64("PROVIDER_REQUESTS_PER_SECOND"),
		ProviderMaxAttempts:       v.GetInt64("PROVIDER_MAX_ATTEMPTS"),
		ProviderWindow:            v.GetDuration("PROVIDER_WINDOW"),
		CacheDriver:               strings.ToLower(v.GetString("CACHE_DRIVER")),
		MemoryCacheTTL:            v.GetDuration("MEMORY_CACHE_TTL"),
		FreshnessWindow:           v.GetDuration("FRESHNESS_WINDOW"),
		AuditDriver:               strings.ToLower(v.GetString("AUDIT_DRIVER")),
		AuditBufferSize:           v.GetInt("AUDIT_BUFFER_SIZE"),
		PortfolioWorkers:          v.GetInt("PORTFOLIO_WORKERS"),
		RunMigrations:             v.GetBool("RUN_MIGRATIONS"),
		MigrationsPath:            v.GetString("MIGRATIONS_PATH"),
		NotifierEnabled:           v.GetBool("NOTIFIER_ENABLED"),
		KafkaBrokers:              splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:                v.GetString("KAFKA_TOPIC"),
		KafkaGroupID:              v.GetString("KAFKA_GROUP_ID"),
		RateLimit:                 v.GetString("RATE_LIMIT"),
		CORSAllowedOrigins:        splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		MetricsEnabled:            v.GetBool("METRICS_ENABLED"),
	}

	staticRates, err := parseStaticRates(v.Get("STATIC_RATES"))
	if err != nil {
		return nil, err
	}
	cfg.StaticRates = staticRates

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.CacheDriver {
	case CacheMemory:
	case CacheRedis:
		if c.RedisURL == "" {
			return errors.New("CACHE_DRIVER=redis requires REDIS_URL")
		}
	case CachePostgres:
		if c.DatabaseURL == "" {
			return errors.New("CACHE_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver)
	}

	switch c.AuditDriver {
	case AuditNone:
	case AuditPostgres:
		if c.DatabaseURL == "" {
			return errors.New("AUDIT_DRIVER=postgres requires DATABASE_URL")
		}
	case AuditMongo:
		if c.MongoURI == "" {
			return errors.New("AUDIT_DRIVER=mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("unknown AUDIT_DRIVER %q", c.AuditDriver)
	}

	if c.FreshnessWindow <= 0 {
		return errors.New("FRESHNESS_WINDOW must be positive")
	}
	if c.ProviderTimeout <= 0 {
		return errors.New("PROVIDER_TIMEOUT must be positive")
	}
	if c.NotifierEnabled && (len(c.KafkaBrokers) == 0 || c.KafkaTopic == "") {
		return errors.New("NOTIFIER_ENABLED requires KAFKA_BROKERS and KAFKA_TOPIC")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// parseStaticRates accepts a yaml map or an env string like "NGN=1500,KES=130".
func parseStaticRates(raw interface{}) (map[string]float64, error) {
	rates := make(map[string]float64)

	switch value := raw.(type) {
	case nil:
	case map[string]interface{}:
		for code, rate := range value {
			parsed, err := strconv.ParseFloat(fmt.Sprint(rate), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid static rate for %s: %w", code, err)
			}
			rates[strings.ToUpper(code)] = parsed
		}
	case string:
		for _, pair := range splitList(value) {
			code, rate, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid static rate %q, expected CODE=rate", pair)
			}
			parsed, err := strconv.ParseFloat(strings.TrimSpace(rate), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid static rate for %s: %w", code, err)
			}
			rates[strings.ToUpper(strings.TrimSpace(code))] = parsed
		}
	default:
		return nil, fmt.Errorf("unsupported STATIC_RATES value of type %T", raw)
	}

	return rates, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
