// cmd/fxctl/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"currency-conversion/internal/app"
	"currency-conversion/internal/cli"
	"currency-conversion/internal/config"
	"currency-conversion/pkg/database"
	"currency-conversion/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// command output goes to stdout; keep the service logs quiet
	log, err := logger.New("fxctl", cfg.Environment, "warn")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := func(ctx context.Context) (*cli.Env, error) {
		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		env := &cli.Env{Exchange: a.Exchange, Close: a.Close}
		if a.RateHistory != nil {
			env.Rates = a.RateHistory
		}
		return env, nil
	}

	var migrator cli.Migrator
	if cfg.DatabaseURL != "" {
		migrator = func() (bool, error) {
			return database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath)
		}
	}

	if err := cli.NewRootCommand(factory, migrator).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
