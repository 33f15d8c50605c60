// internal/cli/cli.go

// Package cli implements the fxctl operator commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
	"currency-conversion/internal/service"
)

var errNoDatabase = errors.New("this command needs DATABASE_URL")

// RateLister reads persisted rates for a base currency.
type RateLister interface {
	ListByBase(ctx context.Context, base currency.Code) ([]*models.ExchangeRate, error)
}

// Env is what a command runs against. Rates is nil when no database is configured.
type Env struct {
	Exchange *service.ExchangeService
	Rates    RateLister
	Close    func(ctx context.Context) error
}

type EnvFactory func(ctx context.Context) (*Env, error)

// Migrator applies schema migrations and reports whether anything changed.
type Migrator func() (bool, error)

func NewRootCommand(factory EnvFactory, migrator Migrator) *cobra.Command {
	root := &cobra.Command{
		Use:           "fxctl",
		Short:         "Operate the currency conversion engine",
		Version:       "v1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	run := func(fn func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			env, err := factory(ctx)
			if err != nil {
				return err
			}
			if env.Close != nil {
				defer func() {
					if cerr := env.Close(context.Background()); err == nil {
						err = cerr
					}
				}()
			}
			return fn(ctx, env, cmd, args)
		}
	}

	root.AddCommand(
		convertCommand(run),
		rateCommand(run),
		ratesCommand(run),
		storedCommand(run),
		supportedCommand(run),
		formatCommand(run),
		warmupCommand(run),
		migrateCommand(migrator),
	)
	return root
}

type runner func(fn func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error

func convertCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "convert AMOUNT FROM TO",
		Short: "Convert an amount between two currencies",
		Args:  cobra.ExactArgs(3),
		RunE: run(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			amount, err := service.ParseAmount(args[0])
			if err != nil {
				return err
			}
			from, to, err := parsePair(env, args[1], args[2])
			if err != nil {
				return err
			}

			result, err := env.Exchange.Convert(ctx, models.ConversionInput{Amount: amount, From: from, To: to})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		}),
	}
}

func rateCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "rate FROM TO",
		Short: "Resolve a single exchange rate",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			from, to, err := parsePair(env, args[0], args[1])
			if err != nil {
				return err
			}

			rate, err := env.Exchange.GetExchangeRate(ctx, from, to)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rate)
		}),
	}
}

func ratesCommand(run runner) *cobra.Command {
	var targets []string

	cmd := &cobra.Command{
		Use:   "rates BASE",
		Short: "Resolve BASE against several targets concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			registry := env.Exchange.Registry()
			base, err := registry.Parse(args[0])
			if err != nil {
				return err
			}

			codes, err := parseTargets(registry, base, targets)
			if err != nil {
				return err
			}

			quotes, err := env.Exchange.RatesFor(ctx, base, codes)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), quotes)
		}),
	}
	cmd.Flags().StringSliceVarP(&targets, "targets", "t", nil, "Target currencies (default: every supported currency)")
	return cmd
}

func storedCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "stored BASE",
		Short: "List the rates persisted in postgres for BASE",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			if env.Rates == nil {
				return errNoDatabase
			}
			base, err := env.Exchange.Registry().Parse(args[0])
			if err != nil {
				return err
			}

			rates, err := env.Rates.ListByBase(ctx, base)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range rates {
				fmt.Fprintf(out, "%s/%s\t%s\t%s\t%s\n", r.Base, r.Quote, r.Rate.String(), r.Source, r.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"))
			}
			return nil
		}),
	}
}

func supportedCommand(run runner) *cobra.Command {
	var country, region string

	cmd := &cobra.Command{
		Use:   "supported",
		Short: "List supported currencies, optionally narrowed by country or region",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			registry := env.Exchange.Registry()
			out := cmd.OutOrStdout()
			for _, code := range env.Exchange.SupportedCurrencies(country, region) {
				info, _ := registry.Info(code)
				fmt.Fprintf(out, "%s\t%s\t%s\n", info.Code, info.Symbol, info.Name)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&country, "country", "", "ISO 3166 country code")
	cmd.Flags().StringVar(&region, "region", "", "Region name (africa, europe, ...)")
	return cmd
}

func formatCommand(run runner) *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "format AMOUNT CODE",
		Short: "Format an amount for display",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return err
			}
			code, err := env.Exchange.Registry().Parse(args[1])
			if err != nil {
				return err
			}

			formatted, err := env.Exchange.FormatCurrency(amount, code, locale)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatted)
			return nil
		}),
	}
	cmd.Flags().StringVar(&locale, "locale", "en", "BCP 47 locale")
	return cmd
}

// warmupCommand resolves BASE against every supported currency so the shared
// cache is populated before traffic arrives.
func warmupCommand(run runner) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Prime the rate cache for a base currency",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			registry := env.Exchange.Registry()
			code, err := registry.Parse(base)
			if err != nil {
				return err
			}

			targets, _ := parseTargets(registry, code, nil)
			quotes, err := env.Exchange.RatesFor(ctx, code, targets)
			if err != nil {
				return err
			}

			bySource := make(map[string]int)
			for _, q := range quotes {
				switch {
				case q.Rate == nil:
					bySource["unavailable"]++
				case q.Rate.Stale:
					bySource[string(q.Rate.Source)+" (stale)"]++
				default:
					bySource[string(q.Rate.Source)]++
				}
			}

			keys := make([]string, 0, len(bySource))
			for k := range bySource {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "warmed %d pairs for %s\n", len(quotes), code)
			for _, k := range keys {
				fmt.Fprintf(out, "  %s: %d\n", k, bySource[k])
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&base, "base", string(currency.USD), "Base currency")
	return cmd
}

func migrateCommand(migrator Migrator) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if migrator == nil {
				return errNoDatabase
			}
			applied, err := migrator()
			if err != nil {
				return err
			}
			if applied {
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "schema already up to date")
			}
			return nil
		},
	}
}

func parsePair(env *Env, from, to string) (currency.Code, currency.Code, error) {
	registry := env.Exchange.Registry()
	f, err := registry.Parse(from)
	if err != nil {
		return "", "", err
	}
	t, err := registry.Parse(to)
	if err != nil {
		return "", "", err
	}
	return f, t, nil
}

func parseTargets(registry *currency.Registry, base currency.Code, raw []string) ([]currency.Code, error) {
	if len(raw) == 0 {
		codes := make([]currency.Code, 0)
		for _, code := range registry.Supported() {
			if code != base {
				codes = append(codes, code)
			}
		}
		return codes, nil
	}

	codes := make([]currency.Code, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		code, err := registry.Parse(r)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
