// Package cli provides the dailyquote command-line interface. It drives the
// same application service and stores as the HTTP adapter.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jsamuelsen/daily-quote-service/internal/adapters/storage"
	"github.com/jsamuelsen/daily-quote-service/internal/app"
	"github.com/jsamuelsen/daily-quote-service/internal/platform/config"
	"github.com/jsamuelsen/daily-quote-service/internal/platform/logging"
	"github.com/jsamuelsen/daily-quote-service/internal/ports"
)

// Options configures NewApp.
type Options struct {
	// Version is reported by --version.
	Version string

	// Stdout receives quotes. Defaults to os.Stdout.
	Stdout io.Writer

	// Stderr receives logs. Defaults to os.Stderr.
	Stderr io.Writer

	// Now overrides the clock.
	Now func() time.Time
}

// Flag names.
const (
	flagProfile      = "profile"
	flagStoreDriver  = "store-driver"
	flagStorePath    = "store-path"
	flagTimezone     = "timezone"
	flagZeroBasedDay = "zero-based-day"
	flagCatalog      = "catalog"
	flagLogLevel     = "log-level"
	flagLogFormat    = "log-format"
	flagJSON         = "json"
)

// NewApp builds the dailyquote command. Running it without a subcommand
// is the same as "today".
func NewApp(opts Options) *cli.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	r := &runner{opts: opts}

	return &cli.Command{
		Name:      "dailyquote",
		Usage:     "print the quote of the day",
		Version:   opts.Version,
		Writer:    opts.Stdout,
		ErrWriter: opts.Stderr,
		Flags:     globalFlags(),
		Action:    r.today,
		Commands: []*cli.Command{
			{
				Name:   "today",
				Usage:  "print today's quote, reusing the stored pick when it is still current",
				Action: r.today,
			},
			{
				Name:   "random",
				Usage:  "print a random quote without touching the store",
				Action: r.random,
			},
			{
				Name:      "on",
				Usage:     "print the quote assigned to a calendar date",
				ArgsUsage: "YYYY-MM-DD",
				Action:    r.on,
			},
			{
				Name:   "list",
				Usage:  "print the whole catalog with its indexes",
				Action: r.list,
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagProfile,
			Aliases: []string{"p"},
			Usage:   "configuration profile loaded from configs/<profile>.yaml",
			Sources: cli.NewValueSourceChain(cli.EnvVar("APP_ENVIRONMENT")),
			Value:   "local",
		},
		&cli.StringFlag{
			Name:  flagStoreDriver,
			Usage: "key-value store: memory, file or sqlite",
		},
		&cli.StringFlag{
			Name:  flagStorePath,
			Usage: "file or database path of the store",
		},
		&cli.StringFlag{
			Name:  flagTimezone,
			Usage: "IANA time zone deciding when a day begins, or Local",
		},
		&cli.BoolFlag{
			Name:  flagZeroBasedDay,
			Usage: "number January 1st as day 0 when picking quotes",
		},
		&cli.StringFlag{
			Name:  flagCatalog,
			Usage: "YAML file replacing the built-in quotes",
		},
		&cli.StringFlag{
			Name:  flagLogLevel,
			Usage: "log level: trace, debug, info, warn or error",
			Value: "warn",
		},
		&cli.StringFlag{
			Name:  flagLogFormat,
			Usage: "log format: json, text or pretty",
			Value: "pretty",
		},
		&cli.BoolFlag{
			Name:    flagJSON,
			Aliases: []string{"j"},
			Usage:   "print results as JSON",
		},
	}
}

type runner struct {
	opts Options
}

// session is everything one command invocation needs.
type session struct {
	service *app.DailyQuoteService
	store   ports.Store
	logger  *slog.Logger
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("closing store", slog.Any("error", err))
	}
}

// open loads configuration, applies flag overrides and builds the service.
// Commands that never touch the cache get a throwaway memory store.
func (r *runner) open(ctx context.Context, cmd *cli.Command, persistent bool) (*session, error) {
	cfg, err := config.Load(cmd.String(flagProfile))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	applyOverrides(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
	}, r.opts.Stderr)

	location, err := cfg.Quote.Location()
	if err != nil {
		return nil, err
	}

	catalog, err := cfg.Quote.Catalog()
	if err != nil {
		return nil, err
	}

	var store ports.Store = storage.NewMemoryStore(logger)
	if persistent {
		store, err = storage.Open(ctx, cfg.Store, logger)
		if err != nil {
			return nil, err
		}
	}

	service := app.NewDailyQuoteService(app.DailyQuoteServiceConfig{
		Store:    store,
		Catalog:  catalog,
		Location: location,
		Now:      r.opts.Now,
		Logger:   logger,
	})

	return &session{service: service, store: store, logger: logger}, nil
}

// applyOverrides copies explicitly set flags over the loaded configuration.
func applyOverrides(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet(flagStoreDriver) {
		cfg.Store.Driver = cmd.String(flagStoreDriver)
	}

	if cmd.IsSet(flagStorePath) {
		cfg.Store.Path = cmd.String(flagStorePath)
	}

	if cmd.IsSet(flagTimezone) {
		cfg.Quote.Timezone = cmd.String(flagTimezone)
	}

	if cmd.IsSet(flagZeroBasedDay) {
		cfg.Quote.ZeroBasedDay = cmd.Bool(flagZeroBasedDay)
	}

	if cmd.IsSet(flagCatalog) {
		cfg.Quote.CatalogFile = cmd.String(flagCatalog)
	}

	cfg.Log.Level = cmd.String(flagLogLevel)
	cfg.Log.Format = cmd.String(flagLogFormat)
	cfg.Log.File.Enabled = false
}

type dailyQuoteOutput struct {
	Quote  string `json:"quote"`
	Date   string `json:"date"`
	Source string `json:"source"`
}

type datedQuoteOutput struct {
	Quote     string `json:"quote"`
	Date      string `json:"date"`
	DayOfYear int    `json:"dayOfYear"`
}

type catalogEntryOutput struct {
	Index int    `json:"index"`
	Quote string `json:"quote"`
}

func (r *runner) today(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer s.close()

	activation := s.service.Activate(ctx)
	defer activation.Cancel()

	quote, err := activation.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return app.ErrActivationCanceled
		}

		return err
	}

	return write(cmd, dailyQuoteOutput{Quote: quote.Text, Date: quote.DateKey, Source: string(quote.Source)}, quote.Text)
}

func (r *runner) random(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer s.close()

	quote := s.service.Random(ctx)

	return write(cmd, map[string]string{"quote": quote}, quote)
}

func (r *runner) on(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("usage: dailyquote on YYYY-MM-DD")
	}

	s, err := r.open(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer s.close()

	date, err := s.service.ParseDate(cmd.Args().First())
	if err != nil {
		return err
	}

	quote, day := s.service.ForDate(ctx, date)

	return write(cmd, datedQuoteOutput{Quote: quote, Date: date.Format(time.DateOnly), DayOfYear: day}, quote)
}

func (r *runner) list(ctx context.Context, cmd *cli.Command) error {
	s, err := r.open(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer s.close()

	quotes := s.service.Catalog().Quotes()

	if cmd.Bool(flagJSON) {
		entries := make([]catalogEntryOutput, len(quotes))
		for i, q := range quotes {
			entries[i] = catalogEntryOutput{Index: i, Quote: q}
		}

		return writeJSON(cmd, entries)
	}

	w := cmd.Root().Writer
	for i, q := range quotes {
		if _, err := fmt.Fprintf(w, "%3d  %s\n", i, q); err != nil {
			return err
		}
	}

	return nil
}

// write prints v as JSON under --json, and text otherwise.
func write(cmd *cli.Command, v any, text string) error {
	if cmd.Bool(flagJSON) {
		return writeJSON(cmd, v)
	}

	_, err := fmt.Fprintln(cmd.Root().Writer, text)

	return err
}

func writeJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
