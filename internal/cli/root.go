package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/zwiggato/internal/client"
	"github.com/roach88/zwiggato/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// API and Session override ZWIGGATO_API and ZWIGGATO_SESSION for the
	// client commands.
	API     string
	Session string

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the zwiggato CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "zwiggato",
		Short: "zwiggato - food ordering service",
		Long: `A food ordering service: a restaurant catalog, a cart and an append-only
order ledger behind a small JSON API.

Run "zwiggato serve" to start the API, then browse and order with the
restaurants, menu, cart and orders commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.API, "api", "", "API base URL (default $ZWIGGATO_API or http://localhost:8080)")
	cmd.PersistentFlags().StringVar(&opts.Session, "session", "", "session cookie value (default $ZWIGGATO_SESSION)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewRestaurantsCommand(opts))
	cmd.AddCommand(NewMenuCommand(opts))
	cmd.AddCommand(NewOrdersCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Config returns the runtime configuration, loading .env and the
// environment on first use.
func (o *RootOptions) Config() (config.Config, error) {
	if o.cfg != nil {
		return *o.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.cfg = &cfg
	return cfg, nil
}

// Logger builds the slog logger for a command. --verbose forces debug level.
func (o *RootOptions) Logger(cfg config.Config, w io.Writer) *slog.Logger {
	level := cfg.LogLevel
	if o.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// formatter returns an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// apiClient builds a client from flags, falling back to configuration.
func (o *RootOptions) apiClient(cfg config.Config, logger *slog.Logger) (*client.Client, error) {
	base := o.API
	if base == "" {
		base = cfg.APIURL
	}
	session := o.Session
	if session == "" {
		session = cfg.Session
	}
	c, err := client.New(base, client.Options{
		SessionCookie: cfg.SessionCookie,
		Session:       session,
		Logger:        logger,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid API URL", err)
	}
	return c, nil
}
