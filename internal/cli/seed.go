package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/zwiggato/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string
}

// SeedResult is the seed command's output.
type SeedResult struct {
	RestaurantsInserted int      `json:"restaurants_inserted"`
	RestaurantsExisting int      `json:"restaurants_existing"`
	ItemsInserted       int      `json:"items_inserted"`
	ItemsExisting       int      `json:"items_existing"`
	Skipped             []string `json:"skipped"`
	Restaurants         int      `json:"restaurants"`
	MenuItems           int      `json:"menu_items"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Reconcile the reference catalog into the database",
		Long: `Insert any reference restaurants and menu items the database lacks.

Existing rows are left untouched, so running seed repeatedly is safe. Rows
that cannot be written are reported and skipped.

Exit codes:
  0 - Catalog reconciled
  1 - Some reference rows were skipped
  2 - Command error (database unavailable, etc.)

Example:
  zwiggato seed --db ./zwiggato.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $ZWIGGATO_DB or zwiggato.db)")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.DBPath = opts.Database
	}
	logger := opts.Logger(cfg, cmd.ErrOrStderr())
	out := opts.formatter(cmd)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	report, err := reconcile(cmd.Context(), st, logger)
	if err != nil {
		return err
	}
	counts, err := st.CountCatalog(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count catalog", err)
	}

	result := SeedResult{
		RestaurantsInserted: report.RestaurantsInserted,
		RestaurantsExisting: report.RestaurantsExisting,
		ItemsInserted:       report.ItemsInserted,
		ItemsExisting:       report.ItemsExisting,
		Skipped:             make([]string, 0, report.SkippedCount()),
		Restaurants:         counts.Restaurants,
		MenuItems:           counts.MenuItems,
	}
	for _, e := range report.Skipped {
		result.Skipped = append(result.Skipped, e.Error())
	}

	if err := out.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Restaurants: %d inserted, %d existing\n", result.RestaurantsInserted, result.RestaurantsExisting)
		fmt.Fprintf(w, "Menu items:  %d inserted, %d existing\n", result.ItemsInserted, result.ItemsExisting)
		for _, s := range result.Skipped {
			fmt.Fprintf(w, "  skipped: %s\n", s)
		}
		fmt.Fprintf(w, "Catalog now holds %d restaurants and %d menu items.\n", result.Restaurants, result.MenuItems)
	}); err != nil {
		return err
	}

	if len(result.Skipped) > 0 {
		err := NewExitError(ExitFailure, fmt.Sprintf("%d reference row(s) skipped", len(result.Skipped)))
		err.Reported = true
		return err
	}
	return nil
}
