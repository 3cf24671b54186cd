package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/zwiggato/internal/api"
	"github.com/roach88/zwiggato/internal/catalog"
	"github.com/roach88/zwiggato/internal/ledger"
	"github.com/roach88/zwiggato/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Addr     string

	// Ready, when set, receives the bound address once the server accepts
	// connections (for testing with --addr 127.0.0.1:0).
	Ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the ordering API.

Opens the SQLite database (creating it if it doesn't exist), reconciles the
reference catalog into it, and serves HTTP until SIGINT or SIGTERM. In-flight
requests get ZWIGGATO_SHUTDOWN_TIMEOUT to finish.

By default (ZWIGGATO_TOTAL_POLICY=verify) an order whose total differs from
the item subtotal plus delivery fee by more than ZWIGGATO_TOTAL_TOLERANCE is
rejected with 400. Legacy clients that send any positive total, such as 28.0
for a 28.50 cart, need ZWIGGATO_TOTAL_POLICY=trust to get 201.

Example:
  zwiggato serve --db ./zwiggato.db --addr :8080
  ZWIGGATO_TOTAL_POLICY=trust zwiggato serve --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $ZWIGGATO_DB or zwiggato.db)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default $ZWIGGATO_ADDR or :8080)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.DBPath = opts.Database
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}

	logger := opts.Logger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	logger.Info("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	if _, err := reconcile(ctx, st, logger); err != nil {
		return err
	}

	reader := ledger.NewReader(st, logger)
	router := api.NewRouter(api.Deps{
		Catalog: st,
		Ledger: ledger.New(st, ledger.Options{
			DeliveryFee: cfg.DeliveryFee,
			Tolerance:   &cfg.TotalTolerance,
			Policy:      cfg.TotalPolicy,
			Logger:      logger,
		}),
		Orders:        reader,
		Health:        st,
		SessionCookie: cfg.SessionCookie,
		Logger:        logger,
	})

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	addr := ln.Addr().String()
	logger.Info("server started",
		"addr", addr,
		"db", cfg.DBPath,
		"total_policy", string(cfg.TotalPolicy),
		"session_cookie", cfg.SessionCookie,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", addr)
	if opts.Ready != nil {
		opts.Ready <- addr
	}

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return WrapExitError(ExitFailure, "shutdown error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// reconcile seeds the reference catalog. Skipped rows are logged by the
// reconciler and do not stop the caller.
func reconcile(ctx context.Context, st *store.Store, logger *slog.Logger) (catalog.Report, error) {
	ref, err := catalog.DefaultReference()
	if err != nil {
		return catalog.Report{}, WrapExitError(ExitCommandError, "invalid reference catalog", err)
	}
	report, err := catalog.NewReconciler(st, ref, logger).Reconcile(ctx)
	if err != nil {
		return report, WrapExitError(ExitCommandError, "catalog reconciliation failed", err)
	}
	return report, nil
}
