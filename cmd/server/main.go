/*
main.go - Application entry point

PURPOSE:
  Command-line front end for the vacation ledger. The serve command runs
  the HTTP API; the other commands operate on the same SQLite database
  for scripting and operations.

COMMANDS:
  serve                      Start the HTTP server
  import FILE                Import a CSV export (--dry-run to preview)
  balance COLLABORATOR_ID    Print a collaborator's balance breakdown
  holidays seed              Seed the default holidays of a year

GLOBAL FLAGS:
  --config  TOML configuration file (optional)
  --env     .env file (default: .env, ignored when missing)
  --db      SQLite database path, overrides configuration

STARTUP SEQUENCE (serve):
  1. Load configuration
  2. Build zap logger
  3. Open SQLite store
  4. Create ledger service, API handler and router
  5. Start holiday scheduler
  6. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (server.shutdown_timeout)
  3. Stop the scheduler
  4. Close database connection

EXAMPLES:
  vacation-ledger serve --config=./vacation.toml
  vacation-ledger import ferias.csv --dry-run
  vacation-ledger holidays seed --year=2025

SEE ALSO:
  - config/config.go: Configuration sources and precedence
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsdesk/vacation-ledger/api"
	"github.com/opsdesk/vacation-ledger/config"
	"github.com/opsdesk/vacation-ledger/ledger"
	"github.com/opsdesk/vacation-ledger/report"
	"github.com/opsdesk/vacation-ledger/store/sqlite"
)

var rootCmd = &cobra.Command{
	Use:           "vacation-ledger",
	Short:         "Vacation balance ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "TOML configuration file")
	rootCmd.PersistentFlags().String("env", ".env", ".env file with VACATION_* overrides")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides configuration)")

	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// =============================================================================
// SHARED WIRING
// =============================================================================

// app bundles what every command needs.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *sqlite.Store
	service *ledger.Service
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env")
	cfg, err := config.Load(cfgPath, envFile)
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Database.Path = db
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, err
	}

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			_ = logger.Sync()
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		service: ledger.NewService(store, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// cliActor is the actor for commands run from a shell. Whoever can run the
// binary against the database file is trusted as an admin.
func cliActor() ledger.Actor {
	name := os.Getenv("USER")
	if name == "" {
		name = "cli"
	}
	return ledger.Actor{ID: "cli:" + name, Name: name, Role: ledger.RoleAdmin}
}

// =============================================================================
// SERVE
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides configuration)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.Server.Addr = addr
	}

	handler := api.NewHandler(a.service, a.logger)
	handler.Metrics = api.NewMetrics(prometheus.DefaultRegisterer)
	handler.Pinger = a.store
	handler.Thresholds = report.Thresholds{Low: a.cfg.Report.CriticalLow, High: a.cfg.Report.CriticalHigh}
	handler.RecentLimit = a.cfg.Report.RecentLimit
	handler.TopN = a.cfg.Report.TopN

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		StaticDir:      a.cfg.Server.StaticDir,
	})

	scheduler := api.NewHolidayScheduler(a.service, a.logger)
	scheduler.Enabled = a.cfg.Scheduler.HolidaySeed
	scheduler.CheckInterval = a.cfg.Scheduler.Interval.Duration
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			zap.String("addr", a.cfg.Server.Addr),
			zap.String("database", a.cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
