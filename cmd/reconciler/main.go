// Command reconciler matches accounting invoices against imported bank
// transactions.
//
// Usage:
//
//	reconciler import statement releve-2024-03.ofx
//	reconciler import invoices extracted.json
//	reconciler reconcile
//	reconciler search 42
//	reconciler confirm 42 1337 --override
//	reconciler serve --port 8080
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/logging"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// app holds what every subcommand shares. It is filled in by
// PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *storage.Storage
}

var (
	cfgFile   string
	dbPath    string
	logLevel  string
	logFormat string
	state     app
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "reconciler",
		Short: "Match invoices against bank transactions",
		Long: `reconciler imports bank statements and extracted invoices, ranks the
transactions that could settle each invoice, and links them automatically
when the match is confident enough.`,
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+config.DefaultPath+", falls back to RECONCILER_* env vars)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(confirmCmd())
	rootCmd.AddCommand(unlinkCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(invoicesCmd())

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	// PersistentPostRunE is skipped when a command fails
	if state.store != nil {
		_ = state.store.Close()
		state.store = nil
	}

	var cfg *config.Config
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrEnv()
	}

	if dbPath != "" {
		cfg.Storage.DatabasePath = dbPath
	}
	if logLevel != "" {
		cfg.Observability.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Observability.Logging.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Logs go to stderr so command output can be piped
	logger := logging.NewLoggerTo(os.Stderr, cfg.Observability.Logging)
	slog.SetDefault(logger)

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", cfg.Storage.DatabasePath, err)
	}

	state = app{cfg: cfg, logger: logger, store: store}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if state.store == nil {
		return nil
	}
	err := state.store.Close()
	state.store = nil
	return err
}
