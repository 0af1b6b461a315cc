package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atmx/ledger-engine/internal/config"
	"github.com/atmx/ledger-engine/internal/ledger"
	"github.com/atmx/ledger-engine/internal/store"
)

// rootConfig holds the persistent flags and the session opened from them.
type rootConfig struct {
	ConfigPath string
	Driver     string
	SQLitePath string
	LogLevel   string

	logger *slog.Logger
	ledger *ledger.Ledger
	close  func()
}

// NewRootCmd builds the ledgerctl command tree.
func NewRootCmd() *cobra.Command {
	rc := &rootConfig{}

	cmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "ledgerctl - inspect and administer a persisted ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", os.Getenv("LEDGER_CONFIG"), "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.Driver, "store", "", "Store driver: memory|sqlite|postgres (overrides config)")
	cmd.PersistentFlags().StringVar(&rc.SQLitePath, "db", "", "SQLite database path (overrides config)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "warn", "Log level: debug|info|warn|error")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return rc.open(cmd)
	}
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if rc.close != nil {
			rc.close()
		}
	}

	cmd.AddCommand(
		newPartiesCmd(rc),
		newSetBalanceCmd(rc),
		newLoanCmd(rc),
		newHistoryCmd(rc),
		newAuditCmd(rc),
		newSeedCmd(rc),
	)
	return cmd
}

// open loads config, applies flag overrides and opens the ledger.
func (rc *rootConfig) open(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(rc.LogLevel))); err != nil {
		return fmt.Errorf("log-level: %w", err)
	}
	rc.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(rc.ConfigPath)
	if err != nil {
		return err
	}
	if rc.Driver != "" {
		cfg.Store.Driver = rc.Driver
	}
	if rc.SQLitePath != "" {
		cfg.Store.SQLitePath = rc.SQLitePath
		if rc.Driver == "" {
			cfg.Store.Driver = config.DriverSQLite
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := cmd.Context()
	st, closeStore, err := store.Open(ctx, cfg.Store, rc.logger)
	if err != nil {
		return err
	}
	l, _, err := ledger.Open(ctx, st, false, ledger.WithLogger(rc.logger))
	if err != nil {
		closeStore()
		return err
	}
	rc.ledger = l
	rc.close = closeStore
	return nil
}
