package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Noetix-AI-platform/GoldenDavid/internal/config"
	"github.com/Noetix-AI-platform/GoldenDavid/internal/logger"
	"github.com/Noetix-AI-platform/GoldenDavid/internal/store"
)

var (
	// Cfg holds environment-driven defaults, loaded before any command runs.
	Cfg *config.Config
	// Log is the shared pipeline logger.
	Log *zap.Logger
	// DB is the optional run registry. It stays nil unless --db or
	// GOLDENDAVID_DB_URL is set; every command must work without it.
	DB *store.Store

	dbURL    string
	logLevel string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "goldendavid",
	Short:   "Edge-point extraction and animated capture toolchain",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		Cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if logLevel == "" {
			logLevel = Cfg.LogLevel
		}
		Log, err = logger.New(logLevel)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}

		if dbURL == "" {
			dbURL = Cfg.DatabaseURL
		}
		if dbURL != "" {
			DB, err = store.New(cmd.Context(), dbURL)
			if err != nil {
				return fmt.Errorf("failed to connect to run registry: %w", err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Background because the main context may already be cancelled
			// (Ctrl+C) and the close command still has to go out.
			DB.Close(context.Background())
		}
		if Log != nil {
			Log.Sync()
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string for the optional run registry")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// requireDB guards registry-backed commands.
func requireDB() error {
	if DB == nil {
		return fmt.Errorf("no run registry configured: pass --db or set GOLDENDAVID_DB_URL")
	}
	return nil
}
