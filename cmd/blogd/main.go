// Command blogd runs the blog API server and its maintenance tasks.
//
//	blogd serve    start the HTTP API
//	blogd initdb   create missing tables and report each one
//
// Configuration comes from the environment, optionally seeded from a .env
// file in the working directory.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-blog-backend/internal/config"
	"github.com/tbourn/go-blog-backend/internal/repo"
	"github.com/tbourn/go-blog-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "blogd",
		Short:         "Blog backend: users, posts and comments over HTTP",
		Version:       sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is normal outside development.
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd(), newInitDBCmd())
	return root
}

// loadConfig reads the environment and installs the global logger.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	sysutil.SetupLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	return cfg, nil
}

// openDB connects with the configured dialect. SQLite falls back to
// DB_PATH when no DSN is given.
func openDB(cfg config.Config) (*gorm.DB, error) {
	dsn := cfg.DB.DSN
	if cfg.DB.Driver == "sqlite" {
		dsn = sysutil.FirstNonEmpty(cfg.DB.DSN, cfg.DB.Path)
	}
	lvl := logger.Silent
	if cfg.LogLevel == "debug" {
		lvl = logger.Info
	}
	return repo.Open(cfg.DB.Driver, dsn, repo.Options{Tracing: cfg.OTEL.Enabled, LogLevel: lvl})
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create missing tables and report the state of each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer closeDB(db)

			statuses, err := repo.EnsureTables(db)
			out := cmd.OutOrStdout()
			for _, st := range statuses {
				state := "exists"
				if st.Created {
					state = "created"
				}
				fmt.Fprintf(out, "%-12s %s\n", st.Table, state)
			}
			if err != nil {
				return fmt.Errorf("ensure tables: %w", err)
			}
			return nil
		},
	}
}
