package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dimitrije/boltstax-api/internal/config"
	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "boltstax-admin",
	Short:        "Operator tasks for the BoltStax API",
	Long:         `Run migrations, scheduled jobs and data fixes against the BoltStax database without going through the HTTP API`,
	SilenceUsage: true,
}

// env is what every subcommand gets: loaded config, a logger and an open
// database.
type env struct {
	cfg *config.Config
	log *logrus.Logger
	db  *database.DB
}

// withEnv opens the database for the duration of fn. The context is
// cancelled on SIGINT or SIGTERM.
func withEnv(fn func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		return fn(ctx, &env{
			cfg: cfg,
			log: logger.New(cfg.LogLevel, cfg.LogFormat),
			db:  db,
		}, args)
	}
}
