package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datacheck/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Create or upgrade the report tables in DATABASE_URL. serve and check --record also migrate on start.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return errors.New("DATABASE_URL is not set")
		}

		pool, err := store.Connect(cmd.Context(), store.Config{
			URL:           cfg.Database.URL,
			MaxConns:      2,
			RetryAttempts: cfg.Database.RetryAttempts,
			RetryInterval: cfg.Database.RetryInterval,
		})
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := store.Migrate(cmd.Context(), pool, cfg.Database.MigrationsTable, slog.Default()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("migrations applied"))
		return nil
	},
}
