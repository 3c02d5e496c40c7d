package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/fitstack/checkout-bridge/internal/platform/postgres"
)

func migrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL document store migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger("info")
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return errors.New("database url is required (--database-url or DATABASE_URL)")
			}
			return postgres.RunMigrations(databaseURL, postgres.MigrationsFS())
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")

	return cmd
}
