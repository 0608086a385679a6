package main

import (
	"github.com/spf13/cobra"

	"github.com/fleetline/fleet-api/internal/migrations"
	"github.com/fleetline/fleet-api/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(cmd.Context(), db, migrations.FS, logr)
		},
	})
	return migrateCmd
}
