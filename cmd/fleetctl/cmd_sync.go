package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetline/fleet-api/internal/app"
)

func newSyncCmd() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run external data syncs",
	}
	syncCmd.AddCommand(&cobra.Command{
		Use:   "vehicles",
		Short: "Refresh tax, MOT and mileage of stale vehicles from DVLA and MOT history",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.Build(cmd.Context(), cfg, logr)
			if err != nil {
				return err
			}
			defer container.Close()

			report, err := container.Sync.Run(cmd.Context())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	})
	return syncCmd
}
