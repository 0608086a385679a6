package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/repository"
	"github.com/fleetline/fleet-api/internal/service"
	"github.com/fleetline/fleet-api/pkg/database"
)

func newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}

	var ttl time.Duration
	issueCmd := &cobra.Command{
		Use:   "issue <email>",
		Short: "Issue an access token for an active user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			tokens := service.NewTokenService(repository.NewUserRepository(db), logr, service.TokenConfig{
				Secret: cfg.JWT.Secret,
				Issuer: cfg.JWT.Issuer,
				Expiry: cfg.JWT.Expiration,
			})
			issued, err := tokens.IssueForEmail(cmd.Context(), args[0], ttl)
			if err != nil {
				return err
			}
			logr.Info("token issued", zap.String("user", issued.User), zap.Time("expires_at", issued.ExpiresAt))

			out, err := json.MarshalIndent(issued, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	issueCmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to JWT_EXPIRATION)")
	tokenCmd.AddCommand(issueCmd)
	return tokenCmd
}
