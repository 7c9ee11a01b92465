package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/dispatch-service/internal/auth"
	"github.com/spec-kit/dispatch-service/internal/config"
	"github.com/spec-kit/dispatch-service/internal/domain"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for local testing",
		Long:  "Signs a token with JWT_SECRET. Login is handled by the upstream identity service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
			token, expiresAt, err := tokens.GenerateToken(subject, domain.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject id carried in the token")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleCustomer), "CUSTOMER, STAFF, AGENT or ADMIN")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
