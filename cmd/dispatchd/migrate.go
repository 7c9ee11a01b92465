package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/dispatch-service/internal/persistence"
)

func newMigrateCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				names, err := persistence.MigrationNames()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			cfg, logger, err := loadBase()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := context.Background()
			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()
			if pg.PoolHandle() == nil {
				return errors.New("POSTGRES_DSN is required to migrate")
			}
			return persistence.RunMigrations(ctx, pg.PoolHandle(), logger)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print embedded migration names and exit")
	return cmd
}
