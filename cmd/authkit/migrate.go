package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/store/pg"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes sobre PostgreSQL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate requiere storage.driver=postgres (actual: %s)", cfg.Storage.Driver)
			}

			ctx := cmd.Context()
			st, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
				MaxConns: cfg.Storage.Postgres.MaxConns,
			})
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(ctx); err != nil {
				return err
			}
			logger.L().Info("migrations applied")
			return nil
		},
	}
}
