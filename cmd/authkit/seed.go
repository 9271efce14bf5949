package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/security/password"
	"github.com/dropDatabas3/authkit/internal/store/pg"
)

func seedCmd() *cobra.Command {
	var (
		seedEmail string
		seedPass  string
		seedFirst string
		seedLast  string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Crea la cuenta super_admin inicial",
		Long: "Crea la primera cuenta super_admin con el email ya verificado.\n" +
			"Si el email ya existe, no hace nada.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("seed requiere storage.driver=postgres (actual: %s)", cfg.Storage.Driver)
			}
			if seedEmail == "" || seedPass == "" {
				return errors.New("seed: --email y --password son obligatorios")
			}
			if ok, reasons := password.DefaultPolicy.Validate(seedPass); !ok {
				return fmt.Errorf("seed: password débil: %s", strings.Join(reasons, ", "))
			}

			ctx := cmd.Context()
			st, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
				MaxConns: cfg.Storage.Postgres.MaxConns,
			})
			if err != nil {
				return err
			}
			defer st.Close()

			return seedSuperAdmin(ctx, st.Accounts(), seedEmail, seedPass, seedFirst, seedLast)
		},
	}

	cmd.Flags().StringVar(&seedEmail, "email", "", "email de la cuenta")
	cmd.Flags().StringVar(&seedPass, "password", "", "password inicial")
	cmd.Flags().StringVar(&seedFirst, "first-name", "Admin", "nombre")
	cmd.Flags().StringVar(&seedLast, "last-name", "", "apellido")
	return cmd
}

func seedSuperAdmin(ctx context.Context, accounts repository.AccountRepository, email, plain, first, last string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := accounts.GetByEmail(ctx, email); err == nil {
		logger.L().Info("seed: la cuenta ya existe, nada que hacer", logger.String("email", email))
		return nil
	} else if !repository.IsNotFound(err) {
		return err
	}

	hash, err := password.Hash(password.Default, plain)
	if err != nil {
		return err
	}

	acc, err := accounts.Create(ctx, repository.CreateAccountInput{
		Email:         email,
		PasswordHash:  &hash,
		FirstName:     first,
		LastName:      last,
		Role:          repository.RoleSuperAdmin,
		EmailVerified: true,
	})
	if err != nil {
		return err
	}

	logger.L().Info("seed: super_admin creado",
		logger.String("id", acc.ID),
		logger.String("email", acc.Email),
	)
	return nil
}
