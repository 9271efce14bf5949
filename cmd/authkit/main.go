// Command authkit es el binario del servicio de cuentas: API HTTP,
// migraciones de base y seed del primer administrador.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authkit/internal/config"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
)

var (
	cfgPath string
	cfg     *config.Config
)

func main() {
	root := &cobra.Command{
		Use:           "authkit",
		Short:         "Servicio de cuentas: registro, login, 2FA y sesiones",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// .env es opcional; pisa nada si no existe.
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				fmt.Fprintln(os.Stderr, "warn: .env no se pudo leer:", err)
			}

			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.App.LogLevel,
				ServiceName: "authkit",
			})
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c",
		os.Getenv("AUTHKIT_CONFIG"), "ruta al config.yaml (opcional)")

	root.AddCommand(serveCmd(), migrateCmd(), seedCmd(), keysCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
