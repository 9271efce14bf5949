// Package logger provee un logger Zap singleton con scoping por contexto.
//
// Inicialización (una vez, en main):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
//	defer logger.Sync()
//
// En servicios y handlers:
//
//	log := logger.From(ctx).With(logger.Component("auth.login"))
//	log.Info("login successful", logger.AccountID(id))
//
// "dev" escribe consola con colores; "prod" escribe JSON con stacktraces
// a partir de error.
package logger
