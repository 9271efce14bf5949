package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/authkit/internal/cache"
	"github.com/dropDatabas3/authkit/internal/config"
	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/email"
	httpx "github.com/dropDatabas3/authkit/internal/http"
	"github.com/dropDatabas3/authkit/internal/http/handlers"
	jwtx "github.com/dropDatabas3/authkit/internal/jwt"
	"github.com/dropDatabas3/authkit/internal/metrics"
	"github.com/dropDatabas3/authkit/internal/oauth/google"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/rate"
	"github.com/dropDatabas3/authkit/internal/service/admin"
	"github.com/dropDatabas3/authkit/internal/service/auth"
	"github.com/dropDatabas3/authkit/internal/store/memory"
	"github.com/dropDatabas3/authkit/internal/store/pg"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage.
	var (
		accounts   repository.AccountRepository
		sessions   repository.SessionRepository
		checkStore func(context.Context) error
	)
	switch cfg.Storage.Driver {
	case "postgres":
		st, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		defer st.Close()
		accounts, sessions = st.Accounts(), st.Sessions()
		checkStore = st.Pool().Ping
	default:
		st := memory.New()
		accounts, sessions = st.Accounts(), st.Sessions()
		logger.L().Warn("storage en memoria: los datos no sobreviven al proceso")
	}

	// 2. Cache (staging de enrolamientos 2FA y rate limiting).
	cch, err := cache.New(cache.Config{
		Kind:     cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return err
	}
	defer cch.Close()

	// 3. Firmas JWT.
	issuer, err := jwtx.New(
		cfg.JWT.Issuer,
		cfg.JWT.SigningSeed,
		config.Dur(cfg.JWT.AccessTTL),
		config.Dur(cfg.JWT.RefreshTTL),
	)
	if err != nil {
		return err
	}
	if cfg.JWT.SigningSeed == "" {
		logger.L().Warn("jwt.signing_seed vacío: clave efímera, los tokens mueren con el proceso")
	}

	// 4. Correo saliente.
	var sender email.Sender = email.LogSender{}
	if cfg.SMTP.Host != "" {
		s := email.NewSMTPSender(email.SMTPConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromEmail: cfg.SMTP.From,
			TLSMode:   cfg.SMTP.TLS,
		})
		s.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		sender = s
	}
	mailer, err := email.NewMailer(sender, cfg.Email.BaseURL,
		config.Dur(cfg.Auth.Verify.TTL), config.Dur(cfg.Auth.Reset.TTL))
	if err != nil {
		return err
	}

	// 5. Servicios.
	svc := auth.New(auth.Deps{
		Accounts: accounts,
		Sessions: sessions,
		Issuer:   issuer,
		Cache:    cch,
		Mailer:   mailer,
		TOTP: auth.TOTPConfig{
			Issuer:      cfg.TOTP.Issuer,
			WindowSteps: cfg.TOTP.WindowSteps,
			EnrollTTL:   config.Dur(cfg.TOTP.EnrollTTL),
		},
		ResetTTL: config.Dur(cfg.Auth.Reset.TTL),
	})
	adminSvc := admin.NewUsersService(admin.Deps{Accounts: accounts, Sessions: sessions})

	// 6. Rate limiting. Con backend redis los contadores se comparten
	// entre réplicas; en memoria valen solo para este proceso.
	var loginLim, forgotLim, mfaLim rate.Limiter
	if cfg.Rate.Enabled {
		loginLim = newLimiter(cch, cfg.Rate.Login.Limit, config.Dur(cfg.Rate.Login.Window))
		forgotLim = newLimiter(cch, cfg.Rate.Forgot.Limit, config.Dur(cfg.Rate.Forgot.Window))
		mfaLim = newLimiter(cch, cfg.Rate.MFA.Limit, config.Dur(cfg.Rate.MFA.Window))
	}

	echo := cfg.Email.DebugEchoLinks && cfg.App.Env != "prod"

	var external *handlers.ExternalHandler
	if cfg.OAuth.Google.ClientID != "" {
		external = &handlers.ExternalHandler{
			Svc: svc,
			Provider: google.New(
				cfg.OAuth.Google.ClientID,
				cfg.OAuth.Google.ClientSecret,
				cfg.OAuth.Google.RedirectURL,
			),
			Cache: cch,
		}
	}

	router := httpx.NewRouter(httpx.RouterDeps{
		Issuer:     issuer,
		Auth:       &handlers.AuthHandler{Svc: svc, LoginLimiter: loginLim, EchoTokens: echo},
		EmailFlows: &handlers.EmailFlowsHandler{Svc: svc, ForgotLimiter: forgotLim, EchoTokens: echo},
		External:   external,
		Me:         &handlers.MeHandler{Svc: svc},
		MFA:        &handlers.MFAHandler{Svc: svc, VerifyLimiter: mfaLim},
		AdminUsers: &handlers.AdminUsersHandler{Svc: adminSvc},
		Health: &handlers.HealthHandler{
			CheckStore: checkStore,
			CheckCache: cch.Ping,
		},
		Metrics: metrics.Register(nil),
	})

	srv := httpx.NewServer(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return runSessionGC(gctx, sessions) })
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// newLimiter elige la implementación según el backend del cache.
func newLimiter(cch cache.Client, max int, window time.Duration) rate.Limiter {
	if client, ok := cache.Raw(cch); ok {
		return rate.NewRedisLimiter(client, "rate:", max, window)
	}
	return rate.NewMemoryLimiter(max, window)
}

// runSessionGC borra periódicamente sesiones expiradas o revocadas.
func runSessionGC(ctx context.Context, sessions repository.SessionRepository) error {
	interval := config.Dur(cfg.GC.Interval)
	log := logger.L().With(logger.Component("session-gc"))
	log.Info("gc worker started", logger.Duration(interval))

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := sessions.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				log.Error("gc sweep failed", logger.Err(err))
				continue
			}
			if n > 0 {
				metrics.CountRevoked("gc", n)
				log.Info("gc sweep done", logger.Int("deleted", n))
			}
		}
	}
}
