package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/authkit/internal/audit"
	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/security/totp"
)

// Login autentica por email y password, con gate TOTP si la cuenta lo
// tiene habilitado. El orden de chequeos es fijo: credencial, estado,
// email verificado, segundo factor. Cuenta desconocida y password
// incorrecto son indistinguibles para el caller.
func (s *service) Login(ctx context.Context, email, plain, totpCode string) (*repository.Account, *TokenPair, error) {
	log := logger.From(ctx)
	email = strings.TrimSpace(strings.ToLower(email))

	// 1. Credencial
	acc, err := s.deps.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	// Cuentas solo-externas (hash nil) nunca pasan por acá.
	if !s.deps.Accounts.CheckPassword(acc.PasswordHash, plain) {
		log.Info("login rejected", logger.Email(email), logger.String("reason", "credentials"))
		return nil, nil, ErrInvalidCredentials
	}

	// 2. Estado de la cuenta
	if !acc.Active {
		return nil, nil, ErrAccountDisabled
	}
	if !acc.EmailVerified {
		return nil, nil, ErrEmailNotVerified
	}

	// 3. Segundo factor
	if acc.TOTPEnabled {
		if totpCode == "" {
			return nil, nil, ErrTOTPRequired
		}
		if acc.TOTPSecret == nil || !totp.Verify(*acc.TOTPSecret, totpCode, s.now(), s.deps.TOTP.WindowSteps) {
			log.Info("login rejected", logger.AccountID(acc.ID), logger.String("reason", "totp"))
			return nil, nil, ErrTOTPInvalid
		}
	}

	// 4. Emisión y registro de sesión
	pair, err := s.issuePair(ctx, acc, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := s.deps.Accounts.SetLastLogin(ctx, acc.ID, s.now()); err != nil {
		log.Warn("set last_login failed", logger.Err(err), logger.AccountID(acc.ID))
	}

	audit.Event(ctx, "auth.login", logger.AccountID(acc.ID), logger.Role(string(acc.Role)))
	return acc, pair, nil
}

// LoginExternal resuelve una identidad externa ya verificada por el
// proveedor: matchea por subject, si no por email (y vincula), y si no
// crea la cuenta. Las cuentas creadas por esta vía no tienen password y
// nacen con el email verificado.
func (s *service) LoginExternal(ctx context.Context, in ExternalIdentity) (*repository.Account, *TokenPair, error) {
	log := logger.From(ctx)

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Subject == "" || in.Email == "" {
		return nil, nil, fmt.Errorf("%w: subject and email required", ErrInvalidInput)
	}

	acc, err := s.deps.Accounts.GetByExternalID(ctx, in.Subject)
	switch {
	case err == nil:
		// Cuenta ya vinculada.
	case repository.IsNotFound(err):
		acc, err = s.linkOrCreateExternal(ctx, in)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, err
	}

	if !acc.Active {
		return nil, nil, ErrAccountDisabled
	}

	pair, err := s.issuePair(ctx, acc, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := s.deps.Accounts.SetLastLogin(ctx, acc.ID, s.now()); err != nil {
		log.Warn("set last_login failed", logger.Err(err), logger.AccountID(acc.ID))
	}

	audit.Event(ctx, "auth.login_external", logger.AccountID(acc.ID))
	return acc, pair, nil
}

func (s *service) linkOrCreateExternal(ctx context.Context, in ExternalIdentity) (*repository.Account, error) {
	existing, err := s.deps.Accounts.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		// Mismo email, cuenta local: vincular subject. LinkExternal
		// además marca el email como verificado (el proveedor lo avaló).
		if err := s.deps.Accounts.LinkExternal(ctx, existing.ID, in.Subject); err != nil {
			return nil, err
		}
		return s.deps.Accounts.GetByID(ctx, existing.ID)
	case repository.IsNotFound(err):
		return s.deps.Accounts.Create(ctx, repository.CreateAccountInput{
			Email:         in.Email,
			FirstName:     in.FirstName,
			LastName:      in.LastName,
			Role:          repository.RoleUser,
			EmailVerified: true,
			ExternalID:    &in.Subject,
		})
	default:
		return nil, err
	}
}
