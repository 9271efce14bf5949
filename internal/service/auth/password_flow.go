package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/authkit/internal/audit"
	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/security/password"
	"github.com/dropDatabas3/authkit/internal/security/token"
)

// ForgotPassword instala un reset token y manda el correo. La
// respuesta al caller es idéntica exista o no la cuenta; el token
// retornado queda vacío en el caso negativo y solo lo consumen los
// modos de desarrollo.
func (s *service) ForgotPassword(ctx context.Context, email string) (string, error) {
	log := logger.From(ctx)
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", fmt.Errorf("%w: email", ErrInvalidInput)
	}

	acc, err := s.deps.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Info("forgot password for unknown email")
			return "", nil
		}
		return "", err
	}

	resetRaw, err := token.GenerateOpaque(32)
	if err != nil {
		return "", err
	}
	expires := s.now().Add(s.deps.ResetTTL)
	if err := s.deps.Accounts.SetResetToken(ctx, acc.ID, token.Hash(resetRaw), expires); err != nil {
		return "", err
	}

	if s.deps.Mailer != nil {
		if err := s.deps.Mailer.SendPasswordReset(acc.Email, resetRaw); err != nil {
			log.Warn("reset email failed", logger.Err(err), logger.AccountID(acc.ID))
		}
	}

	log.Info("reset token issued", logger.AccountID(acc.ID))
	return resetRaw, nil
}

// ResetPassword consume el reset token y deja el password nuevo. Todas
// las sesiones de la cuenta quedan revocadas: un refresh robado no
// sobrevive a un reset.
func (s *service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	log := logger.From(ctx)
	if rawToken == "" {
		return fmt.Errorf("%w: token", ErrInvalidInput)
	}
	if ok, reasons := s.deps.Policy.Validate(newPassword); !ok {
		return fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(reasons, ", "))
	}

	hash, err := password.Hash(password.Default, newPassword)
	if err != nil {
		return err
	}

	acc, err := s.deps.Accounts.ConsumeResetToken(ctx, token.Hash(rawToken), hash)
	if err != nil {
		switch {
		case repository.IsNotFound(err):
			return ErrInvalidToken
		case repository.IsTokenExpired(err):
			return ErrTokenExpired
		}
		return err
	}

	n, err := s.deps.Sessions.RevokeAllByAccount(ctx, acc.ID)
	if err != nil {
		return err
	}
	log.Info("password reset", logger.AccountID(acc.ID), logger.Count(n))
	audit.Event(ctx, "auth.password_reset", logger.AccountID(acc.ID))
	return nil
}

// ChangePassword exige el password vigente y revoca todas las sesiones,
// incluida la que originó el pedido: el caller vuelve a loguearse.
func (s *service) ChangePassword(ctx context.Context, accountID, current, newPassword string) error {
	log := logger.From(ctx)

	acc, err := s.deps.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if !s.deps.Accounts.CheckPassword(acc.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if ok, reasons := s.deps.Policy.Validate(newPassword); !ok {
		return fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(reasons, ", "))
	}

	hash, err := password.Hash(password.Default, newPassword)
	if err != nil {
		return err
	}
	if err := s.deps.Accounts.UpdatePasswordHash(ctx, acc.ID, hash); err != nil {
		return err
	}

	n, err := s.deps.Sessions.RevokeAllByAccount(ctx, acc.ID)
	if err != nil {
		return err
	}
	log.Info("password changed", logger.AccountID(acc.ID), logger.Count(n))
	audit.Event(ctx, "auth.password_change", logger.AccountID(acc.ID))
	return nil
}
