package auth

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/authkit/internal/audit"
	"github.com/dropDatabas3/authkit/internal/cache"
	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/security/totp"
)

// Enable2FA genera un secreto TOTP y lo deja staged en cache. El
// secreto NO se persiste hasta que Verify2FA confirme que el
// authenticator del usuario lo tiene cargado; si el enrolamiento se
// abandona, expira solo.
func (s *service) Enable2FA(ctx context.Context, accountID string) (*EnrollResult, error) {
	acc, err := s.deps.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if acc.TOTPEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}
	// Sin password no hay 2FA: el factor primario es del proveedor externo.
	if acc.PasswordHash == nil {
		return nil, fmt.Errorf("%w: account has no password", ErrInvalidInput)
	}

	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	if err := s.deps.Cache.Set(ctx, enrollKey(acc.ID), secret, s.deps.TOTP.EnrollTTL); err != nil {
		return nil, err
	}

	logger.From(ctx).Info("totp enrollment staged", logger.AccountID(acc.ID))
	return &EnrollResult{
		Secret:     secret,
		OTPAuthURL: totp.OTPAuthURL(s.deps.TOTP.Issuer, acc.Email, secret),
	}, nil
}

// Verify2FA confirma el enrolamiento: valida el código contra el
// secreto staged y recién entonces lo persiste.
func (s *service) Verify2FA(ctx context.Context, accountID, code string) error {
	secret, err := s.deps.Cache.Get(ctx, enrollKey(accountID))
	if err != nil {
		if cache.IsNotFound(err) {
			return ErrTOTPNotPending
		}
		return err
	}

	if !totp.Verify(secret, code, s.now(), s.deps.TOTP.WindowSteps) {
		return ErrTOTPInvalid
	}

	if err := s.deps.Accounts.EnableTOTP(ctx, accountID, secret); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	_ = s.deps.Cache.Delete(ctx, enrollKey(accountID))

	audit.Event(ctx, "auth.totp_enabled", logger.AccountID(accountID))
	return nil
}

// Disable2FA apaga el segundo factor previa re-verificación del
// password. El secreto se borra, no se desactiva: re-habilitar genera
// uno nuevo.
func (s *service) Disable2FA(ctx context.Context, accountID, plain string) error {
	acc, err := s.deps.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if !acc.TOTPEnabled {
		return ErrTOTPNotEnabled
	}
	if !s.deps.Accounts.CheckPassword(acc.PasswordHash, plain) {
		return ErrInvalidCredentials
	}

	if err := s.deps.Accounts.DisableTOTP(ctx, acc.ID); err != nil {
		return err
	}
	audit.Event(ctx, "auth.totp_disabled", logger.AccountID(acc.ID))
	return nil
}
