package handlers

import (
	"errors"

	apperr "github.com/dropDatabas3/authkit/internal/http/errors"
	"github.com/dropDatabas3/authkit/internal/service/admin"
	"github.com/dropDatabas3/authkit/internal/service/auth"
)

// mapServiceError traduce los sentinels de los services al catálogo de
// errores de la API. Lo que no matchea cae en 500 conservando la causa.
func mapServiceError(err error) *apperr.AppError {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return apperr.ErrValidation.WithDetail(err.Error())
	case errors.Is(err, auth.ErrWeakPassword):
		return apperr.ErrWeakPassword
	case errors.Is(err, auth.ErrEmailTaken):
		return apperr.ErrConflict.WithDetail("el email ya está registrado")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperr.ErrInvalidCredentials
	case errors.Is(err, auth.ErrAccountDisabled):
		return apperr.ErrAccountDisabled
	case errors.Is(err, auth.ErrEmailNotVerified):
		return apperr.ErrEmailNotVerified
	case errors.Is(err, auth.ErrTOTPRequired):
		return apperr.ErrTOTPRequired
	case errors.Is(err, auth.ErrTOTPInvalid):
		return apperr.ErrTOTPInvalid
	case errors.Is(err, auth.ErrTOTPAlreadyEnabled),
		errors.Is(err, auth.ErrTOTPNotEnabled),
		errors.Is(err, auth.ErrTOTPNotPending):
		return apperr.ErrConflict.WithDetail(err.Error())
	case errors.Is(err, auth.ErrInvalidRefresh):
		return apperr.ErrInvalidRefresh
	case errors.Is(err, auth.ErrInvalidToken):
		return apperr.ErrInvalidResetToken
	case errors.Is(err, auth.ErrTokenExpired):
		return apperr.ErrInvalidResetToken.WithDetail("el token expiró")
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, admin.ErrNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, admin.ErrForbidden):
		return apperr.ErrForbidden.WithDetail(err.Error())
	case errors.Is(err, admin.ErrInvalidInput):
		return apperr.ErrValidation.WithDetail(err.Error())
	}
	return apperr.ErrInternal.WithCause(err)
}
