// Package errors define la estructura estándar de errores de la API y
// el catálogo de errores predefinidos.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores de la aplicación.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Causa original, para logs; no se expone al cliente
}

// Error implementa la interfaz error.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail agrega detalle. Devuelve una COPIA para no mutar los
// errores base globales.
func (e *AppError) WithDetail(detail string) *AppError {
	n := *e
	n.Detail = detail
	return &n
}

// WithCause agrega el error original. Devuelve una COPIA.
func (e *AppError) WithCause(err error) *AppError {
	n := *e
	n.Err = err
	return &n
}

// FromError convierte un error genérico en AppError. Lo que no matchea
// se degrada a error interno conservando la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

// Write serializa el error al response writer.
func Write(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr)
}

// ── 400 Bad Request ──

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "El body no es JSON válido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Los datos enviados no pasan la validación.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrWeakPassword = &AppError{
		Code:       "WEAK_PASSWORD",
		Message:    "El password no cumple la política mínima.",
		HTTPStatus: http.StatusBadRequest,
	}
)

// ── 401 Unauthorized ──

var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Se requiere autenticación.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenMissing = &AppError{
		Code:       "TOKEN_MISSING",
		Message:    "Falta el bearer token.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenInvalid = &AppError{
		Code:       "TOKEN_INVALID",
		Message:    "El token es inválido o expiró.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Email o password incorrectos.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrEmailNotVerified = &AppError{
		Code:       "EMAIL_NOT_VERIFIED",
		Message:    "La cuenta todavía no verificó su email.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrAccountDisabled = &AppError{
		Code:       "ACCOUNT_DISABLED",
		Message:    "La cuenta está deshabilitada.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidRefresh = &AppError{
		Code:       "INVALID_REFRESH",
		Message:    "El refresh token es inválido, expiró o ya fue usado.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidResetToken = &AppError{
		Code:       "INVALID_RESET",
		Message:    "El token es inválido, expiró o ya fue usado.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTOTPRequired = &AppError{
		Code:       "2FA_REQUIRED",
		Message:    "La cuenta exige un código del segundo factor.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTOTPInvalid = &AppError{
		Code:       "INVALID_2FA",
		Message:    "El código del segundo factor es incorrecto.",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// ── 403 Forbidden ──

var ErrForbidden = &AppError{
	Code:       "FORBIDDEN",
	Message:    "No tenés permisos para esta operación.",
	HTTPStatus: http.StatusForbidden,
}

// ── 404 Not Found ──

var ErrNotFound = &AppError{
	Code:       "NOT_FOUND",
	Message:    "El recurso no existe.",
	HTTPStatus: http.StatusNotFound,
}

// ── 409 Conflict ──

var ErrConflict = &AppError{
	Code:       "CONFLICT",
	Message:    "El recurso ya existe.",
	HTTPStatus: http.StatusConflict,
}

// ── 429 Too Many Requests ──

var ErrRateLimited = &AppError{
	Code:       "RATE_LIMITED",
	Message:    "Demasiados intentos. Probá de nuevo más tarde.",
	HTTPStatus: http.StatusTooManyRequests,
}

// ── 5xx ──

var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "Error interno del servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "El servicio no está disponible.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
