package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un duplicado (email o external_id ya usados).
	ErrConflict = errors.New("conflict")

	// ErrTokenExpired indica que un token single-use ya expiró.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidInput indica datos de entrada inválidos.
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsTokenExpired verifica si el error es ErrTokenExpired.
func IsTokenExpired(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}
