package repository

import (
	"context"
	"time"
)

// Session representa un refresh token registrado.
// Solo se guarda el hash del token; el crudo viaja una única vez al
// cliente. Un registro revocado nunca vuelve a activarse.
type Session struct {
	ID          string
	AccountID   string
	TokenHash   string
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	RotatedFrom *string // ID de la sesión que este registro reemplazó
	CreatedAt   time.Time
}

// Valid reporta si la sesión está activa y no expiró a tiempo now.
func (s *Session) Valid(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// CreateSessionInput contiene los datos para registrar un refresh token.
type CreateSessionInput struct {
	AccountID   string
	TokenHash   string
	ExpiresAt   time.Time
	RotatedFrom *string
}

// SessionRepository es el registro de refresh tokens.
//
// ConsumeForRotation es la pieza con requisito de atomicidad: bajo
// rotaciones concurrentes del mismo token exactamente una gana; la otra
// observa ErrNotFound. Se implementa con update condicional sobre
// revoked_at, nunca con read-then-write.
type SessionRepository interface {
	// Register registra un refresh token. El token no es válido para
	// rotar hasta que este registro existe.
	Register(ctx context.Context, in CreateSessionInput) (*Session, error)

	// GetByHash busca una sesión por hash de token. ErrNotFound si no existe.
	GetByHash(ctx context.Context, tokenHash string) (*Session, error)

	// ConsumeForRotation revoca la sesión de forma condicional: solo si
	// está activa y no expirada. Retorna la sesión consumida, o
	// ErrNotFound si el hash no existe, ya fue rotado/revocado, o expiró.
	ConsumeForRotation(ctx context.Context, tokenHash string) (*Session, error)

	// Revoke desactiva una sesión por ID. Revocar una sesión ya revocada
	// es un no-op, no un error.
	Revoke(ctx context.Context, id string) error

	// RevokeAllByAccount desactiva todas las sesiones activas de la
	// cuenta. Retorna cuántas revocó.
	RevokeAllByAccount(ctx context.Context, accountID string) (int, error)

	// DeleteExpired borra sesiones expiradas o revocadas (housekeeping).
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
