package pg

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sessionRepo struct{ pool *pgxpool.Pool }

const sessionCols = `id, account_id, token_hash, expires_at, revoked_at, rotated_from, created_at`

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	err := row.Scan(&s.ID, &s.AccountID, &s.TokenHash, &s.ExpiresAt, &s.RevokedAt, &s.RotatedFrom, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) Register(ctx context.Context, in repository.CreateSessionInput) (*repository.Session, error) {
	q := `
		INSERT INTO refresh_tokens (account_id, token_hash, expires_at, rotated_from)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + sessionCols
	return scanSession(r.pool.QueryRow(ctx, q, in.AccountID, in.TokenHash, in.ExpiresAt, in.RotatedFrom))
}

func (r *sessionRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.Session, error) {
	q := `SELECT ` + sessionCols + ` FROM refresh_tokens WHERE token_hash = $1`
	return scanSession(r.pool.QueryRow(ctx, q, tokenHash))
}

func (r *sessionRepo) ConsumeForRotation(ctx context.Context, tokenHash string) (*repository.Session, error) {
	// Update condicional sobre revoked_at: de dos rotaciones concurrentes
	// del mismo token, una sola matchea la fila; la otra ve 0 filas.
	q := `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > now()
		RETURNING ` + sessionCols
	return scanSession(r.pool.QueryRow(ctx, q, tokenHash))
}

func (r *sessionRepo) Revoke(ctx context.Context, id string) error {
	// Idempotente: revocar una sesión ya revocada no es error.
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE id = $1 AND revoked_at IS NULL`, id)
	return err
}

func (r *sessionRepo) RevokeAllByAccount(ctx context.Context, accountID string) (int, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE account_id = $1 AND revoked_at IS NULL`, accountID)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < $1 OR revoked_at IS NOT NULL`, before)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}
