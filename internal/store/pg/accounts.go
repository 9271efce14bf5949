package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/security/password"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type accountRepo struct{ pool *pgxpool.Pool }

const accountCols = `id, email, password_hash, first_name, last_name, role, active,
	email_verified, verify_token_hash, reset_token_hash, reset_expires_at,
	totp_secret, totp_enabled, external_id, last_login, created_at, updated_at`

func scanAccount(row pgx.Row) (*repository.Account, error) {
	var a repository.Account
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Role, &a.Active,
		&a.EmailVerified, &a.VerifyTokenHash, &a.ResetTokenHash, &a.ResetExpiresAt,
		&a.TOTPSecret, &a.TOTPEnabled, &a.ExternalID, &a.LastLogin, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// isUnique detecta violaciones de constraint único (23505).
func isUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *accountRepo) Create(ctx context.Context, in repository.CreateAccountInput) (*repository.Account, error) {
	role := in.Role
	if role == "" {
		role = repository.RoleUser
	}
	q := `
		INSERT INTO accounts (email, password_hash, first_name, last_name, role,
			email_verified, verify_token_hash, external_id)
		VALUES (lower($1), $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + accountCols
	a, err := scanAccount(r.pool.QueryRow(ctx, q,
		in.Email, in.PasswordHash, in.FirstName, in.LastName, role,
		in.EmailVerified, in.VerifyTokenHash, in.ExternalID))
	if isUnique(err) {
		return nil, repository.ErrConflict
	}
	return a, err
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*repository.Account, error) {
	q := `SELECT ` + accountCols + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, q, id))
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*repository.Account, error) {
	q := `SELECT ` + accountCols + ` FROM accounts WHERE email = lower($1)`
	return scanAccount(r.pool.QueryRow(ctx, q, strings.TrimSpace(email)))
}

func (r *accountRepo) GetByExternalID(ctx context.Context, externalID string) (*repository.Account, error) {
	q := `SELECT ` + accountCols + ` FROM accounts WHERE external_id = $1`
	return scanAccount(r.pool.QueryRow(ctx, q, externalID))
}

func (r *accountRepo) List(ctx context.Context, f repository.ListAccountsFilter) ([]repository.Account, int, error) {
	var conds []string
	var args []any
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Search != "" {
		add(`(email ILIKE $%[1]d OR first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d)`, "%"+f.Search+"%")
	}
	if f.Role != nil {
		add(`role = $%d`, *f.Role)
	}
	if f.Active != nil {
		add(`active = $%d`, *f.Active)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM accounts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	args = append(args, limit, (page-1)*limit)
	q := `SELECT ` + accountCols + ` FROM accounts` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []repository.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

func (r *accountRepo) Update(ctx context.Context, id string, in repository.UpdateAccountInput) (*repository.Account, error) {
	// COALESCE deja el valor previo cuando el campo viene nil; es un solo
	// UPDATE, sin read-then-write.
	q := `
		UPDATE accounts SET
			first_name = COALESCE($2, first_name),
			last_name  = COALESCE($3, last_name),
			role       = COALESCE($4, role),
			active     = COALESCE($5, active),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + accountCols
	var role *string
	if in.Role != nil {
		s := string(*in.Role)
		role = &s
	}
	return scanAccount(r.pool.QueryRow(ctx, q, id, in.FirstName, in.LastName, role, in.Active))
}

func (r *accountRepo) UpdateProfile(ctx context.Context, id string, firstName, lastName *string) (*repository.Account, error) {
	return r.Update(ctx, id, repository.UpdateAccountInput{FirstName: firstName, LastName: lastName})
}

func (r *accountRepo) Delete(ctx context.Context, id string) error {
	// Las sesiones caen por FK ON DELETE CASCADE.
	ct, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) ConsumeVerifyToken(ctx context.Context, tokenHash string) (*repository.Account, error) {
	// Single-use: el WHERE sobre verify_token_hash hace que el segundo
	// consumo concurrente no matchee ninguna fila.
	q := `
		UPDATE accounts SET
			email_verified = true,
			verify_token_hash = NULL,
			updated_at = now()
		WHERE verify_token_hash = $1
		RETURNING ` + accountCols
	return scanAccount(r.pool.QueryRow(ctx, q, tokenHash))
}

func (r *accountRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE accounts SET reset_token_hash = $2, reset_expires_at = $3, updated_at = now()
		WHERE id = $1`, id, tokenHash, expiresAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) (*repository.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `
		UPDATE accounts SET
			password_hash = $2,
			reset_token_hash = NULL,
			reset_expires_at = NULL,
			updated_at = now()
		WHERE reset_token_hash = $1 AND reset_expires_at > now()
		RETURNING `+accountCols, tokenHash, newPasswordHash))
	if errors.Is(err, repository.ErrNotFound) {
		// Distinguir expirado de desconocido para el error del caller.
		var n int
		if e := r.pool.QueryRow(ctx,
			`SELECT count(*) FROM accounts WHERE reset_token_hash = $1`, tokenHash).Scan(&n); e == nil && n > 0 {
			return nil, repository.ErrTokenExpired
		}
		return nil, repository.ErrNotFound
	}
	return a, err
}

func (r *accountRepo) UpdatePasswordHash(ctx context.Context, id, newHash string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`, id, newHash)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) EnableTOTP(ctx context.Context, id, secretB32 string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE accounts SET totp_secret = $2, totp_enabled = true, updated_at = now()
		WHERE id = $1`, id, secretB32)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) DisableTOTP(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE accounts SET totp_secret = NULL, totp_enabled = false, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) LinkExternal(ctx context.Context, id, externalID string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE accounts SET external_id = $2, email_verified = true, updated_at = now()
		WHERE id = $1`, id, externalID)
	if isUnique(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET last_login = $2 WHERE id = $1`, id, at)
	return err
}

func (r *accountRepo) CheckPassword(hash *string, plain string) bool {
	if hash == nil || *hash == "" {
		return false
	}
	return password.Verify(plain, *hash)
}
