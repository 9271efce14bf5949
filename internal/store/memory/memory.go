// Package memory implementa los repositorios sobre maps en memoria.
// Se usa en desarrollo y en los tests de servicios; el driver canónico
// de producción es internal/store/pg.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/security/password"
	"github.com/google/uuid"
)

// Store implementa repository.AccountRepository y
// repository.SessionRepository. Un único mutex cubre ambas tablas: los
// consumos condicionales (rotación, tokens single-use) quedan atómicos
// por construcción.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*repository.Account // por ID
	sessions map[string]*repository.Session // por ID

	hashParams password.Params
	now        func() time.Time
}

// New crea un Store vacío.
func New() *Store {
	return &Store{
		accounts:   make(map[string]*repository.Account),
		sessions:   make(map[string]*repository.Session),
		hashParams: password.Default,
		now:        time.Now,
	}
}

// WithClock reemplaza el reloj (tests de expiración).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Accounts retorna la vista AccountRepository del store.
func (s *Store) Accounts() repository.AccountRepository { return s }

// Sessions retorna la vista SessionRepository del store.
func (s *Store) Sessions() repository.SessionRepository { return s }

// ─── AccountRepository ───

func (s *Store) Create(ctx context.Context, in repository.CreateAccountInput) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normEmail(in.Email)
	for _, a := range s.accounts {
		if a.Email == email {
			return nil, repository.ErrConflict
		}
		if in.ExternalID != nil && a.ExternalID != nil && *a.ExternalID == *in.ExternalID {
			return nil, repository.ErrConflict
		}
	}

	role := in.Role
	if role == "" {
		role = repository.RoleUser
	}
	now := s.now()
	a := &repository.Account{
		ID:              uuid.NewString(),
		Email:           email,
		PasswordHash:    in.PasswordHash,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Role:            role,
		Active:          true,
		EmailVerified:   in.EmailVerified,
		VerifyTokenHash: in.VerifyTokenHash,
		ExternalID:      in.ExternalID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.accounts[a.ID] = a
	return clone(a), nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(a), nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.findByEmail(email); a != nil {
		return clone(a), nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ExternalID != nil && *a.ExternalID == externalID {
			return clone(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) List(ctx context.Context, f repository.ListAccountsFilter) ([]repository.Account, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*repository.Account
	for _, a := range s.accounts {
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			if !strings.Contains(a.Email, q) &&
				!strings.Contains(strings.ToLower(a.FirstName), q) &&
				!strings.Contains(strings.ToLower(a.LastName), q) {
				continue
			}
		}
		if f.Role != nil && a.Role != *f.Role {
			continue
		}
		if f.Active != nil && a.Active != *f.Active {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	out := make([]repository.Account, 0, end-start)
	for _, a := range all[start:end] {
		out = append(out, *clone(a))
	}
	return out, total, nil
}

func (s *Store) Update(ctx context.Context, id string, in repository.UpdateAccountInput) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if in.FirstName != nil {
		a.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		a.LastName = *in.LastName
	}
	if in.Role != nil {
		a.Role = *in.Role
	}
	if in.Active != nil {
		a.Active = *in.Active
	}
	a.UpdatedAt = s.now()
	return clone(a), nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, firstName, lastName *string) (*repository.Account, error) {
	return s.Update(ctx, id, repository.UpdateAccountInput{FirstName: firstName, LastName: lastName})
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.accounts, id)
	// Cascade: invalidar todas las sesiones de la cuenta.
	now := s.now()
	for _, sess := range s.sessions {
		if sess.AccountID == id && sess.RevokedAt == nil {
			t := now
			sess.RevokedAt = &t
		}
	}
	return nil
}

func (s *Store) ConsumeVerifyToken(ctx context.Context, tokenHash string) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.VerifyTokenHash != nil && *a.VerifyTokenHash == tokenHash {
			a.EmailVerified = true
			a.VerifyTokenHash = nil
			a.UpdatedAt = s.now()
			return clone(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.ResetTokenHash = &tokenHash
	a.ResetExpiresAt = &expiresAt
	a.UpdatedAt = s.now()
	return nil
}

func (s *Store) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) (*repository.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ResetTokenHash == nil || *a.ResetTokenHash != tokenHash {
			continue
		}
		if a.ResetExpiresAt == nil || s.now().After(*a.ResetExpiresAt) {
			return nil, repository.ErrTokenExpired
		}
		a.PasswordHash = &newPasswordHash
		a.ResetTokenHash = nil
		a.ResetExpiresAt = nil
		a.UpdatedAt = s.now()
		return clone(a), nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = &newHash
	a.UpdatedAt = s.now()
	return nil
}

func (s *Store) EnableTOTP(ctx context.Context, id, secretB32 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.TOTPSecret = &secretB32
	a.TOTPEnabled = true
	a.UpdatedAt = s.now()
	return nil
}

func (s *Store) DisableTOTP(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.TOTPSecret = nil
	a.TOTPEnabled = false
	a.UpdatedAt = s.now()
	return nil
}

func (s *Store) LinkExternal(ctx context.Context, id, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID != id && a.ExternalID != nil && *a.ExternalID == externalID {
			return repository.ErrConflict
		}
	}
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.ExternalID = &externalID
	a.EmailVerified = true
	a.UpdatedAt = s.now()
	return nil
}

func (s *Store) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.LastLogin = &at
	return nil
}

func (s *Store) CheckPassword(hash *string, plain string) bool {
	if hash == nil || *hash == "" {
		return false
	}
	return password.Verify(plain, *hash)
}

// ─── SessionRepository ───

func (s *Store) Register(ctx context.Context, in repository.CreateSessionInput) (*repository.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &repository.Session{
		ID:          uuid.NewString(),
		AccountID:   in.AccountID,
		TokenHash:   in.TokenHash,
		ExpiresAt:   in.ExpiresAt,
		RotatedFrom: in.RotatedFrom,
		CreatedAt:   s.now(),
	}
	s.sessions[sess.ID] = sess
	c := *sess
	return &c, nil
}

func (s *Store) GetByHash(ctx context.Context, tokenHash string) (*repository.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.TokenHash == tokenHash {
			c := *sess
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ConsumeForRotation(ctx context.Context, tokenHash string) (*repository.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, sess := range s.sessions {
		if sess.TokenHash != tokenHash {
			continue
		}
		// Condición bajo el mismo lock: activa y no expirada. Un segundo
		// rotador concurrente del mismo token cae en ErrNotFound.
		if sess.RevokedAt != nil || !now.Before(sess.ExpiresAt) {
			return nil, repository.ErrNotFound
		}
		t := now
		sess.RevokedAt = &t
		c := *sess
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if sess.RevokedAt == nil {
		t := s.now()
		sess.RevokedAt = &t
	}
	return nil
}

func (s *Store) RevokeAllByAccount(ctx context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for _, sess := range s.sessions {
		if sess.AccountID == accountID && sess.RevokedAt == nil {
			t := now
			sess.RevokedAt = &t
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(before) || sess.RevokedAt != nil {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// ─── helpers ───

func (s *Store) findByEmail(email string) *repository.Account {
	email = normEmail(email)
	for _, a := range s.accounts {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func normEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func clone(a *repository.Account) *repository.Account {
	c := *a
	return &c
}
