package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(t *testing.T, s *memory.Store, email string) *repository.Account {
	t.Helper()
	hash := "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	a, err := s.Accounts().Create(context.Background(), repository.CreateAccountInput{
		Email:        email,
		PasswordHash: &hash,
	})
	require.NoError(t, err)
	return a
}

func TestCreate_DuplicateEmail(t *testing.T) {
	s := memory.New()
	newAccount(t, s, "a@x.com")

	_, err := s.Accounts().Create(context.Background(), repository.CreateAccountInput{Email: "A@X.com"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	// No quedó cuenta parcial.
	_, total, err := s.Accounts().List(context.Background(), repository.ListAccountsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestCreate_DuplicateExternalID(t *testing.T) {
	s := memory.New()
	ext := "google|123"
	_, err := s.Accounts().Create(context.Background(), repository.CreateAccountInput{Email: "a@x.com", ExternalID: &ext})
	require.NoError(t, err)

	_, err = s.Accounts().Create(context.Background(), repository.CreateAccountInput{Email: "b@x.com", ExternalID: &ext})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestConsumeVerifyToken_SingleUse(t *testing.T) {
	s := memory.New()
	hash := "vhash"
	_, err := s.Accounts().Create(context.Background(), repository.CreateAccountInput{
		Email:           "a@x.com",
		VerifyTokenHash: &hash,
	})
	require.NoError(t, err)

	a, err := s.Accounts().ConsumeVerifyToken(context.Background(), "vhash")
	require.NoError(t, err)
	assert.True(t, a.EmailVerified)
	assert.Nil(t, a.VerifyTokenHash)

	// Segundo consumo: el token ya no existe.
	_, err = s.Accounts().ConsumeVerifyToken(context.Background(), "vhash")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConsumeResetToken_Expired(t *testing.T) {
	now := time.Now()
	s := memory.New().WithClock(func() time.Time { return now })
	a := newAccount(t, s, "a@x.com")

	require.NoError(t, s.Accounts().SetResetToken(context.Background(), a.ID, "rhash", now.Add(time.Hour)))

	// Avanzar el reloj más allá de la expiración.
	now = now.Add(2 * time.Hour)
	_, err := s.Accounts().ConsumeResetToken(context.Background(), "rhash", "newhash")
	assert.ErrorIs(t, err, repository.ErrTokenExpired)
}

func TestRotation_ExactlyOnce(t *testing.T) {
	s := memory.New()
	a := newAccount(t, s, "a@x.com")
	_, err := s.Sessions().Register(context.Background(), repository.CreateSessionInput{
		AccountID: a.ID,
		TokenHash: "h1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	const rotators = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, rotators)
	for i := 0; i < rotators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Sessions().ConsumeForRotation(context.Background(), "h1"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	n := 0
	for range wins {
		n++
	}
	assert.Equal(t, 1, n, "exactamente una rotación debe ganar")
}

func TestConsumeForRotation_ExpiredSession(t *testing.T) {
	s := memory.New()
	a := newAccount(t, s, "a@x.com")
	_, err := s.Sessions().Register(context.Background(), repository.CreateSessionInput{
		AccountID: a.ID,
		TokenHash: "h1",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	_, err = s.Sessions().ConsumeForRotation(context.Background(), "h1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRevokeAllByAccount(t *testing.T) {
	s := memory.New()
	a := newAccount(t, s, "a@x.com")
	b := newAccount(t, s, "b@x.com")
	ctx := context.Background()

	for _, h := range []string{"h1", "h2"} {
		_, err := s.Sessions().Register(ctx, repository.CreateSessionInput{
			AccountID: a.ID, TokenHash: h, ExpiresAt: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)
	}
	_, err := s.Sessions().Register(ctx, repository.CreateSessionInput{
		AccountID: b.ID, TokenHash: "h3", ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	n, err := s.Sessions().RevokeAllByAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Las sesiones de a ya no rotan; la de b sí.
	_, err = s.Sessions().ConsumeForRotation(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Sessions().ConsumeForRotation(ctx, "h3")
	assert.NoError(t, err)
}

func TestRevoke_Idempotent(t *testing.T) {
	s := memory.New()
	a := newAccount(t, s, "a@x.com")
	ctx := context.Background()
	sess, err := s.Sessions().Register(ctx, repository.CreateSessionInput{
		AccountID: a.ID, TokenHash: "h1", ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, s.Sessions().Revoke(ctx, sess.ID))
	require.NoError(t, s.Sessions().Revoke(ctx, sess.ID)) // no-op, no error
}

func TestDelete_CascadesSessions(t *testing.T) {
	s := memory.New()
	a := newAccount(t, s, "a@x.com")
	ctx := context.Background()
	_, err := s.Sessions().Register(ctx, repository.CreateSessionInput{
		AccountID: a.ID, TokenHash: "h1", ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, s.Accounts().Delete(ctx, a.ID))

	_, err = s.Sessions().ConsumeForRotation(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckPassword_NilHash(t *testing.T) {
	s := memory.New()
	assert.False(t, s.Accounts().CheckPassword(nil, "cualquiera"))
	empty := ""
	assert.False(t, s.Accounts().CheckPassword(&empty, "cualquiera"))
}

func TestDeleteExpired(t *testing.T) {
	s := memory.New()
	a := newAccount(t, s, "a@x.com")
	ctx := context.Background()

	_, err := s.Sessions().Register(ctx, repository.CreateSessionInput{
		AccountID: a.ID, TokenHash: "old", ExpiresAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	_, err = s.Sessions().Register(ctx, repository.CreateSessionInput{
		AccountID: a.ID, TokenHash: "fresh", ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	n, err := s.Sessions().DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Sessions().GetByHash(ctx, "fresh")
	assert.NoError(t, err)
}
