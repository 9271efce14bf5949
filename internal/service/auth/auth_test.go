package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authkit/internal/cache"
	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/jwt"
	"github.com/dropDatabas3/authkit/internal/security/totp"
	"github.com/dropDatabas3/authkit/internal/service/auth"
	"github.com/dropDatabas3/authkit/internal/store/memory"
)

// mailSpy captura los tokens que viajarían por correo.
type mailSpy struct {
	mu          sync.Mutex
	verifyTo    []string
	verifyToks  []string
	resetToks   []string
	failVerify  bool
}

func (m *mailSpy) SendVerification(to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failVerify {
		return assert.AnError
	}
	m.verifyTo = append(m.verifyTo, to)
	m.verifyToks = append(m.verifyToks, token)
	return nil
}

func (m *mailSpy) SendPasswordReset(_, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetToks = append(m.resetToks, token)
	return nil
}

type fixture struct {
	svc   auth.Service
	store *memory.Store
	mail  *mailSpy
	now   time.Time
	mu    sync.Mutex
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		mail: &mailSpy{},
		now:  time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
	}
	f.store = memory.New().WithClock(f.clock)

	iss, err := jwt.New("http://test.local", "", 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	f.svc = auth.New(auth.Deps{
		Accounts: f.store.Accounts(),
		Sessions: f.store.Sessions(),
		Issuer:   iss,
		Cache:    cache.NewMemory(""),
		Mailer:   f.mail,
		ResetTTL: time.Hour,
		Now:      f.clock,
	})
	return f
}

// register + verify deja una cuenta lista para login.
func (f *fixture) signup(t *testing.T, email, pass string) string {
	t.Helper()
	res, err := f.svc.Register(context.Background(), auth.RegisterInput{
		Email: email, Password: pass, FirstName: "Ana",
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyEmail(context.Background(), res.VerifyToken))
	return res.Account.ID
}

func TestRegister_LoginRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, auth.RegisterInput{
		Email: "Ana@Example.com", Password: "correcthorse", FirstName: "Ana", LastName: "García",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", res.Account.Email)
	assert.False(t, res.Account.EmailVerified)
	assert.NotEmpty(t, res.VerifyToken)
	assert.Equal(t, []string{"ana@example.com"}, f.mail.verifyTo)

	// Sin verificar no hay login.
	_, _, err = f.svc.Login(ctx, "ana@example.com", "correcthorse", "")
	assert.ErrorIs(t, err, auth.ErrEmailNotVerified)

	require.NoError(t, f.svc.VerifyEmail(ctx, res.VerifyToken))

	acc, pair, err := f.svc.Login(ctx, "ana@example.com", "correcthorse", "")
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, acc.ID)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	got, err := f.store.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLogin)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, auth.RegisterInput{Email: "a@b.com", Password: "correcthorse"})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, auth.RegisterInput{Email: "A@B.com", Password: "otherpassword"})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestRegister_WeakPassword(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), auth.RegisterInput{Email: "a@b.com", Password: "corto"})
	assert.ErrorIs(t, err, auth.ErrWeakPassword)
}

func TestRegister_SMTPFailureDoesNotRollback(t *testing.T) {
	f := newFixture(t)
	f.mail.failVerify = true

	res, err := f.svc.Register(context.Background(), auth.RegisterInput{Email: "a@b.com", Password: "correcthorse"})
	require.NoError(t, err)
	assert.NotNil(t, res.Account)
}

func TestVerifyEmail_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, auth.RegisterInput{Email: "a@b.com", Password: "correcthorse"})
	require.NoError(t, err)

	require.NoError(t, f.svc.VerifyEmail(ctx, res.VerifyToken))
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, res.VerifyToken), auth.ErrInvalidToken)
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "inventado"), auth.ErrInvalidToken)
}

func TestLogin_CredentialFailuresIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com", "correcthorse")

	_, _, errWrongPass := f.svc.Login(ctx, "a@b.com", "incorrecta!", "")
	_, _, errNoAccount := f.svc.Login(ctx, "nadie@b.com", "incorrecta!", "")

	assert.ErrorIs(t, errWrongPass, auth.ErrInvalidCredentials)
	assert.ErrorIs(t, errNoAccount, auth.ErrInvalidCredentials)
	assert.Equal(t, errWrongPass, errNoAccount)
}

func TestLogin_DisabledAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.signup(t, "a@b.com", "correcthorse")

	inactive := false
	_, err := f.store.Update(ctx, id, repository.UpdateAccountInput{Active: &inactive})
	require.NoError(t, err)

	_, _, err = f.svc.Login(ctx, "a@b.com", "correcthorse", "")
	assert.ErrorIs(t, err, auth.ErrAccountDisabled)
}

func TestRefresh_RotationInvalidatesOldToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com", "correcthorse")

	_, pair, err := f.svc.Login(ctx, "a@b.com", "correcthorse", "")
	require.NoError(t, err)

	next, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// El token viejo ya fue consumido.
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefresh)

	// El nuevo sigue vigente.
	_, err = f.svc.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_ConcurrentExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com", "correcthorse")

	_, pair, err := f.svc.Login(ctx, "a@b.com", "correcthorse", "")
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, auth.ErrInvalidRefresh)
		}
	}
	assert.Equal(t, 1, wins, "exactamente una rotación concurrente debe ganar")
}

func TestRefresh_GarbageToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Refresh(context.Background(), "ni-siquiera-un-jwt")
	assert.ErrorIs(t, err, auth.ErrInvalidRefresh)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com", "correcthorse")

	_, pair, err := f.svc.Login(ctx, "a@b.com", "correcthorse", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, "desconocido"))

	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefresh)
}

func TestForgotPassword_EnumerationHygiene(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com", "correcthorse")

	tok, err := f.svc.ForgotPassword(ctx, "a@b.com")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	// Email desconocido: mismo resultado externo, sin error.
	tok, err = f.svc.ForgotPassword(ctx, "nadie@b.com")
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Len(t, f.mail.resetToks, 1)
}

func TestResetPassword_FullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com", "correcthorse")

	// Sesión viva que debe morir con el reset.
	_, pair, err := f.svc.Login(ctx, "a@b.com", "correcthorse", "")
	require.NoError(t, err)

	tok, err := f.svc.ForgotPassword(ctx, "a@b.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetPassword(ctx, tok, "nuevaclave123"))

	_, _, err = f.svc.Login(ctx, "a@b.com", "correcthorse", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = f.svc.Login(ctx, "a@b.com", "nuevaclave123", "")
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefresh)

	// El token de reset es single-use.
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, tok, "otraclave456"), auth.ErrInvalidToken)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com", "correcthorse")

	tok, err := f.svc.ForgotPassword(ctx, "a@b.com")
	require.NoError(t, err)

	f.advance(2 * time.Hour)

	err = f.svc.ResetPassword(ctx, tok, "nuevaclave123")
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestChangePassword_RevokesAllSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.signup(t, "a@b.com", "correcthorse")

	_, s1, err := f.svc.Login(ctx, "a@b.com", "correcthorse", "")
	require.NoError(t, err)
	_, s2, err := f.svc.Login(ctx, "a@b.com", "correcthorse", "")
	require.NoError(t, err)

	assert.ErrorIs(t,
		f.svc.ChangePassword(ctx, id, "incorrecta!", "nuevaclave123"),
		auth.ErrInvalidCredentials)

	require.NoError(t, f.svc.ChangePassword(ctx, id, "correcthorse", "nuevaclave123"))

	// Las dos sesiones, incluida la que pidió el cambio, quedan muertas.
	_, err = f.svc.Refresh(ctx, s1.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefresh)
	_, err = f.svc.Refresh(ctx, s2.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidRefresh)

	_, _, err = f.svc.Login(ctx, "a@b.com", "nuevaclave123", "")
	require.NoError(t, err)
}

func TestTwoFactor_EnrollmentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.signup(t, "a@b.com", "correcthorse")

	enroll, err := f.svc.Enable2FA(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, enroll.Secret)
	assert.Contains(t, enroll.OTPAuthURL, "otpauth://totp/")

	// Staged, no persistido: el login sigue sin pedir código.
	acc, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, acc.TOTPEnabled)
	assert.Nil(t, acc.TOTPSecret)

	// Código incorrecto no habilita nada.
	assert.ErrorIs(t, f.svc.Verify2FA(ctx, id, "000000"), auth.ErrTOTPInvalid)

	code, err := totp.Code(enroll.Secret, f.clock())
	require.NoError(t, err)
	require.NoError(t, f.svc.Verify2FA(ctx, id, code))

	acc, err = f.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, acc.TOTPEnabled)
	require.NotNil(t, acc.TOTPSecret)
	assert.Equal(t, enroll.Secret, *acc.TOTPSecret)

	// Con 2FA activo el login exige código.
	_, _, err = f.svc.Login(ctx, "a@b.com", "correcthorse", "")
	assert.ErrorIs(t, err, auth.ErrTOTPRequired)

	_, _, err = f.svc.Login(ctx, "a@b.com", "correcthorse", "123456")
	assert.ErrorIs(t, err, auth.ErrTOTPInvalid)

	code, err = totp.Code(enroll.Secret, f.clock())
	require.NoError(t, err)
	_, pair, err := f.svc.Login(ctx, "a@b.com", "correcthorse", code)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestTwoFactor_VerifyWithoutPending(t *testing.T) {
	f := newFixture(t)
	id := f.signup(t, "a@b.com", "correcthorse")

	err := f.svc.Verify2FA(context.Background(), id, "123456")
	assert.ErrorIs(t, err, auth.ErrTOTPNotPending)
}

func TestTwoFactor_Disable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.signup(t, "a@b.com", "correcthorse")

	enroll, err := f.svc.Enable2FA(ctx, id)
	require.NoError(t, err)
	code, err := totp.Code(enroll.Secret, f.clock())
	require.NoError(t, err)
	require.NoError(t, f.svc.Verify2FA(ctx, id, code))

	// Re-habilitar estando activo es error.
	_, err = f.svc.Enable2FA(ctx, id)
	assert.ErrorIs(t, err, auth.ErrTOTPAlreadyEnabled)

	// Apagar exige el password vigente.
	assert.ErrorIs(t, f.svc.Disable2FA(ctx, id, "incorrecta!"), auth.ErrInvalidCredentials)
	require.NoError(t, f.svc.Disable2FA(ctx, id, "correcthorse"))

	_, _, err = f.svc.Login(ctx, "a@b.com", "correcthorse", "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Disable2FA(ctx, id, "correcthorse"), auth.ErrTOTPNotEnabled)
}

func TestLoginExternal_CreatesVerifiedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acc, pair, err := f.svc.LoginExternal(ctx, auth.ExternalIdentity{
		Subject: "google|123", Email: "Ext@Example.com", FirstName: "Ext",
	})
	require.NoError(t, err)
	assert.Equal(t, "ext@example.com", acc.Email)
	assert.True(t, acc.EmailVerified)
	assert.Nil(t, acc.PasswordHash)
	assert.NotEmpty(t, pair.RefreshToken)

	// La cuenta es solo-externa: el login por password nunca pasa.
	_, _, err = f.svc.Login(ctx, "ext@example.com", "", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	// Segundo login con el mismo subject reutiliza la cuenta.
	again, _, err := f.svc.LoginExternal(ctx, auth.ExternalIdentity{
		Subject: "google|123", Email: "ext@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, acc.ID, again.ID)

	// Una cuenta sin password no puede enrolar 2FA.
	_, err = f.svc.Enable2FA(ctx, acc.ID)
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
}

func TestLoginExternal_LinksExistingAccountByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, auth.RegisterInput{Email: "a@b.com", Password: "correcthorse"})
	require.NoError(t, err)
	// Aún sin verificar: el aval del proveedor externo alcanza.

	acc, _, err := f.svc.LoginExternal(ctx, auth.ExternalIdentity{
		Subject: "google|999", Email: "a@b.com",
	})
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, acc.ID)
	require.NotNil(t, acc.ExternalID)
	assert.Equal(t, "google|999", *acc.ExternalID)
	assert.True(t, acc.EmailVerified)

	// El password local sigue funcionando después del vínculo.
	_, _, err = f.svc.Login(ctx, "a@b.com", "correcthorse", "")
	require.NoError(t, err)
}

func TestProfile_GetAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.signup(t, "a@b.com", "correcthorse")

	acc, err := f.svc.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ana", acc.FirstName)

	first := "Anita"
	acc, err = f.svc.UpdateProfile(ctx, id, &first, nil)
	require.NoError(t, err)
	assert.Equal(t, "Anita", acc.FirstName)

	_, err = f.svc.GetProfile(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}
