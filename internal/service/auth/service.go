// Package auth implementa el flujo completo de cuentas: registro,
// verificación de email, login con segundo factor, rotación de refresh
// tokens y recuperación de password.
//
// Las reglas de orden importan: credencial primero, después estado de
// la cuenta, después email verificado, y recién ahí el gate TOTP. Un
// password incorrecto nunca revela si la cuenta existe o si tiene 2FA.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/authkit/internal/cache"
	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/jwt"
	"github.com/dropDatabas3/authkit/internal/security/password"
)

// Errores del servicio.
var (
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrAccountDisabled    = errors.New("auth: account disabled")
	ErrEmailNotVerified   = errors.New("auth: email not verified")
	ErrWeakPassword       = errors.New("auth: password does not meet policy")
	ErrInvalidToken       = errors.New("auth: invalid or consumed token")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrInvalidRefresh     = errors.New("auth: invalid refresh token")
	ErrTOTPRequired       = errors.New("auth: totp code required")
	ErrTOTPInvalid        = errors.New("auth: totp code invalid")
	ErrTOTPAlreadyEnabled = errors.New("auth: totp already enabled")
	ErrTOTPNotEnabled     = errors.New("auth: totp not enabled")
	ErrTOTPNotPending     = errors.New("auth: no pending totp enrollment")
	ErrNotFound           = errors.New("auth: account not found")
)

// TokenPair es el resultado de un login o una rotación.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	TokenType        string // siempre "Bearer"
}

// Mailer es el subconjunto de email.Mailer que el servicio necesita.
type Mailer interface {
	SendVerification(to, token string) error
	SendPasswordReset(to, token string) error
}

// TOTPConfig parametriza el segundo factor.
type TOTPConfig struct {
	Issuer      string        // label del otpauth URL
	WindowSteps int           // pasos de tolerancia hacia cada lado
	EnrollTTL   time.Duration // vida del secreto staged en cache
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Accounts repository.AccountRepository
	Sessions repository.SessionRepository
	Issuer   *jwt.Issuer
	Cache    cache.Client
	Mailer   Mailer
	Policy   password.Policy
	TOTP     TOTPConfig

	// ResetTTL es la vida del reset token. Default 1h.
	ResetTTL time.Duration

	// Now permite inyectar el reloj en tests. Default time.Now.
	Now func() time.Time
}

// Service define las operaciones del flujo de cuentas.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	VerifyEmail(ctx context.Context, rawToken string) error

	Login(ctx context.Context, email, plain, totpCode string) (*repository.Account, *TokenPair, error)
	LoginExternal(ctx context.Context, in ExternalIdentity) (*repository.Account, *TokenPair, error)
	Refresh(ctx context.Context, rawRefresh string) (*TokenPair, error)
	Logout(ctx context.Context, rawRefresh string) error

	ForgotPassword(ctx context.Context, email string) (resetToken string, err error)
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	ChangePassword(ctx context.Context, accountID, current, newPassword string) error

	Enable2FA(ctx context.Context, accountID string) (*EnrollResult, error)
	Verify2FA(ctx context.Context, accountID, code string) error
	Disable2FA(ctx context.Context, accountID, plain string) error

	GetProfile(ctx context.Context, accountID string) (*repository.Account, error)
	UpdateProfile(ctx context.Context, accountID string, firstName, lastName *string) (*repository.Account, error)
}

// RegisterInput son los datos de alta de una cuenta.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterResult retorna la cuenta creada y el token de verificación
// crudo. El token viaja por email; solo se expone al caller para los
// modos de desarrollo que lo echan en la respuesta.
type RegisterResult struct {
	Account     *repository.Account
	VerifyToken string
}

// ExternalIdentity es una identidad ya verificada por un proveedor
// externo. El intercambio OAuth ocurre fuera de este servicio.
type ExternalIdentity struct {
	Subject   string // subject estable del proveedor
	Email     string
	FirstName string
	LastName  string
}

// EnrollResult es el material de provisioning de un enrolamiento 2FA.
type EnrollResult struct {
	Secret     string // base32, para carga manual
	OTPAuthURL string // para el QR
}

type service struct {
	deps Deps
}

// New crea el servicio. Policy y TOTP reciben defaults si vienen vacíos.
func New(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Policy.MinLength == 0 {
		deps.Policy = password.DefaultPolicy
	}
	if deps.TOTP.WindowSteps == 0 {
		deps.TOTP.WindowSteps = 2
	}
	if deps.TOTP.EnrollTTL == 0 {
		deps.TOTP.EnrollTTL = 5 * time.Minute
	}
	if deps.TOTP.Issuer == "" {
		deps.TOTP.Issuer = "authkit"
	}
	if deps.ResetTTL == 0 {
		deps.ResetTTL = time.Hour
	}
	return &service{deps: deps}
}

func (s *service) now() time.Time { return s.deps.Now().UTC() }

const enrollKeyPrefix = "mfa:enroll:"

func enrollKey(accountID string) string { return enrollKeyPrefix + accountID }
