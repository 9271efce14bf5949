package repository

import (
	"context"
	"time"
)

// Role define el rol de una cuenta.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleUser       Role = "user"
)

// Valid reporta si r es un rol conocido.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// IsAdmin reporta si el rol habilita operaciones administrativas.
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Account representa una cuenta del sistema.
// El email es la identidad única; PasswordHash es nil para cuentas que
// solo ingresan por proveedor externo.
type Account struct {
	ID            string
	Email         string
	PasswordHash  *string // argon2id PHC; nil = cuenta solo-externa
	FirstName     string
	LastName      string
	Role          Role
	Active        bool
	EmailVerified bool

	// Tokens single-use (se guarda el hash, nunca el token crudo).
	VerifyTokenHash *string
	ResetTokenHash  *string
	ResetExpiresAt  *time.Time

	// Segundo factor.
	TOTPSecret  *string // base32; solo seteado tras confirmación
	TOTPEnabled bool

	// Identidad externa (subject del provider OAuth). Única cuando presente.
	ExternalID *string

	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateAccountInput contiene los datos para crear una cuenta.
type CreateAccountInput struct {
	Email           string
	PasswordHash    *string
	FirstName       string
	LastName        string
	Role            Role
	EmailVerified   bool
	VerifyTokenHash *string
	ExternalID      *string
}

// UpdateAccountInput contiene campos actualizables por un admin.
// Punteros nil = sin cambio.
type UpdateAccountInput struct {
	FirstName *string
	LastName  *string
	Role      *Role
	Active    *bool
}

// ListAccountsFilter define filtros y paginación para listar cuentas.
type ListAccountsFilter struct {
	Search string // substring sobre email / nombre
	Role   *Role
	Active *bool
	Page   int // 1-based
	Limit  int // default 10, max 100
}

// AccountRepository define operaciones sobre cuentas.
//
// Las mutaciones son read-modify-write a nivel de una sola fila; los
// consumos de tokens single-use son updates condicionales para que el
// segundo consumidor concurrente observe ErrNotFound.
type AccountRepository interface {
	// Create crea una cuenta. Retorna ErrConflict si email o external_id
	// ya existen.
	Create(ctx context.Context, in CreateAccountInput) (*Account, error)

	// GetByID busca una cuenta por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByEmail busca una cuenta por email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByExternalID busca una cuenta por subject externo.
	GetByExternalID(ctx context.Context, externalID string) (*Account, error)

	// List retorna cuentas con filtros y el total para paginación.
	List(ctx context.Context, f ListAccountsFilter) ([]Account, int, error)

	// Update aplica cambios administrativos (nombre, rol, estado).
	Update(ctx context.Context, id string, in UpdateAccountInput) (*Account, error)

	// UpdateProfile actualiza los campos editables por el propio usuario.
	UpdateProfile(ctx context.Context, id string, firstName, lastName *string) (*Account, error)

	// Delete elimina la cuenta. El borrado cascadea la invalidación de
	// todas sus sesiones (FK o equivalente).
	Delete(ctx context.Context, id string) error

	// ConsumeVerifyToken marca el email como verificado y limpia el token
	// en un solo paso condicional. ErrNotFound si el hash no matchea
	// ninguna cuenta (token desconocido o ya consumido).
	ConsumeVerifyToken(ctx context.Context, tokenHash string) (*Account, error)

	// SetResetToken instala un reset token (hash) con su expiración,
	// pisando cualquier token anterior.
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error

	// ConsumeResetToken setea el nuevo hash de password y limpia el reset
	// token, condicional a que el hash matchee y no haya expirado.
	// ErrNotFound si no matchea; ErrTokenExpired si matchea pero venció.
	ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) (*Account, error)

	// UpdatePasswordHash reemplaza el digest de la cuenta.
	UpdatePasswordHash(ctx context.Context, id, newHash string) error

	// EnableTOTP persiste el secreto confirmado y marca enabled.
	EnableTOTP(ctx context.Context, id, secretB32 string) error

	// DisableTOTP limpia secreto y flag.
	DisableTOTP(ctx context.Context, id string) error

	// LinkExternal asocia un subject externo a una cuenta existente y
	// marca el email como verificado. ErrConflict si el subject ya está
	// vinculado a otra cuenta.
	LinkExternal(ctx context.Context, id, externalID string) error

	// SetLastLogin actualiza el timestamp de último login.
	SetLastLogin(ctx context.Context, id string, at time.Time) error

	// CheckPassword verifica plaintext contra el digest. No toca la base;
	// un hash nil siempre retorna false (cuentas solo-externas no pueden
	// autenticarse por password).
	CheckPassword(hash *string, plain string) bool
}
