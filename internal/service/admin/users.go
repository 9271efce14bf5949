// Package admin implementa la administración de cuentas. Todas las
// operaciones asumen que el caller ya pasó el gate de rol en el
// middleware HTTP; acá solo viven las reglas de negocio.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/authkit/internal/audit"
	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
)

// Errores del servicio.
var (
	ErrNotFound     = errors.New("admin: account not found")
	ErrForbidden    = errors.New("admin: operation not allowed")
	ErrInvalidInput = errors.New("admin: invalid input")
)

// UsersService define la administración de cuentas.
type UsersService interface {
	List(ctx context.Context, f repository.ListAccountsFilter) ([]repository.Account, int, error)
	Get(ctx context.Context, id string) (*repository.Account, error)

	// Update aplica cambios administrativos. actorID es quien ejecuta:
	// nadie se cambia el rol ni se desactiva a sí mismo.
	Update(ctx context.Context, actorID, id string, in repository.UpdateAccountInput) (*repository.Account, error)

	// Delete borra la cuenta y cascadea sus sesiones. Nadie se borra a
	// sí mismo.
	Delete(ctx context.Context, actorID, id string) error
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Accounts repository.AccountRepository
	Sessions repository.SessionRepository
}

type usersService struct {
	deps Deps
}

// NewUsersService crea el servicio.
func NewUsersService(deps Deps) UsersService {
	return &usersService{deps: deps}
}

func (s *usersService) List(ctx context.Context, f repository.ListAccountsFilter) ([]repository.Account, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return s.deps.Accounts.List(ctx, f)
}

func (s *usersService) Get(ctx context.Context, id string) (*repository.Account, error) {
	acc, err := s.deps.Accounts.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return acc, nil
}

func (s *usersService) Update(ctx context.Context, actorID, id string, in repository.UpdateAccountInput) (*repository.Account, error) {
	log := logger.From(ctx)

	if in.Role != nil && !in.Role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, *in.Role)
	}
	if actorID == id && (in.Role != nil || in.Active != nil) {
		return nil, fmt.Errorf("%w: cannot change own role or status", ErrForbidden)
	}

	acc, err := s.deps.Accounts.Update(ctx, id, in)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Desactivar una cuenta mata sus sesiones en el acto, no cuando
	// venza el próximo refresh.
	if in.Active != nil && !*in.Active {
		if n, err := s.deps.Sessions.RevokeAllByAccount(ctx, id); err != nil {
			log.Warn("revoke sessions on deactivate failed", logger.Err(err), logger.AccountID(id))
		} else if n > 0 {
			log.Info("sessions revoked on deactivate", logger.AccountID(id), logger.Count(n))
		}
	}

	audit.Event(ctx, "admin.user_updated", logger.AccountID(id), audit.Actor(actorID))
	return acc, nil
}

func (s *usersService) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return fmt.Errorf("%w: cannot delete own account", ErrForbidden)
	}
	if err := s.deps.Accounts.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	audit.Event(ctx, "admin.user_deleted", logger.AccountID(id), audit.Actor(actorID))
	return nil
}
