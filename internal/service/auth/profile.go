package auth

import (
	"context"

	"github.com/dropDatabas3/authkit/internal/domain/repository"
)

// GetProfile retorna la cuenta del usuario autenticado.
func (s *service) GetProfile(ctx context.Context, accountID string) (*repository.Account, error) {
	acc, err := s.deps.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return acc, nil
}

// UpdateProfile actualiza los campos editables por el propio usuario.
// Punteros nil = sin cambio.
func (s *service) UpdateProfile(ctx context.Context, accountID string, firstName, lastName *string) (*repository.Account, error) {
	acc, err := s.deps.Accounts.UpdateProfile(ctx, accountID, firstName, lastName)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return acc, nil
}
