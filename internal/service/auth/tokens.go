package auth

import (
	"context"

	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/security/token"
)

// issuePair emite access + refresh y registra el refresh en el
// repositorio de sesiones. El refresh no es válido hasta que el
// registro existe.
func (s *service) issuePair(ctx context.Context, acc *repository.Account, rotatedFrom *string) (*TokenPair, error) {
	access, accessExp, err := s.deps.Issuer.IssueAccess(acc.ID, string(acc.Role))
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.deps.Issuer.IssueRefresh(acc.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.deps.Sessions.Register(ctx, repository.CreateSessionInput{
		AccountID:   acc.ID,
		TokenHash:   token.Hash(refresh),
		ExpiresAt:   refreshExp,
		RotatedFrom: rotatedFrom,
	}); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		TokenType:        "Bearer",
	}, nil
}

// Refresh rota un refresh token: consume el viejo y emite un par nuevo.
// El consumo es un update condicional en el repositorio, así que bajo
// concurrencia exactamente un caller gana; el resto recibe
// ErrInvalidRefresh. Un token consumido jamás se reactiva, incluso si
// la emisión del par nuevo falla después.
func (s *service) Refresh(ctx context.Context, rawRefresh string) (*TokenPair, error) {
	log := logger.From(ctx)

	// 1. Firma y expiración del JWT
	claims, err := s.deps.Issuer.ParseRefresh(rawRefresh)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	// 2. Consumo atómico en el registro
	sess, err := s.deps.Sessions.ConsumeForRotation(ctx, token.Hash(rawRefresh))
	if err != nil {
		if repository.IsNotFound(err) {
			log.Info("refresh rejected", logger.String("reason", "unknown_or_consumed"))
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if sess.AccountID != claims.Subject {
		// Firma válida pero registro de otra cuenta: no debería pasar.
		log.Error("refresh account mismatch",
			logger.SessionID(sess.ID), logger.AccountID(claims.Subject))
		return nil, ErrInvalidRefresh
	}

	// 3. La cuenta tiene que seguir activa
	acc, err := s.deps.Accounts.GetByID(ctx, sess.AccountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if !acc.Active {
		return nil, ErrAccountDisabled
	}

	pair, err := s.issuePair(ctx, acc, &sess.ID)
	if err != nil {
		return nil, err
	}

	log.Info("refresh rotated", logger.AccountID(acc.ID), logger.SessionID(sess.ID))
	return pair, nil
}

// Logout revoca la sesión del refresh token. Es idempotente: token
// desconocido, ya revocado o expirado terminan igual en éxito.
func (s *service) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	// La firma no importa para revocar: si el hash está registrado, se
	// apaga; si no, no había nada que apagar.
	sess, err := s.deps.Sessions.GetByHash(ctx, token.Hash(rawRefresh))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}
	if err := s.deps.Sessions.Revoke(ctx, sess.ID); err != nil {
		return err
	}
	logger.From(ctx).Info("logout", logger.AccountID(sess.AccountID), logger.SessionID(sess.ID))
	return nil
}
