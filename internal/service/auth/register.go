package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/authkit/internal/audit"
	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/security/password"
	"github.com/dropDatabas3/authkit/internal/security/token"
)

// Register da de alta una cuenta con rol user, sin verificar.
// El password se hashea antes de tocar el repositorio; el token de
// verificación se guarda hasheado y el crudo viaja por email.
func (s *service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	log := logger.From(ctx)

	// 1. Normalización y validación
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if ok, reasons := s.deps.Policy.Validate(in.Password); !ok {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(reasons, ", "))
	}

	// 2. Hash del password
	hash, err := password.Hash(password.Default, in.Password)
	if err != nil {
		log.Error("password hash failed", logger.Err(err))
		return nil, err
	}

	// 3. Token de verificación single-use
	verifyRaw, err := token.GenerateOpaque(32)
	if err != nil {
		return nil, err
	}
	verifyHash := token.Hash(verifyRaw)

	acc, err := s.deps.Accounts.Create(ctx, repository.CreateAccountInput{
		Email:           in.Email,
		PasswordHash:    &hash,
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Role:            repository.RoleUser,
		VerifyTokenHash: &verifyHash,
	})
	if err != nil {
		if repository.IsConflict(err) {
			return nil, ErrEmailTaken
		}
		log.Error("account create failed", logger.Err(err), logger.Email(in.Email))
		return nil, err
	}

	// 4. Correo de verificación. Un fallo de SMTP no revierte el alta;
	// el usuario puede pedir el reenvío.
	if s.deps.Mailer != nil {
		if err := s.deps.Mailer.SendVerification(acc.Email, verifyRaw); err != nil {
			log.Warn("verification email failed", logger.Err(err), logger.AccountID(acc.ID))
		}
	}

	audit.Event(ctx, "account.created", logger.AccountID(acc.ID), audit.Email(acc.Email))
	return &RegisterResult{Account: acc, VerifyToken: verifyRaw}, nil
}

// VerifyEmail consume un token de verificación. El consumo es
// condicional en el repositorio: el segundo intento con el mismo token
// recibe ErrInvalidToken.
func (s *service) VerifyEmail(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return fmt.Errorf("%w: token", ErrInvalidInput)
	}
	acc, err := s.deps.Accounts.ConsumeVerifyToken(ctx, token.Hash(rawToken))
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrInvalidToken
		}
		return err
	}
	logger.From(ctx).Info("email verified", logger.AccountID(acc.ID))
	return nil
}
