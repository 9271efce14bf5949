package handlers

import (
	"time"

	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/service/auth"
)

// AccountResponse es la vista pública de una cuenta. Nunca incluye
// password_hash ni el secreto TOTP.
type AccountResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Role          string     `json:"role"`
	Active        bool       `json:"active"`
	EmailVerified bool       `json:"email_verified"`
	TOTPEnabled   bool       `json:"totp_enabled"`
	External      bool       `json:"external"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toAccountResponse(a *repository.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Role:          string(a.Role),
		Active:        a.Active,
		EmailVerified: a.EmailVerified,
		TOTPEnabled:   a.TOTPEnabled,
		External:      a.ExternalID != nil,
		LastLogin:     a.LastLogin,
		CreatedAt:     a.CreatedAt,
	}
}

// TokenResponse es el par emitido en login y refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func toTokenResponse(p *auth.TokenPair, now time.Time) *TokenResponse {
	return &TokenResponse{
		AccessToken:  p.AccessToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int64(p.AccessExpiresAt.Sub(now).Seconds()),
		RefreshToken: p.RefreshToken,
	}
}
