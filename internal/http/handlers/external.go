package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authkit/internal/cache"
	apperr "github.com/dropDatabas3/authkit/internal/http/errors"
	"github.com/dropDatabas3/authkit/internal/oauth/google"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/security/token"
	"github.com/dropDatabas3/authkit/internal/service/auth"
)

// OAuthProvider abstrae el proveedor de identidad externo.
type OAuthProvider interface {
	AuthURL(ctx context.Context, state, nonce string) (string, error)
	Identity(ctx context.Context, code, nonce string) (*google.Identity, error)
}

// ExternalHandler expone el login con proveedor externo. El flujo es
// en dos pasos: start entrega la URL de autorización y el callback
// canjea el code por una sesión local.
type ExternalHandler struct {
	Svc      auth.Service
	Provider OAuthProvider

	// Cache guarda state -> nonce entre start y callback.
	Cache cache.Client

	// StateTTL es la vida del state. Default 10m.
	StateTTL time.Duration
}

func (h *ExternalHandler) Register(r chi.Router) {
	r.Get("/v1/auth/external/google/start", h.start)
	r.Get("/v1/auth/external/google/callback", h.callback)
}

func stateKey(state string) string { return "oauth:state:" + state }

func (h *ExternalHandler) start(w http.ResponseWriter, r *http.Request) {
	state, err := token.GenerateOpaque(24)
	if err != nil {
		apperr.Write(w, apperr.ErrInternal.WithCause(err))
		return
	}
	nonce, err := token.GenerateOpaque(24)
	if err != nil {
		apperr.Write(w, apperr.ErrInternal.WithCause(err))
		return
	}

	ttl := h.StateTTL
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	if err := h.Cache.Set(r.Context(), stateKey(state), nonce, ttl); err != nil {
		apperr.Write(w, apperr.ErrInternal.WithCause(err))
		return
	}

	authURL, err := h.Provider.AuthURL(r.Context(), state, nonce)
	if err != nil {
		apperr.Write(w, apperr.ErrServiceUnavailable.WithCause(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth_url": authURL})
}

func (h *ExternalHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		apperr.Write(w, apperr.ErrValidation.WithDetail("code y state son obligatorios"))
		return
	}

	// El state es single-use: se consume acá, haya éxito o no después.
	nonce, err := h.Cache.Get(r.Context(), stateKey(state))
	if err != nil {
		if cache.IsNotFound(err) {
			apperr.Write(w, apperr.ErrUnauthorized.WithDetail("state desconocido o vencido"))
			return
		}
		apperr.Write(w, apperr.ErrInternal.WithCause(err))
		return
	}
	if err := h.Cache.Delete(r.Context(), stateKey(state)); err != nil {
		logger.From(r.Context()).Warn("oauth state delete failed", logger.Err(err))
	}

	id, err := h.Provider.Identity(r.Context(), code, nonce)
	if err != nil {
		logger.From(r.Context()).Warn("external identity rejected", logger.Err(err))
		apperr.Write(w, apperr.ErrUnauthorized.WithDetail("identidad externa inválida"))
		return
	}

	acc, pair, err := h.Svc.LoginExternal(r.Context(), auth.ExternalIdentity{
		Subject:   id.Subject,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	})
	if err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Account: toAccountResponse(acc),
		Tokens:  toTokenResponse(pair, time.Now()),
	})
}
