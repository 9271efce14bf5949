package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authkit/internal/metrics"
	apperr "github.com/dropDatabas3/authkit/internal/http/errors"
	mw "github.com/dropDatabas3/authkit/internal/http/middlewares"
	"github.com/dropDatabas3/authkit/internal/service/auth"
)

// MeHandler expone el perfil del usuario autenticado y las operaciones
// sobre la propia cuenta (password, 2FA). Todas las rutas asumen
// RequireAuth aplicado por el router.
type MeHandler struct {
	Svc auth.Service
}

func (h *MeHandler) Register(r chi.Router) {
	r.Get("/v1/me", h.get)
	r.Patch("/v1/me", h.update)
	r.Post("/v1/me/change-password", h.changePassword)
}

func (h *MeHandler) get(w http.ResponseWriter, r *http.Request) {
	acc, err := h.Svc.GetProfile(r.Context(), mw.GetAccountID(r.Context()))
	if err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

func (h *MeHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !readStrictJSON(w, r, &req) {
		return
	}
	if req.FirstName == nil && req.LastName == nil {
		apperr.Write(w, apperr.ErrValidation.WithDetail("nada que actualizar"))
		return
	}

	acc, err := h.Svc.UpdateProfile(r.Context(), mw.GetAccountID(r.Context()), req.FirstName, req.LastName)
	if err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *MeHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !readStrictJSON(w, r, &req) {
		return
	}

	err := h.Svc.ChangePassword(r.Context(), mw.GetAccountID(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}
	metrics.CountRevoked("password_change", 1)

	// Todas las sesiones quedaron revocadas, la actual incluida.
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "password actualizado; iniciá sesión de nuevo",
	})
}
