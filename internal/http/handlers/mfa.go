package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperr "github.com/dropDatabas3/authkit/internal/http/errors"
	mw "github.com/dropDatabas3/authkit/internal/http/middlewares"
	"github.com/dropDatabas3/authkit/internal/rate"
	"github.com/dropDatabas3/authkit/internal/service/auth"
)

// MFAHandler expone el enrolamiento TOTP. Rutas autenticadas.
type MFAHandler struct {
	Svc auth.Service

	// VerifyLimiter acota intentos de verificación por IP. Nil desactiva.
	VerifyLimiter rate.Limiter
}

func (h *MFAHandler) Register(r chi.Router) {
	r.Post("/v1/me/2fa/enable", h.enable)
	r.With(mw.WithRateLimit(h.VerifyLimiter, mw.IPKey("mfa"))).
		Post("/v1/me/2fa/verify", h.verify)
	r.Post("/v1/me/2fa/disable", h.disable)
}

type enrollResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	Message    string `json:"message"`
}

func (h *MFAHandler) enable(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.Enable2FA(r.Context(), mw.GetAccountID(r.Context()))
	if err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}
	writeJSON(w, http.StatusOK, enrollResponse{
		Secret:     res.Secret,
		OTPAuthURL: res.OTPAuthURL,
		Message:    "escaneá el QR y confirmá con un código",
	})
}

type codeRequest struct {
	Code string `json:"code"`
}

func (h *MFAHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !readStrictJSON(w, r, &req) {
		return
	}

	if err := h.Svc.Verify2FA(r.Context(), mw.GetAccountID(r.Context()), strings.TrimSpace(req.Code)); err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "segundo factor habilitado"})
}

type disableRequest struct {
	Password string `json:"password"`
}

func (h *MFAHandler) disable(w http.ResponseWriter, r *http.Request) {
	var req disableRequest
	if !readStrictJSON(w, r, &req) {
		return
	}

	if err := h.Svc.Disable2FA(r.Context(), mw.GetAccountID(r.Context()), req.Password); err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "segundo factor deshabilitado"})
}
