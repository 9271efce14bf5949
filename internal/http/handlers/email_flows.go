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

// EmailFlowsHandler expone verificación de email y recuperación de
// password. Son los endpoints sin autenticación que tocan tokens
// single-use.
type EmailFlowsHandler struct {
	Svc auth.Service

	// ForgotLimiter acota pedidos de reset por IP. Nil desactiva.
	ForgotLimiter rate.Limiter

	// EchoTokens expone el reset token en la respuesta (solo dev).
	EchoTokens bool
}

func (h *EmailFlowsHandler) Register(r chi.Router) {
	r.Post("/v1/auth/verify-email", h.verifyEmail)
	r.With(mw.WithRateLimit(h.ForgotLimiter, mw.IPKey("forgot"))).
		Post("/v1/auth/forgot-password", h.forgotPassword)
	r.Post("/v1/auth/reset-password", h.resetPassword)
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *EmailFlowsHandler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !readStrictJSON(w, r, &req) {
		return
	}

	if err := h.Svc.VerifyEmail(r.Context(), strings.TrimSpace(req.Token)); err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "email verificado"})
}

type forgotRequest struct {
	Email string `json:"email"`
}

type forgotResponse struct {
	Message string `json:"message"`
	// Solo en modo EchoTokens y si la cuenta existe.
	ResetToken string `json:"reset_token,omitempty"`
}

// forgotPassword responde siempre el mismo mensaje, exista o no la
// cuenta.
func (h *EmailFlowsHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if !readStrictJSON(w, r, &req) {
		return
	}

	tok, err := h.Svc.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}

	out := forgotResponse{Message: "si el email existe, vas a recibir instrucciones"}
	if h.EchoTokens {
		out.ResetToken = tok
	}
	writeJSON(w, http.StatusOK, out)
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *EmailFlowsHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !readStrictJSON(w, r, &req) {
		return
	}

	if err := h.Svc.ResetPassword(r.Context(), strings.TrimSpace(req.Token), req.NewPassword); err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "password actualizado; iniciá sesión de nuevo",
	})
}
