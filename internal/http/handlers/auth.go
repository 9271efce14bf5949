package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apperr "github.com/dropDatabas3/authkit/internal/http/errors"
	mw "github.com/dropDatabas3/authkit/internal/http/middlewares"
	"github.com/dropDatabas3/authkit/internal/metrics"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/rate"
	"github.com/dropDatabas3/authkit/internal/service/auth"
)

// AuthHandler expone registro, login y ciclo de vida de tokens.
type AuthHandler struct {
	Svc auth.Service

	// LoginLimiter acota intentos de login por IP. Nil desactiva.
	LoginLimiter rate.Limiter

	// EchoTokens hace que register/forgot devuelvan el token crudo en
	// la respuesta. SOLO para desarrollo sin SMTP.
	EchoTokens bool
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/v1/auth/register", h.register)
	r.With(mw.WithRateLimit(h.LoginLimiter, mw.IPKey("login"))).
		Post("/v1/auth/login", h.login)
	r.Post("/v1/auth/refresh", h.refresh)
	r.Post("/v1/auth/logout", h.logout)
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type registerResponse struct {
	Account *AccountResponse `json:"account"`
	Message string           `json:"message"`
	// Solo en modo EchoTokens.
	VerifyToken string `json:"verify_token,omitempty"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !readStrictJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		apperr.Write(w, mapServiceError(err))
		return
	}

	out := registerResponse{
		Account: toAccountResponse(res.Account),
		Message: "cuenta creada; revisá tu correo para verificarla",
	}
	if h.EchoTokens {
		out.VerifyToken = res.VerifyToken
	}
	writeJSON(w, http.StatusCreated, out)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type loginResponse struct {
	Account *AccountResponse `json:"account"`
	Tokens  *TokenResponse   `json:"tokens"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !readStrictJSON(w, r, &req) {
		return
	}

	acc, pair, err := h.Svc.Login(r.Context(), req.Email, req.Password, strings.TrimSpace(req.TOTPCode))
	if err != nil {
		metrics.CountLogin(loginResult(err))
		apperr.Write(w, mapServiceError(err))
		return
	}
	metrics.CountLogin("ok")

	writeJSON(w, http.StatusOK, loginResponse{
		Account: toAccountResponse(acc),
		Tokens:  toTokenResponse(pair, time.Now()),
	})
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "credentials"
	case errors.Is(err, auth.ErrAccountDisabled):
		return "disabled"
	case errors.Is(err, auth.ErrEmailNotVerified):
		return "unverified"
	case errors.Is(err, auth.ErrTOTPRequired), errors.Is(err, auth.ErrTOTPInvalid):
		return "totp"
	}
	return "error"
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !readStrictJSON(w, r, &req) {
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		apperr.Write(w, apperr.ErrValidation.WithDetail("refresh_token es obligatorio"))
		return
	}

	pair, err := h.Svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		metrics.CountRotation("rejected")
		apperr.Write(w, mapServiceError(err))
		return
	}
	metrics.CountRotation("ok")

	writeJSON(w, http.StatusOK, toTokenResponse(pair, time.Now()))
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !readStrictJSON(w, r, &req) {
		return
	}

	if err := h.Svc.Logout(r.Context(), strings.TrimSpace(req.RefreshToken)); err != nil {
		logger.From(r.Context()).Error("logout failed", logger.Err(err))
		apperr.Write(w, mapServiceError(err))
		return
	}
	metrics.CountRevoked("logout", 1)

	writeJSON(w, http.StatusOK, map[string]string{"message": "sesión cerrada"})
}
