package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authkit/internal/cache"
	httpx "github.com/dropDatabas3/authkit/internal/http"
	"github.com/dropDatabas3/authkit/internal/http/handlers"
	jwtx "github.com/dropDatabas3/authkit/internal/jwt"
	"github.com/dropDatabas3/authkit/internal/rate"
	"github.com/dropDatabas3/authkit/internal/service/admin"
	"github.com/dropDatabas3/authkit/internal/service/auth"
	"github.com/dropDatabas3/authkit/internal/store/memory"
)

type api struct {
	srv      *httptest.Server
	store    *memory.Store
	provider *fakeProvider
}

func newAPI(t *testing.T, loginLimiter rate.Limiter) *api {
	t.Helper()

	st := memory.New()
	iss, err := jwtx.New("http://test.local", "", 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)
	cch := cache.NewMemory("")

	svc := auth.New(auth.Deps{
		Accounts: st.Accounts(),
		Sessions: st.Sessions(),
		Issuer:   iss,
		Cache:    cch,
	})
	adminSvc := admin.NewUsersService(admin.Deps{Accounts: st.Accounts(), Sessions: st.Sessions()})
	provider := &fakeProvider{}

	router := httpx.NewRouter(httpx.RouterDeps{
		Issuer:     iss,
		Auth:       &handlers.AuthHandler{Svc: svc, LoginLimiter: loginLimiter, EchoTokens: true},
		EmailFlows: &handlers.EmailFlowsHandler{Svc: svc, EchoTokens: true},
		External:   &handlers.ExternalHandler{Svc: svc, Provider: provider, Cache: cch},
		Me:         &handlers.MeHandler{Svc: svc},
		MFA:        &handlers.MFAHandler{Svc: svc},
		AdminUsers: &handlers.AdminUsersHandler{Svc: adminSvc},
		Health:     &handlers.HealthHandler{},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &api{srv: srv, store: st, provider: provider}
}

func (a *api) post(t *testing.T, path, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, a.srv.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (a *api) get(t *testing.T, path, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.srv.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

// signup registra y verifica una cuenta, y devuelve el token pair del login.
func (a *api) signupAndLogin(t *testing.T, email, pass string) (access, refresh string) {
	t.Helper()

	resp, body := a.post(t, "/v1/auth/register", "", map[string]string{
		"email": email, "password": pass, "first_name": "Ana",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "register: %v", body)

	resp, _ = a.post(t, "/v1/auth/verify-email", "", map[string]string{
		"token": body["verify_token"].(string),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = a.post(t, "/v1/auth/login", "", map[string]string{
		"email": email, "password": pass,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login: %v", body)

	tokens := body["tokens"].(map[string]any)
	return tokens["access_token"].(string), tokens["refresh_token"].(string)
}

func TestAPI_RegisterVerifyLoginMe(t *testing.T) {
	a := newAPI(t, nil)

	access, _ := a.signupAndLogin(t, "ana@example.com", "correcthorse")

	resp, body := a.get(t, "/v1/me", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ana@example.com", body["email"])
	// La vista pública jamás incluye material sensible.
	assert.NotContains(t, body, "password_hash")
	assert.NotContains(t, body, "totp_secret")

	// Sin token no hay perfil.
	resp, body = a.get(t, "/v1/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_MISSING", body["code"])
}

func TestAPI_LoginBeforeVerifyRejected(t *testing.T) {
	a := newAPI(t, nil)

	resp, _ := a.post(t, "/v1/auth/register", "", map[string]string{
		"email": "ana@example.com", "password": "correcthorse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := a.post(t, "/v1/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "correcthorse",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", body["code"])
}

func TestAPI_RefreshRotation(t *testing.T) {
	a := newAPI(t, nil)
	_, refresh := a.signupAndLogin(t, "ana@example.com", "correcthorse")

	resp, body := a.post(t, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	next := body["refresh_token"].(string)
	assert.NotEqual(t, refresh, next)

	// El viejo quedó consumido.
	resp, body = a.post(t, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_REFRESH", body["code"])

	// Logout del nuevo y es idempotente.
	resp, _ = a.post(t, "/v1/auth/logout", "", map[string]string{"refresh_token": next})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = a.post(t, "/v1/auth/logout", "", map[string]string{"refresh_token": next})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_ForgotAndReset(t *testing.T) {
	a := newAPI(t, nil)
	a.signupAndLogin(t, "ana@example.com", "correcthorse")

	resp, body := a.post(t, "/v1/auth/forgot-password", "", map[string]string{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reset := body["reset_token"].(string)

	// Email desconocido: mismo mensaje, sin token.
	resp, body = a.post(t, "/v1/auth/forgot-password", "", map[string]string{"email": "nadie@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "reset_token")

	resp, _ = a.post(t, "/v1/auth/reset-password", "", map[string]string{
		"token": reset, "new_password": "nuevaclave123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = a.post(t, "/v1/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "nuevaclave123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "login con password nuevo: %v", body)
}

func TestAPI_AdminGate(t *testing.T) {
	a := newAPI(t, nil)
	access, _ := a.signupAndLogin(t, "user@example.com", "correcthorse")

	// Rol user no pasa el gate.
	resp, body := a.get(t, "/v1/admin/users", access)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["code"])
}

func TestAPI_StrictJSON(t *testing.T) {
	a := newAPI(t, nil)

	resp, body := a.post(t, "/v1/auth/login", "", map[string]string{
		"email": "a@b.com", "password": "x", "sorpresa": "no",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_JSON", body["code"])
}

func TestAPI_LoginRateLimit(t *testing.T) {
	a := newAPI(t, rate.NewMemoryLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		resp, _ := a.post(t, "/v1/auth/login", "", map[string]string{
			"email": "nadie@example.com", "password": "incorrecta",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := a.post(t, "/v1/auth/login", "", map[string]string{
		"email": "nadie@example.com", "password": "incorrecta",
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestAPI_Healthz(t *testing.T) {
	a := newAPI(t, nil)
	resp, body := a.get(t, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
