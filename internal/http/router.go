// Package http arma el router, el server y las métricas de la API.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/dropDatabas3/authkit/internal/http/handlers"
	mw "github.com/dropDatabas3/authkit/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/authkit/internal/jwt"
	"github.com/dropDatabas3/authkit/internal/metrics"
)

// RouterDeps contiene los handlers y el issuer para los gates de auth.
type RouterDeps struct {
	Issuer *jwtx.Issuer

	Auth       *handlers.AuthHandler
	EmailFlows *handlers.EmailFlowsHandler
	// External es opcional: nil cuando no hay provider configurado.
	External   *handlers.ExternalHandler
	Me         *handlers.MeHandler
	MFA        *handlers.MFAHandler
	AdminUsers *handlers.AdminUsersHandler
	Health     *handlers.HealthHandler

	// Metrics es el handler de /metrics. Nil no publica el endpoint.
	Metrics http.Handler
}

// NewRouter arma el árbol de rutas completo.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		withRequestMetrics,
	)

	// Sin autenticación.
	deps.Health.Register(r)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	deps.Auth.Register(r)
	deps.EmailFlows.Register(r)
	if deps.External != nil {
		deps.External.Register(r)
	}

	// Autenticadas.
	r.Group(func(g chi.Router) {
		g.Use(mw.RequireAuth(deps.Issuer))
		deps.Me.Register(g)
		deps.MFA.Register(g)

		g.Group(func(a chi.Router) {
			a.Use(mw.RequireRole(
				string(repository.RoleAdmin),
				string(repository.RoleSuperAdmin),
			))
			deps.AdminUsers.Register(a)
		})
	})

	return r
}

// withRequestMetrics observa cada request contra el patrón de ruta de
// chi (no la URL cruda) para mantener la cardinalidad acotada.
func withRequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &metricsRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		metrics.ObserveRequest(r.Method, pattern, rec.status, time.Since(start))
	})
}

type metricsRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (m *metricsRecorder) WriteHeader(code int) {
	if m.wroteHeader {
		return
	}
	m.status = code
	m.wroteHeader = true
	m.ResponseWriter.WriteHeader(code)
}

func (m *metricsRecorder) Write(b []byte) (int, error) {
	if !m.wroteHeader {
		m.status = http.StatusOK
		m.wroteHeader = true
	}
	return m.ResponseWriter.Write(b)
}
