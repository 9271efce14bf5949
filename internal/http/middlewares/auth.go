package middlewares

import (
	"net/http"
	"strings"

	apperr "github.com/dropDatabas3/authkit/internal/http/errors"
	jwtx "github.com/dropDatabas3/authkit/internal/jwt"
)

// RequireAuth valida Authorization: Bearer <JWT de acceso> y deja
// account id y rol en el contexto. Sin token o con token inválido
// responde 401.
func RequireAuth(issuer *jwtx.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				apperr.Write(w, apperr.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := issuer.ParseAccess(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				apperr.Write(w, apperr.ErrTokenInvalid)
				return
			}

			ctx := setAccountID(r.Context(), claims.Subject)
			ctx = setRole(ctx, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole exige que el rol del token esté en la lista. Usar después
// de RequireAuth.
func RequireRole(roles ...string) Middleware {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetRole(r.Context())
			if role == "" {
				apperr.Write(w, apperr.ErrUnauthorized)
				return
			}
			if _, ok := allowed[role]; !ok {
				apperr.Write(w, apperr.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
