package middlewares

import (
	"fmt"
	"net/http"
	"strconv"

	apperr "github.com/dropDatabas3/authkit/internal/http/errors"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
	"github.com/dropDatabas3/authkit/internal/rate"
)

// KeyFunc deriva la key de rate limit de un request.
type KeyFunc func(r *http.Request) string

// IPKey agrupa por IP del cliente con un prefijo por endpoint.
func IPKey(prefix string) KeyFunc {
	return func(r *http.Request) string {
		return fmt.Sprintf("%s:%s", prefix, ClientIP(r))
	}
}

// WithRateLimit corta con 429 cuando la key agotó la ventana. Un error
// del limiter deja pasar el request: preferimos degradar el límite a
// voltear logins por un Redis caído.
func WithRateLimit(limiter rate.Limiter, key KeyFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Allow(r.Context(), key(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter error", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
				apperr.Write(w, apperr.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
