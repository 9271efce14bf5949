// Package metrics define los collectors Prometheus del servicio.
// Los helpers son nil-safe: sin Register previo son no-ops, así los
// tests no necesitan un registry.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	loginsTotal         *prometheus.CounterVec
	tokenRotationsTotal *prometheus.CounterVec
	sessionsRevoked     *prometheus.CounterVec
)

// Register inicializa los collectors y devuelve el handler para
// /metrics. Idempotente: registrar dos veces no duplica collectors.
func Register(registry prometheus.Registerer) http.Handler {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	once.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		loginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Logins por resultado",
		}, []string{"result"}) // ok|credentials|disabled|unverified|totp|error

		tokenRotationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_rotations_total",
			Help: "Rotaciones de refresh token por resultado",
		}, []string{"result"}) // ok|rejected

		sessionsRevoked = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sessions_revoked_total",
			Help: "Sesiones revocadas por motivo",
		}, []string{"reason"}) // logout|password_change|gc

		registry.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			loginsTotal,
			tokenRotationsTotal,
			sessionsRevoked,
		)
	})

	return promhttp.Handler()
}

// ObserveRequest registra una request terminada. path debe ser el
// patrón de la ruta, no la URL cruda, para acotar la cardinalidad.
func ObserveRequest(method, path string, status int, dur time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(dur.Seconds())
}

// CountLogin registra el resultado de un intento de login.
func CountLogin(result string) {
	if loginsTotal != nil {
		loginsTotal.WithLabelValues(result).Inc()
	}
}

// CountRotation registra el resultado de una rotación de refresh.
func CountRotation(result string) {
	if tokenRotationsTotal != nil {
		tokenRotationsTotal.WithLabelValues(result).Inc()
	}
}

// CountRevoked suma sesiones revocadas por motivo.
func CountRevoked(reason string, n int) {
	if sessionsRevoked != nil && n > 0 {
		sessionsRevoked.WithLabelValues(reason).Add(float64(n))
	}
}
