package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperr "github.com/dropDatabas3/authkit/internal/http/errors"
	"github.com/dropDatabas3/authkit/internal/observability/logger"
)

// HealthHandler expone liveness y readiness.
type HealthHandler struct {
	// Checks de dependencias para readyz. Nil se omite.
	CheckStore func(ctx context.Context) error
	CheckCache func(ctx context.Context) error
}

func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
}

func (h *HealthHandler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]func(context.Context) error{
		"store": h.CheckStore,
		"cache": h.CheckCache,
	}
	status := make(map[string]string, len(checks))
	healthy := true
	for name, check := range checks {
		if check == nil {
			continue
		}
		if err := check(ctx); err != nil {
			logger.From(r.Context()).Warn("readiness check failed",
				logger.Component(name), logger.Err(err))
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		apperr.Write(w, apperr.ErrServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
