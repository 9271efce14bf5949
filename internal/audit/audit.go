// Package audit escribe el trail de eventos de negocio: altas, logins,
// cambios de password y de segundo factor. Sale por el logger con el
// name "audit" para poder enrutar el trail a un sink propio.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authkit/internal/observability/logger"
)

// Event registra un evento. Los campos identifican al sujeto; nunca
// incluir material sensible (passwords, tokens, secretos TOTP).
func Event(ctx context.Context, name string, fields ...zap.Field) {
	logger.From(ctx).Named("audit").Info(name, fields...)
}

// Email etiqueta el email enmascarado: el trail identifica sin
// exponer la dirección completa.
func Email(addr string) zap.Field { return zap.String("email", MaskEmail(addr)) }

// Actor etiqueta a quien ejecuta la acción cuando no es el sujeto.
func Actor(id string) zap.Field { return zap.String("actor_id", id) }
