package middlewares

import "context"

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyAccountID
	ctxKeyRole
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

// GetRequestID retorna el request id del contexto, o "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

func setAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyAccountID, id)
}

// GetAccountID retorna el id de la cuenta autenticada, o "".
func GetAccountID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyAccountID).(string)
	return v
}

func setRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

// GetRole retorna el rol del access token, o "".
func GetRole(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRole).(string)
	return v
}
