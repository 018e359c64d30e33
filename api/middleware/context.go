package middleware

import (
	"context"

	"github.com/acctbay/storefront-backend/internal/auth"
)

type contextKey string

const ctxSession contextKey = "session"

// SessionFromContext returns the authenticated session attached by the Auth
// middleware, or nil when the request is anonymous.
func SessionFromContext(ctx context.Context) *auth.Session {
	if ctx == nil {
		return nil
	}
	if sess, ok := ctx.Value(ctxSession).(*auth.Session); ok {
		return sess
	}
	return nil
}

// WithSession injects the session into the context for downstream handlers.
func WithSession(ctx context.Context, sess *auth.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}
