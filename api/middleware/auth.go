package middleware

import (
	"context"
	"net/http"

	"github.com/acctbay/storefront-backend/api/responses"
	"github.com/acctbay/storefront-backend/api/validators"
	"github.com/acctbay/storefront-backend/internal/auth"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
	"github.com/acctbay/storefront-backend/pkg/logger"
)

type sessionResolver interface {
	SessionFromToken(ctx context.Context, token string) (*auth.Session, error)
}

// Auth validates a bearer token and seeds the request context with the
// resolved session. Requests without valid credentials are rejected.
func Auth(resolver sessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := validators.BearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "missing credentials"))
				return
			}

			sess, err := resolver.SessionFromToken(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithSession(r.Context(), sess)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id": sess.UserID.String(),
					"role":    string(sess.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
