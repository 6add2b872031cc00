package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/assetflow/backend/internal/domain"
)

type contextKey string

const claimsKey contextKey = "auth.claims"

// ClaimsFrom extracts the verified claims injected by Middleware. The
// second return is false on unauthenticated requests.
func ClaimsFrom(ctx context.Context) (*domain.UserClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*domain.UserClaims)
	return claims, ok
}

// WithClaims injects claims into a context. Exposed for handler tests.
func WithClaims(ctx context.Context, claims *domain.UserClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Middleware verifies the Bearer token and injects the claims. Requests
// without a valid token are rejected with 401 before reaching handlers.
func (s *Service) Middleware(onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				onError(w, r, domain.ErrUnauthorized("missing bearer token"))
				return
			}
			claims, err := s.Verify(token)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
