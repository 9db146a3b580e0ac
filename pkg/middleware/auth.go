package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/VaibhavChawla151003/youtube-backend/pkg/errors"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/httputil"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/logger"
)

type contextKeyType string

const (
	userIDKey contextKeyType = "user_id"
	claimsKey contextKeyType = "claims"
)

// AccessTokenCookie is the cookie the access token is read from first.
const AccessTokenCookie = "accessToken"

// Claims is the identity extracted from a valid access token.
type Claims struct {
	UserID   string
	Email    string
	Username string
	FullName string
}

// TokenValidator validates an access token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// Auth rejects requests without a valid access token. The token is taken from
// the accessToken cookie, then from an "Authorization: Bearer" header.
// On success the user id and claims are placed in the request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("unauthorized request"), nil)
				return
			}

			claims, err := validate(token)
			if err != nil || claims == nil || claims.UserID == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid access token"), nil)
				return
			}

			ctx := WithClaims(r.Context(), claims)
			ctx = logger.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithClaims stores claims in ctx. Exposed for handler tests.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, userIDKey, claims.UserID)
}

// UserIDFromContext extracts the authenticated user id from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// ClaimsFromContext returns the claims stored by Auth, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}
