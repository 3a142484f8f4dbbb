package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/robonav/server/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// AuthMiddleware verifies the Bearer session token and attaches its claims to
// the request context. A missing or malformed header is 401; a token that fails
// verification or has expired is 403.
func AuthMiddleware(jwtService *auth.JWTService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			claims, err := jwtService.VerifySession(tokenString)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrSessionExpired) {
					msg = "session expired"
				}
				logger.DebugContext(r.Context(), "session rejected", "path", r.URL.Path, "error", err)
				respondWithError(w, http.StatusForbidden, msg)
				return
			}

			ctx := WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithClaims returns a copy of ctx carrying claims
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims returns the session claims attached by AuthMiddleware
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok && c != nil
}

// GetAccountID extracts the authenticated account ID from context
func GetAccountID(ctx context.Context) (uuid.UUID, bool) {
	c, ok := GetClaims(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return c.AccountID, true
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	_ = json.NewEncoder(w).Encode(response)
}
