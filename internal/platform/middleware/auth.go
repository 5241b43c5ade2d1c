package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"donation-gateway/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the user ID it carries.
type TokenValidator interface {
	ValidateToken(tokenString string) (userID string, err error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// authenticated user ID into the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := bearerUserID(r, validator)
			if !ok {
				logger.WarnContext(r.Context(), "rejected unauthenticated request",
					"request_id", requestcontext.RequestID(r.Context()),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthenticated"}`))
				return
			}
			ctx := requestcontext.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth injects the user ID when a valid bearer token is present but
// lets guests through. The individual-donation flow accepts both.
func OptionalAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := bearerUserID(r, validator); ok {
				r = r.WithContext(requestcontext.WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerUserID(r *http.Request, validator TokenValidator) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	userID, err := validator.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil || userID == "" {
		return "", false
	}
	return userID, true
}
