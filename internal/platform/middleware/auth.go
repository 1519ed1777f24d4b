package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "nexus/pkg/domain"
	"nexus/pkg/requestcontext"
)

// Claims represents what the token validator extracts from an access token.
type Claims struct {
	UserID       id.UserID
	Role         id.Role
	DepartmentID id.DepartmentID // zero unless the user is an officer
}

// TokenValidator validates an access token and returns its claims. The
// implementation also consults the revocation list, hence the context.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

// RequireAuth authenticates the bearer token, stores the caller's identity in
// the request context, and keeps the raw token available for pass-through
// delegation.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			ctx = requestcontext.WithRole(ctx, claims.Role)
			ctx = requestcontext.WithBearerToken(ctx, token)
			if !claims.DepartmentID.IsNil() {
				ctx = requestcontext.WithDepartmentID(ctx, claims.DepartmentID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a subtree to one role. It must run after RequireAuth.
func RequireRole(role id.Role, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Role(ctx) != role {
				logger.WarnContext(ctx, "forbidden - wrong role",
					"required_role", role,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
