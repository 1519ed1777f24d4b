// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware and consumed by services. Keeping this package
// free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	userID := requestcontext.UserID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithUserID(ctx, userID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "nexus/pkg/domain"
)

type (
	userIDKey       struct{}
	roleKey         struct{}
	departmentIDKey struct{}
	bearerTokenKey  struct{}
	requestIDKey    struct{}
	requestTimeKey  struct{}
)

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// Role retrieves the authenticated user's role from the context.
func Role(ctx context.Context) id.Role {
	if role, ok := ctx.Value(roleKey{}).(id.Role); ok {
		return role
	}
	return ""
}

// WithRole injects a role into the context.
func WithRole(ctx context.Context, role id.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// DepartmentID retrieves the officer's assigned department from the context.
// Zero for citizens and admins.
func DepartmentID(ctx context.Context) id.DepartmentID {
	if deptID, ok := ctx.Value(departmentIDKey{}).(id.DepartmentID); ok {
		return deptID
	}
	return id.DepartmentID{}
}

// WithDepartmentID injects an officer's department into the context.
func WithDepartmentID(ctx context.Context, deptID id.DepartmentID) context.Context {
	return context.WithValue(ctx, departmentIDKey{}, deptID)
}

// BearerToken retrieves the caller's raw bearer credential. The delegation
// client forwards it to department endpoints unchanged.
func BearerToken(ctx context.Context) string {
	if token, ok := ctx.Value(bearerTokenKey{}).(string); ok {
		return token
	}
	return ""
}

// WithBearerToken injects the caller's raw bearer credential.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. All operations within a
// single request observe the same "now".
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
