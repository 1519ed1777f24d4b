package testutil

import (
	"net/http"

	id "nexus/pkg/domain"
	"nexus/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the userID is not a valid UUID, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}

// WithRole adds a role to the request context.
func WithRole(req *http.Request, role id.Role) *http.Request {
	return req.WithContext(requestcontext.WithRole(req.Context(), role))
}

// WithAuth simulates a fully authenticated request: user ID, role, and
// optionally the officer's department. Invalid IDs are silently ignored.
func WithAuth(req *http.Request, userID string, role id.Role, departmentID string) *http.Request {
	ctx := req.Context()
	if parsed, err := id.ParseUserID(userID); err == nil {
		ctx = requestcontext.WithUserID(ctx, parsed)
	}
	ctx = requestcontext.WithRole(ctx, role)
	if departmentID != "" {
		if parsed, err := id.ParseDepartmentID(departmentID); err == nil {
			ctx = requestcontext.WithDepartmentID(ctx, parsed)
		}
	}
	return req.WithContext(ctx)
}

// WithBearerToken stores the raw access token in the request context the
// way the auth middleware does for pass-through delegation.
func WithBearerToken(req *http.Request, token string) *http.Request {
	return req.WithContext(requestcontext.WithBearerToken(req.Context(), token))
}
