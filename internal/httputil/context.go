package httputil

import (
	"context"
	"net/http"

	"linkarbox/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	userIDKey contextKey = "userID"
	roleKey   contextKey = "role"
)

// WithUser adds the authenticated user id and role to the request context
func WithUser(r *http.Request, userID string, role models.UserRole) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	ctx = context.WithValue(ctx, roleKey, role)
	return r.WithContext(ctx)
}

// GetUserID retrieves userID from context, returns empty string if not found
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// GetRole retrieves the user's role from context. Unauthenticated requests
// have no role.
func GetRole(r *http.Request) models.UserRole {
	role, _ := r.Context().Value(roleKey).(models.UserRole)
	return role
}
