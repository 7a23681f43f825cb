package repositories

import (
	"context"

	"linkarbox/internal/domain/models"
)

// CloudConnectionRepository persists provider tokens and keep-connected preferences
type CloudConnectionRepository interface {
	// Get returns the connection row for a user and provider.
	// Returns domain.ErrNotFound when no token is cached.
	Get(ctx context.Context, userID string, provider models.CloudProvider) (*models.CloudConnection, error)

	// Upsert creates or replaces the row keyed by (user_id, provider)
	Upsert(ctx context.Context, conn *models.CloudConnection) error

	// UpdateToken stores a refreshed token without touching the preference.
	// An empty refresh token keeps the stored one.
	UpdateToken(ctx context.Context, conn *models.CloudConnection) error

	// SetKeepConnected updates the auto-reconnect preference.
	// Returns domain.ErrNotFound when no token is cached.
	SetKeepConnected(ctx context.Context, userID string, provider models.CloudProvider, keep bool) error

	// Delete removes the cached token and preference. Idempotent.
	Delete(ctx context.Context, userID string, provider models.CloudProvider) error
}
