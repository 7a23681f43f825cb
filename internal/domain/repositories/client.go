package repositories

import (
	"context"

	"linkarbox/internal/domain/models"
)

// ClientRepository defines data access for an architect's clients.
// All reads except the invite lookups are scoped to the owning architect.
type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id, architectID string) (*models.Client, error)
	// GetByInviteToken returns a pending client by invite token
	GetByInviteToken(ctx context.Context, token string) (*models.Client, error)
	// GetByUserID returns the client record bound to a registered auth user
	GetByUserID(ctx context.Context, userID string) (*models.Client, error)
	List(ctx context.Context, architectID string) ([]models.Client, error)
	Update(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, id, architectID string) error
	CountByStatus(ctx context.Context, architectID string) (map[models.ClientStatus]int, error)
}
