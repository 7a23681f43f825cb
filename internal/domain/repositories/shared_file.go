package repositories

import (
	"context"

	"linkarbox/internal/domain/models"
)

// SharedFileRepository defines data access for file shares
type SharedFileRepository interface {
	// Create inserts a share. Returns *domain.ConflictError if the file is
	// already shared with the client.
	Create(ctx context.Context, share *models.SharedFile) error
	GetByID(ctx context.Context, id, architectID string) (*models.SharedFile, error)
	Delete(ctx context.Context, id, architectID string) error
	DeleteForClient(ctx context.Context, architectID, clientID, cloudFileID string) error
	ListByArchitect(ctx context.Context, architectID string) ([]models.SharedFile, error)
	ListForClient(ctx context.Context, clientID string) ([]models.SharedFile, error)
	// ClientsForFile returns the ids of clients the file is shared with
	ClientsForFile(ctx context.Context, architectID, cloudFileID string) ([]string, error)
	// SharedWithMap batch-resolves client ids keyed by cloud file id
	SharedWithMap(ctx context.Context, architectID string, cloudFileIDs []string) (map[string][]string, error)
	Exists(ctx context.Context, clientID, cloudFileID string) (bool, error)
	UpdatePermission(ctx context.Context, id, architectID string, permission models.SharePermission) (*models.SharedFile, error)
}
