package repositories

import (
	"context"

	"linkarbox/internal/domain/models"
)

// FileRegistryRepository resolves provider file ids to registry rows
type FileRegistryRepository interface {
	// GetByCloudID returns domain.ErrNotFound when the file was never registered
	GetByCloudID(ctx context.Context, architectID, cloudFileID string) (*models.FileRegistry, error)
	GetByID(ctx context.Context, id string) (*models.FileRegistry, error)
	// GetOrCreate inserts the row if missing and returns the stored one
	GetOrCreate(ctx context.Context, reg *models.FileRegistry) (*models.FileRegistry, error)
}

// NoteRepository defines data access for file notes
type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id string) (*models.Note, error)
	// ListByRegistry returns notes oldest first with author names joined
	ListByRegistry(ctx context.Context, registryID string) ([]models.Note, error)
	MarkRead(ctx context.Context, id string) error
	// MarkAllRead flips every unread note of the file; returns rows changed
	MarkAllRead(ctx context.Context, registryID string) (int64, error)
	// UnreadCount counts unread notes not written by viewerID
	UnreadCount(ctx context.Context, registryID, viewerID string) (int, error)
	// UnreadCountMap counts unread notes per cloud file id for an architect's registry
	UnreadCountMap(ctx context.Context, architectID, viewerID string) (map[string]int, error)
	UpdateContent(ctx context.Context, id, content string) (*models.Note, error)
	Delete(ctx context.Context, id string) error
}
