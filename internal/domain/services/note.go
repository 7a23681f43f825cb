package services

import (
	"context"

	"linkarbox/internal/domain/models"
)

// NoteTarget identifies the file a note belongs to. Clients address files
// through the architect who shared them.
type NoteTarget struct {
	CloudProvider models.CloudProvider `json:"cloud_provider"`
	CloudFileID   string               `json:"cloud_file_id"`
	FileName      string               `json:"file_name"`
	FilePath      *string              `json:"file_path,omitempty"`
	MimeType      *string              `json:"mime_type,omitempty"`
}

// Viewer is the authenticated caller of a notes operation
type Viewer struct {
	UserID string
	Role   models.UserRole
}

// NoteService manages notes on registered files
type NoteService interface {
	CreateNote(ctx context.Context, viewer Viewer, target *NoteTarget, content string) (*models.Note, error)
	// ListNotes returns the file's notes oldest first; unregistered files have none
	ListNotes(ctx context.Context, viewer Viewer, cloudFileID string) ([]models.Note, error)
	MarkRead(ctx context.Context, viewer Viewer, noteID string) error
	// MarkAllRead is called when the notes panel opens. Repeated calls are safe.
	MarkAllRead(ctx context.Context, viewer Viewer, cloudFileID string) error
	UnreadCount(ctx context.Context, viewer Viewer, cloudFileID string) (int, error)
	UpdateNote(ctx context.Context, viewer Viewer, noteID, content string) (*models.Note, error)
	DeleteNote(ctx context.Context, viewer Viewer, noteID string) error
	// UnreadMap counts unread notes per cloud file id, limited to cloudFileIDs when given
	UnreadMap(ctx context.Context, viewer Viewer, cloudFileIDs []string) (map[string]int, error)
}
