package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"linkarbox/internal/config"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/repositories"
	"linkarbox/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// noteService implements the NoteService interface
type noteService struct {
	registry repositories.FileRegistryRepository
	notes    repositories.NoteRepository
	clients  repositories.ClientRepository
	shares   repositories.SharedFileRepository
	logger   *slog.Logger
}

// NewNoteService creates a new note service
func NewNoteService(
	registry repositories.FileRegistryRepository,
	notes repositories.NoteRepository,
	clients repositories.ClientRepository,
	shares repositories.SharedFileRepository,
	logger *slog.Logger,
) services.NoteService {
	return &noteService{
		registry: registry,
		notes:    notes,
		clients:  clients,
		shares:   shares,
		logger:   logger,
	}
}

func validateContent(content string) error {
	if err := validation.Validate(content, validation.Required, validation.RuneLength(1, config.MaxNoteLength)); err != nil {
		return fmt.Errorf("%w: content %v", domain.ErrValidation, err)
	}
	return nil
}

// clientOf resolves the client record of a client viewer
func (s *noteService) clientOf(ctx context.Context, viewer services.Viewer) (*models.Client, error) {
	client, err := s.clients.GetByUserID(ctx, viewer.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %s is not a client: %w", viewer.UserID, domain.ErrForbidden)
		}
		return nil, err
	}
	return client, nil
}

// architectFor returns the architect whose registry holds cloudFileID for
// this viewer. Clients only reach files shared with them.
func (s *noteService) architectFor(ctx context.Context, viewer services.Viewer, cloudFileID string) (string, error) {
	switch viewer.Role {
	case models.RoleArchitect:
		return viewer.UserID, nil
	case models.RoleClient:
		client, err := s.clientOf(ctx, viewer)
		if err != nil {
			return "", err
		}
		ok, err := s.shares.Exists(ctx, client.ID, cloudFileID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("file %s: %w", cloudFileID, domain.ErrForbidden)
		}
		return client.ArchitectID, nil
	}
	return "", fmt.Errorf("role %q: %w", viewer.Role, domain.ErrForbidden)
}

// authorizeRegistry checks the viewer may see notes of a registry row
func (s *noteService) authorizeRegistry(ctx context.Context, viewer services.Viewer, reg *models.FileRegistry) error {
	architectID, err := s.architectFor(ctx, viewer, reg.CloudFileID)
	if err != nil {
		return err
	}
	if architectID != reg.ArchitectID {
		return fmt.Errorf("registry %s: %w", reg.ID, domain.ErrForbidden)
	}
	return nil
}

// lookup returns the registry row of a file, or nil when the file has never
// been registered
func (s *noteService) lookup(ctx context.Context, viewer services.Viewer, cloudFileID string) (*models.FileRegistry, error) {
	if strings.TrimSpace(cloudFileID) == "" {
		return nil, fmt.Errorf("%w: cloud_file_id is required", domain.ErrValidation)
	}

	architectID, err := s.architectFor(ctx, viewer, cloudFileID)
	if err != nil {
		return nil, err
	}

	reg, err := s.registry.GetByCloudID(ctx, architectID, cloudFileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return reg, nil
}

// CreateNote registers the file if needed and attaches a note to it
func (s *noteService) CreateNote(ctx context.Context, viewer services.Viewer, target *services.NoteTarget, content string) (*models.Note, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: target file is required", domain.ErrValidation)
	}
	content = strings.TrimSpace(content)
	if err := validateContent(content); err != nil {
		return nil, err
	}
	err := validation.ValidateStruct(target,
		validation.Field(&target.CloudProvider, validation.Required,
			validation.In(models.ProviderGoogle, models.ProviderDropbox)),
		validation.Field(&target.CloudFileID, validation.Required),
		validation.Field(&target.FileName, validation.Required),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	architectID, err := s.architectFor(ctx, viewer, target.CloudFileID)
	if err != nil {
		return nil, err
	}

	reg, err := s.registry.GetOrCreate(ctx, &models.FileRegistry{
		ArchitectID:   architectID,
		FileName:      target.FileName,
		FilePath:      target.FilePath,
		CloudProvider: target.CloudProvider,
		CloudFileID:   target.CloudFileID,
		MimeType:      target.MimeType,
	})
	if err != nil {
		return nil, err
	}

	note := &models.Note{
		FileRegistryID: reg.ID,
		AuthorID:       viewer.UserID,
		Content:        content,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}

	s.logger.Info("note created",
		"id", note.ID,
		"registry_id", reg.ID,
		"author_id", viewer.UserID,
	)

	// Re-read for the joined author name
	if stored, err := s.notes.GetByID(ctx, note.ID); err == nil {
		return stored, nil
	}
	note.AuthorName = models.UnknownAuthor
	return note, nil
}

// ListNotes returns the file's notes oldest first
func (s *noteService) ListNotes(ctx context.Context, viewer services.Viewer, cloudFileID string) ([]models.Note, error) {
	reg, err := s.lookup(ctx, viewer, cloudFileID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return []models.Note{}, nil
	}
	return s.notes.ListByRegistry(ctx, reg.ID)
}

// note loads a note and checks the viewer can see its file
func (s *noteService) note(ctx context.Context, viewer services.Viewer, noteID string) (*models.Note, error) {
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	reg, err := s.registry.GetByID(ctx, note.FileRegistryID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRegistry(ctx, viewer, reg); err != nil {
		return nil, err
	}
	return note, nil
}

// MarkRead flags one note as read
func (s *noteService) MarkRead(ctx context.Context, viewer services.Viewer, noteID string) error {
	if _, err := s.note(ctx, viewer, noteID); err != nil {
		return err
	}
	return s.notes.MarkRead(ctx, noteID)
}

// MarkAllRead flags every note of the file as read
func (s *noteService) MarkAllRead(ctx context.Context, viewer services.Viewer, cloudFileID string) error {
	reg, err := s.lookup(ctx, viewer, cloudFileID)
	if err != nil || reg == nil {
		return err
	}

	n, err := s.notes.MarkAllRead(ctx, reg.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Debug("notes marked read", "registry_id", reg.ID, "viewer_id", viewer.UserID, "count", n)
	}
	return nil
}

// UnreadCount counts the file's unread notes written by someone else
func (s *noteService) UnreadCount(ctx context.Context, viewer services.Viewer, cloudFileID string) (int, error) {
	reg, err := s.lookup(ctx, viewer, cloudFileID)
	if err != nil || reg == nil {
		return 0, err
	}
	return s.notes.UnreadCount(ctx, reg.ID, viewer.UserID)
}

// UpdateNote edits a note. Only its author may.
func (s *noteService) UpdateNote(ctx context.Context, viewer services.Viewer, noteID, content string) (*models.Note, error) {
	content = strings.TrimSpace(content)
	if err := validateContent(content); err != nil {
		return nil, err
	}

	note, err := s.note(ctx, viewer, noteID)
	if err != nil {
		return nil, err
	}
	if note.AuthorID != viewer.UserID {
		return nil, fmt.Errorf("note %s: %w", noteID, domain.ErrForbidden)
	}

	updated, err := s.notes.UpdateContent(ctx, noteID, content)
	if err != nil {
		return nil, err
	}

	s.logger.Info("note updated", "id", noteID, "author_id", viewer.UserID)
	return updated, nil
}

// DeleteNote removes a note. Only its author may.
func (s *noteService) DeleteNote(ctx context.Context, viewer services.Viewer, noteID string) error {
	note, err := s.note(ctx, viewer, noteID)
	if err != nil {
		return err
	}
	if note.AuthorID != viewer.UserID {
		return fmt.Errorf("note %s: %w", noteID, domain.ErrForbidden)
	}

	if err := s.notes.Delete(ctx, noteID); err != nil {
		return err
	}

	s.logger.Info("note deleted", "id", noteID, "author_id", viewer.UserID)
	return nil
}

// UnreadMap counts unread notes per cloud file id in one query. Clients
// only see counts for files shared with them.
func (s *noteService) UnreadMap(ctx context.Context, viewer services.Viewer, cloudFileIDs []string) (map[string]int, error) {
	var (
		architectID string
		visible     map[string]bool
	)

	switch viewer.Role {
	case models.RoleArchitect:
		architectID = viewer.UserID
	case models.RoleClient:
		client, err := s.clientOf(ctx, viewer)
		if err != nil {
			return nil, err
		}
		shared, err := s.shares.ListForClient(ctx, client.ID)
		if err != nil {
			return nil, err
		}
		architectID = client.ArchitectID
		visible = make(map[string]bool, len(shared))
		for _, sh := range shared {
			visible[sh.CloudFileID] = true
		}
	default:
		return nil, fmt.Errorf("role %q: %w", viewer.Role, domain.ErrForbidden)
	}

	counts, err := s.notes.UnreadCountMap(ctx, architectID, viewer.UserID)
	if err != nil {
		return nil, err
	}

	var wanted map[string]bool
	if len(cloudFileIDs) > 0 {
		wanted = make(map[string]bool, len(cloudFileIDs))
		for _, id := range cloudFileIDs {
			wanted[id] = true
		}
	}

	out := make(map[string]int)
	for id, n := range counts {
		if visible != nil && !visible[id] {
			continue
		}
		if wanted != nil && !wanted[id] {
			continue
		}
		out[id] = n
	}
	return out, nil
}
