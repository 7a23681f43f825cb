package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/repositories"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/provider"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// shareService implements the ShareService interface
type shareService struct {
	shares      repositories.SharedFileRepository
	clients     repositories.ClientRepository
	connections services.ConnectionService
	logger      *slog.Logger
}

// NewShareService creates a new share service
func NewShareService(
	shares repositories.SharedFileRepository,
	clients repositories.ClientRepository,
	connections services.ConnectionService,
	logger *slog.Logger,
) services.ShareService {
	return &shareService{
		shares:      shares,
		clients:     clients,
		connections: connections,
		logger:      logger,
	}
}

var permissions = []interface{}{models.PermissionView, models.PermissionEdit}

func validateShareRequest(req *services.ShareRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.ClientID, validation.Required),
		validation.Field(&req.CloudProvider, validation.Required,
			validation.In(models.ProviderGoogle, models.ProviderDropbox)),
		validation.Field(&req.CloudFileID, validation.Required),
		validation.Field(&req.FileName, validation.Required),
		validation.Field(&req.FileType, validation.Required,
			validation.In(models.ItemTypeFile, models.ItemTypeFolder)),
		validation.Field(&req.Permission, validation.In(permissions...)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// Share records that a provider file is visible to one of the architect's clients
func (s *shareService) Share(ctx context.Context, architectID string, req *services.ShareRequest) (*models.SharedFile, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request body is required", domain.ErrValidation)
	}
	if req.Permission == "" {
		req.Permission = models.PermissionView
	}
	if err := validateShareRequest(req); err != nil {
		return nil, err
	}

	// Only the architect's own clients can receive shares
	if _, err := s.clients.GetByID(ctx, req.ClientID, architectID); err != nil {
		return nil, err
	}

	share := &models.SharedFile{
		ArchitectID:   architectID,
		ClientID:      req.ClientID,
		CloudProvider: req.CloudProvider,
		CloudFileID:   req.CloudFileID,
		FileName:      req.FileName,
		FileType:      req.FileType,
		MimeType:      req.MimeType,
		FilePath:      req.FilePath,
		FileSize:      req.FileSize,
		Permission:    req.Permission,
		WebViewLink:   req.WebViewLink,
		FileURL:       req.FileURL,
		ThumbnailURL:  req.ThumbnailURL,
		IconLink:      req.IconLink,
	}
	if err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}

	s.logger.Info("file shared",
		"id", share.ID,
		"architect_id", architectID,
		"client_id", share.ClientID,
		"cloud_file_id", share.CloudFileID,
	)
	return share, nil
}

// Unshare removes a share by id
func (s *shareService) Unshare(ctx context.Context, id, architectID string) error {
	if err := s.shares.Delete(ctx, id, architectID); err != nil {
		return err
	}
	s.logger.Info("share removed", "id", id, "architect_id", architectID)
	return nil
}

// UnshareFromClient removes the share of one file with one client
func (s *shareService) UnshareFromClient(ctx context.Context, architectID, clientID, cloudFileID string) error {
	if clientID == "" || cloudFileID == "" {
		return fmt.Errorf("%w: client_id and cloud_file_id are required", domain.ErrValidation)
	}
	if err := s.shares.DeleteForClient(ctx, architectID, clientID, cloudFileID); err != nil {
		return err
	}
	s.logger.Info("share removed",
		"architect_id", architectID,
		"client_id", clientID,
		"cloud_file_id", cloudFileID,
	)
	return nil
}

// ListByArchitect returns every share the architect created
func (s *shareService) ListByArchitect(ctx context.Context, architectID string) ([]models.SharedFile, error) {
	return s.shares.ListByArchitect(ctx, architectID)
}

// ListForClient returns the shares visible to a registered client, newest first
func (s *shareService) ListForClient(ctx context.Context, clientUserID string) ([]models.SharedFile, error) {
	client, err := s.clientOf(ctx, clientUserID)
	if err != nil {
		return nil, err
	}
	return s.shares.ListForClient(ctx, client.ID)
}

// clientOf resolves the client record of an authenticated client user
func (s *shareService) clientOf(ctx context.Context, userID string) (*models.Client, error) {
	client, err := s.clients.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %s is not a client: %w", userID, domain.ErrForbidden)
		}
		return nil, err
	}
	return client, nil
}

// ClientsForFile returns the ids of the clients a file is shared with
func (s *shareService) ClientsForFile(ctx context.Context, architectID, cloudFileID string) ([]string, error) {
	return s.shares.ClientsForFile(ctx, architectID, cloudFileID)
}

// IsShared reports whether the file is shared with the client
func (s *shareService) IsShared(ctx context.Context, clientID, cloudFileID string) (bool, error) {
	return s.shares.Exists(ctx, clientID, cloudFileID)
}

// UpdatePermission switches a share between view and edit
func (s *shareService) UpdatePermission(ctx context.Context, id, architectID string, permission models.SharePermission) (*models.SharedFile, error) {
	if err := validation.Validate(permission, validation.Required, validation.In(permissions...)); err != nil {
		return nil, fmt.Errorf("%w: permission %v", domain.ErrValidation, err)
	}

	share, err := s.shares.UpdatePermission(ctx, id, architectID, permission)
	if err != nil {
		return nil, err
	}

	s.logger.Info("share permission updated", "id", id, "architect_id", architectID, "permission", permission)
	return share, nil
}

// ListSharedFolder lists a Dropbox folder on behalf of a client. The folder
// must be shared with the client, directly or through a shared ancestor.
func (s *shareService) ListSharedFolder(ctx context.Context, clientUserID, folderID string) ([]models.FileItem, error) {
	folder := strings.ToLower(strings.TrimRight(strings.TrimSpace(folderID), "/"))
	if folder == "" || folder == models.RootFolderID {
		return nil, fmt.Errorf("%w: folder id is required", domain.ErrValidation)
	}

	client, err := s.clientOf(ctx, clientUserID)
	if err != nil {
		return nil, err
	}

	shared, err := s.shares.ListForClient(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	if !folderShared(shared, folder) {
		return nil, fmt.Errorf("folder %s: %w", folderID, domain.ErrForbidden)
	}

	adapter, err := s.connections.StoredAdapter(ctx, client.ArchitectID, models.ProviderDropbox)
	if err != nil {
		return nil, err
	}

	items, err := adapter.ListFolder(ctx, folder)
	if err != nil {
		return nil, err
	}

	provider.SortItems(items)

	s.logger.Debug("shared folder listed",
		"client_id", client.ID,
		"architect_id", client.ArchitectID,
		"folder", folder,
		"count", len(items),
	)
	return items, nil
}

// folderShared matches folder against the client's Dropbox folder shares
// by exact path or path prefix.
func folderShared(shared []models.SharedFile, folder string) bool {
	for _, sh := range shared {
		if sh.CloudProvider != models.ProviderDropbox || sh.FileType != models.ItemTypeFolder {
			continue
		}
		path := sh.CloudFileID
		if sh.FilePath != nil && *sh.FilePath != "" {
			path = *sh.FilePath
		}
		path = strings.ToLower(strings.TrimRight(path, "/"))
		if path == "" {
			continue
		}
		if folder == path || strings.HasPrefix(folder, path+"/") {
			return true
		}
	}
	return false
}
