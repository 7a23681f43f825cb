package services

import (
	"context"

	"linkarbox/internal/domain/models"
)

// ShareRequest shares one provider file with a client
type ShareRequest struct {
	ClientID      string                 `json:"client_id"`
	CloudProvider models.CloudProvider   `json:"cloud_provider"`
	CloudFileID   string                 `json:"cloud_file_id"`
	FileName      string                 `json:"file_name"`
	FileType      models.ItemType        `json:"file_type"`
	MimeType      *string                `json:"mime_type,omitempty"`
	FilePath      *string                `json:"file_path,omitempty"`
	FileSize      *int64                 `json:"file_size,omitempty"`
	Permission    models.SharePermission `json:"permission,omitempty"`
	WebViewLink   *string                `json:"web_view_link,omitempty"`
	FileURL       *string                `json:"file_url,omitempty"`
	ThumbnailURL  *string                `json:"thumbnail_url,omitempty"`
	IconLink      *string                `json:"icon_link,omitempty"`
}

// ShareService manages file shares between an architect and their clients
type ShareService interface {
	Share(ctx context.Context, architectID string, req *ShareRequest) (*models.SharedFile, error)
	Unshare(ctx context.Context, id, architectID string) error
	UnshareFromClient(ctx context.Context, architectID, clientID, cloudFileID string) error
	ListByArchitect(ctx context.Context, architectID string) ([]models.SharedFile, error)
	// ListForClient resolves the client record of the user and lists its shares
	ListForClient(ctx context.Context, clientUserID string) ([]models.SharedFile, error)
	ClientsForFile(ctx context.Context, architectID, cloudFileID string) ([]string, error)
	IsShared(ctx context.Context, clientID, cloudFileID string) (bool, error)
	UpdatePermission(ctx context.Context, id, architectID string, permission models.SharePermission) (*models.SharedFile, error)

	// ListSharedFolder lists a folder the client may see using the
	// architect's stored provider token.
	ListSharedFolder(ctx context.Context, clientUserID, folderID string) ([]models.FileItem, error)
}
