package services

import (
	"context"

	"linkarbox/internal/domain/models"
	"linkarbox/internal/provider"
)

// View selects which slice of the catalog a listing shows
type View string

const (
	ViewAll     View = "all"
	ViewHome    View = "home"
	ViewStarred View = "starred"
	ViewAtas    View = "atas"
)

// Valid reports whether v is a known view
func (v View) Valid() bool {
	switch v {
	case ViewAll, ViewHome, ViewStarred, ViewAtas:
		return true
	}
	return false
}

// ListRequest navigates the catalog
type ListRequest struct {
	FolderID string
	View     View
	Search   string
}

// Listing is the presentation-ready state of a user's catalog
type Listing struct {
	Provider    models.CloudProvider `json:"provider,omitempty"` // empty in demo mode
	Demo        bool                 `json:"demo"`
	FolderID    string               `json:"folderId"`
	View        View                 `json:"view"`
	Search      string               `json:"search,omitempty"`
	Items       []models.FileItem    `json:"items"`
	Breadcrumbs []models.Breadcrumb  `json:"breadcrumbs"`
	Stale       bool                 `json:"stale"`
	Selected    *models.FileItem     `json:"selected,omitempty"`
}

// CatalogService holds each user's current folder listing and applies
// mutations to it as copy-and-replace.
type CatalogService interface {
	List(ctx context.Context, userID string, req *ListRequest) (*Listing, error)
	// Refresh refetches the current folder
	Refresh(ctx context.Context, userID string) (*Listing, error)

	CreateFolder(ctx context.Context, userID, parentID, name string) (*models.FileItem, error)
	Upload(ctx context.Context, userID, parentID string, file provider.UploadFile) (*models.FileItem, error)
	Rename(ctx context.Context, userID, id, newName string) (*models.FileItem, error)
	// Delete removes the item and clears the selection if it was selected
	Delete(ctx context.Context, userID, id string) error
	ToggleStar(ctx context.Context, userID, id string) (*models.FileItem, error)
	// Preview resolves the item's URL lazily
	Preview(ctx context.Context, userID, id string) (*models.FileItem, error)

	Select(ctx context.Context, userID, id string) (*models.FileItem, error)
	ClearSelection(userID string)

	Recent(ctx context.Context, userID string) ([]models.FileItem, error)
	Quota(ctx context.Context, userID string) (*models.StorageQuota, error)
}
