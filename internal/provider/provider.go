// Package provider defines the adapter contract shared by the cloud-storage
// backends and the helpers they use to build FileItems.
package provider

import (
	"context"
	"io"

	"linkarbox/internal/domain/models"
)

// Adapter translates one provider's API into the common FileItem model.
// IDs follow the provider's conventions: opaque ids for Google, lower-cased
// paths for Dropbox. Callers must not mix them.
type Adapter interface {
	Kind() models.CloudProvider

	// ListFolder returns the folder's full contents, unsorted.
	ListFolder(ctx context.Context, folderID string) ([]models.FileItem, error)
	CreateFolder(ctx context.Context, parentID, name string) (*models.FileItem, error)
	Upload(ctx context.Context, parentID string, file UploadFile) (*models.FileItem, error)
	// Rename returns the updated item. Its id may differ from the input id.
	Rename(ctx context.Context, id, newName string) (*models.FileItem, error)
	Delete(ctx context.Context, id string) error
	// ToggleStar returns an error wrapping domain.ErrUnsupported when the
	// provider has no starring.
	ToggleStar(ctx context.Context, id string, starred bool) error

	PreviewURL(ctx context.Context, id string) (string, error)
	Breadcrumbs(ctx context.Context, folderID string) ([]models.Breadcrumb, error)
	Recent(ctx context.Context, limit int) ([]models.FileItem, error)
	Quota(ctx context.Context) (*models.StorageQuota, error)

	// Account is the "who am I" call used to validate a token.
	Account(ctx context.Context) (*models.CloudAccount, error)
	// Revoke invalidates the token with the provider.
	Revoke(ctx context.Context) error
}

// UploadFile is a file body streamed to a provider
type UploadFile struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}
