package models

import "time"

// SharePermission controls what a client may do with a shared file
type SharePermission string

const (
	PermissionView SharePermission = "view"
	PermissionEdit SharePermission = "edit"
)

// SharedFile links a provider file or folder to one of the architect's clients
type SharedFile struct {
	ID            string          `json:"id" db:"id"`
	ArchitectID   string          `json:"architect_id" db:"architect_id"`
	ClientID      string          `json:"client_id" db:"client_id"`
	CloudProvider CloudProvider   `json:"cloud_provider" db:"cloud_provider"`
	CloudFileID   string          `json:"cloud_file_id" db:"cloud_file_id"`
	FileName      string          `json:"file_name" db:"file_name"`
	FileType      ItemType        `json:"file_type" db:"file_type"`
	MimeType      *string         `json:"mime_type,omitempty" db:"mime_type"`
	FilePath      *string         `json:"file_path,omitempty" db:"file_path"`
	FileSize      *int64          `json:"file_size,omitempty" db:"file_size"`
	Permission    SharePermission `json:"permission" db:"permission"`
	WebViewLink   *string         `json:"web_view_link,omitempty" db:"web_view_link"`
	FileURL       *string         `json:"file_url,omitempty" db:"file_url"`
	ThumbnailURL  *string         `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	IconLink      *string         `json:"icon_link,omitempty" db:"icon_link"`
	SharedAt      time.Time       `json:"shared_at" db:"shared_at"`
}
