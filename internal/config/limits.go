package config

import "time"

const (
	// MaxItemNameLength is the maximum length for file and folder names.
	// Both providers reject longer names.
	MaxItemNameLength = 255

	// MaxClientNameLength is the maximum length for client names.
	MaxClientNameLength = 255

	// MaxNoteLength is the maximum length of a note body.
	MaxNoteLength = 5000

	// MaxUploadSize caps multipart uploads passed through to a provider.
	MaxUploadSize = 100 << 20

	// ProviderPageSize is the Google Drive list page size. Only the first
	// page is read.
	ProviderPageSize = 100

	// RecentFilesLimit is how many recent files the dashboard shows.
	RecentFilesLimit = 10

	// MaxBreadcrumbDepth bounds the Google parents walk.
	MaxBreadcrumbDepth = 32

	// DefaultRetryAfter is the delay before the single 429 retry, and the
	// floor applied to provider-supplied delays.
	DefaultRetryAfter = 2 * time.Second

	// TokenExpiryBuffer refreshes tokens this long before they expire.
	TokenExpiryBuffer = 5 * time.Minute

	// DropboxDefaultExpiry applies when Dropbox omits expires_in.
	DropboxDefaultExpiry = 14400 * time.Second

	// OAuthStateTTL bounds how long an authorization request stays valid.
	OAuthStateTTL = 10 * time.Minute

	// FolderFetchTimeout bounds one folder fetch, including its retry.
	FolderFetchTimeout = 2 * time.Minute

	// BackgroundRefreshTimeout bounds the recent-files and quota refresh.
	BackgroundRefreshTimeout = 30 * time.Second
)
