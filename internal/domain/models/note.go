package models

import "time"

// FileRegistry bridges a provider file id to the local notes and sharing schema
type FileRegistry struct {
	ID            string        `json:"id" db:"id"`
	ArchitectID   string        `json:"architect_id" db:"architect_id"`
	FileName      string        `json:"file_name" db:"file_name"`
	FilePath      *string       `json:"file_path,omitempty" db:"file_path"`
	CloudProvider CloudProvider `json:"cloud_provider" db:"cloud_provider"`
	CloudFileID   string        `json:"cloud_file_id" db:"cloud_file_id"`
	MimeType      *string       `json:"mime_type,omitempty" db:"mime_type"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// Note is a comment attached to a registered file
type Note struct {
	ID             string    `json:"id" db:"id"`
	FileRegistryID string    `json:"file_registry_id" db:"file_registry_id"`
	AuthorID       string    `json:"author_id" db:"author_id"`
	AuthorName     string    `json:"author_name"` // joined from profiles
	Content        string    `json:"content" db:"content"`
	IsRead         bool      `json:"is_read" db:"is_read"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// UnknownAuthor is shown when a note's author has no profile
const UnknownAuthor = "Unknown"
