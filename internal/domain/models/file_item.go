package models

// ItemType distinguishes files from folders in a listing
type ItemType string

const (
	ItemTypeFile   ItemType = "FILE"
	ItemTypeFolder ItemType = "FOLDER"
)

// RootFolderID is the folder id used for the top level of every provider
const RootFolderID = "root"

// FileItem is the provider-agnostic representation of a file or folder.
// IDs are only unique within one provider session: a Google file id, or a
// lower-cased Dropbox path.
type FileItem struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       ItemType `json:"type"`
	ParentID   *string  `json:"parentId"` // nil = top level
	MimeType   string   `json:"mimeType,omitempty"`
	IsStarred  bool     `json:"isStarred"`
	IsAta      bool     `json:"isAta,omitempty"`
	SharedWith []string `json:"sharedWith"`
	Modified   string   `json:"modified"` // formatted once at fetch time
	Size       *int64   `json:"size,omitempty"`
	CloudID    string   `json:"cloudId,omitempty"` // overlay key
	URL        string   `json:"url,omitempty"`     // resolved lazily on preview
	Content    string   `json:"content,omitempty"` // demo items only

	UnreadNotesCount *int `json:"unreadNotesCount,omitempty"`

	// Trashed is reported by Google; trashed items never leave the adapter.
	Trashed bool `json:"-"`
}

// IsFolder reports whether the item is a folder
func (f *FileItem) IsFolder() bool {
	return f.Type == ItemTypeFolder
}

// Parent returns the parent id, or "" for top-level items
func (f *FileItem) Parent() string {
	if f.ParentID == nil {
		return ""
	}
	return *f.ParentID
}

// Clone returns a deep copy so catalog snapshots never share slices or pointers.
func (f FileItem) Clone() FileItem {
	c := f
	if f.ParentID != nil {
		p := *f.ParentID
		c.ParentID = &p
	}
	if f.Size != nil {
		s := *f.Size
		c.Size = &s
	}
	if f.UnreadNotesCount != nil {
		n := *f.UnreadNotesCount
		c.UnreadNotesCount = &n
	}
	c.SharedWith = append([]string{}, f.SharedWith...)
	return c
}

// CloneItems copies a slice of items element by element
func CloneItems(items []FileItem) []FileItem {
	out := make([]FileItem, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

// Breadcrumb is one segment of the current folder path
type Breadcrumb struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
