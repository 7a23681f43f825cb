package provider

import (
	"path"
	"sort"
	"strings"
	"time"

	"linkarbox/internal/domain/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// NotAvailable is shown when a provider reports no modification date
const NotAvailable = "N/A"

// ModifiedLayout is the display format of FileItem.Modified
const ModifiedLayout = "Jan 2, 2006"

// FormatModified renders a modification time once, at fetch time.
func FormatModified(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.Format(ModifiedLayout)
}

// FormatRFC3339 parses a provider timestamp and formats it for display.
func FormatRFC3339(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return NotAvailable
	}
	return FormatModified(t)
}

var mimeByExtension = map[string]string{
	// Images
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",

	// Documents
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",

	// Text
	"txt":  "text/plain",
	"json": "application/json",
	"xml":  "application/xml",
	"html": "text/html",
	"css":  "text/css",
	"js":   "text/javascript",

	// Archives
	"zip": "application/zip",
	"rar": "application/x-rar-compressed",
	"7z":  "application/x-7z-compressed",

	// Design
	"psd":    "image/vnd.adobe.photoshop",
	"ai":     "application/postscript",
	"sketch": "application/x-sketch",
	"dwg":    "image/vnd.dwg",
}

// MimeTypeFromName guesses a content type from the file extension.
// Returns "" for unknown extensions.
func MimeTypeFromName(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	return mimeByExtension[ext]
}

// SortItems puts folders before files and orders names case-insensitively
// with Portuguese collation.
func SortItems(items []models.FileItem) {
	// Collators keep internal buffers and are not safe to share
	c := collate.New(language.BrazilianPortuguese, collate.IgnoreCase)

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.IsFolder() != b.IsFolder() {
			return a.IsFolder()
		}
		return c.CompareString(a.Name, b.Name) < 0
	})
}
