package catalog

import (
	"strings"
	"unicode"

	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/provider"
)

// applyView filters items by view, then by search, then sorts them.
// items is not modified.
func applyView(items []models.FileItem, view services.View, search string) []models.FileItem {
	out := make([]models.FileItem, 0, len(items))
	needle := strings.ToLower(strings.TrimSpace(search))

	for _, item := range items {
		switch view {
		case services.ViewStarred:
			if !item.IsStarred {
				continue
			}
		case services.ViewAtas:
			if !item.IsAta {
				continue
			}
		}
		if needle != "" && !strings.Contains(strings.ToLower(item.Name), needle) {
			continue
		}
		out = append(out, item.Clone())
	}

	provider.SortItems(out)
	return out
}

// markAta flags meeting minutes: files whose name starts with the word
// "ata" ("ATA - Reunião.pdf", "ata_obra.docx" but not "atacado.pdf").
func markAta(item *models.FileItem) {
	item.IsAta = !item.IsFolder() && isAtaName(item.Name)
}

func isAtaName(name string) bool {
	runes := []rune(strings.ToLower(name))
	if len(runes) < 3 || string(runes[:3]) != "ata" {
		return false
	}
	return len(runes) == 3 || !unicode.IsLetter(runes[3])
}
