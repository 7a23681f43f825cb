package services

import (
	"context"

	"linkarbox/internal/domain/models"
)

// OverlayService annotates catalog items with share and unread-note facts.
// Failures degrade to empty annotations and are never returned.
type OverlayService interface {
	Enrich(ctx context.Context, architectID, viewerID string, items []models.FileItem) []models.FileItem
}
