// Package collab implements the architect/client collaboration layer:
// clients and invites, file shares, notes, and the overlay that annotates
// catalog listings with share and unread-note facts.
package collab

import (
	"context"
	"log/slog"

	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/repositories"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// overlayService implements the OverlayService interface
type overlayService struct {
	shares repositories.SharedFileRepository
	notes  repositories.NoteRepository
	logger *slog.Logger
}

// NewOverlayService creates a new overlay service
func NewOverlayService(
	shares repositories.SharedFileRepository,
	notes repositories.NoteRepository,
	logger *slog.Logger,
) services.OverlayService {
	return &overlayService{
		shares: shares,
		notes:  notes,
		logger: logger,
	}
}

// overlayKey is the cloud file id shares and the registry are keyed by
func overlayKey(item *models.FileItem) string {
	if item.CloudID != "" {
		return item.CloudID
	}
	return item.ID
}

// Enrich fills SharedWith and UnreadNotesCount on copies of items.
// The two lookups run concurrently and each degrades on its own.
func (s *overlayService) Enrich(ctx context.Context, architectID, viewerID string, items []models.FileItem) []models.FileItem {
	out := models.CloneItems(items)
	if len(out) == 0 || architectID == "" {
		return out
	}

	ids := make([]string, 0, len(out))
	for i := range out {
		ids = append(ids, overlayKey(&out[i]))
	}

	var (
		sharedWith map[string][]string
		unread     map[string]int
		g          errgroup.Group
	)

	g.Go(func() error {
		m, err := s.shares.SharedWithMap(ctx, architectID, ids)
		if err != nil {
			s.logger.Warn("share overlay unavailable", "architect_id", architectID, "error", err)
			metrics.RecordOverlayFailure("shares")
			return nil
		}
		sharedWith = m
		return nil
	})

	g.Go(func() error {
		m, err := s.notes.UnreadCountMap(ctx, architectID, viewerID)
		if err != nil {
			s.logger.Warn("unread overlay unavailable", "architect_id", architectID, "viewer_id", viewerID, "error", err)
			metrics.RecordOverlayFailure("notes")
			return nil
		}
		unread = m
		return nil
	})

	_ = g.Wait()

	for i := range out {
		key := overlayKey(&out[i])
		if clients, ok := sharedWith[key]; ok {
			out[i].SharedWith = append([]string{}, clients...)
		}
		n := unread[key]
		out[i].UnreadNotesCount = &n
	}
	return out
}
