// Package catalog holds each user's current folder listing for the active
// provider, falls back to a demo dataset when no provider is connected and
// applies mutations to the listing as copy-and-replace.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"linkarbox/internal/capabilities"
	"linkarbox/internal/config"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// service implements the CatalogService interface
type service struct {
	connections services.ConnectionService
	overlay     services.OverlayService
	caps        *capabilities.Registry
	logger      *slog.Logger

	retryAfter  time.Duration
	recentLimit int
	sleep       func(ctx context.Context, d time.Duration) error
	demoSeed    []models.FileItem

	fetches singleflight.Group

	mu    sync.Mutex
	users map[string]*userState
}

// NewService creates a new catalog service. overlay may be nil.
func NewService(
	connections services.ConnectionService,
	overlay services.OverlayService,
	caps *capabilities.Registry,
	cfg *config.Config,
	logger *slog.Logger,
) (services.CatalogService, error) {
	svc, err := newService(connections, overlay, caps, cfg.ProviderRetryDefault, logger)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func newService(
	connections services.ConnectionService,
	overlay services.OverlayService,
	caps *capabilities.Registry,
	retryAfter time.Duration,
	logger *slog.Logger,
) (*service, error) {
	seed, err := loadDemo()
	if err != nil {
		return nil, fmt.Errorf("load demo dataset: %w", err)
	}
	if retryAfter <= 0 {
		retryAfter = config.DefaultRetryAfter
	}

	return &service{
		connections: connections,
		overlay:     overlay,
		caps:        caps,
		logger:      logger,
		retryAfter:  retryAfter,
		recentLimit: config.RecentFilesLimit,
		sleep:       sleepContext,
		demoSeed:    seed,
		users:       make(map[string]*userState),
	}, nil
}

func (s *service) state(userID string) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.users[userID]
	if !ok {
		st = newUserState(models.CloneItems(s.demoSeed))
		s.users[userID] = st
	}
	return st
}

// session returns the user's live session (nil in demo mode) and their
// catalog state. State cached for an earlier session is discarded and the
// background data of a new session starts loading.
func (s *service) session(ctx context.Context, userID string) (*services.Session, *userState, error) {
	sess, err := s.connections.Active(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotConnected) {
		return nil, nil, err
	}

	var epoch uint64
	if sess != nil {
		epoch = sess.Epoch
	}

	st := s.state(userID)
	st.mu.Lock()
	changed := !st.initialized || st.epoch != epoch
	if changed {
		st.reset(sess)
	}
	st.mu.Unlock()

	if changed && sess != nil {
		go func() {
			bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.BackgroundRefreshTimeout)
			defer cancel()
			s.loadSideData(bg, userID, sess, st)
		}()
	}
	return sess, st, nil
}

// List navigates to a folder and returns the selected view of it
func (s *service) List(ctx context.Context, userID string, req *services.ListRequest) (*services.Listing, error) {
	view := req.View
	if view == "" {
		view = services.ViewAll
	}
	if !view.Valid() {
		return nil, fmt.Errorf("%w: unknown view %q", domain.ErrValidation, view)
	}

	sess, st, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}

	folderID := req.FolderID
	switch {
	case view == services.ViewHome:
		folderID = models.RootFolderID
	case folderID == "" && (view == services.ViewStarred || view == services.ViewAtas):
		// These views filter what is already loaded
		folderID = st.currentFolder()
	case folderID == "":
		folderID = models.RootFolderID
	}

	if sess == nil {
		return s.listDemo(st, folderID, view, req.Search), nil
	}

	snap, err := s.loadFolder(ctx, userID, sess, st, folderID, false)
	if err != nil {
		return nil, err
	}
	return s.listing(ctx, userID, sess, st, folderID, snap, view, req.Search), nil
}

// Refresh refetches the current folder and the background data
func (s *service) Refresh(ctx context.Context, userID string) (*services.Listing, error) {
	sess, st, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}

	folderID := st.currentFolder()
	if sess == nil {
		return s.listDemo(st, folderID, services.ViewAll, ""), nil
	}

	snap, err := s.loadFolder(ctx, userID, sess, st, folderID, true)
	if err != nil {
		return nil, err
	}

	go func() {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.BackgroundRefreshTimeout)
		defer cancel()
		s.loadSideData(bg, userID, sess, st)
	}()

	s.logger.Debug("catalog refreshed", "user_id", userID, "provider", sess.Provider, "folder_id", folderID)
	return s.listing(ctx, userID, sess, st, folderID, snap, services.ViewAll, ""), nil
}

func (s *service) listing(
	ctx context.Context,
	userID string,
	sess *services.Session,
	st *userState,
	folderID string,
	snap snapshot,
	view services.View,
	search string,
) *services.Listing {
	items := applyView(snap.items, view, search)
	if s.overlay != nil {
		items = s.overlay.Enrich(ctx, userID, userID, items)
	}

	return &services.Listing{
		Provider:    sess.Provider,
		FolderID:    folderID,
		View:        view,
		Search:      search,
		Items:       items,
		Breadcrumbs: snap.breadcrumbs,
		Stale:       snap.stale,
		Selected:    st.selection(),
	}
}

// providerError tears the session down when the provider rejected its token
func (s *service) providerError(ctx context.Context, userID string, sess *services.Session, err error) error {
	if errors.Is(err, domain.ErrProviderAuth) {
		metrics.RecordSessionInvalidation(string(sess.Provider))
		s.connections.Invalidate(ctx, userID, sess.Epoch)
	}
	return err
}

func (s *service) observe(sess *services.Session, op string, start time.Time, err error) {
	metrics.RecordProviderCall(string(sess.Provider), op, time.Since(start), err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
