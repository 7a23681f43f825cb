package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkarbox/internal/capabilities"
	"linkarbox/internal/config"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/metrics"

	"golang.org/x/sync/singleflight"
)

func errSuperseded(folderID string) error {
	return fmt.Errorf("%w: navigation to %s was superseded", domain.ErrConflict, folderID)
}

// loadFolder returns the folder's listing. A cached folder is served as is
// unless force is set, or it is stale and the user is coming back to it
// from elsewhere. Fetches run detached from ctx so concurrent callers can
// share them; a newer navigation cancels them and their result is dropped.
func (s *service) loadFolder(
	ctx context.Context,
	userID string,
	sess *services.Session,
	st *userState,
	folderID string,
	force bool,
) (snapshot, error) {
	st.mu.Lock()
	if st.epoch != sess.Epoch {
		st.mu.Unlock()
		return snapshot{}, errSuperseded(folderID)
	}
	if cached, ok := st.folders[folderID]; ok && !force && (!cached.stale || folderID == st.folderID) {
		st.abandonNavigation(folderID)
		st.folderID = folderID
		snap := cached.snapshot()
		st.mu.Unlock()
		return snap, nil
	}
	nav := st.navigate(folderID, func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), config.FolderFetchTimeout)
	})
	st.mu.Unlock()

	key := fmt.Sprintf("%s|%d|%d|%s", userID, sess.Epoch, nav.gen, folderID)
	ch := s.fetches.DoChan(key, func() (interface{}, error) {
		return s.fetchFolder(nav.ctx, sess, folderID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return snapshot{}, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		if errors.Is(res.Err, context.Canceled) && nav.ctx.Err() != nil {
			return snapshot{}, errSuperseded(folderID)
		}
		return snapshot{}, s.providerError(ctx, userID, sess, res.Err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.epoch != sess.Epoch || st.nav == nil || st.nav.gen != nav.gen {
		s.logger.Debug("dropping superseded folder fetch", "user_id", userID, "folder_id", folderID)
		return snapshot{}, errSuperseded(folderID)
	}

	// Callers sharing the fetch apply it once
	if !nav.done {
		nav.done = true
		nav.cancel()
		fetched := res.Val.(*folderState)
		st.folders[folderID] = &folderState{
			items:       models.CloneItems(fetched.items),
			breadcrumbs: fetched.breadcrumbs,
		}
	}
	st.folderID = folderID

	cached, ok := st.folders[folderID]
	if !ok {
		// A mutation dropped the folder while the fetch was finishing
		return snapshot{items: []models.FileItem{}, breadcrumbs: []models.Breadcrumb{}}, nil
	}
	return cached.snapshot(), nil
}

// fetchFolder lists the folder with the rate-limit retry and resolves its
// breadcrumbs. Breadcrumb failures degrade to an empty path.
func (s *service) fetchFolder(ctx context.Context, sess *services.Session, folderID string) (*folderState, error) {
	items, err := s.listWithRetry(ctx, sess, folderID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		markAta(&items[i])
	}

	start := time.Now()
	crumbs, err := sess.Adapter.Breadcrumbs(ctx, folderID)
	s.observe(sess, capabilities.OpBreadcrumbs, start, err)
	if err != nil {
		if errors.Is(err, domain.ErrProviderAuth) || ctx.Err() != nil {
			return nil, err
		}
		s.logger.Warn("breadcrumbs unavailable", "provider", sess.Provider, "folder_id", folderID, "error", err)
		crumbs = nil
	}
	if crumbs == nil {
		crumbs = []models.Breadcrumb{}
	}

	return &folderState{items: items, breadcrumbs: crumbs}, nil
}

// listWithRetry retries a rate-limited listing exactly once, after the
// provider's Retry-After or the configured default, whichever is longer.
// Nothing else is retried.
func (s *service) listWithRetry(ctx context.Context, sess *services.Session, folderID string) ([]models.FileItem, error) {
	items, err := s.listOnce(ctx, sess, folderID)
	if !errors.Is(err, domain.ErrRateLimited) {
		return items, err
	}

	delay := s.retryDelay(err)
	s.logger.Warn("folder listing rate limited, retrying once",
		"provider", sess.Provider,
		"folder_id", folderID,
		"retry_after", delay,
	)
	metrics.RecordProviderRetry(string(sess.Provider))

	if err := s.sleep(ctx, delay); err != nil {
		return nil, err
	}
	return s.listOnce(ctx, sess, folderID)
}

func (s *service) listOnce(ctx context.Context, sess *services.Session, folderID string) ([]models.FileItem, error) {
	start := time.Now()
	items, err := sess.Adapter.ListFolder(ctx, folderID)
	s.observe(sess, capabilities.OpListFolder, start, err)
	return items, err
}

func (s *service) retryDelay(err error) time.Duration {
	if d, ok := domain.RetryAfterOf(err); ok && d > s.retryAfter {
		return d
	}
	return s.retryAfter
}
