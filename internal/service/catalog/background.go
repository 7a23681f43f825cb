package catalog

import (
	"context"
	"time"

	"linkarbox/internal/capabilities"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"

	"golang.org/x/sync/errgroup"
)

// Recent returns the session's recently modified files
func (s *service) Recent(ctx context.Context, userID string) ([]models.FileItem, error) {
	sess, st, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return st.demoRecent(s.recentLimit), nil
	}

	s.ensureSideData(ctx, userID, sess, st)

	st.mu.Lock()
	defer st.mu.Unlock()
	return models.CloneItems(st.recent), nil
}

// Quota returns the session's storage usage
func (s *service) Quota(ctx context.Context, userID string) (*models.StorageQuota, error) {
	sess, st, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &models.StorageQuota{}, nil
	}

	s.ensureSideData(ctx, userID, sess, st)

	st.mu.Lock()
	defer st.mu.Unlock()
	q := st.quota
	return &q, nil
}

func (s *service) ensureSideData(ctx context.Context, userID string, sess *services.Session, st *userState) {
	st.mu.Lock()
	loaded := st.sideLoaded
	st.mu.Unlock()
	if !loaded {
		s.loadSideData(ctx, userID, sess, st)
	}
}

// loadSideData fetches recent files and quota concurrently. Failures are
// logged and fall back to an empty list and a zero quota.
func (s *service) loadSideData(ctx context.Context, userID string, sess *services.Session, st *userState) {
	var (
		recent = []models.FileItem{}
		quota  = models.StorageQuota{}
		g      errgroup.Group
	)

	g.Go(func() error {
		start := time.Now()
		items, err := sess.Adapter.Recent(ctx, s.recentLimit)
		s.observe(sess, capabilities.OpRecent, start, err)
		if err != nil {
			s.logger.Warn("recent files unavailable", "user_id", userID, "provider", sess.Provider, "error", err)
			_ = s.providerError(ctx, userID, sess, err)
			return nil
		}
		for i := range items {
			markAta(&items[i])
		}
		recent = items
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		q, err := sess.Adapter.Quota(ctx)
		s.observe(sess, capabilities.OpQuota, start, err)
		if err != nil {
			s.logger.Warn("storage quota unavailable", "user_id", userID, "provider", sess.Provider, "error", err)
			_ = s.providerError(ctx, userID, sess, err)
			return nil
		}
		quota = *q
		return nil
	})

	_ = g.Wait()

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.epoch != sess.Epoch {
		return
	}
	st.recent = recent
	st.quota = quota
	st.sideLoaded = true
}
