package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkarbox/internal/capabilities"
	"linkarbox/internal/config"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/provider"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func validateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.RuneLength(1, config.MaxItemNameLength),
		validation.By(func(value interface{}) error {
			if s, _ := value.(string); strings.ContainsAny(s, `/\`) {
				return errors.New("must not contain slashes")
			}
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: name %v", domain.ErrValidation, err)
	}
	return nil
}

func orRoot(id string) string {
	if id == "" {
		return models.RootFolderID
	}
	return id
}

// CreateFolder creates a folder and adds it to the cached parent listing
func (s *service) CreateFolder(ctx context.Context, userID, parentID, name string) (*models.FileItem, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	parentID = orRoot(parentID)

	sess, st, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		st.mu.Lock()
		defer st.mu.Unlock()
		item := st.demoAdd(parentID, name, models.ItemTypeFolder, nil)
		return &item, nil
	}

	if err := s.caps.Check(sess.Provider, capabilities.OpCreateFolder); err != nil {
		return nil, err
	}

	start := time.Now()
	item, err := sess.Adapter.CreateFolder(ctx, parentID, name)
	s.observe(sess, capabilities.OpCreateFolder, start, err)
	if err != nil {
		return nil, s.providerError(ctx, userID, sess, err)
	}
	markAta(item)

	s.apply(st, sess, func() { st.insert(parentID, *item) })

	s.logger.Info("folder created",
		"user_id", userID,
		"provider", sess.Provider,
		"id", item.ID,
		"parent_id", parentID,
	)
	return item, nil
}

// Upload streams a file to the provider and adds it to the cached parent listing
func (s *service) Upload(ctx context.Context, userID, parentID string, file provider.UploadFile) (*models.FileItem, error) {
	file.Name = strings.TrimSpace(file.Name)
	if err := validateName(file.Name); err != nil {
		return nil, err
	}
	if file.Size > config.MaxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrValidation, config.MaxUploadSize)
	}
	if file.Body == nil {
		return nil, fmt.Errorf("%w: file body is required", domain.ErrValidation)
	}
	if file.MimeType == "" || file.MimeType == "application/octet-stream" {
		if guessed := provider.MimeTypeFromName(file.Name); guessed != "" {
			file.MimeType = guessed
		}
	}
	parentID = orRoot(parentID)

	sess, st, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		st.mu.Lock()
		defer st.mu.Unlock()
		item := st.demoAdd(parentID, file.Name, models.ItemTypeFile, &file)
		return &item, nil
	}

	if err := s.caps.Check(sess.Provider, capabilities.OpUpload); err != nil {
		return nil, err
	}

	start := time.Now()
	item, err := sess.Adapter.Upload(ctx, parentID, file)
	s.observe(sess, capabilities.OpUpload, start, err)
	if err != nil {
		return nil, s.providerError(ctx, userID, sess, err)
	}
	markAta(item)

	s.apply(st, sess, func() { st.insert(parentID, *item) })

	s.logger.Info("file uploaded",
		"user_id", userID,
		"provider", sess.Provider,
		"id", item.ID,
		"size", file.Size,
	)
	return item, nil
}

// Rename renames an item. On Dropbox the returned id differs from id.
func (s *service) Rename(ctx context.Context, userID, id, newName string) (*models.FileItem, error) {
	newName = strings.TrimSpace(newName)
	if err := validateName(newName); err != nil {
		return nil, err
	}

	sess, st, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		st.mu.Lock()
		defer st.mu.Unlock()
		item, err := st.demoUpdate(id, func(item *models.FileItem) {
			item.Name = newName
			if !item.IsFolder() {
				markAta(item)
			}
		})
		if err != nil {
			return nil, err
		}
		return &item, nil
	}

	if err := s.caps.Check(sess.Provider, capabilities.OpRename); err != nil {
		return nil, err
	}

	start := time.Now()
	item, err := sess.Adapter.Rename(ctx, id, newName)
	s.observe(sess, capabilities.OpRename, start, err)
	if err != nil {
		return nil, s.providerError(ctx, userID, sess, err)
	}
	markAta(item)

	s.apply(st, sess, func() {
		if prev, ok := st.find(id); ok {
			// Rename responses do not carry local annotations
			item.SharedWith = append([]string{}, prev.SharedWith...)
			if item.URL == "" && item.ID == prev.ID {
				item.URL = prev.URL
			}
		}
		st.replace(id, *item, true)
	})

	s.logger.Info("item renamed",
		"user_id", userID,
		"provider", sess.Provider,
		"old_id", id,
		"id", item.ID,
	)
	return item, nil
}

// Delete removes an item; confirmation happens upstream
func (s *service) Delete(ctx context.Context, userID, id string) error {
	if id == "" || id == models.RootFolderID {
		return fmt.Errorf("%w: cannot delete %q", domain.ErrValidation, id)
	}

	sess, st, err := s.session(ctx, userID)
	if err != nil {
		return err
	}
	if sess == nil {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.demoRemove(id)
	}

	if err := s.caps.Check(sess.Provider, capabilities.OpDelete); err != nil {
		return err
	}

	start := time.Now()
	err = sess.Adapter.Delete(ctx, id)
	s.observe(sess, capabilities.OpDelete, start, err)
	if err != nil {
		return s.providerError(ctx, userID, sess, err)
	}

	s.apply(st, sess, func() { st.remove(id) })

	s.logger.Info("item deleted", "user_id", userID, "provider", sess.Provider, "id", id)
	return nil
}

// ToggleStar flips the starred flag. Providers without starring return
// an error wrapping domain.ErrUnsupported and nothing changes.
func (s *service) ToggleStar(ctx context.Context, userID, id string) (*models.FileItem, error) {
	sess, st, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		st.mu.Lock()
		defer st.mu.Unlock()
		item, err := st.demoUpdate(id, func(item *models.FileItem) {
			item.IsStarred = !item.IsStarred
		})
		if err != nil {
			return nil, err
		}
		return &item, nil
	}

	if err := s.caps.Check(sess.Provider, capabilities.OpToggleStar); err != nil {
		return nil, err
	}

	current, err := s.cached(st, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = sess.Adapter.ToggleStar(ctx, id, !current.IsStarred)
	s.observe(sess, capabilities.OpToggleStar, start, err)
	if err != nil {
		return nil, s.providerError(ctx, userID, sess, err)
	}

	updated := current.Clone()
	updated.IsStarred = !current.IsStarred
	s.apply(st, sess, func() { st.replace(id, updated, true) })

	result := updated.Clone()
	return &result, nil
}

// Preview resolves the item's preview URL and keeps it on the cached item
func (s *service) Preview(ctx context.Context, userID, id string) (*models.FileItem, error) {
	sess, st, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}

	if sess == nil {
		st.mu.Lock()
		defer st.mu.Unlock()
		idx := indexOf(st.demo, id)
		if idx < 0 {
			return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		item := st.demo[idx].Clone()
		return &item, nil
	}

	current, err := s.cached(st, id)
	if err != nil {
		return nil, err
	}
	if current.IsFolder() {
		return nil, fmt.Errorf("%w: folders have no preview", domain.ErrValidation)
	}

	start := time.Now()
	url, err := sess.Adapter.PreviewURL(ctx, id)
	s.observe(sess, capabilities.OpPreview, start, err)
	if err != nil {
		return nil, s.providerError(ctx, userID, sess, err)
	}

	updated := current.Clone()
	updated.URL = url
	s.apply(st, sess, func() { st.replace(id, updated, false) })

	result := updated.Clone()
	return &result, nil
}

// Select opens the detail panel for an item of the catalog
func (s *service) Select(ctx context.Context, userID, id string) (*models.FileItem, error) {
	sess, st, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	var item models.FileItem
	if sess == nil {
		idx := indexOf(st.demo, id)
		if idx < 0 {
			return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		item = st.demo[idx].Clone()
	} else {
		found, ok := st.find(id)
		if !ok {
			return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		item = found.Clone()
	}

	st.selected = &item
	result := item.Clone()
	return &result, nil
}

// ClearSelection closes the detail panel
func (s *service) ClearSelection(userID string) {
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.selected = nil
}

// cached returns a copy of an item in the user's catalog
func (s *service) cached(st *userState, id string) (models.FileItem, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	item, ok := st.find(id)
	if !ok {
		return models.FileItem{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return item.Clone(), nil
}

// apply runs a catalog edit unless the session changed while the provider
// call was in flight.
func (s *service) apply(st *userState, sess *services.Session, edit func()) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.epoch != sess.Epoch {
		return
	}
	edit()
}
