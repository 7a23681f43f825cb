package catalog

import (
	"context"
	"strings"
	"sync"

	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
)

// folderState is one fetched folder. items is replaced, never edited in place.
type folderState struct {
	items       []models.FileItem
	breadcrumbs []models.Breadcrumb
	// stale is set once a local mutation diverges from the provider listing
	stale bool
}

// snapshot is a copy of a folderState handed out to callers
type snapshot struct {
	items       []models.FileItem
	breadcrumbs []models.Breadcrumb
	stale       bool
}

func (f *folderState) snapshot() snapshot {
	return snapshot{
		items:       models.CloneItems(f.items),
		breadcrumbs: append([]models.Breadcrumb{}, f.breadcrumbs...),
		stale:       f.stale,
	}
}

// navigation is an in-flight folder fetch. A newer navigation cancels it.
type navigation struct {
	gen      uint64
	folderID string
	ctx      context.Context
	cancel   context.CancelFunc
	done     bool
}

// userState is one user's catalog, guarded by mu
type userState struct {
	mu          sync.Mutex
	initialized bool
	epoch       uint64 // 0 in demo mode
	provider    models.CloudProvider
	folderID    string
	folders     map[string]*folderState
	selected    *models.FileItem

	nav    *navigation
	navGen uint64

	sideLoaded bool
	recent     []models.FileItem
	quota      models.StorageQuota

	// demo survives session changes so demo edits persist until restart
	demo []models.FileItem
}

func newUserState(demo []models.FileItem) *userState {
	return &userState{demo: demo}
}

// reset discards everything cached for the previous session.
// Must be called with mu held.
func (st *userState) reset(sess *services.Session) {
	if st.nav != nil {
		st.nav.cancel()
		st.nav = nil
	}
	st.initialized = true
	st.epoch = 0
	st.provider = ""
	if sess != nil {
		st.epoch = sess.Epoch
		st.provider = sess.Provider
	}
	st.folderID = models.RootFolderID
	st.folders = make(map[string]*folderState)
	st.selected = nil
	st.sideLoaded = false
	st.recent = nil
	st.quota = models.StorageQuota{}
}

func (st *userState) currentFolder() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.folderID == "" {
		return models.RootFolderID
	}
	return st.folderID
}

func (st *userState) selection() *models.FileItem {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.selected == nil {
		return nil
	}
	c := st.selected.Clone()
	return &c
}

// navigate starts a fetch of folderID, cancelling a fetch of any other
// folder. Requests for the folder already being fetched share its
// navigation. Must be called with mu held.
func (st *userState) navigate(folderID string, newCtx func() (context.Context, context.CancelFunc)) *navigation {
	if st.nav != nil {
		if st.nav.folderID == folderID && !st.nav.done && st.nav.ctx.Err() == nil {
			return st.nav
		}
		st.nav.cancel()
	}

	st.navGen++
	ctx, cancel := newCtx()
	st.nav = &navigation{gen: st.navGen, folderID: folderID, ctx: ctx, cancel: cancel}
	return st.nav
}

// abandonNavigation cancels a fetch that no longer matches the folder the
// user is in. Must be called with mu held.
func (st *userState) abandonNavigation(folderID string) {
	if st.nav != nil && st.nav.folderID != folderID {
		st.nav.cancel()
		st.nav = nil
	}
}

// find looks the item up in the current folder first, then in every
// cached folder. Must be called with mu held.
func (st *userState) find(id string) (models.FileItem, bool) {
	if f, ok := st.folders[st.folderID]; ok {
		for _, item := range f.items {
			if item.ID == id {
				return item, true
			}
		}
	}
	for _, f := range st.folders {
		for _, item := range f.items {
			if item.ID == id {
				return item, true
			}
		}
	}
	return models.FileItem{}, false
}

// insert adds an item to its parent folder if that folder is cached.
// Must be called with mu held.
func (st *userState) insert(parentID string, item models.FileItem) {
	f, ok := st.folders[parentID]
	if !ok {
		return
	}
	items := make([]models.FileItem, 0, len(f.items)+1)
	items = append(items, f.items...)
	items = append(items, item.Clone())
	st.folders[parentID] = &folderState{items: items, breadcrumbs: f.breadcrumbs, stale: true}
}

// replace swaps the item with oldID for updated everywhere it is cached.
// Must be called with mu held.
func (st *userState) replace(oldID string, updated models.FileItem, markStale bool) {
	for key, f := range st.folders {
		idx := indexOf(f.items, oldID)
		if idx < 0 {
			continue
		}
		items := models.CloneItems(f.items)
		items[idx] = updated.Clone()
		st.folders[key] = &folderState{items: items, breadcrumbs: f.breadcrumbs, stale: f.stale || markStale}
	}

	if oldID != updated.ID {
		// Path-derived ids: the folder's cached subtree is keyed by old paths
		st.dropSubtree(oldID)
		if st.folderID == oldID || strings.HasPrefix(st.folderID, oldID+"/") {
			st.folderID = updated.ID + strings.TrimPrefix(st.folderID, oldID)
		}
	}

	if st.selected != nil && st.selected.ID == oldID {
		c := updated.Clone()
		st.selected = &c
	}
}

// remove filters the item out of every cached folder and closes the
// selection if it pointed at it. Must be called with mu held.
func (st *userState) remove(id string) {
	for key, f := range st.folders {
		idx := indexOf(f.items, id)
		if idx < 0 {
			continue
		}
		items := make([]models.FileItem, 0, len(f.items)-1)
		for _, item := range f.items {
			if item.ID != id {
				items = append(items, item.Clone())
			}
		}
		st.folders[key] = &folderState{items: items, breadcrumbs: f.breadcrumbs, stale: true}
	}
	st.dropSubtree(id)

	if st.selected != nil && st.selected.ID == id {
		st.selected = nil
	}
}

// dropSubtree forgets the cached listing of a folder and, for path ids,
// of everything below it. Must be called with mu held.
func (st *userState) dropSubtree(id string) {
	for key := range st.folders {
		if key == id || strings.HasPrefix(key, id+"/") {
			delete(st.folders, key)
		}
	}
}

func indexOf(items []models.FileItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
