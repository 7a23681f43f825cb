package catalog

import (
	_ "embed"
	"fmt"
	"time"

	"linkarbox/internal/config"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/provider"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

type demoItem struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name"`
	Type       models.ItemType `yaml:"type"`
	Parent     string          `yaml:"parent"`
	MimeType   string          `yaml:"mime_type"`
	Starred    bool            `yaml:"starred"`
	Ata        bool            `yaml:"ata"`
	SharedWith []string        `yaml:"shared_with"`
	Modified   string          `yaml:"modified"`
	Content    string          `yaml:"content"`
	URL        string          `yaml:"url"`
}

func loadDemo() ([]models.FileItem, error) {
	var raw []demoItem
	if err := yaml.Unmarshal(demoYAML, &raw); err != nil {
		return nil, err
	}

	items := make([]models.FileItem, 0, len(raw))
	for _, d := range raw {
		if d.ID == "" || d.Name == "" {
			return nil, fmt.Errorf("demo item missing id or name: %+v", d)
		}
		if d.Type != models.ItemTypeFile && d.Type != models.ItemTypeFolder {
			return nil, fmt.Errorf("demo item %s: unknown type %q", d.ID, d.Type)
		}

		item := models.FileItem{
			ID:         d.ID,
			Name:       d.Name,
			Type:       d.Type,
			MimeType:   d.MimeType,
			IsStarred:  d.Starred,
			IsAta:      d.Ata,
			SharedWith: append([]string{}, d.SharedWith...),
			Modified:   d.Modified,
			Content:    d.Content,
			URL:        d.URL,
		}
		if d.Parent != "" {
			item.ParentID = models.StringPtr(d.Parent)
		}
		items = append(items, item)
	}
	return items, nil
}

// listDemo serves the demo dataset. The folder view shows the children of
// folderID; starred and atas cover the whole dataset.
func (s *service) listDemo(st *userState, folderID string, view services.View, search string) *services.Listing {
	st.mu.Lock()
	defer st.mu.Unlock()

	base := st.demo
	if view == services.ViewAll || view == services.ViewHome {
		base = demoChildren(st.demo, folderID)
		st.folderID = folderID
	}

	listing := &services.Listing{
		Demo:        true,
		FolderID:    folderID,
		View:        view,
		Search:      search,
		Items:       applyView(base, view, search),
		Breadcrumbs: demoBreadcrumbs(st.demo, folderID),
	}
	if st.selected != nil {
		c := st.selected.Clone()
		listing.Selected = &c
	}
	return listing
}

func demoChildren(items []models.FileItem, folderID string) []models.FileItem {
	parent := folderID
	if parent == models.RootFolderID {
		parent = ""
	}

	out := []models.FileItem{}
	for _, item := range items {
		if item.Parent() == parent {
			out = append(out, item)
		}
	}
	return out
}

func demoBreadcrumbs(items []models.FileItem, folderID string) []models.Breadcrumb {
	crumbs := []models.Breadcrumb{}
	id := folderID
	for depth := 0; id != "" && id != models.RootFolderID && depth < config.MaxBreadcrumbDepth; depth++ {
		idx := indexOf(items, id)
		if idx < 0 {
			break
		}
		parent := items[idx].Parent()
		parentID := parent
		if parentID == "" {
			parentID = models.RootFolderID
		}
		crumbs = append([]models.Breadcrumb{{ID: id, Name: items[idx].Name, ParentID: parentID}}, crumbs...)
		id = parent
	}
	return crumbs
}

// demoAdd appends a new demo item. Must be called with mu held.
func (st *userState) demoAdd(parentID, name string, kind models.ItemType, file *provider.UploadFile) models.FileItem {
	item := models.FileItem{
		ID:         uuid.NewString(),
		Name:       name,
		Type:       kind,
		SharedWith: []string{},
		Modified:   provider.FormatModified(time.Now()),
	}
	if parentID != "" && parentID != models.RootFolderID {
		item.ParentID = models.StringPtr(parentID)
	}
	if file != nil {
		item.MimeType = file.MimeType
		if file.Size > 0 {
			size := file.Size
			item.Size = &size
		}
	}
	markAta(&item)

	items := models.CloneItems(st.demo)
	st.demo = append(items, item)
	return item.Clone()
}

// demoUpdate applies fn to a copy of the item and stores it.
// Must be called with mu held.
func (st *userState) demoUpdate(id string, fn func(*models.FileItem)) (models.FileItem, error) {
	idx := indexOf(st.demo, id)
	if idx < 0 {
		return models.FileItem{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}

	items := models.CloneItems(st.demo)
	fn(&items[idx])
	st.demo = items

	if st.selected != nil && st.selected.ID == id {
		c := items[idx].Clone()
		st.selected = &c
	}
	return items[idx].Clone(), nil
}

// demoRemove deletes the item and everything below it.
// Must be called with mu held.
func (st *userState) demoRemove(id string) error {
	if indexOf(st.demo, id) < 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}

	doomed := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for _, item := range st.demo {
			if !doomed[item.ID] && doomed[item.Parent()] {
				doomed[item.ID] = true
				changed = true
			}
		}
	}

	items := make([]models.FileItem, 0, len(st.demo))
	for _, item := range st.demo {
		if !doomed[item.ID] {
			items = append(items, item.Clone())
		}
	}
	st.demo = items

	if st.selected != nil && doomed[st.selected.ID] {
		st.selected = nil
	}
	if doomed[st.folderID] {
		st.folderID = models.RootFolderID
	}
	return nil
}

// demoRecent returns the demo files in dataset order
func (st *userState) demoRecent(limit int) []models.FileItem {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := []models.FileItem{}
	for _, item := range st.demo {
		if item.IsFolder() {
			continue
		}
		out = append(out, item.Clone())
		if len(out) == limit {
			break
		}
	}
	return out
}
