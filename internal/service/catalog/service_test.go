package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"linkarbox/internal/capabilities"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/provider"
)

// fakeConnections serves one fixed session
type fakeConnections struct {
	services.ConnectionService

	mu          sync.Mutex
	sess        *services.Session
	invalidated []uint64
}

func (f *fakeConnections) Active(ctx context.Context, userID string) (*services.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess == nil {
		return nil, domain.ErrNotConnected
	}
	return f.sess, nil
}

func (f *fakeConnections) Invalidate(ctx context.Context, userID string, epoch uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, epoch)
	if f.sess != nil && f.sess.Epoch == epoch {
		f.sess = nil
	}
}

func (f *fakeConnections) connect(a *fakeAdapter, epoch uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess = &services.Session{UserID: "u1", Provider: a.kind, Adapter: a, Epoch: epoch}
}

// fakeAdapter serves canned folders
type fakeAdapter struct {
	provider.Adapter

	kind models.CloudProvider

	mu        sync.Mutex
	folders   map[string][]models.FileItem
	listErrs  []error
	listCalls map[string]int
	gates     map[string]chan struct{}
	started   chan string
	sawCancel bool
	starCalls int
	recentErr error
}

func newFakeAdapter(kind models.CloudProvider) *fakeAdapter {
	return &fakeAdapter{
		kind:      kind,
		folders:   make(map[string][]models.FileItem),
		listCalls: make(map[string]int),
		gates:     make(map[string]chan struct{}),
	}
}

func (a *fakeAdapter) Kind() models.CloudProvider { return a.kind }

func (a *fakeAdapter) ListFolder(ctx context.Context, folderID string) ([]models.FileItem, error) {
	a.mu.Lock()
	a.listCalls[folderID]++
	var err error
	if len(a.listErrs) > 0 {
		err, a.listErrs = a.listErrs[0], a.listErrs[1:]
	}
	gate := a.gates[folderID]
	items := models.CloneItems(a.folders[folderID])
	a.mu.Unlock()

	if gate != nil {
		a.started <- folderID
		select {
		case <-gate:
		case <-ctx.Done():
			a.mu.Lock()
			a.sawCancel = true
			a.mu.Unlock()
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (a *fakeAdapter) calls(folderID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listCalls[folderID]
}

func (a *fakeAdapter) Breadcrumbs(ctx context.Context, folderID string) ([]models.Breadcrumb, error) {
	return nil, nil
}

func (a *fakeAdapter) Recent(ctx context.Context, limit int) ([]models.FileItem, error) {
	if a.recentErr != nil {
		return nil, a.recentErr
	}
	return []models.FileItem{fileItem("r1", "ata obra.pdf", "root")}, nil
}

func (a *fakeAdapter) Quota(ctx context.Context) (*models.StorageQuota, error) {
	if a.recentErr != nil {
		return nil, a.recentErr
	}
	return &models.StorageQuota{Used: 10, Total: 100}, nil
}

func (a *fakeAdapter) CreateFolder(ctx context.Context, parentID, name string) (*models.FileItem, error) {
	item := folderItem("new-"+name, name, parentID)
	return &item, nil
}

func (a *fakeAdapter) Rename(ctx context.Context, id, newName string) (*models.FileItem, error) {
	newID := id
	if a.kind == models.ProviderDropbox {
		newID = "/" + strings.ToLower(newName)
	}
	item := fileItem(newID, newName, "root")
	return &item, nil
}

func (a *fakeAdapter) Delete(ctx context.Context, id string) error { return nil }

func (a *fakeAdapter) ToggleStar(ctx context.Context, id string, starred bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.starCalls++
	return nil
}

func (a *fakeAdapter) PreviewURL(ctx context.Context, id string) (string, error) {
	return "https://preview.test/" + id, nil
}

func fileItem(id, name, parent string) models.FileItem {
	return models.FileItem{
		ID:         id,
		Name:       name,
		Type:       models.ItemTypeFile,
		ParentID:   models.StringPtr(parent),
		SharedWith: []string{},
		CloudID:    id,
	}
}

func folderItem(id, name, parent string) models.FileItem {
	item := fileItem(id, name, parent)
	item.Type = models.ItemTypeFolder
	return item
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func newTestService(t *testing.T, conns *fakeConnections) (*service, *sleepRecorder) {
	t.Helper()
	caps, err := capabilities.NewRegistry()
	if err != nil {
		t.Fatalf("capabilities: %v", err)
	}
	svc, err := newService(conns, nil, caps, 2*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newService: %v", err)
	}
	rec := &sleepRecorder{}
	svc.sleep = rec.sleep
	return svc, rec
}

func ids(items []models.FileItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func assertIDs(t *testing.T, items []models.FileItem, want ...string) {
	t.Helper()
	got := ids(items)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func rateLimited(retryAfter time.Duration) error {
	return &domain.ProviderError{Provider: "google", Op: "list", Status: http.StatusTooManyRequests, RetryAfter: retryAfter, Err: errors.New("slow down")}
}

func TestList_DemoWhenDisconnected(t *testing.T) {
	svc, _ := newTestService(t, &fakeConnections{})
	ctx := context.Background()

	root, err := svc.List(ctx, "u1", &services.ListRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !root.Demo || root.Provider != "" {
		t.Errorf("expected demo listing, got demo=%v provider=%q", root.Demo, root.Provider)
	}
	// Folders first, then files, by name
	assertIDs(t, root.Items, "2", "1", "4", "3")
	for _, item := range root.Items {
		if item.ParentID != nil {
			t.Errorf("root item %s has parent %q", item.ID, *item.ParentID)
		}
	}

	folder, err := svc.List(ctx, "u1", &services.ListRequest{FolderID: "1"})
	if err != nil {
		t.Fatalf("List(1): %v", err)
	}
	assertIDs(t, folder.Items, "6", "5")
	for _, item := range folder.Items {
		if item.Parent() != "1" {
			t.Errorf("item %s has parent %q", item.ID, item.Parent())
		}
	}
	if len(folder.Breadcrumbs) != 1 || folder.Breadcrumbs[0].Name != "Projeto Alpha" {
		t.Errorf("unexpected breadcrumbs %+v", folder.Breadcrumbs)
	}
}

func TestList_DemoViews(t *testing.T) {
	svc, _ := newTestService(t, &fakeConnections{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  services.ListRequest
		want []string
	}{
		{"starred covers every folder", services.ListRequest{View: services.ViewStarred}, []string{"1", "6", "3"}},
		{"atas", services.ListRequest{View: services.ViewAtas}, []string{"4"}},
		{"home is root", services.ListRequest{View: services.ViewHome, FolderID: "1"}, []string{"2", "1", "4", "3"}},
		{"search is case insensitive", services.ListRequest{FolderID: "1", Search: "BLUE"}, []string{"5"}},
		{"search after view", services.ListRequest{View: services.ViewStarred, Search: "png"}, []string{"6"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			listing, err := svc.List(ctx, "u1", &req)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			assertIDs(t, listing.Items, tt.want...)
		})
	}

	if _, err := svc.List(ctx, "u1", &services.ListRequest{View: "trash"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown view, got %v", err)
	}
}

func TestDemoMutations(t *testing.T) {
	svc, _ := newTestService(t, &fakeConnections{})
	ctx := context.Background()

	created, err := svc.CreateFolder(ctx, "u1", "", "Obra Centro")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if created.ParentID != nil || !created.IsFolder() {
		t.Errorf("unexpected folder %+v", created)
	}

	if _, err := svc.Select(ctx, "u1", "5"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := svc.Delete(ctx, "u1", "1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	root, _ := svc.List(ctx, "u1", &services.ListRequest{})
	assertIDs(t, root.Items, "2", created.ID, "4", "3")
	if root.Selected != nil {
		t.Error("deleting a folder should close the detail panel of its children")
	}

	inside, _ := svc.List(ctx, "u1", &services.ListRequest{FolderID: "1"})
	if len(inside.Items) != 0 {
		t.Errorf("children of a deleted demo folder should be gone, got %v", ids(inside.Items))
	}

	starred, err := svc.ToggleStar(ctx, "u1", "2")
	if err != nil || !starred.IsStarred {
		t.Fatalf("ToggleStar: %+v, %v", starred, err)
	}

	// Other users keep the pristine dataset
	other, _ := svc.List(ctx, "u2", &services.ListRequest{})
	assertIDs(t, other.Items, "2", "1", "4", "3")
}

func TestList_RetriesOnceOnRateLimit(t *testing.T) {
	adapter := newFakeAdapter(models.ProviderGoogle)
	adapter.folders["root"] = []models.FileItem{fileItem("a", "a.pdf", "root")}
	adapter.listErrs = []error{rateLimited(5 * time.Second)}

	conns := &fakeConnections{}
	conns.connect(adapter, 1)
	svc, rec := newTestService(t, conns)

	listing, err := svc.List(context.Background(), "u1", &services.ListRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	assertIDs(t, listing.Items, "a")
	if got := adapter.calls("root"); got != 2 {
		t.Errorf("list calls = %d, want 2", got)
	}
	if len(rec.delays) != 1 || rec.delays[0] != 5*time.Second {
		t.Errorf("delays = %v, want [5s]", rec.delays)
	}
}

func TestList_NoSecondRetry(t *testing.T) {
	adapter := newFakeAdapter(models.ProviderGoogle)
	adapter.listErrs = []error{rateLimited(0), rateLimited(0)}

	conns := &fakeConnections{}
	conns.connect(adapter, 1)
	svc, rec := newTestService(t, conns)

	_, err := svc.List(context.Background(), "u1", &services.ListRequest{})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if got := adapter.calls("root"); got != 2 {
		t.Errorf("list calls = %d, want 2", got)
	}
	// No Retry-After: the default delay applies
	if len(rec.delays) != 1 || rec.delays[0] != 2*time.Second {
		t.Errorf("delays = %v, want [2s]", rec.delays)
	}
}

func TestRetryDelay_Floor(t *testing.T) {
	svc, _ := newTestService(t, &fakeConnections{})

	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"provider delay", rateLimited(7 * time.Second), 7 * time.Second},
		{"below floor", rateLimited(500 * time.Millisecond), 2 * time.Second},
		{"missing", rateLimited(0), 2 * time.Second},
	}
	for _, tt := range tests {
		if got := svc.retryDelay(tt.err); got != tt.want {
			t.Errorf("%s: retryDelay = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestList_UnauthorizedTearsDownSession(t *testing.T) {
	adapter := newFakeAdapter(models.ProviderGoogle)
	adapter.listErrs = []error{&domain.ProviderError{Provider: "google", Op: "list", Status: http.StatusUnauthorized, Err: errors.New("invalid credentials")}}

	conns := &fakeConnections{}
	conns.connect(adapter, 7)
	svc, rec := newTestService(t, conns)

	_, err := svc.List(context.Background(), "u1", &services.ListRequest{})
	if !errors.Is(err, domain.ErrProviderAuth) {
		t.Fatalf("expected ErrProviderAuth, got %v", err)
	}
	if adapter.calls("root") != 1 || len(rec.delays) != 0 {
		t.Error("a 401 must not be retried")
	}

	conns.mu.Lock()
	invalidated := append([]uint64{}, conns.invalidated...)
	conns.mu.Unlock()
	if len(invalidated) == 0 || invalidated[0] != 7 {
		t.Errorf("invalidated = %v, want [7]", invalidated)
	}

	listing, err := svc.List(context.Background(), "u1", &services.ListRequest{})
	if err != nil || !listing.Demo {
		t.Errorf("expected demo listing after teardown, got %+v, %v", listing, err)
	}
}

func TestList_RevisitDoesNotRefetch(t *testing.T) {
	adapter := newFakeAdapter(models.ProviderGoogle)
	adapter.folders["root"] = []models.FileItem{folderItem("f1", "Obra", "root")}
	adapter.folders["f1"] = []models.FileItem{fileItem("x", "planta.pdf", "f1")}

	conns := &fakeConnections{}
	conns.connect(adapter, 1)
	svc, _ := newTestService(t, conns)
	ctx := context.Background()

	for _, folder := range []string{"", "f1", "root", "f1"} {
		if _, err := svc.List(ctx, "u1", &services.ListRequest{FolderID: folder}); err != nil {
			t.Fatalf("List(%q): %v", folder, err)
		}
	}
	if adapter.calls("root") != 1 || adapter.calls("f1") != 1 {
		t.Errorf("calls root=%d f1=%d, want 1 each", adapter.calls("root"), adapter.calls("f1"))
	}

	if _, err := svc.Refresh(ctx, "u1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if adapter.calls("f1") != 2 {
		t.Errorf("Refresh should refetch the current folder, calls = %d", adapter.calls("f1"))
	}
}

func TestList_StaleFolderReconciledOnRevisit(t *testing.T) {
	adapter := newFakeAdapter(models.ProviderGoogle)
	adapter.folders["root"] = []models.FileItem{folderItem("f1", "Obra", "root")}

	conns := &fakeConnections{}
	conns.connect(adapter, 1)
	svc, _ := newTestService(t, conns)
	ctx := context.Background()

	if _, err := svc.List(ctx, "u1", &services.ListRequest{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	created, err := svc.CreateFolder(ctx, "u1", "root", "Fotos")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	listing, _ := svc.List(ctx, "u1", &services.ListRequest{})
	if !listing.Stale {
		t.Error("listing should be marked stale after a local mutation")
	}
	assertIDs(t, listing.Items, created.ID, "f1")
	if adapter.calls("root") != 1 {
		t.Errorf("current folder should not be refetched, calls = %d", adapter.calls("root"))
	}

	_, _ = svc.List(ctx, "u1", &services.ListRequest{FolderID: "f1"})
	listing, _ = svc.List(ctx, "u1", &services.ListRequest{})
	if adapter.calls("root") != 2 || listing.Stale {
		t.Errorf("revisiting a stale folder should reconcile it: calls=%d stale=%v", adapter.calls("root"), listing.Stale)
	}
}

func TestList_NewerNavigationSupersedesSlowFetch(t *testing.T) {
	adapter := newFakeAdapter(models.ProviderGoogle)
	adapter.folders["fast"] = []models.FileItem{fileItem("a", "a.pdf", "fast")}
	adapter.gates["slow"] = make(chan struct{})
	adapter.started = make(chan string, 1)

	conns := &fakeConnections{}
	conns.connect(adapter, 1)
	svc, _ := newTestService(t, conns)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.List(ctx, "u1", &services.ListRequest{FolderID: "slow"})
		errCh <- err
	}()
	<-adapter.started

	fast, err := svc.List(ctx, "u1", &services.ListRequest{FolderID: "fast"})
	if err != nil {
		t.Fatalf("List(fast): %v", err)
	}
	assertIDs(t, fast.Items, "a")

	select {
	case err := <-errCh:
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("superseded fetch should fail with ErrConflict, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("superseded fetch was not cancelled")
	}

	adapter.mu.Lock()
	sawCancel := adapter.sawCancel
	adapter.mu.Unlock()
	if !sawCancel {
		t.Error("provider call of the superseded fetch should see cancellation")
	}
	if got := svc.state("u1").currentFolder(); got != "fast" {
		t.Errorf("current folder = %q, want fast", got)
	}
}

func TestSessionChangeDiscardsCatalog(t *testing.T) {
	google := newFakeAdapter(models.ProviderGoogle)
	google.folders["root"] = []models.FileItem{fileItem("g", "drive.pdf", "root")}
	dropbox := newFakeAdapter(models.ProviderDropbox)
	dropbox.folders["root"] = []models.FileItem{fileItem("/d.pdf", "d.pdf", "root")}

	conns := &fakeConnections{}
	conns.connect(google, 1)
	svc, _ := newTestService(t, conns)
	ctx := context.Background()

	if _, err := svc.Select(ctx, "u1", "g"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("nothing is loaded yet, got %v", err)
	}
	_, _ = svc.List(ctx, "u1", &services.ListRequest{})
	if _, err := svc.Select(ctx, "u1", "g"); err != nil {
		t.Fatalf("Select: %v", err)
	}

	conns.connect(dropbox, 2)
	listing, err := svc.List(ctx, "u1", &services.ListRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if listing.Provider != models.ProviderDropbox || listing.Selected != nil {
		t.Errorf("unexpected listing after switch: provider=%q selected=%v", listing.Provider, listing.Selected)
	}
	assertIDs(t, listing.Items, "/d.pdf")
}

func TestDelete_ClosesDetailPanel(t *testing.T) {
	adapter := newFakeAdapter(models.ProviderGoogle)
	adapter.folders["root"] = []models.FileItem{fileItem("a", "a.pdf", "root"), fileItem("b", "b.pdf", "root")}

	conns := &fakeConnections{}
	conns.connect(adapter, 1)
	svc, _ := newTestService(t, conns)
	ctx := context.Background()

	_, _ = svc.List(ctx, "u1", &services.ListRequest{})
	if _, err := svc.Select(ctx, "u1", "b"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := svc.Delete(ctx, "u1", "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	listing, _ := svc.List(ctx, "u1", &services.ListRequest{})
	assertIDs(t, listing.Items, "a")
	if listing.Selected != nil {
		t.Errorf("selection should be cleared, got %+v", listing.Selected)
	}
}

func TestRename_DropboxChangesID(t *testing.T) {
	adapter := newFakeAdapter(models.ProviderDropbox)
	adapter.folders["root"] = []models.FileItem{fileItem("/planta.pdf", "planta.pdf", "root")}

	conns := &fakeConnections{}
	conns.connect(adapter, 1)
	svc, _ := newTestService(t, conns)
	ctx := context.Background()

	_, _ = svc.List(ctx, "u1", &services.ListRequest{})
	_, _ = svc.Select(ctx, "u1", "/planta.pdf")

	renamed, err := svc.Rename(ctx, "u1", "/planta.pdf", "Planta-v2.pdf")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.ID != "/planta-v2.pdf" {
		t.Fatalf("renamed id = %q", renamed.ID)
	}

	listing, _ := svc.List(ctx, "u1", &services.ListRequest{})
	assertIDs(t, listing.Items, "/planta-v2.pdf")
	if listing.Selected == nil || listing.Selected.ID != "/planta-v2.pdf" {
		t.Errorf("selection should follow the rename, got %+v", listing.Selected)
	}
	if _, err := svc.Select(ctx, "u1", "/planta.pdf"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("old id should no longer resolve, got %v", err)
	}
}

func TestToggleStar(t *testing.T) {
	t.Run("dropbox is unsupported", func(t *testing.T) {
		adapter := newFakeAdapter(models.ProviderDropbox)
		adapter.folders["root"] = []models.FileItem{fileItem("/a.pdf", "a.pdf", "root")}
		conns := &fakeConnections{}
		conns.connect(adapter, 1)
		svc, _ := newTestService(t, conns)

		_, _ = svc.List(context.Background(), "u1", &services.ListRequest{})
		_, err := svc.ToggleStar(context.Background(), "u1", "/a.pdf")
		if !errors.Is(err, domain.ErrUnsupported) {
			t.Fatalf("expected ErrUnsupported, got %v", err)
		}
		if adapter.starCalls != 0 {
			t.Error("provider should not be called")
		}
	})

	t.Run("google flips the flag", func(t *testing.T) {
		adapter := newFakeAdapter(models.ProviderGoogle)
		adapter.folders["root"] = []models.FileItem{fileItem("a", "a.pdf", "root")}
		conns := &fakeConnections{}
		conns.connect(adapter, 1)
		svc, _ := newTestService(t, conns)
		ctx := context.Background()

		_, _ = svc.List(ctx, "u1", &services.ListRequest{})
		item, err := svc.ToggleStar(ctx, "u1", "a")
		if err != nil || !item.IsStarred {
			t.Fatalf("ToggleStar: %+v, %v", item, err)
		}

		starred, _ := svc.List(ctx, "u1", &services.ListRequest{View: services.ViewStarred})
		assertIDs(t, starred.Items, "a")
	})
}

func TestPreview_ResolvesURL(t *testing.T) {
	adapter := newFakeAdapter(models.ProviderGoogle)
	adapter.folders["root"] = []models.FileItem{fileItem("a", "a.pdf", "root"), folderItem("f", "Obra", "root")}
	conns := &fakeConnections{}
	conns.connect(adapter, 1)
	svc, _ := newTestService(t, conns)
	ctx := context.Background()

	_, _ = svc.List(ctx, "u1", &services.ListRequest{})
	item, err := svc.Preview(ctx, "u1", "a")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if item.URL != "https://preview.test/a" {
		t.Errorf("url = %q", item.URL)
	}
	if _, err := svc.Preview(ctx, "u1", "f"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("folder preview should fail validation, got %v", err)
	}
}

func TestRecentAndQuota(t *testing.T) {
	adapter := newFakeAdapter(models.ProviderGoogle)
	conns := &fakeConnections{}
	conns.connect(adapter, 1)
	svc, _ := newTestService(t, conns)
	ctx := context.Background()

	recent, err := svc.Recent(ctx, "u1")
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || !recent[0].IsAta {
		t.Errorf("unexpected recent files %+v", recent)
	}
	quota, _ := svc.Quota(ctx, "u1")
	if quota.Used != 10 || quota.Total != 100 {
		t.Errorf("unexpected quota %+v", quota)
	}
}

func TestRecentAndQuota_DegradeOnFailure(t *testing.T) {
	adapter := newFakeAdapter(models.ProviderGoogle)
	adapter.recentErr = errors.New("boom")
	conns := &fakeConnections{}
	conns.connect(adapter, 1)
	svc, _ := newTestService(t, conns)
	ctx := context.Background()

	recent, err := svc.Recent(ctx, "u1")
	if err != nil || recent == nil || len(recent) != 0 {
		t.Errorf("expected empty recent list, got %v, %v", recent, err)
	}
	quota, err := svc.Quota(ctx, "u1")
	if err != nil || quota.Used != 0 || quota.Total != 0 {
		t.Errorf("expected zero quota, got %+v, %v", quota, err)
	}
}

func TestCreateFolder_Validation(t *testing.T) {
	svc, _ := newTestService(t, &fakeConnections{})

	for _, name := range []string{"", "   ", "a/b", strings.Repeat("x", 256)} {
		if _, err := svc.CreateFolder(context.Background(), "u1", "", name); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("CreateFolder(%q): expected ErrValidation, got %v", name, err)
		}
	}
}
