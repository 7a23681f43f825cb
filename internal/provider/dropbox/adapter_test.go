package dropbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/provider"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/auth"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
)

// fakeFiles serves paged listings and records mutations
type fakeFiles struct {
	mu        sync.Mutex
	pages     []*files.ListFolderResult
	listErr   error
	listCalls int
	contCalls int
	lastList  *files.ListFolderArg
	moved     *files.RelocationArg
	deleted   string
	created   string
}

func (f *fakeFiles) ListFolder(arg *files.ListFolderArg) (*files.ListFolderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastList = arg
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pages[0], nil
}

func (f *fakeFiles) ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contCalls++
	var idx int
	if _, err := fmt.Sscanf(arg.Cursor, "c%d", &idx); err != nil || idx >= len(f.pages) {
		return nil, fmt.Errorf("bad cursor %q", arg.Cursor)
	}
	return f.pages[idx], nil
}

func (f *fakeFiles) CreateFolderV2(arg *files.CreateFolderArg) (*files.CreateFolderResult, error) {
	f.created = arg.Path
	return &files.CreateFolderResult{Metadata: folderMeta(arg.Path, "id:new")}, nil
}

func (f *fakeFiles) Upload(arg *files.UploadArg, content io.Reader) (*files.FileMetadata, error) {
	data, _ := io.ReadAll(content)
	meta := fileMeta(arg.Path, "id:up", time.Time{})
	meta.Size = uint64(len(data))
	return meta, nil
}

func (f *fakeFiles) MoveV2(arg *files.RelocationArg) (*files.RelocationResult, error) {
	f.moved = arg
	return &files.RelocationResult{Metadata: fileMeta(arg.ToPath, "id:same", time.Time{})}, nil
}

func (f *fakeFiles) DeleteV2(arg *files.DeleteArg) (*files.DeleteResult, error) {
	f.deleted = arg.Path
	return &files.DeleteResult{}, nil
}

func (f *fakeFiles) GetTemporaryLink(arg *files.GetTemporaryLinkArg) (*files.GetTemporaryLinkResult, error) {
	return &files.GetTemporaryLinkResult{Link: "https://dl.dropboxusercontent.com/tmp" + arg.Path}, nil
}

type fakeUsers struct {
	accountErr error
}

func (u *fakeUsers) GetCurrentAccount() (*users.FullAccount, error) {
	if u.accountErr != nil {
		return nil, u.accountErr
	}
	acc := &users.FullAccount{}
	acc.Email = "bob@example.com"
	acc.Name = &users.Name{DisplayName: "Bob"}
	return acc, nil
}

func (u *fakeUsers) GetSpaceUsage() (*users.SpaceUsage, error) {
	return &users.SpaceUsage{
		Used: 500,
		Allocation: &users.SpaceAllocation{
			Individual: &users.IndividualSpaceAllocation{Allocated: 2000},
		},
	}, nil
}

type fakeAuth struct{ revoked bool }

func (a *fakeAuth) TokenRevoke() error {
	a.revoked = true
	return nil
}

func fileMeta(p, id string, modified time.Time) *files.FileMetadata {
	m := &files.FileMetadata{Id: id, ClientModified: modified, ServerModified: modified}
	m.Name = p[lastSlash(p)+1:]
	m.PathLower = p
	m.PathDisplay = p
	return m
}

func folderMeta(p, id string) *files.FolderMetadata {
	m := &files.FolderMetadata{Id: id}
	m.Name = p[lastSlash(p)+1:]
	m.PathLower = p
	m.PathDisplay = p
	return m
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func newFakeAdapter(f *fakeFiles) (*Adapter, *fakeUsers, *fakeAuth) {
	u := &fakeUsers{}
	au := &fakeAuth{}
	return &Adapter{files: f, users: u, auth: au}, u, au
}

func TestListFolder_PaginationCompleteness(t *testing.T) {
	tests := []struct {
		name      string
		pageSizes []int
	}{
		{"single page", []int{3}},
		{"three pages", []int{2, 5, 1}},
		{"empty trailing page", []int{4, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeFiles{}
			total := 0
			for i, n := range tt.pageSizes {
				page := &files.ListFolderResult{
					Cursor:  fmt.Sprintf("c%d", i+1),
					HasMore: i < len(tt.pageSizes)-1,
				}
				for j := 0; j < n; j++ {
					p := fmt.Sprintf("/projects/file-%d-%d.pdf", i, j)
					page.Entries = append(page.Entries, fileMeta(p, p, time.Now()))
				}
				total += n
				fake.pages = append(fake.pages, page)
			}

			a, _, _ := newFakeAdapter(fake)
			items, err := a.ListFolder(context.Background(), "/projects")
			if err != nil {
				t.Fatalf("ListFolder: %v", err)
			}

			if len(items) != total {
				t.Errorf("got %d items, want %d", len(items), total)
			}
			if fake.contCalls != len(tt.pageSizes)-1 {
				t.Errorf("continue called %d times, want %d", fake.contCalls, len(tt.pageSizes)-1)
			}
			if fake.lastList.Path != "/projects" {
				t.Errorf("listed path %q", fake.lastList.Path)
			}
		})
	}
}

func TestListFolder_MapsEntries(t *testing.T) {
	modified := time.Date(2023, 8, 12, 9, 0, 0, 0, time.UTC)
	deleted := &files.DeletedMetadata{}
	deleted.PathLower = "/gone.txt"

	fake := &fakeFiles{pages: []*files.ListFolderResult{{
		Entries: []files.IsMetadata{
			folderMeta("/projeto alpha", "id:1"),
			fileMeta("/ata.pdf", "id:2", modified),
			deleted,
		},
	}}}

	a, _, _ := newFakeAdapter(fake)
	items, err := a.ListFolder(context.Background(), "root")
	if err != nil {
		t.Fatalf("ListFolder: %v", err)
	}
	if fake.lastList.Path != "" {
		t.Errorf("root should list path \"\", got %q", fake.lastList.Path)
	}
	if len(items) != 2 {
		t.Fatalf("expected deleted entry to be skipped, got %d items", len(items))
	}

	folder, file := items[0], items[1]
	if folder.Type != models.ItemTypeFolder || folder.ID != "/projeto alpha" || folder.CloudID != "id:1" {
		t.Errorf("unexpected folder %+v", folder)
	}
	if folder.Modified != "N/A" || folder.Parent() != "root" {
		t.Errorf("folder modified/parent = %q/%q", folder.Modified, folder.Parent())
	}
	if file.MimeType != "application/pdf" || file.Modified != "Aug 12, 2023" || file.IsStarred {
		t.Errorf("unexpected file %+v", file)
	}
}

func TestListFolder_Errors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		sentinel  error
		wantRetry time.Duration
	}{
		{
			name:      "rate limited by value",
			err:       auth.RateLimitAPIError{RateLimitError: &auth.RateLimitError{RetryAfter: 5}},
			sentinel:  domain.ErrRateLimited,
			wantRetry: 5 * time.Second,
		},
		{
			name:     "rate limited by pointer",
			err:      &auth.RateLimitAPIError{},
			sentinel: domain.ErrRateLimited,
		},
		{
			name:     "expired token",
			err:      auth.AuthAPIError{APIError: dropbox.APIError{ErrorSummary: "expired_access_token/"}},
			sentinel: domain.ErrProviderAuth,
		},
		{
			name:     "path not found",
			err:      errors.New("path/not_found/.."),
			sentinel: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newFakeAdapter(&fakeFiles{listErr: tt.err})
			_, err := a.ListFolder(context.Background(), "root")
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			got, _ := domain.RetryAfterOf(err)
			if got != tt.wantRetry {
				t.Errorf("retry after = %v, want %v", got, tt.wantRetry)
			}
		})
	}
}

func TestListFolder_CancelledBetweenPages(t *testing.T) {
	fake := &fakeFiles{pages: []*files.ListFolderResult{
		{HasMore: true, Cursor: "c1"},
		{HasMore: false},
	}}
	a, _, _ := newFakeAdapter(fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.ListFolder(ctx, "root"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fake.contCalls != 0 {
		t.Errorf("continue should not run after cancellation, ran %d times", fake.contCalls)
	}
}

func TestRename_ChangesPathID(t *testing.T) {
	fake := &fakeFiles{}
	a, _, _ := newFakeAdapter(fake)

	item, err := a.Rename(context.Background(), "/projeto alpha/old.pdf", "new.pdf")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if fake.moved.FromPath != "/projeto alpha/old.pdf" || fake.moved.ToPath != "/projeto alpha/new.pdf" {
		t.Errorf("unexpected move %+v", fake.moved)
	}
	if item.ID != "/projeto alpha/new.pdf" {
		t.Errorf("renamed id = %q", item.ID)
	}
	if item.Parent() != "/projeto alpha" {
		t.Errorf("renamed parent = %q", item.Parent())
	}

	top, err := a.Rename(context.Background(), "/top.pdf", "renamed.pdf")
	if err != nil {
		t.Fatalf("Rename top-level: %v", err)
	}
	if fake.moved.ToPath != "/renamed.pdf" || top.Parent() != "root" {
		t.Errorf("top-level rename to %q parent %q", fake.moved.ToPath, top.Parent())
	}
}

func TestCreateFolderAndUpload_Paths(t *testing.T) {
	fake := &fakeFiles{}
	a, _, _ := newFakeAdapter(fake)

	folder, err := a.CreateFolder(context.Background(), "root", "Obra")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if fake.created != "/Obra" || folder.Type != models.ItemTypeFolder {
		t.Errorf("created %q -> %+v", fake.created, folder)
	}

	file, err := a.Upload(context.Background(), "/obra", uploadOf("planta.pdf", "abc"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if file.ID != "/obra/planta.pdf" || file.Size == nil || *file.Size != 3 {
		t.Errorf("unexpected upload item %+v", file)
	}
}

func TestToggleStar_Unsupported(t *testing.T) {
	a, _, _ := newFakeAdapter(&fakeFiles{})
	err := a.ToggleStar(context.Background(), "/a.pdf", true)
	if !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if !strings.HasSuffix(err.Error(), ": starring is not supported on dropbox") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestPathBreadcrumbs(t *testing.T) {
	got := PathBreadcrumbs("/clientes/obra 1/plantas")
	want := []models.Breadcrumb{
		{ID: "/clientes", Name: "clientes", ParentID: "root"},
		{ID: "/clientes/obra 1", Name: "obra 1", ParentID: "/clientes"},
		{ID: "/clientes/obra 1/plantas", Name: "plantas", ParentID: "/clientes/obra 1"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d crumbs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("crumb %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if len(PathBreadcrumbs("root")) != 0 {
		t.Error("root should have no crumbs")
	}
}

func TestRecent_NewestFilesOnly(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	page := &files.ListFolderResult{}
	for i := 0; i < 12; i++ {
		page.Entries = append(page.Entries, fileMeta(fmt.Sprintf("/a/f%02d.txt", i), "x", base.Add(time.Duration(i)*time.Hour)))
	}
	page.Entries = append(page.Entries, folderMeta("/a", "dir"))

	fake := &fakeFiles{pages: []*files.ListFolderResult{page}}
	a, _, _ := newFakeAdapter(fake)

	items, err := a.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if !fake.lastList.Recursive {
		t.Error("recent listing should be recursive")
	}
	if len(items) != 10 {
		t.Fatalf("got %d items, want 10", len(items))
	}
	if items[0].ID != "/a/f11.txt" || items[9].ID != "/a/f02.txt" {
		t.Errorf("unexpected order: first %q last %q", items[0].ID, items[9].ID)
	}
	for _, it := range items {
		if it.IsFolder() {
			t.Errorf("folder %q in recent files", it.ID)
		}
		if it.Parent() != "/a" {
			t.Errorf("parent = %q", it.Parent())
		}
	}
}

func TestAccountQuotaRevoke(t *testing.T) {
	a, users, au := newFakeAdapter(&fakeFiles{})

	acc, err := a.Account(context.Background())
	if err != nil || acc.Name != "Bob" || acc.Email != "bob@example.com" {
		t.Fatalf("Account = %+v, %v", acc, err)
	}

	users.accountErr = auth.AuthAPIError{}
	if _, err := a.Account(context.Background()); !errors.Is(err, domain.ErrProviderAuth) {
		t.Errorf("expected ErrProviderAuth, got %v", err)
	}

	quota, err := a.Quota(context.Background())
	if err != nil || quota.Used != 500 || quota.Total != 2000 {
		t.Errorf("Quota = %+v, %v", quota, err)
	}

	if err := a.Revoke(context.Background()); err != nil || !au.revoked {
		t.Errorf("Revoke err=%v revoked=%v", err, au.revoked)
	}
}

func uploadOf(name, body string) provider.UploadFile {
	return provider.UploadFile{Name: name, Body: strings.NewReader(body), Size: int64(len(body))}
}
