// Package google implements the provider adapter for Google Drive (API v3).
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"linkarbox/internal/config"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/provider"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// FolderMimeType marks folders in Drive listings
const FolderMimeType = "application/vnd.google-apps.folder"

// DefaultRevokeURL is Google's token revocation endpoint
const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

const (
	listFields googleapi.Field = "files(id, name, mimeType, modifiedTime, starred, parents, size, trashed)"
	itemFields googleapi.Field = "id, name, mimeType, modifiedTime, starred, parents, size, trashed"
)

// Config configures a Drive adapter. HTTPClient and Endpoint override the
// defaults and are only needed outside production.
type Config struct {
	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client
	Endpoint    string
	RevokeURL   string
}

// Adapter talks to Google Drive on behalf of one user
type Adapter struct {
	svc        *drive.Service
	ts         oauth2.TokenSource
	httpClient *http.Client
	revokeURL  string
}

// New creates a Drive adapter
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	var opts []option.ClientOption
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	} else {
		opts = append(opts, option.WithTokenSource(cfg.TokenSource))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	revokeURL := cfg.RevokeURL
	if revokeURL == "" {
		revokeURL = DefaultRevokeURL
	}

	return &Adapter{
		svc:        svc,
		ts:         cfg.TokenSource,
		httpClient: httpClient,
		revokeURL:  revokeURL,
	}, nil
}

// Factory adapts New to provider.Factory
func Factory(ctx context.Context, ts oauth2.TokenSource) (provider.Adapter, error) {
	return New(ctx, Config{TokenSource: ts})
}

func (a *Adapter) Kind() models.CloudProvider {
	return models.ProviderGoogle
}

// ListFolder reads the first page (100 items) of a folder. Further pages
// are not requested.
func (a *Adapter) ListFolder(ctx context.Context, folderID string) ([]models.FileItem, error) {
	if folderID == "" {
		folderID = models.RootFolderID
	}

	q := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))
	res, err := a.svc.Files.List().
		Q(q).
		Fields(listFields).
		PageSize(config.ProviderPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapError("list", err)
	}

	return toFileItems(res.Files), nil
}

func (a *Adapter) CreateFolder(ctx context.Context, parentID, name string) (*models.FileItem, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
		Parents:  []string{orRoot(parentID)},
	}

	f, err := a.svc.Files.Create(meta).Fields(itemFields).Context(ctx).Do()
	if err != nil {
		return nil, wrapError("create folder", err)
	}

	item := toFileItem(f)
	return &item, nil
}

// Upload sends the file as a multipart request: JSON metadata part plus media.
func (a *Adapter) Upload(ctx context.Context, parentID string, file provider.UploadFile) (*models.FileItem, error) {
	meta := &drive.File{
		Name:     file.Name,
		MimeType: file.MimeType,
		Parents:  []string{orRoot(parentID)},
	}

	call := a.svc.Files.Create(meta).Fields(itemFields).Context(ctx)
	if file.MimeType != "" {
		call = call.Media(file.Body, googleapi.ContentType(file.MimeType))
	} else {
		call = call.Media(file.Body)
	}

	f, err := call.Do()
	if err != nil {
		return nil, wrapError("upload", err)
	}

	item := toFileItem(f)
	return &item, nil
}

// Rename keeps the file id; Drive ids are independent of names.
func (a *Adapter) Rename(ctx context.Context, id, newName string) (*models.FileItem, error) {
	f, err := a.svc.Files.Update(id, &drive.File{Name: newName}).
		Fields(itemFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapError("rename", err)
	}

	item := toFileItem(f)
	return &item, nil
}

func (a *Adapter) Delete(ctx context.Context, id string) error {
	if err := a.svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return wrapError("delete", err)
	}
	return nil
}

func (a *Adapter) ToggleStar(ctx context.Context, id string, starred bool) error {
	// Starred=false is a zero value and must be forced into the PATCH body
	update := &drive.File{Starred: starred, ForceSendFields: []string{"Starred"}}

	_, err := a.svc.Files.Update(id, update).Fields("id, starred").Context(ctx).Do()
	if err != nil {
		return wrapError("star", err)
	}
	return nil
}

// PreviewURL returns an embeddable preview link for the file.
func (a *Adapter) PreviewURL(ctx context.Context, id string) (string, error) {
	f, err := a.svc.Files.Get(id).Fields("id, webViewLink, webContentLink").Context(ctx).Do()
	if err != nil {
		return "", wrapError("preview", err)
	}

	if f.WebViewLink != "" {
		return strings.Replace(f.WebViewLink, "/view", "/preview", 1), nil
	}
	if f.WebContentLink != "" {
		return f.WebContentLink, nil
	}
	return "", fmt.Errorf("%w: no preview link for file %s", domain.ErrNotFound, id)
}

// Breadcrumbs walks the parents chain up to the drive root. Drive has no
// path lookup, so each level costs one metadata request.
func (a *Adapter) Breadcrumbs(ctx context.Context, folderID string) ([]models.Breadcrumb, error) {
	if folderID == "" || folderID == models.RootFolderID {
		return []models.Breadcrumb{}, nil
	}

	var chain []models.Breadcrumb
	current := folderID
	for depth := 0; depth < config.MaxBreadcrumbDepth; depth++ {
		f, err := a.svc.Files.Get(current).Fields("id, name, parents").Context(ctx).Do()
		if err != nil {
			return nil, wrapError("breadcrumbs", err)
		}
		// The drive root has no parents and is not shown as a crumb
		if len(f.Parents) == 0 {
			break
		}
		chain = append(chain, models.Breadcrumb{ID: f.Id, Name: f.Name})
		current = f.Parents[0]
	}

	// chain is leaf-first; reverse and link parents
	crumbs := make([]models.Breadcrumb, len(chain))
	for i := range chain {
		crumbs[i] = chain[len(chain)-1-i]
	}
	for i := range crumbs {
		if i == 0 {
			crumbs[i].ParentID = models.RootFolderID
		} else {
			crumbs[i].ParentID = crumbs[i-1].ID
		}
	}
	return crumbs, nil
}

// Recent returns the most recently modified non-trashed files.
func (a *Adapter) Recent(ctx context.Context, limit int) ([]models.FileItem, error) {
	res, err := a.svc.Files.List().
		Q("trashed = false").
		OrderBy("modifiedTime desc").
		Fields(listFields).
		PageSize(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapError("recent", err)
	}

	return toFileItems(res.Files), nil
}

func (a *Adapter) Quota(ctx context.Context) (*models.StorageQuota, error) {
	about, err := a.svc.About.Get().Fields("storageQuota").Context(ctx).Do()
	if err != nil {
		return nil, wrapError("quota", err)
	}

	quota := &models.StorageQuota{}
	if about.StorageQuota != nil {
		quota.Used = about.StorageQuota.Usage
		quota.Total = about.StorageQuota.Limit
	}
	return quota, nil
}

// Account validates the token with a lightweight about.get call.
func (a *Adapter) Account(ctx context.Context) (*models.CloudAccount, error) {
	about, err := a.svc.About.Get().Fields("user").Context(ctx).Do()
	if err != nil {
		return nil, wrapError("account", err)
	}

	account := &models.CloudAccount{}
	if about.User != nil {
		account.Name = about.User.DisplayName
		account.Email = about.User.EmailAddress
	}
	return account, nil
}

func (a *Adapter) Revoke(ctx context.Context) error {
	if a.ts == nil {
		return nil
	}
	tok, err := a.ts.Token()
	if err != nil {
		return wrapError("revoke", err)
	}

	form := url.Values{"token": {tok.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return wrapError("revoke", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &domain.ProviderError{
			Provider: string(models.ProviderGoogle),
			Op:       "revoke",
			Status:   resp.StatusCode,
			Err:      errors.New("revocation rejected"),
		}
	}
	return nil
}

func toFileItems(files []*drive.File) []models.FileItem {
	items := make([]models.FileItem, 0, len(files))
	for _, f := range files {
		if f.Trashed {
			continue
		}
		items = append(items, toFileItem(f))
	}
	return items
}

func toFileItem(f *drive.File) models.FileItem {
	item := models.FileItem{
		ID:         f.Id,
		Name:       f.Name,
		Type:       models.ItemTypeFile,
		MimeType:   f.MimeType,
		IsStarred:  f.Starred,
		SharedWith: []string{},
		Modified:   provider.FormatRFC3339(f.ModifiedTime),
		CloudID:    f.Id,
		Trashed:    f.Trashed,
	}
	if f.MimeType == FolderMimeType {
		item.Type = models.ItemTypeFolder
	}
	if len(f.Parents) > 0 {
		item.ParentID = models.StringPtr(f.Parents[0])
	}
	// Drive omits size for folders and native docs
	if f.Size > 0 {
		size := f.Size
		item.Size = &size
	}
	return item
}

func orRoot(id string) string {
	if id == "" {
		return models.RootFolderID
	}
	return id
}

// escapeQuery escapes a value embedded in a single-quoted Drive query literal.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
