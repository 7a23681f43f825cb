// Package dropbox implements the provider adapter for Dropbox (API v2).
package dropbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"

	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/provider"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/auth"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
	"golang.org/x/oauth2"
)

// filesClient is the subset of files.Client the adapter uses.
// The SDK's files.Client satisfies it.
type filesClient interface {
	ListFolder(arg *files.ListFolderArg) (*files.ListFolderResult, error)
	ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error)
	CreateFolderV2(arg *files.CreateFolderArg) (*files.CreateFolderResult, error)
	Upload(arg *files.UploadArg, content io.Reader) (*files.FileMetadata, error)
	MoveV2(arg *files.RelocationArg) (*files.RelocationResult, error)
	DeleteV2(arg *files.DeleteArg) (*files.DeleteResult, error)
	GetTemporaryLink(arg *files.GetTemporaryLinkArg) (*files.GetTemporaryLinkResult, error)
}

type usersClient interface {
	GetCurrentAccount() (*users.FullAccount, error)
	GetSpaceUsage() (*users.SpaceUsage, error)
}

type authClient interface {
	TokenRevoke() error
}

// Config configures a Dropbox adapter
type Config struct {
	// Client carries authentication; typically oauth2.NewClient over a
	// refreshing token source.
	Client *http.Client
	Token  string
}

// Adapter talks to Dropbox on behalf of one user.
// The SDK has no context support; cancellation is checked between calls.
type Adapter struct {
	files filesClient
	users usersClient
	auth  authClient
}

// New creates a Dropbox adapter
func New(cfg Config) *Adapter {
	dbxCfg := dropbox.Config{
		Token:    cfg.Token,
		Client:   cfg.Client,
		LogLevel: dropbox.LogOff,
	}
	return &Adapter{
		files: files.New(dbxCfg),
		users: users.New(dbxCfg),
		auth:  auth.New(dbxCfg),
	}
}

// Factory adapts New to provider.Factory
func Factory(ctx context.Context, ts oauth2.TokenSource) (provider.Adapter, error) {
	tok, err := ts.Token()
	if err != nil {
		return nil, wrapError("token", err)
	}
	return New(Config{
		Client: oauth2.NewClient(ctx, ts),
		Token:  tok.AccessToken,
	}), nil
}

func (a *Adapter) Kind() models.CloudProvider {
	return models.ProviderDropbox
}

// ListFolder pages through list_folder/continue until has_more is false and
// returns every entry.
func (a *Adapter) ListFolder(ctx context.Context, folderID string) ([]models.FileItem, error) {
	parent := folderID
	if parent == "" {
		parent = models.RootFolderID
	}

	entries, err := a.listAll(ctx, files.NewListFolderArg(apiPath(folderID)))
	if err != nil {
		return nil, err
	}

	items := make([]models.FileItem, 0, len(entries))
	for _, e := range entries {
		if item, ok := toFileItem(e, parent); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (a *Adapter) listAll(ctx context.Context, arg *files.ListFolderArg) ([]files.IsMetadata, error) {
	res, err := a.files.ListFolder(arg)
	if err != nil {
		return nil, wrapError("list", err)
	}

	entries := append([]files.IsMetadata{}, res.Entries...)
	for res.HasMore {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err = a.files.ListFolderContinue(files.NewListFolderContinueArg(res.Cursor))
		if err != nil {
			return nil, wrapError("list", err)
		}
		entries = append(entries, res.Entries...)
	}
	return entries, nil
}

func (a *Adapter) CreateFolder(ctx context.Context, parentID, name string) (*models.FileItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	arg := files.NewCreateFolderArg(joinPath(parentID, name))
	arg.Autorename = true

	res, err := a.files.CreateFolderV2(arg)
	if err != nil {
		return nil, wrapError("create folder", err)
	}

	item, ok := toFileItem(res.Metadata, orRoot(parentID))
	if !ok {
		return nil, fmt.Errorf("create folder: unexpected metadata")
	}
	return &item, nil
}

func (a *Adapter) Upload(ctx context.Context, parentID string, file provider.UploadFile) (*models.FileItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	arg := files.NewUploadArg(joinPath(parentID, file.Name))
	arg.Autorename = true

	meta, err := a.files.Upload(arg, file.Body)
	if err != nil {
		return nil, wrapError("upload", err)
	}

	item, ok := toFileItem(meta, orRoot(parentID))
	if !ok {
		return nil, fmt.Errorf("upload: unexpected metadata")
	}
	return &item, nil
}

// Rename moves the entry within its parent. The returned item carries the
// new lower-cased path as its id.
func (a *Adapter) Rename(ctx context.Context, id, newName string) (*models.FileItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parent := parentOf(id)
	res, err := a.files.MoveV2(files.NewRelocationArg(id, joinPath(parent, newName)))
	if err != nil {
		return nil, wrapError("rename", err)
	}

	item, ok := toFileItem(res.Metadata, parent)
	if !ok {
		return nil, fmt.Errorf("rename: unexpected metadata")
	}
	return &item, nil
}

func (a *Adapter) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := a.files.DeleteV2(files.NewDeleteArg(id)); err != nil {
		return wrapError("delete", err)
	}
	return nil
}

func (a *Adapter) ToggleStar(ctx context.Context, id string, starred bool) error {
	return fmt.Errorf("%w: starring is not supported on dropbox", domain.ErrUnsupported)
}

// PreviewURL returns a short-lived direct link
func (a *Adapter) PreviewURL(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := a.files.GetTemporaryLink(files.NewGetTemporaryLinkArg(id))
	if err != nil {
		return "", wrapError("preview", err)
	}
	return res.Link, nil
}

func (a *Adapter) Breadcrumbs(ctx context.Context, folderID string) ([]models.Breadcrumb, error) {
	return PathBreadcrumbs(folderID), nil
}

// PathBreadcrumbs derives the crumbs of a folder path from its segments:
// "/a/b" -> [{/a, a, root}, {/a/b, b, /a}].
func PathBreadcrumbs(folderPath string) []models.Breadcrumb {
	crumbs := []models.Breadcrumb{}
	if folderPath == "" || folderPath == models.RootFolderID {
		return crumbs
	}

	current := ""
	for _, seg := range strings.Split(folderPath, "/") {
		if seg == "" {
			continue
		}
		parentID := models.RootFolderID
		if current != "" {
			parentID = current
		}
		current = current + "/" + seg
		crumbs = append(crumbs, models.Breadcrumb{ID: current, Name: seg, ParentID: parentID})
	}
	return crumbs
}

// Recent lists the whole account recursively and keeps the newest files by
// server modification time.
func (a *Adapter) Recent(ctx context.Context, limit int) ([]models.FileItem, error) {
	arg := files.NewListFolderArg("")
	arg.Recursive = true

	entries, err := a.listAll(ctx, arg)
	if err != nil {
		return nil, err
	}

	var found []*files.FileMetadata
	for _, e := range entries {
		if f, ok := e.(*files.FileMetadata); ok {
			found = append(found, f)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].ServerModified.After(found[j].ServerModified)
	})
	if len(found) > limit {
		found = found[:limit]
	}

	items := make([]models.FileItem, 0, len(found))
	for _, f := range found {
		item, _ := toFileItem(f, parentOf(f.PathLower))
		item.Modified = provider.FormatModified(f.ServerModified)
		items = append(items, item)
	}
	return items, nil
}

func (a *Adapter) Quota(ctx context.Context) (*models.StorageQuota, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	usage, err := a.users.GetSpaceUsage()
	if err != nil {
		return nil, wrapError("quota", err)
	}

	quota := &models.StorageQuota{Used: int64(usage.Used)}
	if alloc := usage.Allocation; alloc != nil {
		switch {
		case alloc.Individual != nil:
			quota.Total = int64(alloc.Individual.Allocated)
		case alloc.Team != nil:
			quota.Total = int64(alloc.Team.Allocated)
		}
	}
	return quota, nil
}

// Account validates the token via users/get_current_account.
func (a *Adapter) Account(ctx context.Context) (*models.CloudAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acc, err := a.users.GetCurrentAccount()
	if err != nil {
		return nil, wrapError("account", err)
	}

	account := &models.CloudAccount{Email: acc.Email}
	if acc.Name != nil {
		account.Name = acc.Name.DisplayName
	}
	return account, nil
}

func (a *Adapter) Revoke(ctx context.Context) error {
	if err := a.auth.TokenRevoke(); err != nil {
		return wrapError("revoke", err)
	}
	return nil
}

// toFileItem maps a Dropbox entry. Deleted entries are skipped.
func toFileItem(entry files.IsMetadata, parentID string) (models.FileItem, bool) {
	item := models.FileItem{
		ParentID:   models.StringPtr(parentID),
		SharedWith: []string{},
		Modified:   provider.NotAvailable,
	}

	switch e := entry.(type) {
	case *files.FileMetadata:
		item.ID = e.PathLower
		item.Name = e.Name
		item.Type = models.ItemTypeFile
		item.CloudID = e.Id
		item.MimeType = provider.MimeTypeFromName(e.Name)
		item.Modified = provider.FormatModified(e.ClientModified)
		size := int64(e.Size)
		item.Size = &size
	case *files.FolderMetadata:
		item.ID = e.PathLower
		item.Name = e.Name
		item.Type = models.ItemTypeFolder
		item.CloudID = e.Id
	default:
		return models.FileItem{}, false
	}
	return item, true
}

// apiPath converts a folder id to the Dropbox API path ("" is the root).
func apiPath(folderID string) string {
	if folderID == "" || folderID == models.RootFolderID {
		return ""
	}
	return folderID
}

func joinPath(parentID, name string) string {
	return apiPath(parentID) + "/" + name
}

// parentOf returns the parent folder id of a lower-cased path.
func parentOf(p string) string {
	dir := path.Dir(p)
	if dir == "/" || dir == "." || dir == "" {
		return models.RootFolderID
	}
	return dir
}

func orRoot(id string) string {
	if id == "" {
		return models.RootFolderID
	}
	return id
}
