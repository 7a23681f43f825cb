package collab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/repositories"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/provider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClients is an in-memory ClientRepository
type fakeClients struct {
	mu      sync.Mutex
	seq     int
	clients map[string]*models.Client
	updates int
}

func newFakeClients(seed ...models.Client) *fakeClients {
	f := &fakeClients{clients: make(map[string]*models.Client)}
	for i := range seed {
		c := seed[i]
		f.clients[c.ID] = &c
	}
	return f
}

func (f *fakeClients) Create(ctx context.Context, client *models.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		if c.ArchitectID == client.ArchitectID && c.Email == client.Email {
			return &domain.ConflictError{Message: "duplicate", ResourceType: "client", ResourceID: c.ID}
		}
	}
	f.seq++
	client.ID = fmt.Sprintf("client-%d", f.seq)
	client.CreatedAt = time.Now()
	client.UpdatedAt = client.CreatedAt
	c := *client
	f.clients[c.ID] = &c
	return nil
}

func (f *fakeClients) GetByID(ctx context.Context, id, architectID string) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok || c.ArchitectID != architectID {
		return nil, fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (f *fakeClients) GetByInviteToken(ctx context.Context, token string) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		if c.InviteToken != nil && *c.InviteToken == token && c.Status == models.ClientPending {
			out := *c
			return &out, nil
		}
	}
	return nil, domain.ErrInvalidInvite
}

func (f *fakeClients) GetByUserID(ctx context.Context, userID string) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		if c.UserID != nil && *c.UserID == userID {
			out := *c
			return &out, nil
		}
	}
	return nil, fmt.Errorf("client for user %s: %w", userID, domain.ErrNotFound)
}

func (f *fakeClients) List(ctx context.Context, architectID string) ([]models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Client{}
	for _, c := range f.clients {
		if c.ArchitectID == architectID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeClients) Update(ctx context.Context, client *models.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[client.ID]
	if !ok || c.ArchitectID != client.ArchitectID {
		return fmt.Errorf("client %s: %w", client.ID, domain.ErrNotFound)
	}
	f.updates++
	client.UpdatedAt = time.Now()
	stored := *client
	f.clients[client.ID] = &stored
	return nil
}

func (f *fakeClients) Delete(ctx context.Context, id, architectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok || c.ArchitectID != architectID {
		return fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
	}
	delete(f.clients, id)
	return nil
}

func (f *fakeClients) CountByStatus(ctx context.Context, architectID string) (map[models.ClientStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.ClientStatus]int)
	for _, c := range f.clients {
		if c.ArchitectID == architectID {
			counts[c.Status]++
		}
	}
	return counts, nil
}

func (f *fakeClients) get(id string) models.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.clients[id]
}

// fakeProfiles is an in-memory ProfileRepository
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	err      error
}

func newFakeProfiles(seed ...models.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: make(map[string]models.Profile)}
	for _, p := range seed {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (f *fakeProfiles) Upsert(ctx context.Context, profile *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.profiles[profile.ID] = *profile
	return nil
}

// fakeTx runs fn directly and counts transactions. When clients is set, a
// failed fn restores the clients table as a rollback would.
type fakeTx struct {
	calls     int
	rollbacks int
	clients   *fakeClients
}

func (f *fakeTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	f.calls++
	var saved map[string]models.Client
	if f.clients != nil {
		saved = f.clients.snapshot()
	}
	if err := fn(ctx); err != nil {
		f.rollbacks++
		if saved != nil {
			f.clients.restore(saved)
		}
		return err
	}
	return nil
}

func (f *fakeClients) snapshot() map[string]models.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.Client, len(f.clients))
	for id, c := range f.clients {
		out[id] = *c
	}
	return out
}

func (f *fakeClients) restore(saved map[string]models.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients = make(map[string]*models.Client, len(saved))
	for id := range saved {
		c := saved[id]
		f.clients[id] = &c
	}
}

// fakeUsers records auth users created through the admin API and, like
// Supabase, refuses a second user with the same email
type fakeUsers struct {
	mu        sync.Mutex
	created   []string
	deleted   []string
	live      map[string]bool
	metadata  []map[string]interface{}
	err       error
	deleteErr error
}

func (f *fakeUsers) CreateUser(ctx context.Context, email, password string, metadata map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	id := "user-" + email
	if f.live[id] {
		return "", fmt.Errorf("%w: email exists", domain.ErrConflict)
	}
	if f.live == nil {
		f.live = make(map[string]bool)
	}
	f.live[id] = true
	f.created = append(f.created, email)
	f.metadata = append(f.metadata, metadata)
	return id, nil
}

func (f *fakeUsers) DeleteUser(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.live, id)
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeShares is an in-memory SharedFileRepository
type fakeShares struct {
	mu     sync.Mutex
	seq    int
	shares []models.SharedFile
	mapErr error
}

func (f *fakeShares) Create(ctx context.Context, share *models.SharedFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sh := range f.shares {
		if sh.ClientID == share.ClientID && sh.CloudProvider == share.CloudProvider && sh.CloudFileID == share.CloudFileID {
			return &domain.ConflictError{Message: "duplicate", ResourceType: "share", ResourceID: share.CloudFileID}
		}
	}
	f.seq++
	share.ID = fmt.Sprintf("share-%d", f.seq)
	share.SharedAt = time.Now()
	f.shares = append(f.shares, *share)
	return nil
}

func (f *fakeShares) GetByID(ctx context.Context, id, architectID string) (*models.SharedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sh := range f.shares {
		if sh.ID == id && sh.ArchitectID == architectID {
			out := sh
			return &out, nil
		}
	}
	return nil, fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
}

func (f *fakeShares) remove(match func(models.SharedFile) bool) int {
	kept := f.shares[:0]
	removed := 0
	for _, sh := range f.shares {
		if match(sh) {
			removed++
			continue
		}
		kept = append(kept, sh)
	}
	f.shares = kept
	return removed
}

func (f *fakeShares) Delete(ctx context.Context, id, architectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remove(func(sh models.SharedFile) bool { return sh.ID == id && sh.ArchitectID == architectID }) == 0 {
		return fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (f *fakeShares) DeleteForClient(ctx context.Context, architectID, clientID, cloudFileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.remove(func(sh models.SharedFile) bool {
		return sh.ArchitectID == architectID && sh.ClientID == clientID && sh.CloudFileID == cloudFileID
	})
	if n == 0 {
		return fmt.Errorf("share of %s: %w", cloudFileID, domain.ErrNotFound)
	}
	return nil
}

func (f *fakeShares) filter(match func(models.SharedFile) bool) []models.SharedFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.SharedFile{}
	for _, sh := range f.shares {
		if match(sh) {
			out = append(out, sh)
		}
	}
	return out
}

func (f *fakeShares) ListByArchitect(ctx context.Context, architectID string) ([]models.SharedFile, error) {
	return f.filter(func(sh models.SharedFile) bool { return sh.ArchitectID == architectID }), nil
}

func (f *fakeShares) ListForClient(ctx context.Context, clientID string) ([]models.SharedFile, error) {
	return f.filter(func(sh models.SharedFile) bool { return sh.ClientID == clientID }), nil
}

func (f *fakeShares) ClientsForFile(ctx context.Context, architectID, cloudFileID string) ([]string, error) {
	ids := []string{}
	for _, sh := range f.filter(func(sh models.SharedFile) bool {
		return sh.ArchitectID == architectID && sh.CloudFileID == cloudFileID
	}) {
		ids = append(ids, sh.ClientID)
	}
	return ids, nil
}

func (f *fakeShares) SharedWithMap(ctx context.Context, architectID string, cloudFileIDs []string) (map[string][]string, error) {
	if f.mapErr != nil {
		return nil, f.mapErr
	}
	wanted := make(map[string]bool)
	for _, id := range cloudFileIDs {
		wanted[id] = true
	}
	out := make(map[string][]string)
	for _, sh := range f.filter(func(sh models.SharedFile) bool {
		return sh.ArchitectID == architectID && wanted[sh.CloudFileID]
	}) {
		out[sh.CloudFileID] = append(out[sh.CloudFileID], sh.ClientID)
	}
	return out, nil
}

func (f *fakeShares) Exists(ctx context.Context, clientID, cloudFileID string) (bool, error) {
	return len(f.filter(func(sh models.SharedFile) bool {
		return sh.ClientID == clientID && sh.CloudFileID == cloudFileID
	})) > 0, nil
}

func (f *fakeShares) UpdatePermission(ctx context.Context, id, architectID string, permission models.SharePermission) (*models.SharedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.shares {
		if f.shares[i].ID == id && f.shares[i].ArchitectID == architectID {
			f.shares[i].Permission = permission
			out := f.shares[i]
			return &out, nil
		}
	}
	return nil, fmt.Errorf("share %s: %w", id, domain.ErrNotFound)
}

// fakeRegistry is an in-memory FileRegistryRepository
type fakeRegistry struct {
	mu      sync.Mutex
	seq     int
	rows    map[string]models.FileRegistry
	creates int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{rows: make(map[string]models.FileRegistry)}
}

func (f *fakeRegistry) GetByCloudID(ctx context.Context, architectID, cloudFileID string) (*models.FileRegistry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reg := range f.rows {
		if reg.ArchitectID == architectID && reg.CloudFileID == cloudFileID {
			out := reg
			return &out, nil
		}
	}
	return nil, fmt.Errorf("registry for %s: %w", cloudFileID, domain.ErrNotFound)
}

func (f *fakeRegistry) GetByID(ctx context.Context, id string) (*models.FileRegistry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("registry %s: %w", id, domain.ErrNotFound)
	}
	return &reg, nil
}

func (f *fakeRegistry) GetOrCreate(ctx context.Context, reg *models.FileRegistry) (*models.FileRegistry, error) {
	if existing, err := f.GetByCloudID(ctx, reg.ArchitectID, reg.CloudFileID); err == nil {
		return existing, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.creates++
	stored := *reg
	stored.ID = fmt.Sprintf("reg-%d", f.seq)
	f.rows[stored.ID] = stored
	return &stored, nil
}

// fakeNotes is an in-memory NoteRepository keyed to a fakeRegistry
type fakeNotes struct {
	mu       sync.Mutex
	seq      int
	registry *fakeRegistry
	notes    []models.Note
	names    map[string]string
	mapErr   error
}

func newFakeNotes(registry *fakeRegistry) *fakeNotes {
	return &fakeNotes{registry: registry, names: make(map[string]string)}
}

func (f *fakeNotes) withName(n models.Note) models.Note {
	n.AuthorName = models.UnknownAuthor
	if name, ok := f.names[n.AuthorID]; ok {
		n.AuthorName = name
	}
	return n
}

func (f *fakeNotes) Create(ctx context.Context, note *models.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	note.ID = fmt.Sprintf("note-%d", f.seq)
	note.IsRead = false
	note.CreatedAt = time.Now()
	note.UpdatedAt = note.CreatedAt
	f.notes = append(f.notes, *note)
	return nil
}

func (f *fakeNotes) GetByID(ctx context.Context, id string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notes {
		if n.ID == id {
			out := f.withName(n)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
}

func (f *fakeNotes) ListByRegistry(ctx context.Context, registryID string) ([]models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Note{}
	for _, n := range f.notes {
		if n.FileRegistryID == registryID {
			out = append(out, f.withName(n))
		}
	}
	return out, nil
}

func (f *fakeNotes) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notes {
		if f.notes[i].ID == id {
			f.notes[i].IsRead = true
			return nil
		}
	}
	return fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
}

func (f *fakeNotes) MarkAllRead(ctx context.Context, registryID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.notes {
		if f.notes[i].FileRegistryID == registryID && !f.notes[i].IsRead {
			f.notes[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotes) UnreadCount(ctx context.Context, registryID, viewerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.notes {
		if n.FileRegistryID == registryID && !n.IsRead && n.AuthorID != viewerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotes) UnreadCountMap(ctx context.Context, architectID, viewerID string) (map[string]int, error) {
	if f.mapErr != nil {
		return nil, f.mapErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int)
	for _, n := range f.notes {
		if n.IsRead || n.AuthorID == viewerID {
			continue
		}
		reg, err := f.registry.GetByID(ctx, n.FileRegistryID)
		if err != nil || reg.ArchitectID != architectID {
			continue
		}
		out[reg.CloudFileID]++
	}
	return out, nil
}

func (f *fakeNotes) UpdateContent(ctx context.Context, id, content string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notes {
		if f.notes[i].ID == id {
			f.notes[i].Content = content
			f.notes[i].UpdatedAt = time.Now()
			out := f.withName(f.notes[i])
			return &out, nil
		}
	}
	return nil, fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
}

func (f *fakeNotes) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notes {
		if f.notes[i].ID == id {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
}

// fakeConnections hands out stored adapters per user
type fakeConnections struct {
	services.ConnectionService // unused methods panic

	adapters map[string]provider.Adapter
}

func (f *fakeConnections) StoredAdapter(ctx context.Context, userID string, kind models.CloudProvider) (provider.Adapter, error) {
	a, ok := f.adapters[userID+"|"+string(kind)]
	if !ok {
		return nil, fmt.Errorf("%s for %s: %w", kind, userID, domain.ErrNotConnected)
	}
	return a, nil
}

// folderAdapter serves fixed folder listings
type folderAdapter struct {
	provider.Adapter // unused methods panic

	folders map[string][]models.FileItem
	listed  []string
}

func (a *folderAdapter) ListFolder(ctx context.Context, folderID string) ([]models.FileItem, error) {
	a.listed = append(a.listed, folderID)
	items, ok := a.folders[folderID]
	if !ok {
		return nil, &domain.ProviderError{Provider: "dropbox", Op: "list_folder", Status: 404, Err: errors.New("path not found")}
	}
	return models.CloneItems(items), nil
}
