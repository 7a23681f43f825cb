package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/httputil"
	"linkarbox/internal/provider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func as(r *http.Request, userID string, role models.UserRole) *http.Request {
	return httputil.WithUser(r, userID, role)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", fmt.Errorf("%w: name is required", domain.ErrValidation), http.StatusBadRequest},
		{"invalid invite", domain.ErrInvalidInvite, http.StatusNotFound},
		{"not connected", domain.ErrNotConnected, http.StatusConflict},
		{"unsupported", fmt.Errorf("star: %w", domain.ErrUnsupported), http.StatusNotImplemented},
		{"not found", fmt.Errorf("client: %w", domain.ErrNotFound), http.StatusNotFound},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"conflict", &domain.ConflictError{Message: "exists"}, http.StatusConflict},
		{"provider 404", &domain.ProviderError{Provider: "google", Op: "get", Status: 404, Err: errors.New("gone")}, http.StatusNotFound},
		{"provider 500", &domain.ProviderError{Provider: "dropbox", Op: "list", Status: 500, Err: errors.New("oops")}, http.StatusBadGateway},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleError_ProviderSignals(t *testing.T) {
	rec := httptest.NewRecorder()
	handleError(rec, &domain.ProviderError{Provider: "google", Op: "list", Status: 429, RetryAfter: 3 * time.Second, Err: errors.New("slow down")})
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "3" {
		t.Errorf("rate limited = %d Retry-After %q, want 429 / 3", rec.Code, rec.Header().Get("Retry-After"))
	}

	rec = httptest.NewRecorder()
	handleError(rec, &domain.ProviderError{Provider: "dropbox", Op: "list", Status: 401, Err: errors.New("expired")})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("provider auth status = %d, want 401", rec.Code)
	}
	if decode(t, rec)["reconnect"] != true {
		t.Error("provider auth error must ask the client to reconnect")
	}
}

type fakeCatalog struct {
	services.CatalogService
	lastList   *services.ListRequest
	renamed    string
	uploaded   provider.UploadFile
	uploadBody string
	uploadTo   string
}

func (f *fakeCatalog) List(ctx context.Context, userID string, req *services.ListRequest) (*services.Listing, error) {
	f.lastList = req
	return &services.Listing{FolderID: req.FolderID, View: req.View, Items: []models.FileItem{}}, nil
}

func (f *fakeCatalog) Rename(ctx context.Context, userID, id, newName string) (*models.FileItem, error) {
	f.renamed = id
	return &models.FileItem{ID: "/" + newName, Name: newName}, nil
}

func (f *fakeCatalog) Upload(ctx context.Context, userID, parentID string, file provider.UploadFile) (*models.FileItem, error) {
	f.uploaded = file
	f.uploadTo = parentID
	b, err := io.ReadAll(file.Body)
	if err != nil {
		return nil, err
	}
	f.uploadBody = string(b)
	return &models.FileItem{ID: "new", Name: file.Name}, nil
}

func TestCatalogHandler_List(t *testing.T) {
	catalog := &fakeCatalog{}
	h := NewCatalogHandler(catalog, discardLogger())

	req := as(httptest.NewRequest("GET", "/api/files?folder=f1&view=starred&search=planta", nil), "arch", models.RoleArchitect)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if catalog.lastList.FolderID != "f1" || catalog.lastList.View != services.ViewStarred || catalog.lastList.Search != "planta" {
		t.Errorf("list request = %+v", catalog.lastList)
	}
}

func TestCatalogHandler_ArchitectOnly(t *testing.T) {
	h := NewCatalogHandler(&fakeCatalog{}, discardLogger())

	req := as(httptest.NewRequest("GET", "/api/files", nil), "client-user", models.RoleClient)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCatalogHandler_RenameByQueryID(t *testing.T) {
	catalog := &fakeCatalog{}
	h := NewCatalogHandler(catalog, discardLogger())

	req := as(httptest.NewRequest("PATCH", "/api/items?id=%2FProjetos%2Fplanta.pdf", strings.NewReader(`{"name":"corte.pdf"}`)), "arch", models.RoleArchitect)
	rec := httptest.NewRecorder()
	h.Rename(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if catalog.renamed != "/Projetos/planta.pdf" {
		t.Errorf("renamed id = %q", catalog.renamed)
	}

	rec = httptest.NewRecorder()
	h.Rename(rec, as(httptest.NewRequest("PATCH", "/api/items", strings.NewReader(`{"name":"x"}`)), "arch", models.RoleArchitect))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d, want 400", rec.Code)
	}
}

func TestCatalogHandler_Upload(t *testing.T) {
	catalog := &fakeCatalog{}
	h := NewCatalogHandler(catalog, discardLogger())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("parent_id", "folder-9")
	_ = mw.WriteField("size", "5")
	part, _ := mw.CreateFormFile("file", "memorial.txt")
	_, _ = part.Write([]byte("plans"))
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/api/files/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, as(req, "arch", models.RoleArchitect))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if catalog.uploadTo != "folder-9" || catalog.uploaded.Name != "memorial.txt" || catalog.uploaded.Size != 5 {
		t.Errorf("upload = parent %q file %+v", catalog.uploadTo, catalog.uploaded)
	}
	if len(catalog.uploadBody) != 5 {
		t.Errorf("uploaded %d bytes, want 5", len(catalog.uploadBody))
	}
}

type fakeConnections struct {
	services.ConnectionService
	completeErr error
	state, code string
	keep        bool
}

func (f *fakeConnections) CompleteOAuth(ctx context.Context, state, code string) (*models.ConnectionStatus, error) {
	f.state, f.code = state, code
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return &models.ConnectionStatus{Active: models.ProviderDropbox}, nil
}

func (f *fakeConnections) AuthURL(ctx context.Context, userID string, kind models.CloudProvider, keepConnected bool) (string, error) {
	f.keep = keepConnected
	return "https://provider.test/auth?p=" + string(kind), nil
}

func TestConnectionHandler_Callback(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		err      error
		wantLoc  string
		wantCall bool
	}{
		{"success", "?state=s1&code=c1", nil, "https://app.test/?connected=dropbox", true},
		{"exchange failure", "?state=s1&code=c1", domain.ErrValidation, "https://app.test/?error=authorization_failed", true},
		{"user denied", "?error=access_denied", nil, "https://app.test/?error=access_denied", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conns := &fakeConnections{completeErr: tt.err}
			h := NewConnectionHandler(conns, "https://app.test/", discardLogger())

			rec := httptest.NewRecorder()
			h.Callback(rec, httptest.NewRequest("GET", "/dropbox-auth"+tt.query, nil))

			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want 303", rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != tt.wantLoc {
				t.Errorf("Location = %q, want %q", loc, tt.wantLoc)
			}
			if called := conns.state != ""; called != tt.wantCall {
				t.Errorf("CompleteOAuth called = %v, want %v", called, tt.wantCall)
			}
		})
	}
}

func TestConnectionHandler_Authorize(t *testing.T) {
	conns := &fakeConnections{}
	h := NewConnectionHandler(conns, "https://app.test", discardLogger())

	req := httptest.NewRequest("POST", "/api/connections/google/authorize", strings.NewReader(`{"keep_connected":true}`))
	req.SetPathValue("provider", "google")
	rec := httptest.NewRecorder()
	h.Authorize(rec, as(req, "arch", models.RoleArchitect))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !conns.keep {
		t.Error("keep_connected not forwarded")
	}
	if decode(t, rec)["url"] != "https://provider.test/auth?p=google" {
		t.Errorf("body = %s", rec.Body.String())
	}

	req = httptest.NewRequest("POST", "/api/connections/box/authorize", nil)
	req.SetPathValue("provider", "box")
	rec = httptest.NewRecorder()
	h.Authorize(rec, as(req, "arch", models.RoleArchitect))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown provider status = %d, want 400", rec.Code)
	}
}

type fakeClients struct {
	services.ClientService
	existing *models.Client
}

func (f *fakeClients) CreateClient(ctx context.Context, architectID string, req *services.CreateClientRequest) (*models.Client, error) {
	return nil, &domain.ConflictError{Message: "client exists", ResourceType: "client", ResourceID: f.existing.ID}
}

func (f *fakeClients) GetClient(ctx context.Context, id, architectID string) (*models.Client, error) {
	if id != f.existing.ID || architectID != f.existing.ArchitectID {
		return nil, domain.ErrNotFound
	}
	return f.existing, nil
}

func (f *fakeClients) GetInvite(ctx context.Context, token string) (*models.Invite, error) {
	if token != "tok" {
		return nil, domain.ErrInvalidInvite
	}
	return &models.Invite{ClientID: "c1", Email: "ana@example.com", ArchitectName: "Studio"}, nil
}

func TestClientHandler_CreateConflictReturnsExisting(t *testing.T) {
	clients := &fakeClients{existing: &models.Client{ID: "c1", ArchitectID: "arch", Email: "ana@example.com"}}
	h := NewClientHandler(clients, discardLogger())

	req := httptest.NewRequest("POST", "/api/clients", strings.NewReader(`{"name":"Ana","email":"ana@example.com"}`))
	rec := httptest.NewRecorder()
	h.CreateClient(rec, as(req, "arch", models.RoleArchitect))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if decode(t, rec)["id"] != "c1" {
		t.Errorf("body = %s, want existing client", rec.Body.String())
	}
}

func TestClientHandler_RejectsUnknownFields(t *testing.T) {
	h := NewClientHandler(&fakeClients{existing: &models.Client{}}, discardLogger())

	req := httptest.NewRequest("POST", "/api/clients", strings.NewReader(`{"name":"Ana","email":"a@b.c","role":"architect"}`))
	rec := httptest.NewRecorder()
	h.CreateClient(rec, as(req, "arch", models.RoleArchitect))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestClientHandler_GetInvite(t *testing.T) {
	h := NewClientHandler(&fakeClients{}, discardLogger())

	for token, want := range map[string]int{"tok": http.StatusOK, "used": http.StatusNotFound} {
		req := httptest.NewRequest("GET", "/invite/"+token, nil)
		req.SetPathValue("token", token)
		rec := httptest.NewRecorder()
		h.GetInvite(rec, req)
		if rec.Code != want {
			t.Errorf("token %q status = %d, want %d", token, rec.Code, want)
		}
	}
}

type fakeNotes struct {
	services.NoteService
	viewer services.Viewer
	ids    []string
}

func (f *fakeNotes) ListNotes(ctx context.Context, viewer services.Viewer, cloudFileID string) ([]models.Note, error) {
	f.viewer = viewer
	return []models.Note{}, nil
}

func (f *fakeNotes) UnreadMap(ctx context.Context, viewer services.Viewer, cloudFileIDs []string) (map[string]int, error) {
	f.ids = cloudFileIDs
	return map[string]int{}, nil
}

func TestNoteHandler(t *testing.T) {
	notes := &fakeNotes{}
	h := NewNoteHandler(notes, discardLogger())

	rec := httptest.NewRecorder()
	h.ListNotes(rec, as(httptest.NewRequest("GET", "/api/notes?file_id=g-1", nil), "client-user", models.RoleClient))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if notes.viewer.UserID != "client-user" || notes.viewer.Role != models.RoleClient {
		t.Errorf("viewer = %+v", notes.viewer)
	}

	rec = httptest.NewRecorder()
	h.ListNotes(rec, as(httptest.NewRequest("GET", "/api/notes", nil), "arch", models.RoleArchitect))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing file_id status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.UnreadMap(rec, as(httptest.NewRequest("GET", "/api/notes/unread-map?file_ids=a,%20b,,c", nil), "arch", models.RoleArchitect))
	if len(notes.ids) != 3 || notes.ids[1] != "b" {
		t.Errorf("ids = %v, want [a b c]", notes.ids)
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(fakePinger{}, discardLogger()).HealthCheck(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(fakePinger{err: errors.New("down")}, discardLogger()).HealthCheck(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusServiceUnavailable || decode(t, rec)["status"] != "degraded" {
		t.Errorf("degraded = %d %s", rec.Code, rec.Body.String())
	}
}
