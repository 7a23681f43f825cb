package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"linkarbox/internal/config"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/httputil"
	"linkarbox/internal/provider"
)

// CatalogHandler handles file catalog HTTP requests for architects
type CatalogHandler struct {
	catalog services.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog services.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// List navigates to a folder and returns the filtered, sorted listing
// GET /api/files?folder=&view=&search=
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := &services.ListRequest{
		FolderID: q.Get("folder"),
		View:     services.View(q.Get("view")),
		Search:   q.Get("search"),
	}

	listing, err := h.catalog.List(r.Context(), userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, listing)
}

// Refresh refetches the current folder
// POST /api/files/refresh
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	listing, err := h.catalog.Refresh(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, listing)
}

type createFolderRequest struct {
	ParentID string `json:"parent_id"`
	Name     string `json:"name"`
}

// CreateFolder creates a folder in the active provider
// POST /api/folders
func (h *CatalogHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	var req createFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.catalog.CreateFolder(r.Context(), userID, req.ParentID, req.Name)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, item)
}

// Upload streams a multipart file to the active provider
// POST /api/files/upload (multipart: parent_id, size, file; file last)
func (h *CatalogHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	// Multipart framing adds a little on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize+1<<20)
	reader, err := r.MultipartReader()
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "expected multipart/form-data")
		return
	}

	var (
		parentID string
		size     int64
	)
	for {
		part, err := reader.NextPart()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httputil.RespondError(w, http.StatusRequestEntityTooLarge, "file too large")
				return
			}
			httputil.RespondError(w, http.StatusBadRequest, "missing file part")
			return
		}

		switch part.FormName() {
		case "parent_id":
			parentID = formValue(part)
		case "size":
			size, _ = strconv.ParseInt(formValue(part), 10, 64)
		case "file":
			file := provider.UploadFile{
				Name:     part.FileName(),
				MimeType: part.Header.Get("Content-Type"),
				Size:     size,
				Body:     part,
			}

			item, err := h.catalog.Upload(r.Context(), userID, parentID, file)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					httputil.RespondError(w, http.StatusRequestEntityTooLarge, "file too large")
					return
				}
				handleError(w, err)
				return
			}

			httputil.RespondJSON(w, http.StatusCreated, item)
			return
		}
	}
}

// formValue reads a small text field of a multipart body
func formValue(part *multipart.Part) string {
	b, _ := io.ReadAll(io.LimitReader(part, 4096))
	return strings.TrimSpace(string(b))
}

type renameRequest struct {
	Name string `json:"name"`
}

// Rename renames an item; on Dropbox the response carries the new id
// PATCH /api/items?id=
func (h *CatalogHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req renameRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.catalog.Rename(r.Context(), userID, id, req.Name)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, item)
}

// Delete removes an item
// DELETE /api/items?id=
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.Delete(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleStar flips the starred flag
// POST /api/items/star?id=
func (h *CatalogHandler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.catalog.ToggleStar(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, item)
}

// Preview resolves the preview URL of a file
// GET /api/items/preview?id=
func (h *CatalogHandler) Preview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.catalog.Preview(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, item)
}

// Select opens the detail panel for an item
// POST /api/items/select?id=
func (h *CatalogHandler) Select(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.catalog.Select(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, item)
}

// ClearSelection closes the detail panel
// DELETE /api/items/select
func (h *CatalogHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	h.catalog.ClearSelection(userID)
	w.WriteHeader(http.StatusNoContent)
}

// Recent lists recently modified files
// GET /api/files/recent
func (h *CatalogHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	items, err := h.catalog.Recent(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, items)
}

// Quota reports storage usage
// GET /api/storage/quota
func (h *CatalogHandler) Quota(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	quota, err := h.catalog.Quota(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, quota)
}
