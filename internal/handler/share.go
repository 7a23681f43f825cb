package handler

import (
	"log/slog"
	"net/http"

	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/httputil"
)

// ShareHandler handles file sharing between architects and clients
type ShareHandler struct {
	shares services.ShareService
	logger *slog.Logger
}

// NewShareHandler creates a new share handler
func NewShareHandler(shares services.ShareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		shares: shares,
		logger: logger,
	}
}

// Share shares a provider file with a client
// POST /api/shares
func (h *ShareHandler) Share(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	var req services.ShareRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	share, err := h.shares.Share(r.Context(), architectID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, share)
}

// ListByArchitect lists every share the architect made
// GET /api/shares
func (h *ShareHandler) ListByArchitect(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	shares, err := h.shares.ListByArchitect(r.Context(), architectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, shares)
}

// Unshare removes one share
// DELETE /api/shares/{id}
func (h *ShareHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	if err := h.shares.Unshare(r.Context(), r.PathValue("id"), architectID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnshareFromClient removes the share of a file with one client
// DELETE /api/shares?client_id=&file_id=
func (h *ShareHandler) UnshareFromClient(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	q := r.URL.Query()
	if err := h.shares.UnshareFromClient(r.Context(), architectID, q.Get("client_id"), q.Get("file_id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type permissionRequest struct {
	Permission models.SharePermission `json:"permission"`
}

// UpdatePermission changes a share's permission
// PATCH /api/shares/{id}
func (h *ShareHandler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	var req permissionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	share, err := h.shares.UpdatePermission(r.Context(), r.PathValue("id"), architectID, req.Permission)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, share)
}

// ClientsForFile lists the client ids a file is shared with
// GET /api/shares/clients?file_id=
func (h *ShareHandler) ClientsForFile(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	fileID := r.URL.Query().Get("file_id")
	if fileID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	ids, err := h.shares.ClientsForFile(r.Context(), architectID, fileID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ids)
}

// ListForClient lists the files shared with the calling client
// GET /api/shared
func (h *ShareHandler) ListForClient(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleClient)
	if !ok {
		return
	}

	shares, err := h.shares.ListForClient(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, shares)
}

// ListSharedFolder lists the contents of a shared Dropbox folder
// GET /api/shared/folder?id=
func (h *ShareHandler) ListSharedFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleClient)
	if !ok {
		return
	}
	folderID, ok := itemID(w, r)
	if !ok {
		return
	}

	items, err := h.shares.ListSharedFolder(r.Context(), userID, folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, items)
}
