package handler

import (
	"log/slog"
	"net/http"

	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/httputil"
)

// ClientHandler handles client management and the public invite flow
type ClientHandler struct {
	clients services.ClientService
	logger  *slog.Logger
}

// NewClientHandler creates a new client handler
func NewClientHandler(clients services.ClientService, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{
		clients: clients,
		logger:  logger,
	}
}

// CreateClient creates an active client
// POST /api/clients
func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	var req services.CreateClientRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	client, err := h.clients.CreateClient(r.Context(), architectID, &req)
	if err != nil {
		HandleCreateConflict(w, err, func(id string) (*models.Client, error) {
			return h.clients.GetClient(r.Context(), id, architectID)
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, client)
}

// InviteClient creates a pending client and returns the invite link
// POST /api/clients/invite
func (h *ClientHandler) InviteClient(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	var req services.CreateClientRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	invite, err := h.clients.InviteClient(r.Context(), architectID, &req)
	if err != nil {
		HandleCreateConflict(w, err, func(id string) (*models.Client, error) {
			return h.clients.GetClient(r.Context(), id, architectID)
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, invite)
}

// ListClients lists the architect's clients
// GET /api/clients
func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	clients, err := h.clients.ListClients(r.Context(), architectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, clients)
}

// GetClient retrieves one client
// GET /api/clients/{id}
func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	client, err := h.clients.GetClient(r.Context(), r.PathValue("id"), architectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, client)
}

// UpdateClient applies a partial update
// PATCH /api/clients/{id}
func (h *ClientHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	var req services.UpdateClientRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	client, err := h.clients.UpdateClient(r.Context(), r.PathValue("id"), architectID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, client)
}

// DeleteClient removes a client and, by cascade, its shares
// DELETE /api/clients/{id}
func (h *ClientHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	if err := h.clients.DeleteClient(r.Context(), r.PathValue("id"), architectID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResendInvite issues a fresh invite token
// POST /api/clients/{id}/resend
func (h *ClientHandler) ResendInvite(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	invite, err := h.clients.ResendInvite(r.Context(), r.PathValue("id"), architectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, invite)
}

// Stats counts clients by status
// GET /api/clients/stats
func (h *ClientHandler) Stats(w http.ResponseWriter, r *http.Request) {
	architectID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	stats, err := h.clients.Stats(r.Context(), architectID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, stats)
}

// GetInvite shows a pending invite; public
// GET /invite/{token}
func (h *ClientHandler) GetInvite(w http.ResponseWriter, r *http.Request) {
	invite, err := h.clients.GetInvite(r.Context(), r.PathValue("token"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, invite)
}

// CompleteRegistration turns an invite into an account; public
// POST /invite/{token}
func (h *ClientHandler) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	client, err := h.clients.CompleteRegistration(r.Context(), r.PathValue("token"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, client)
}
