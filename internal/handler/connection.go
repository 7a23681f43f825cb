package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/httputil"
)

// ConnectionHandler handles cloud provider connection requests
type ConnectionHandler struct {
	connections services.ConnectionService
	appURL      string
	logger      *slog.Logger
}

// NewConnectionHandler creates a new connection handler. appURL is where
// the browser lands after an OAuth callback.
func NewConnectionHandler(connections services.ConnectionService, appURL string, logger *slog.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		appURL:      strings.TrimRight(appURL, "/"),
		logger:      logger,
	}
}

// Status reports both providers
// GET /api/connections
func (h *ConnectionHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	status, err := h.connections.Status(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, status)
}

type keepConnectedRequest struct {
	KeepConnected bool `json:"keep_connected"`
}

// Authorize starts the authorization-code flow
// POST /api/connections/{provider}/authorize
func (h *ConnectionHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}
	kind, ok := providerParam(w, r)
	if !ok {
		return
	}

	var req keepConnectedRequest
	if r.ContentLength != 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	authURL, err := h.connections.AuthURL(r.Context(), userID, kind, req.KeepConnected)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"url": authURL})
}

// Callback completes the code flow and sends the browser back to the app.
// The state parameter identifies the user, so this route is public.
// GET /api/connections/google/callback, GET /dropbox-auth
func (h *ConnectionHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if providerErr := q.Get("error"); providerErr != "" {
		h.logger.Warn("oauth authorization denied", "error", providerErr, "path", r.URL.Path)
		h.redirect(w, r, "error", providerErr)
		return
	}

	status, err := h.connections.CompleteOAuth(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		h.logger.Warn("oauth callback failed", "error", err, "path", r.URL.Path)
		h.redirect(w, r, "error", "authorization_failed")
		return
	}

	h.redirect(w, r, "connected", string(status.Active))
}

func (h *ConnectionHandler) redirect(w http.ResponseWriter, r *http.Request, key, value string) {
	target := h.appURL + "/?" + url.Values{key: {value}}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// ConnectToken activates a token obtained by the browser
// POST /api/connections/{provider}/token
func (h *ConnectionHandler) ConnectToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}
	kind, ok := providerParam(w, r)
	if !ok {
		return
	}

	var req services.ConnectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Provider = kind

	status, err := h.connections.ConnectToken(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, status)
}

type redirectRequest struct {
	URL           string `json:"url"`
	KeepConnected bool   `json:"keep_connected"`
}

// ConnectRedirect connects Dropbox from a pasted redirect URL
// POST /api/connections/dropbox/redirect
func (h *ConnectionHandler) ConnectRedirect(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}

	var req redirectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.connections.ConnectRedirect(r.Context(), userID, req.URL, req.KeepConnected)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, status)
}

// Disconnect revokes and forgets a provider connection
// DELETE /api/connections/{provider}
func (h *ConnectionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}
	kind, ok := providerParam(w, r)
	if !ok {
		return
	}

	status, err := h.connections.Disconnect(r.Context(), userID, kind)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, status)
}

// SetKeepConnected updates the auto-reconnect preference
// PATCH /api/connections/{provider}
func (h *ConnectionHandler) SetKeepConnected(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireRole(w, r, models.RoleArchitect)
	if !ok {
		return
	}
	kind, ok := providerParam(w, r)
	if !ok {
		return
	}

	var req keepConnectedRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.connections.SetKeepConnected(r.Context(), userID, kind, req.KeepConnected)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, status)
}
