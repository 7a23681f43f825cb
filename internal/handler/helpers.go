package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"linkarbox/internal/config"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var (
		conflictErr *domain.ConflictError
		providerErr *domain.ProviderError
	)

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidInvite):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotConnected):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnsupported):
		httputil.RespondError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		retry, ok := domain.RetryAfterOf(err)
		if !ok {
			retry = config.DefaultRetryAfter
		}
		httputil.RespondRateLimited(w, retry, err.Error())
	case errors.Is(err, domain.ErrProviderAuth):
		httputil.RespondErrorWithExtras(w, http.StatusUnauthorized, err.Error(), map[string]interface{}{
			"reconnect": true,
		})
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondError(w, http.StatusConflict, conflictErr.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &providerErr):
		httputil.RespondError(w, providerErr.StatusCode(), "cloud provider request failed")
	default:
		slog.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// HandleCreateConflict handles conflicts during creation by returning the existing resource with 409
// If the error is a ConflictError, it calls fetchFn to retrieve the existing resource
func HandleCreateConflict[T any](w http.ResponseWriter, err error, fetchFn func(resourceID string) (*T, error)) {
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) && conflictErr.ResourceID != "" {
		existing, fetchErr := fetchFn(conflictErr.ResourceID)
		if fetchErr != nil {
			handleError(w, fetchErr)
			return
		}

		httputil.RespondJSON(w, http.StatusConflict, existing)
		return
	}

	handleError(w, err)
}

// requireRole writes 403 unless the caller has role
func requireRole(w http.ResponseWriter, r *http.Request, role models.UserRole) (string, bool) {
	if httputil.GetRole(r) != role {
		httputil.RespondError(w, http.StatusForbidden, "this action requires the "+string(role)+" role")
		return "", false
	}
	return httputil.GetUserID(r), true
}

// viewerOf builds the notes viewer from the request context
func viewerOf(r *http.Request) services.Viewer {
	return services.Viewer{
		UserID: httputil.GetUserID(r),
		Role:   httputil.GetRole(r),
	}
}

// itemID reads the provider item id from the query. Dropbox ids are paths,
// so they cannot travel as path segments.
func itemID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "id is required")
		return "", false
	}
	return id, true
}

// providerParam reads and validates the {provider} path value
func providerParam(w http.ResponseWriter, r *http.Request) (models.CloudProvider, bool) {
	kind := models.CloudProvider(r.PathValue("provider"))
	if !kind.Valid() {
		httputil.RespondError(w, http.StatusBadRequest, "unknown provider "+string(kind))
		return "", false
	}
	return kind, true
}
