package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"linkarbox/internal/domain/services"
	"linkarbox/internal/httputil"
)

// NoteHandler handles notes on files. Architects and clients share the
// routes; the service decides what each may reach.
type NoteHandler struct {
	notes  services.NoteService
	logger *slog.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(notes services.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{
		notes:  notes,
		logger: logger,
	}
}

type createNoteRequest struct {
	services.NoteTarget
	Content string `json:"content"`
}

// CreateNote adds a note to a file, registering the file on first use
// POST /api/notes
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	note, err := h.notes.CreateNote(r.Context(), viewerOf(r), &req.NoteTarget, req.Content)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, note)
}

// ListNotes lists a file's notes oldest first
// GET /api/notes?file_id=
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDParam(w, r)
	if !ok {
		return
	}

	notes, err := h.notes.ListNotes(r.Context(), viewerOf(r), fileID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, notes)
}

// MarkAllRead marks every note on a file as read for the caller
// POST /api/notes/read?file_id=
func (h *NoteHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDParam(w, r)
	if !ok {
		return
	}

	if err := h.notes.MarkAllRead(r.Context(), viewerOf(r), fileID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkRead marks one note as read
// POST /api/notes/{id}/read
func (h *NoteHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.MarkRead(r.Context(), viewerOf(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnreadCount counts the caller's unread notes on a file
// GET /api/notes/unread?file_id=
func (h *NoteHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDParam(w, r)
	if !ok {
		return
	}

	n, err := h.notes.UnreadCount(r.Context(), viewerOf(r), fileID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]int{"count": n})
}

// UnreadMap counts unread notes per file
// GET /api/notes/unread-map?file_ids=a,b
func (h *NoteHandler) UnreadMap(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if raw := r.URL.Query().Get("file_ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	counts, err := h.notes.UnreadMap(r.Context(), viewerOf(r), ids)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, counts)
}

type updateNoteRequest struct {
	Content string `json:"content"`
}

// UpdateNote edits a note's content; author only
// PATCH /api/notes/{id}
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	note, err := h.notes.UpdateNote(r.Context(), viewerOf(r), r.PathValue("id"), req.Content)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, note)
}

// DeleteNote removes a note; author only
// DELETE /api/notes/{id}
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.DeleteNote(r.Context(), viewerOf(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func fileIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("file_id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "file_id is required")
		return "", false
	}
	return id, true
}
