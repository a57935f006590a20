package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	middleware "github.com/coursehub-api/coursehub/internal/api/middlewares"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	"github.com/coursehub-api/coursehub/internal/services"
)

type SessionHandler struct {
	sessions *services.SessionService
}

func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type createSessionRequest struct {
	CourseID string  `json:"courseId"`
	Title    *string `json:"title,omitempty"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.BadRequest("invalid body"))
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), middleware.UserID(r.Context()), req.CourseID, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// List pages the caller's sessions for a course. Query params: courseId,
// limit, offset.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	page, err := h.sessions.ListSessions(r.Context(), middleware.UserID(r.Context()), r.URL.Query().Get("courseId"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	messages, err := h.sessions.GetHistory(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type renameSessionRequest struct {
	Title *string `json:"title"`
}

func (h *SessionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.BadRequest("invalid body"))
		return
	}

	if err := h.sessions.RenameSession(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "sessionID"), req.Title); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.DeleteSession(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search matches the caller's sessions by title or message content. Query
// params: courseId, q.
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.SearchSessions(r.Context(), middleware.UserID(r.Context()), r.URL.Query().Get("courseId"), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}
