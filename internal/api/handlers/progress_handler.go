package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/coursehub-api/coursehub/internal/api/middlewares"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	"github.com/coursehub-api/coursehub/internal/services"
)

type ProgressHandler struct {
	progress *services.ProgressService
}

func NewProgressHandler(progress *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// Record merges one incremental activity tick into the caller's progress.
func (h *ProgressHandler) Record(w http.ResponseWriter, r *http.Request) {
	var input services.RecordProgressInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, errs.BadRequest("invalid body"))
		return
	}
	input.UserID = middleware.UserID(r.Context())

	if err := h.progress.RecordProgress(r.Context(), &input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProgressHandler) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	err := h.progress.MarkLessonCompleted(
		r.Context(),
		middleware.UserID(r.Context()),
		chi.URLParam(r, "courseID"),
		chi.URLParam(r, "videoID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProgressHandler) CompletedVideos(w http.ResponseWriter, r *http.Request) {
	ids, err := h.progress.CompletedVideoIDs(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"completedVideoIds": ids})
}

func (h *ProgressHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.progress.GetLearnerStats(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ProgressHandler) ContinueLearning(w http.ResponseWriter, r *http.Request) {
	items, err := h.progress.GetContinueLearning(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Activity returns the daily activity series. Query param: timeframe
// (day, week, month).
func (h *ProgressHandler) Activity(w http.ResponseWriter, r *http.Request) {
	points, err := h.progress.GetActivitySeries(r.Context(), middleware.UserID(r.Context()), r.URL.Query().Get("timeframe"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}
