package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/coursehub-api/coursehub/internal/api/middlewares"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	"github.com/coursehub-api/coursehub/internal/services"
)

const maxKnowledgeBytes = 50 << 20

type KnowledgeHandler struct {
	knowledge *services.KnowledgeService
}

func NewKnowledgeHandler(knowledge *services.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge}
}

// Upload stores the course's knowledge document, replacing any previous one.
func (h *KnowledgeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxKnowledgeBytes); err != nil {
		writeError(w, errs.BadRequest("invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, errs.BadRequest("Missing file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxKnowledgeBytes))
	if err != nil {
		writeError(w, errs.Internal("failed to read upload", err))
		return
	}

	doc, err := h.knowledge.UploadDocument(
		r.Context(),
		middleware.UserID(r.Context()),
		chi.URLParam(r, "courseID"),
		header.Filename,
		header.Header.Get("Content-Type"),
		data,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.knowledge.GetDocument(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.knowledge.DeleteDocument(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCache drops the extracted-text cache so chat re-reads the live
// document on the next request.
func (h *KnowledgeHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	err := h.knowledge.ClearCache(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
