package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	middleware "github.com/coursehub-api/coursehub/internal/api/middlewares"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	"github.com/coursehub-api/coursehub/internal/services"
)

const maxAvatarBytes = 5 << 20

type ProfileHandler struct {
	users *services.UserService
}

func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetProfile(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	FullName  *string `json:"fullName,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.BadRequest("invalid body"))
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), middleware.UserID(r.Context()), req.FullName, req.AvatarURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeError(w, errs.BadRequest("invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, errs.BadRequest("Missing file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes))
	if err != nil {
		writeError(w, errs.Internal("failed to read upload", err))
		return
	}

	user, err := h.users.UploadAvatar(r.Context(), middleware.UserID(r.Context()), header.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
