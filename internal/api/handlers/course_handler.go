package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	middleware "github.com/coursehub-api/coursehub/internal/api/middlewares"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	"github.com/coursehub-api/coursehub/internal/services"
)

const maxVideoBytes = 500 << 20

type CourseHandler struct {
	courses *services.CourseService
	bucket  string
}

func NewCourseHandler(courses *services.CourseService, bucket string) *CourseHandler {
	return &CourseHandler{courses: courses, bucket: bucket}
}

func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CourseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, errs.BadRequest("invalid body"))
		return
	}

	course, err := h.courses.CreateCourse(r.Context(), middleware.UserID(r.Context()), &input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *CourseHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListInstructorCourses(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	course, err := h.courses.GetCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input services.CourseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, errs.BadRequest("invalid body"))
		return
	}

	course, err := h.courses.UpdateCourse(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "courseID"), &input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.courses.DeleteCourse(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "courseID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddVideo accepts either a multipart upload ("file" field plus metadata
// fields) or a plain JSON body pointing at an external video URL.
func (h *CourseHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	userID := middleware.UserID(r.Context())

	var (
		input       services.VideoInput
		data        []byte
		contentType string
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxVideoBytes); err != nil {
			writeError(w, errs.BadRequest("invalid multipart body"))
			return
		}
		input.Title = r.FormValue("title")
		if desc := r.FormValue("description"); desc != "" {
			input.Description = &desc
		}
		if d, err := strconv.Atoi(r.FormValue("duration")); err == nil {
			input.Duration = &d
		}
		input.OrderIndex, _ = strconv.Atoi(r.FormValue("orderIndex"))

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, errs.BadRequest("Missing file"))
			return
		}
		defer file.Close()
		data, err = io.ReadAll(io.LimitReader(file, maxVideoBytes))
		if err != nil {
			writeError(w, errs.Internal("failed to read upload", err))
			return
		}
		contentType = header.Header.Get("Content-Type")
	} else {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, errs.BadRequest("invalid body"))
			return
		}
	}

	video, err := h.courses.AddVideo(r.Context(), userID, courseID, &input, data, contentType, h.bucket)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, video)
}

func (h *CourseHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.courses.ListVideos(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (h *CourseHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := h.courses.DeleteVideo(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "videoID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CourseHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	enrollment, err := h.courses.Enroll(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, enrollment)
}

func (h *CourseHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.courses.ListEnrollments(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollments)
}

func isMultipart(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return len(ct) >= 19 && ct[:19] == "multipart/form-data"
}
