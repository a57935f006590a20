package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	db "github.com/coursehub-api/coursehub/internal/core/database"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	objectclient "github.com/coursehub-api/coursehub/internal/core/object-client"
	"github.com/coursehub-api/coursehub/internal/models"
)

// CourseInput carries the mutable course fields.
type CourseInput struct {
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	ThumbnailURL *string `json:"thumbnailUrl,omitempty"`
}

// VideoInput carries the mutable video fields.
type VideoInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	VideoURL    string  `json:"videoUrl"`
	Duration    *int    `json:"duration,omitempty"`
	OrderIndex  int     `json:"orderIndex"`
}

// CourseService manages courses, their lesson videos and enrollments. Course
// and video mutations are instructor-only.
type CourseService struct {
	db      db.DbClient
	objects objectclient.ObjectClient
	logger  *zap.Logger
}

func NewCourseService(dbClient db.DbClient, objects objectclient.ObjectClient, logger *zap.Logger) *CourseService {
	return &CourseService{db: dbClient, objects: objects, logger: logger}
}

func (s *CourseService) CreateCourse(ctx context.Context, instructorID string, input *CourseInput) (*models.Course, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errs.BadRequest("Missing title")
	}
	course := &models.Course{
		ID:           uuid.NewString(),
		InstructorID: instructorID,
		Title:        title,
		Description:  input.Description,
		ThumbnailURL: input.ThumbnailURL,
	}
	if err := s.db.CreateCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return course, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.db.GetCourseByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read course: %w", err)
	}
	if course == nil {
		return nil, errs.NotFound("Course not found")
	}
	return course, nil
}

func (s *CourseService) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.db.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

func (s *CourseService) ListInstructorCourses(ctx context.Context, instructorID string) ([]models.Course, error) {
	courses, err := s.db.ListCoursesByInstructor(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("list instructor courses: %w", err)
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, userID, courseID string, input *CourseInput) (*models.Course, error) {
	course, err := s.requireOwnedCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		course.Title = title
	}
	if input.Description != nil {
		course.Description = input.Description
	}
	if input.ThumbnailURL != nil {
		course.ThumbnailURL = input.ThumbnailURL
	}
	if err := s.db.UpdateCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	return course, nil
}

// DeleteCourse removes the course row. Dependent rows cascade in the schema;
// stored video objects are removed best-effort first.
func (s *CourseService) DeleteCourse(ctx context.Context, userID, courseID string) error {
	if _, err := s.requireOwnedCourse(ctx, userID, courseID); err != nil {
		return err
	}
	videos, err := s.db.ListVideosByCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}
	for _, v := range videos {
		s.deleteObject(ctx, v.VideoURL)
	}
	if err := s.db.DeleteCourse(ctx, courseID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// AddVideo uploads the lesson video bytes and records the lesson. On a DB
// failure the uploaded object is removed again.
func (s *CourseService) AddVideo(ctx context.Context, userID, courseID string, input *VideoInput, data []byte, contentType, bucket string) (*models.Video, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, errs.BadRequest("Missing title")
	}
	if _, err := s.requireOwnedCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}

	videoURL := input.VideoURL
	var uploadedKey string
	if len(data) > 0 {
		uploadedKey = fmt.Sprintf("videos/%s/%s", courseID, uuid.NewString())
		url, err := s.objects.UploadFile(ctx, bucket, uploadedKey, data, contentType)
		if err != nil {
			return nil, fmt.Errorf("upload video: %w", err)
		}
		videoURL = url
	}
	if videoURL == "" {
		return nil, errs.BadRequest("Missing videoUrl or file")
	}

	video := &models.Video{
		ID:          uuid.NewString(),
		CourseID:    courseID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		VideoURL:    videoURL,
		Duration:    input.Duration,
		OrderIndex:  input.OrderIndex,
	}
	if err := s.db.CreateVideo(ctx, video); err != nil {
		if uploadedKey != "" {
			if derr := s.objects.DeleteFile(ctx, bucket, uploadedKey); derr != nil {
				s.logger.Warn("failed to roll back uploaded video", zap.String("key", uploadedKey), zap.Error(derr))
			}
		}
		return nil, fmt.Errorf("create video: %w", err)
	}
	return video, nil
}

func (s *CourseService) ListVideos(ctx context.Context, courseID string) ([]models.Video, error) {
	videos, err := s.db.ListVideosByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	if videos == nil {
		videos = []models.Video{}
	}
	return videos, nil
}

func (s *CourseService) DeleteVideo(ctx context.Context, userID, videoID string) error {
	video, err := s.db.GetVideoByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("read video: %w", err)
	}
	if video == nil {
		return errs.NotFound("Video not found")
	}
	if _, err := s.requireOwnedCourse(ctx, userID, video.CourseID); err != nil {
		return err
	}
	if err := s.db.DeleteVideo(ctx, videoID); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	s.deleteObject(ctx, video.VideoURL)
	return nil
}

// Enroll registers the student on the course. Enrolling twice is a no-op.
func (s *CourseService) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	course, err := s.db.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("read course: %w", err)
	}
	if course == nil {
		return nil, errs.NotFound("Course not found")
	}
	enrollment := &models.Enrollment{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		StudentID: studentID,
	}
	if err := s.db.CreateEnrollment(ctx, enrollment); err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}
	return enrollment, nil
}

func (s *CourseService) ListEnrollments(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	enrollments, err := s.db.ListEnrollmentsByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	if enrollments == nil {
		enrollments = []models.Enrollment{}
	}
	return enrollments, nil
}

func (s *CourseService) requireOwnedCourse(ctx context.Context, userID, courseID string) (*models.Course, error) {
	course, err := s.db.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("read course: %w", err)
	}
	if course == nil {
		return nil, errs.NotFound("Course not found")
	}
	if course.InstructorID != userID {
		return nil, errs.Forbidden("Only the course instructor can do that")
	}
	return course, nil
}

func (s *CourseService) deleteObject(ctx context.Context, fileURL string) {
	if bucket, key := objectclient.ParseURL(fileURL); bucket != "" {
		if err := s.objects.DeleteFile(ctx, bucket, key); err != nil {
			s.logger.Warn("failed to delete stored object", zap.String("url", fileURL), zap.Error(err))
		}
	}
}
