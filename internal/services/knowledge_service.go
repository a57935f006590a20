package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	db "github.com/coursehub-api/coursehub/internal/core/database"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	objectclient "github.com/coursehub-api/coursehub/internal/core/object-client"
	"github.com/coursehub-api/coursehub/internal/models"
)

// acceptedKnowledgeTypes maps upload content types to stored file types.
var acceptedKnowledgeTypes = map[string]string{
	"application/pdf":    "pdf",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"text/plain": "txt",
}

// KnowledgeService manages the single reference document per course and its
// extracted-text cache. Only the course's instructor may mutate either.
type KnowledgeService struct {
	db      db.DbClient
	objects objectclient.ObjectClient
	bucket  string
	logger  *zap.Logger
}

func NewKnowledgeService(dbClient db.DbClient, objects objectclient.ObjectClient, bucket string, logger *zap.Logger) *KnowledgeService {
	return &KnowledgeService{db: dbClient, objects: objects, bucket: bucket, logger: logger}
}

// UploadDocument stores a new knowledge document for the course, replacing any
// previous one. The extracted-text cache is left untouched; clearing it is an
// explicit separate action.
func (s *KnowledgeService) UploadDocument(ctx context.Context, userID, courseID, fileName, contentType string, data []byte) (*models.KnowledgeDocument, error) {
	if courseID == "" || fileName == "" || len(data) == 0 {
		return nil, errs.BadRequest("Missing courseId or file")
	}
	fileType, ok := acceptedKnowledgeTypes[contentType]
	if !ok {
		// fall back to the extension when the client sent a generic type
		fileType = strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".")
		if fileType != "pdf" && fileType != "doc" && fileType != "docx" && fileType != "txt" {
			return nil, errs.BadRequest("Unsupported file type")
		}
	}

	if err := s.requireInstructor(ctx, userID, courseID); err != nil {
		return nil, err
	}

	prior, err := s.db.GetKnowledgeDocument(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("read knowledge document: %w", err)
	}

	key := fmt.Sprintf("knowledge/%s/%s-%s", courseID, uuid.NewString(), fileName)
	url, err := s.objects.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload knowledge document: %w", err)
	}

	if prior != nil {
		if err := s.db.DeleteKnowledgeDocument(ctx, courseID); err != nil {
			s.rollbackUpload(ctx, key)
			return nil, fmt.Errorf("replace knowledge document: %w", err)
		}
		if bucket, priorKey := objectclient.ParseURL(prior.FileURL); bucket != "" {
			if err := s.objects.DeleteFile(ctx, bucket, priorKey); err != nil {
				s.logger.Warn("failed to delete replaced knowledge object",
					zap.String("course_id", courseID), zap.Error(err))
			}
		}
	}

	doc := &models.KnowledgeDocument{
		ID:       uuid.NewString(),
		CourseID: courseID,
		FileName: fileName,
		FileSize: int64(len(data)),
		FileType: fileType,
		FileURL:  url,
	}
	if err := s.db.CreateKnowledgeDocument(ctx, doc); err != nil {
		s.rollbackUpload(ctx, key)
		return nil, fmt.Errorf("create knowledge document: %w", err)
	}
	return doc, nil
}

// GetDocument returns the course's knowledge document metadata.
func (s *KnowledgeService) GetDocument(ctx context.Context, courseID string) (*models.KnowledgeDocument, error) {
	doc, err := s.db.GetKnowledgeDocument(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("read knowledge document: %w", err)
	}
	if doc == nil {
		return nil, errs.NotFound("No knowledge base document for this course")
	}
	return doc, nil
}

// DeleteDocument removes the course's knowledge document and its stored
// object. The cache is cleared too so chat stops answering from deleted
// material.
func (s *KnowledgeService) DeleteDocument(ctx context.Context, userID, courseID string) error {
	if err := s.requireInstructor(ctx, userID, courseID); err != nil {
		return err
	}

	doc, err := s.db.GetKnowledgeDocument(ctx, courseID)
	if err != nil {
		return fmt.Errorf("read knowledge document: %w", err)
	}
	if doc == nil {
		return errs.NotFound("No knowledge base document for this course")
	}

	if err := s.db.DeleteKnowledgeDocument(ctx, courseID); err != nil {
		return fmt.Errorf("delete knowledge document: %w", err)
	}
	if err := s.db.DeleteKnowledgeCache(ctx, courseID); err != nil {
		return fmt.Errorf("clear knowledge cache: %w", err)
	}
	if bucket, key := objectclient.ParseURL(doc.FileURL); bucket != "" {
		if err := s.objects.DeleteFile(ctx, bucket, key); err != nil {
			s.logger.Warn("failed to delete knowledge object",
				zap.String("course_id", courseID), zap.Error(err))
		}
	}
	return nil
}

// ClearCache drops the extracted-text cache so the next chat request re-reads
// the current document.
func (s *KnowledgeService) ClearCache(ctx context.Context, userID, courseID string) error {
	if err := s.requireInstructor(ctx, userID, courseID); err != nil {
		return err
	}
	if err := s.db.DeleteKnowledgeCache(ctx, courseID); err != nil {
		return fmt.Errorf("clear knowledge cache: %w", err)
	}
	return nil
}

func (s *KnowledgeService) requireInstructor(ctx context.Context, userID, courseID string) error {
	course, err := s.db.GetCourseByID(ctx, courseID)
	if err != nil {
		return fmt.Errorf("read course: %w", err)
	}
	if course == nil {
		return errs.NotFound("Course not found")
	}
	if course.InstructorID != userID {
		return errs.Forbidden("Only the course instructor can manage the knowledge base")
	}
	return nil
}

func (s *KnowledgeService) rollbackUpload(ctx context.Context, key string) {
	if err := s.objects.DeleteFile(ctx, s.bucket, key); err != nil {
		s.logger.Warn("failed to roll back uploaded object", zap.String("key", key), zap.Error(err))
	}
}
