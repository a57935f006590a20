package db

import (
	"context"
	"time"

	"github.com/coursehub-api/coursehub/internal/models"
)

// DbClient defines all persistence operations the services need. It abstracts
// Postgres so higher layers never depend on a specific DB. Getters return
// (nil, nil) when no row exists.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id string, fullName, avatarURL *string) (*models.User, error)

	CreateCourse(ctx context.Context, course *models.Course) error
	GetCourseByID(ctx context.Context, id string) (*models.Course, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	ListCoursesByInstructor(ctx context.Context, instructorID string) ([]models.Course, error)
	UpdateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, id string) error

	CreateVideo(ctx context.Context, video *models.Video) error
	GetVideoByID(ctx context.Context, id string) (*models.Video, error)
	ListVideosByCourse(ctx context.Context, courseID string) ([]models.Video, error)
	DeleteVideo(ctx context.Context, id string) error

	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	GetEnrollment(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)

	CreateKnowledgeDocument(ctx context.Context, doc *models.KnowledgeDocument) error
	GetKnowledgeDocument(ctx context.Context, courseID string) (*models.KnowledgeDocument, error)
	DeleteKnowledgeDocument(ctx context.Context, courseID string) error

	GetKnowledgeCache(ctx context.Context, courseID string) (*models.KnowledgeCacheEntry, error)
	UpsertKnowledgeCache(ctx context.Context, courseID, text, fileHash string) error
	DeleteKnowledgeCache(ctx context.Context, courseID string) error

	CreateChatSession(ctx context.Context, session *models.ChatSession) error
	GetChatSession(ctx context.Context, id string) (*models.ChatSession, error)
	ListChatSessions(ctx context.Context, userID, courseID string, limit, offset int) ([]models.ChatSession, int, error)
	SearchChatSessions(ctx context.Context, userID, courseID, query string) ([]models.ChatSession, error)
	RenameChatSession(ctx context.Context, id string, title *string) error
	DeleteChatSession(ctx context.Context, id string) error
	ListSessionIDs(ctx context.Context, userID, courseID string) ([]string, error)

	AppendChatMessage(ctx context.Context, message *models.ChatMessage) error
	ListMessagesBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	CountMessagesSince(ctx context.Context, sessionIDs []string, since time.Time) (int, error)

	GetProgress(ctx context.Context, userID, courseID string, videoID *string) (*models.ProgressRecord, error)
	UpsertProgress(ctx context.Context, record *models.ProgressRecord) error
	ListProgressByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error)
	ListProgressByUserSince(ctx context.Context, userID string, since time.Time) ([]models.ProgressRecord, error)
	ListCompletedVideoIDs(ctx context.Context, userID, courseID string) ([]string, error)

	GetStreak(ctx context.Context, userID string) (*models.LearningStreak, error)
	UpsertStreak(ctx context.Context, streak *models.LearningStreak) error

	Close() error
}
