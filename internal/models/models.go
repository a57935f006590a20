package models

import (
	"time"
)

// User represents an authenticated user of the platform. Profile fields live
// on the same row (full name, avatar) since every user has exactly one profile.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     *string   `db:"full_name" json:"full_name"`
	AvatarURL    *string   `db:"avatar_url" json:"avatar_url"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Course is a published course owned by an instructor.
type Course struct {
	ID           string    `db:"id" json:"id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Title        string    `db:"title" json:"title"`
	Description  *string   `db:"description" json:"description"`
	ThumbnailURL *string   `db:"thumbnail_url" json:"thumbnail_url"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Video is one lesson video within a course, ordered by OrderIndex.
type Video struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description"`
	VideoURL    string    `db:"video_url" json:"video_url"`
	Duration    *int      `db:"duration" json:"duration"` // seconds
	OrderIndex  int       `db:"order_index" json:"order_index"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Enrollment authorizes a student to access a course's gated content.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// KnowledgeDocument is the single reference document grounding a course's
// chat assistant. At most one per course; replacing deletes the prior one.
type KnowledgeDocument struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	FileName   string    `db:"file_name" json:"file_name"`
	FileSize   int64     `db:"file_size" json:"file_size"`
	FileType   string    `db:"file_type" json:"file_type"`
	FileURL    string    `db:"file_url" json:"file_url"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// KnowledgeCacheEntry holds extracted knowledge text for a course, keyed
// uniquely by course. FileHash is the SHA-256 of the source bytes the text
// was derived from.
type KnowledgeCacheEntry struct {
	CourseID  string    `db:"course_id" json:"course_id"`
	Text      string    `db:"text" json:"text"`
	FileHash  string    `db:"file_hash" json:"file_hash"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ChatSession is a titled thread of messages between one user and the
// assistant for one course.
type ChatSession struct {
	ID            string     `db:"id" json:"id"`
	CourseID      string     `db:"course_id" json:"course_id"`
	UserID        string     `db:"user_id" json:"user_id"`
	Title         *string    `db:"title" json:"title"`
	MessageCount  int        `db:"message_count" json:"message_count"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one immutable turn within a session, ordered by CreatedAt.
type ChatMessage struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Role      string    `db:"role" json:"role"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Progress statuses. Once a record reaches completed it never regresses.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// ProgressRecord measures a user's engagement with a course or one video
// within it. VideoID nil means the course-level aggregate record. Unique per
// (UserID, CourseID, VideoID).
type ProgressRecord struct {
	ID               string     `db:"id" json:"id"`
	UserID           string     `db:"user_id" json:"user_id"`
	CourseID         string     `db:"course_id" json:"course_id"`
	VideoID          *string    `db:"video_id" json:"video_id"`
	Status           string     `db:"status" json:"status"`
	TimeSpentSeconds int        `db:"time_spent_seconds" json:"time_spent_seconds"`
	Score            *float64   `db:"score" json:"score"`
	StartedAt        time.Time  `db:"started_at" json:"started_at"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// LearningStreak tracks consecutive days with recorded activity, one row per
// user.
type LearningStreak struct {
	UserID           string    `db:"user_id" json:"user_id"`
	CurrentStreak    int       `db:"current_streak" json:"current_streak"`
	LongestStreak    int       `db:"longest_streak" json:"longest_streak"`
	LastActivityDate time.Time `db:"last_activity_date" json:"last_activity_date"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
