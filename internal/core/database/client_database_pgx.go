package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/coursehub-api/coursehub/internal/config"
	"github.com/coursehub-api/coursehub/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: sqlDB}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, email, password_hash, full_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, user.ID, user.Email, user.PasswordHash, user.FullName, user.AvatarURL)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, full_name, avatar_url, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, full_name, avatar_url, created_at, updated_at
		FROM users WHERE id = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) UpdateUserProfile(ctx context.Context, id string, fullName, avatarURL *string) (*models.User, error) {
	const q = `
		UPDATE users
		SET full_name = $2, avatar_url = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, email, password_hash, full_name, avatar_url, created_at, updated_at
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, id, fullName, avatarURL).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Courses

func (c *DatabaseClient) CreateCourse(ctx context.Context, course *models.Course) error {
	if course == nil {
		return errors.New("nil course")
	}
	const q = `
		INSERT INTO courses (id, instructor_id, title, description, thumbnail_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		course.ID, course.InstructorID, course.Title, course.Description, course.ThumbnailURL)
	return err
}

func (c *DatabaseClient) GetCourseByID(ctx context.Context, id string) (*models.Course, error) {
	const q = `
		SELECT id, instructor_id, title, description, thumbnail_url, created_at, updated_at
		FROM courses WHERE id = $1
	`
	var co models.Course
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&co.ID, &co.InstructorID, &co.Title, &co.Description, &co.ThumbnailURL, &co.CreatedAt, &co.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &co, nil
}

func (c *DatabaseClient) ListCourses(ctx context.Context) ([]models.Course, error) {
	const q = `
		SELECT id, instructor_id, title, description, thumbnail_url, created_at, updated_at
		FROM courses
		ORDER BY created_at DESC
	`
	return c.queryCourses(ctx, q)
}

func (c *DatabaseClient) ListCoursesByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	const q = `
		SELECT id, instructor_id, title, description, thumbnail_url, created_at, updated_at
		FROM courses
		WHERE instructor_id = $1
		ORDER BY created_at DESC
	`
	return c.queryCourses(ctx, q, instructorID)
}

func (c *DatabaseClient) queryCourses(ctx context.Context, q string, args ...any) ([]models.Course, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Course
	for rows.Next() {
		var co models.Course
		if err := rows.Scan(
			&co.ID, &co.InstructorID, &co.Title, &co.Description, &co.ThumbnailURL, &co.CreatedAt, &co.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, co)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateCourse(ctx context.Context, course *models.Course) error {
	const q = `
		UPDATE courses
		SET title = $2, description = $3, thumbnail_url = $4, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, course.ID, course.Title, course.Description, course.ThumbnailURL)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("course not found: %s", course.ID)
	}
	return nil
}

func (c *DatabaseClient) DeleteCourse(ctx context.Context, id string) error {
	const q = `DELETE FROM courses WHERE id = $1`
	_, err := c.db.ExecContext(ctx, q, id)
	return err
}

// Videos

func (c *DatabaseClient) CreateVideo(ctx context.Context, video *models.Video) error {
	if video == nil {
		return errors.New("nil video")
	}
	const q = `
		INSERT INTO course_videos (id, course_id, title, description, video_url, duration, order_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`
	_, err := c.db.ExecContext(ctx, q,
		video.ID, video.CourseID, video.Title, video.Description, video.VideoURL, video.Duration, video.OrderIndex)
	return err
}

func (c *DatabaseClient) GetVideoByID(ctx context.Context, id string) (*models.Video, error) {
	const q = `
		SELECT id, course_id, title, description, video_url, duration, order_index, created_at
		FROM course_videos WHERE id = $1
	`
	var v models.Video
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&v.ID, &v.CourseID, &v.Title, &v.Description, &v.VideoURL, &v.Duration, &v.OrderIndex, &v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *DatabaseClient) ListVideosByCourse(ctx context.Context, courseID string) ([]models.Video, error) {
	const q = `
		SELECT id, course_id, title, description, video_url, duration, order_index, created_at
		FROM course_videos
		WHERE course_id = $1
		ORDER BY order_index ASC, created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(
			&v.ID, &v.CourseID, &v.Title, &v.Description, &v.VideoURL, &v.Duration, &v.OrderIndex, &v.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteVideo(ctx context.Context, id string) error {
	const q = `DELETE FROM course_videos WHERE id = $1`
	_, err := c.db.ExecContext(ctx, q, id)
	return err
}

// Enrollments

func (c *DatabaseClient) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment == nil {
		return errors.New("nil enrollment")
	}
	const q = `
		INSERT INTO enrollments (id, course_id, student_id, enrolled_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (course_id, student_id) DO NOTHING
	`
	_, err := c.db.ExecContext(ctx, q, enrollment.ID, enrollment.CourseID, enrollment.StudentID)
	return err
}

func (c *DatabaseClient) GetEnrollment(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	const q = `
		SELECT id, course_id, student_id, enrolled_at
		FROM enrollments
		WHERE student_id = $1 AND course_id = $2
	`
	var e models.Enrollment
	err := c.db.QueryRowContext(ctx, q, studentID, courseID).Scan(
		&e.ID, &e.CourseID, &e.StudentID, &e.EnrolledAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *DatabaseClient) ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	const q = `
		SELECT id, course_id, student_id, enrolled_at
		FROM enrollments
		WHERE student_id = $1
		ORDER BY enrolled_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.ID, &e.CourseID, &e.StudentID, &e.EnrolledAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Knowledge base

func (c *DatabaseClient) CreateKnowledgeDocument(ctx context.Context, doc *models.KnowledgeDocument) error {
	if doc == nil {
		return errors.New("nil knowledge document")
	}
	const q = `
		INSERT INTO course_knowledge_base (id, course_id, file_name, file_size, file_type, file_url, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.CourseID, doc.FileName, doc.FileSize, doc.FileType, doc.FileURL)
	return err
}

func (c *DatabaseClient) GetKnowledgeDocument(ctx context.Context, courseID string) (*models.KnowledgeDocument, error) {
	const q = `
		SELECT id, course_id, file_name, file_size, file_type, file_url, uploaded_at
		FROM course_knowledge_base
		WHERE course_id = $1
	`
	var d models.KnowledgeDocument
	err := c.db.QueryRowContext(ctx, q, courseID).Scan(
		&d.ID, &d.CourseID, &d.FileName, &d.FileSize, &d.FileType, &d.FileURL, &d.UploadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) DeleteKnowledgeDocument(ctx context.Context, courseID string) error {
	const q = `DELETE FROM course_knowledge_base WHERE course_id = $1`
	_, err := c.db.ExecContext(ctx, q, courseID)
	return err
}

func (c *DatabaseClient) GetKnowledgeCache(ctx context.Context, courseID string) (*models.KnowledgeCacheEntry, error) {
	const q = `
		SELECT course_id, text, file_hash, updated_at
		FROM course_knowledge_base_cache
		WHERE course_id = $1
	`
	var e models.KnowledgeCacheEntry
	err := c.db.QueryRowContext(ctx, q, courseID).Scan(&e.CourseID, &e.Text, &e.FileHash, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertKnowledgeCache is last-write-wins: concurrent misses for the same
// course may both extract, and the later put overwrites the earlier.
func (c *DatabaseClient) UpsertKnowledgeCache(ctx context.Context, courseID, text, fileHash string) error {
	const q = `
		INSERT INTO course_knowledge_base_cache (course_id, text, file_hash, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (course_id) DO UPDATE
		SET text = EXCLUDED.text, file_hash = EXCLUDED.file_hash, updated_at = now()
	`
	_, err := c.db.ExecContext(ctx, q, courseID, text, fileHash)
	return err
}

func (c *DatabaseClient) DeleteKnowledgeCache(ctx context.Context, courseID string) error {
	const q = `DELETE FROM course_knowledge_base_cache WHERE course_id = $1`
	_, err := c.db.ExecContext(ctx, q, courseID)
	return err
}

// Chat sessions

func (c *DatabaseClient) CreateChatSession(ctx context.Context, session *models.ChatSession) error {
	if session == nil {
		return errors.New("nil session")
	}
	const q = `
		INSERT INTO course_chat_sessions (id, course_id, user_id, title, message_count, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, 0, NULL, now())
	`
	_, err := c.db.ExecContext(ctx, q, session.ID, session.CourseID, session.UserID, session.Title)
	return err
}

func (c *DatabaseClient) GetChatSession(ctx context.Context, id string) (*models.ChatSession, error) {
	const q = `
		SELECT id, course_id, user_id, title, message_count, last_message_at, created_at
		FROM course_chat_sessions
		WHERE id = $1
	`
	var s models.ChatSession
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.CourseID, &s.UserID, &s.Title, &s.MessageCount, &s.LastMessageAt, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *DatabaseClient) ListChatSessions(ctx context.Context, userID, courseID string, limit, offset int) ([]models.ChatSession, int, error) {
	const q = `
		SELECT id, course_id, user_id, title, message_count, last_message_at, created_at
		FROM course_chat_sessions
		WHERE user_id = $1 AND course_id = $2
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := c.db.QueryContext(ctx, q, userID, courseID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.ChatSession
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(
			&s.ID, &s.CourseID, &s.UserID, &s.Title, &s.MessageCount, &s.LastMessageAt, &s.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const countQ = `SELECT count(*) FROM course_chat_sessions WHERE user_id = $1 AND course_id = $2`
	var total int
	if err := c.db.QueryRowContext(ctx, countQ, userID, courseID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (c *DatabaseClient) SearchChatSessions(ctx context.Context, userID, courseID, query string) ([]models.ChatSession, error) {
	const q = `
		SELECT id, course_id, user_id, title, message_count, last_message_at, created_at
		FROM course_chat_sessions
		WHERE user_id = $1 AND course_id = $2
		  AND (title ILIKE '%' || $3 || '%'
		       OR EXISTS (
		           SELECT 1 FROM course_chat_messages m
		           WHERE m.session_id = course_chat_sessions.id
		             AND m.content ILIKE '%' || $3 || '%'
		       ))
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID, courseID, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatSession
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(
			&s.ID, &s.CourseID, &s.UserID, &s.Title, &s.MessageCount, &s.LastMessageAt, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) RenameChatSession(ctx context.Context, id string, title *string) error {
	const q = `UPDATE course_chat_sessions SET title = $2 WHERE id = $1`
	res, err := c.db.ExecContext(ctx, q, id, title)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// DeleteChatSession removes the session; messages cascade via FK.
func (c *DatabaseClient) DeleteChatSession(ctx context.Context, id string) error {
	const q = `DELETE FROM course_chat_sessions WHERE id = $1`
	_, err := c.db.ExecContext(ctx, q, id)
	return err
}

func (c *DatabaseClient) ListSessionIDs(ctx context.Context, userID, courseID string) ([]string, error) {
	const q = `SELECT id FROM course_chat_sessions WHERE user_id = $1 AND course_id = $2`
	rows, err := c.db.QueryContext(ctx, q, userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Chat messages

// AppendChatMessage inserts the message and bumps the owning session's
// counters in one transaction.
func (c *DatabaseClient) AppendChatMessage(ctx context.Context, message *models.ChatMessage) error {
	if message == nil {
		return errors.New("nil message")
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	const insertQ = `
		INSERT INTO course_chat_messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`
	var createdAt any
	if !message.CreatedAt.IsZero() {
		createdAt = message.CreatedAt
	}
	if _, err := tx.ExecContext(ctx, insertQ,
		message.ID, message.SessionID, message.Role, message.Content, createdAt); err != nil {
		_ = tx.Rollback()
		return err
	}

	const bumpQ = `
		UPDATE course_chat_sessions
		SET message_count = message_count + 1, last_message_at = now()
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, bumpQ, message.SessionID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (c *DatabaseClient) ListMessagesBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	const q = `
		SELECT id, session_id, role, content, created_at
		FROM course_chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CountMessagesSince(ctx context.Context, sessionIDs []string, since time.Time) (int, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}
	const q = `
		SELECT count(*)
		FROM course_chat_messages
		WHERE session_id = ANY($1) AND created_at >= $2
	`
	var count int
	if err := c.db.QueryRowContext(ctx, q, sessionIDs, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Learner progress

func (c *DatabaseClient) GetProgress(ctx context.Context, userID, courseID string, videoID *string) (*models.ProgressRecord, error) {
	const q = `
		SELECT id, user_id, course_id, video_id, status, time_spent_seconds, score,
		       started_at, completed_at, created_at, updated_at
		FROM learner_progress
		WHERE user_id = $1 AND course_id = $2 AND video_id IS NOT DISTINCT FROM $3
	`
	var p models.ProgressRecord
	err := c.db.QueryRowContext(ctx, q, userID, courseID, videoID).Scan(
		&p.ID, &p.UserID, &p.CourseID, &p.VideoID, &p.Status, &p.TimeSpentSeconds, &p.Score,
		&p.StartedAt, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProgress is idempotent on (user_id, course_id, video_id); the unique
// index treats NULL video_id as a distinct course-level key.
func (c *DatabaseClient) UpsertProgress(ctx context.Context, record *models.ProgressRecord) error {
	if record == nil {
		return errors.New("nil progress record")
	}
	const q = `
		INSERT INTO learner_progress
			(id, user_id, course_id, video_id, status, time_spent_seconds, score,
			 started_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()), $9, now(), now())
		ON CONFLICT (user_id, course_id, video_id) DO UPDATE
		SET status = EXCLUDED.status,
		    time_spent_seconds = EXCLUDED.time_spent_seconds,
		    score = EXCLUDED.score,
		    completed_at = EXCLUDED.completed_at,
		    updated_at = now()
	`
	var startedAt any
	if !record.StartedAt.IsZero() {
		startedAt = record.StartedAt
	}
	_, err := c.db.ExecContext(ctx, q,
		record.ID, record.UserID, record.CourseID, record.VideoID, record.Status,
		record.TimeSpentSeconds, record.Score, startedAt, record.CompletedAt)
	return err
}

func (c *DatabaseClient) ListProgressByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	const q = `
		SELECT id, user_id, course_id, video_id, status, time_spent_seconds, score,
		       started_at, completed_at, created_at, updated_at
		FROM learner_progress
		WHERE user_id = $1
	`
	return c.queryProgress(ctx, q, userID)
}

func (c *DatabaseClient) ListProgressByUserSince(ctx context.Context, userID string, since time.Time) ([]models.ProgressRecord, error) {
	const q = `
		SELECT id, user_id, course_id, video_id, status, time_spent_seconds, score,
		       started_at, completed_at, created_at, updated_at
		FROM learner_progress
		WHERE user_id = $1 AND created_at >= $2
	`
	return c.queryProgress(ctx, q, userID, since)
}

func (c *DatabaseClient) queryProgress(ctx context.Context, q string, args ...any) ([]models.ProgressRecord, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProgressRecord
	for rows.Next() {
		var p models.ProgressRecord
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.CourseID, &p.VideoID, &p.Status, &p.TimeSpentSeconds, &p.Score,
			&p.StartedAt, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) ListCompletedVideoIDs(ctx context.Context, userID, courseID string) ([]string, error) {
	const q = `
		SELECT video_id
		FROM learner_progress
		WHERE user_id = $1 AND course_id = $2 AND status = 'completed' AND video_id IS NOT NULL
	`
	rows, err := c.db.QueryContext(ctx, q, userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Learning streaks

func (c *DatabaseClient) GetStreak(ctx context.Context, userID string) (*models.LearningStreak, error) {
	const q = `
		SELECT user_id, current_streak, longest_streak, last_activity_date, updated_at
		FROM learning_streaks
		WHERE user_id = $1
	`
	var s models.LearningStreak
	err := c.db.QueryRowContext(ctx, q, userID).Scan(
		&s.UserID, &s.CurrentStreak, &s.LongestStreak, &s.LastActivityDate, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *DatabaseClient) UpsertStreak(ctx context.Context, streak *models.LearningStreak) error {
	if streak == nil {
		return errors.New("nil streak")
	}
	const q = `
		INSERT INTO learning_streaks (user_id, current_streak, longest_streak, last_activity_date, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE
		SET current_streak = EXCLUDED.current_streak,
		    longest_streak = EXCLUDED.longest_streak,
		    last_activity_date = EXCLUDED.last_activity_date,
		    updated_at = now()
	`
	_, err := c.db.ExecContext(ctx, q,
		streak.UserID, streak.CurrentStreak, streak.LongestStreak, streak.LastActivityDate)
	return err
}
