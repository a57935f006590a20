package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	db "github.com/coursehub-api/coursehub/internal/core/database"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	"github.com/coursehub-api/coursehub/internal/models"
)

// SessionPage is one page of a user's chat sessions for a course.
type SessionPage struct {
	Sessions []models.ChatSession `json:"sessions"`
	Total    int                  `json:"total"`
	HasMore  bool                 `json:"hasMore"`
}

// SessionService manages chat session threads. Every operation checks the
// caller owns the session before touching it.
type SessionService struct {
	db        db.DbClient
	pageLimit int
}

func NewSessionService(dbClient db.DbClient, pageLimit int) *SessionService {
	if pageLimit <= 0 {
		pageLimit = 20
	}
	return &SessionService{db: dbClient, pageLimit: pageLimit}
}

// CreateSession opens a new empty thread for the user in the course.
func (s *SessionService) CreateSession(ctx context.Context, userID, courseID string, title *string) (*models.ChatSession, error) {
	if courseID == "" {
		return nil, errs.BadRequest("Missing courseId")
	}
	session := &models.ChatSession{
		ID:       uuid.NewString(),
		CourseID: courseID,
		UserID:   userID,
		Title:    normalizeTitle(title),
	}
	if err := s.db.CreateChatSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// ListSessions pages through the user's sessions for a course, most recently
// active first.
func (s *SessionService) ListSessions(ctx context.Context, userID, courseID string, limit, offset int) (*SessionPage, error) {
	if courseID == "" {
		return nil, errs.BadRequest("Missing courseId")
	}
	if limit <= 0 || limit > s.pageLimit {
		limit = s.pageLimit
	}
	if offset < 0 {
		offset = 0
	}
	sessions, total, err := s.db.ListChatSessions(ctx, userID, courseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	return &SessionPage{
		Sessions: sessions,
		Total:    total,
		HasMore:  offset+len(sessions) < total,
	}, nil
}

// GetHistory returns all messages of one of the user's sessions, oldest first.
func (s *SessionService) GetHistory(ctx context.Context, userID, sessionID string) ([]models.ChatMessage, error) {
	if _, err := s.requireOwned(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.db.ListMessagesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

// RenameSession sets the session title. A blank title clears it back to the
// untitled state.
func (s *SessionService) RenameSession(ctx context.Context, userID, sessionID string, title *string) error {
	if _, err := s.requireOwned(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.db.RenameChatSession(ctx, sessionID, normalizeTitle(title)); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}

// DeleteSession removes the session and all of its messages.
func (s *SessionService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.requireOwned(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.db.DeleteChatSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SearchSessions matches the user's sessions in a course by title or message
// content.
func (s *SessionService) SearchSessions(ctx context.Context, userID, courseID, query string) ([]models.ChatSession, error) {
	query = strings.TrimSpace(query)
	if courseID == "" || query == "" {
		return nil, errs.BadRequest("Missing courseId or query")
	}
	sessions, err := s.db.SearchChatSessions(ctx, userID, courseID, query)
	if err != nil {
		return nil, fmt.Errorf("search sessions: %w", err)
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	return sessions, nil
}

func (s *SessionService) requireOwned(ctx context.Context, userID, sessionID string) (*models.ChatSession, error) {
	session, err := s.db.GetChatSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if session == nil || session.UserID != userID {
		return nil, errs.NotFound("Session not found")
	}
	return session, nil
}

func normalizeTitle(title *string) *string {
	if title == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*title)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
