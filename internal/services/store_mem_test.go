package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coursehub-api/coursehub/internal/models"
)

// memStore is an in-memory DbClient used by the service tests. It mirrors the
// Postgres client's contract: getters return (nil, nil) when no row exists,
// and writes copy their inputs.
type memStore struct {
	mu sync.Mutex

	users       map[string]*models.User
	courses     map[string]*models.Course
	videos      map[string]*models.Video
	enrollments []models.Enrollment
	docs        map[string]*models.KnowledgeDocument // by course ID
	cache       map[string]*models.KnowledgeCacheEntry
	sessions    map[string]*models.ChatSession
	messages    []models.ChatMessage
	progress    []models.ProgressRecord
	streaks     map[string]*models.LearningStreak

	now func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		courses:  map[string]*models.Course{},
		videos:   map[string]*models.Video{},
		docs:     map[string]*models.KnowledgeDocument{},
		cache:    map[string]*models.KnowledgeCacheEntry{},
		sessions: map[string]*models.ChatSession{},
		streaks:  map[string]*models.LearningStreak{},
		now:      time.Now,
	}
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *user
	u.CreatedAt = m.now()
	m.users[u.ID] = &u
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) UpdateUserProfile(_ context.Context, id string, fullName, avatarURL *string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if fullName != nil {
		u.FullName = fullName
	}
	if avatarURL != nil {
		u.AvatarURL = avatarURL
	}
	u.UpdatedAt = m.now()
	cp := *u
	return &cp, nil
}

func (m *memStore) CreateCourse(_ context.Context, course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *course
	c.CreatedAt = m.now()
	m.courses[c.ID] = &c
	return nil
}

func (m *memStore) GetCourseByID(_ context.Context, id string) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ListCourses(_ context.Context) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Course
	for _, c := range m.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListCoursesByInstructor(_ context.Context, instructorID string) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Course
	for _, c := range m.courses {
		if c.InstructorID == instructorID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateCourse(_ context.Context, course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *course
	c.UpdatedAt = m.now()
	m.courses[c.ID] = &c
	return nil
}

func (m *memStore) DeleteCourse(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.courses, id)
	return nil
}

func (m *memStore) CreateVideo(_ context.Context, video *models.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := *video
	v.CreatedAt = m.now()
	m.videos[v.ID] = &v
	return nil
}

func (m *memStore) GetVideoByID(_ context.Context, id string) (*models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.videos[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ListVideosByCourse(_ context.Context, courseID string) ([]models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Video
	for _, v := range m.videos {
		if v.CourseID == courseID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *memStore) DeleteVideo(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.videos, id)
	return nil
}

func (m *memStore) CreateEnrollment(_ context.Context, enrollment *models.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if e.CourseID == enrollment.CourseID && e.StudentID == enrollment.StudentID {
			return nil // ON CONFLICT DO NOTHING
		}
	}
	e := *enrollment
	e.EnrolledAt = m.now()
	m.enrollments = append(m.enrollments, e)
	return nil
}

func (m *memStore) GetEnrollment(_ context.Context, studentID, courseID string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			cp := e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListEnrollmentsByStudent(_ context.Context, studentID string) ([]models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Enrollment
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) CreateKnowledgeDocument(_ context.Context, doc *models.KnowledgeDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := *doc
	d.UploadedAt = m.now()
	m.docs[d.CourseID] = &d
	return nil
}

func (m *memStore) GetKnowledgeDocument(_ context.Context, courseID string) (*models.KnowledgeDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[courseID]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) DeleteKnowledgeDocument(_ context.Context, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, courseID)
	return nil
}

func (m *memStore) GetKnowledgeCache(_ context.Context, courseID string) (*models.KnowledgeCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.cache[courseID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) UpsertKnowledgeCache(_ context.Context, courseID, text, fileHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[courseID] = &models.KnowledgeCacheEntry{
		CourseID:  courseID,
		Text:      text,
		FileHash:  fileHash,
		UpdatedAt: m.now(),
	}
	return nil
}

func (m *memStore) DeleteKnowledgeCache(_ context.Context, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, courseID)
	return nil
}

func (m *memStore) CreateChatSession(_ context.Context, session *models.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *session
	s.CreatedAt = m.now()
	m.sessions[s.ID] = &s
	return nil
}

func (m *memStore) GetChatSession(_ context.Context, id string) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ListChatSessions(_ context.Context, userID, courseID string, limit, offset int) ([]models.ChatSession, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.ChatSession
	for _, s := range m.sessions {
		if s.UserID == userID && s.CourseID == courseID {
			all = append(all, *s)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		ti, tj := all[i].CreatedAt, all[j].CreatedAt
		if all[i].LastMessageAt != nil {
			ti = *all[i].LastMessageAt
		}
		if all[j].LastMessageAt != nil {
			tj = *all[j].LastMessageAt
		}
		return ti.After(tj)
	})
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memStore) SearchChatSessions(_ context.Context, userID, courseID, query string) ([]models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(query)
	var out []models.ChatSession
	for _, s := range m.sessions {
		if s.UserID != userID || s.CourseID != courseID {
			continue
		}
		match := s.Title != nil && strings.Contains(strings.ToLower(*s.Title), q)
		if !match {
			for _, msg := range m.messages {
				if msg.SessionID == s.ID && strings.Contains(strings.ToLower(msg.Content), q) {
					match = true
					break
				}
			}
		}
		if match {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) RenameChatSession(_ context.Context, id string, title *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Title = title
	}
	return nil
}

func (m *memStore) DeleteChatSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.SessionID != id {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

func (m *memStore) ListSessionIDs(_ context.Context, userID, courseID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sessions {
		if s.UserID == userID && s.CourseID == courseID {
			out = append(out, s.ID)
		}
	}
	return out, nil
}

func (m *memStore) AppendChatMessage(_ context.Context, message *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := *message
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = m.now()
	}
	m.messages = append(m.messages, msg)
	if s, ok := m.sessions[msg.SessionID]; ok {
		s.MessageCount++
		t := msg.CreatedAt
		s.LastMessageAt = &t
	}
	return nil
}

func (m *memStore) ListMessagesBySession(_ context.Context, sessionID string) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatMessage
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) CountMessagesSince(_ context.Context, sessionIDs []string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := map[string]bool{}
	for _, id := range sessionIDs {
		ids[id] = true
	}
	count := 0
	for _, msg := range m.messages {
		if ids[msg.SessionID] && !msg.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) GetProgress(_ context.Context, userID, courseID string, videoID *string) (*models.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.progress {
		r := &m.progress[i]
		if r.UserID == userID && r.CourseID == courseID && sameVideoID(r.VideoID, videoID) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpsertProgress(_ context.Context, record *models.ProgressRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := *record
	r.UpdatedAt = m.now()
	for i := range m.progress {
		p := &m.progress[i]
		if p.UserID == r.UserID && p.CourseID == r.CourseID && sameVideoID(p.VideoID, r.VideoID) {
			r.CreatedAt = p.CreatedAt
			m.progress[i] = r
			return nil
		}
	}
	r.CreatedAt = m.now()
	m.progress = append(m.progress, r)
	return nil
}

func (m *memStore) ListProgressByUser(_ context.Context, userID string) ([]models.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProgressRecord
	for _, r := range m.progress {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListProgressByUserSince(_ context.Context, userID string, since time.Time) ([]models.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProgressRecord
	for _, r := range m.progress {
		if r.UserID == userID && !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListCompletedVideoIDs(_ context.Context, userID, courseID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.progress {
		if r.UserID == userID && r.CourseID == courseID && r.Status == models.StatusCompleted && r.VideoID != nil {
			out = append(out, *r.VideoID)
		}
	}
	return out, nil
}

func (m *memStore) GetStreak(_ context.Context, userID string) (*models.LearningStreak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.streaks[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) UpsertStreak(_ context.Context, streak *models.LearningStreak) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *streak
	s.UpdatedAt = m.now()
	m.streaks[s.UserID] = &s
	return nil
}

func (m *memStore) Close() error { return nil }

func sameVideoID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
