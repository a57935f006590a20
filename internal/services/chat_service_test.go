package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coursehub-api/coursehub/internal/core/errs"
	"github.com/coursehub-api/coursehub/internal/core/extract"
	"github.com/coursehub-api/coursehub/internal/models"
)

type fakeObjects struct {
	files    map[string][]byte // "bucket/key" -> data
	getCalls int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{files: map[string][]byte{}}
}

func (f *fakeObjects) put(bucket, key string, data []byte) string {
	f.files[bucket+"/"+key] = data
	return fmt.Sprintf("https://%s.s3.eu-north-1.amazonaws.com/%s", bucket, key)
}

func (f *fakeObjects) UploadFile(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	return f.put(bucket, key, data), nil
}

func (f *fakeObjects) DeleteFile(_ context.Context, bucket, key string) error {
	delete(f.files, bucket+"/"+key)
	return nil
}

func (f *fakeObjects) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	f.getCalls++
	data, ok := f.files[bucket+"/"+key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

type fakeLLM struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, _, userPrompt string) (string, error) {
	f.prompts = append(f.prompts, userPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type chatFixture struct {
	store    *memStore
	objects  *fakeObjects
	llm      *fakeLLM
	svc      *ChatService
	userID   string
	courseID string
}

// newChatFixture sets up an enrolled student in a course with a plain-text
// knowledge document already in object storage.
func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	store := newMemStore()
	objects := newFakeObjects()
	llm := &fakeLLM{reply: "The answer."}

	f := &chatFixture{
		store:    store,
		objects:  objects,
		llm:      llm,
		userID:   "user-1",
		courseID: "course-1",
	}

	ctx := context.Background()
	require.NoError(t, store.CreateCourse(ctx, &models.Course{ID: f.courseID, InstructorID: "instructor-1", Title: "Go Basics"}))
	require.NoError(t, store.CreateEnrollment(ctx, &models.Enrollment{ID: "enr-1", CourseID: f.courseID, StudentID: f.userID}))

	url := objects.put("coursehub-content", "knowledge/course-1/notes.txt", []byte("Goroutines are lightweight threads."))
	require.NoError(t, store.CreateKnowledgeDocument(ctx, &models.KnowledgeDocument{
		ID:       "doc-1",
		CourseID: f.courseID,
		FileName: "notes.txt",
		FileType: "txt",
		FileURL:  url,
	}))

	limiter := NewRateLimiter(store, 10)
	f.svc = NewChatService(store, objects, extract.NewExtractor(), llm, limiter, zap.NewNop())
	return f
}

func (f *chatFixture) messageCount() int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return len(f.store.messages)
}

func TestSendMessageHappyPath(t *testing.T) {
	f := newChatFixture(t)

	resp, err := f.svc.SendMessage(context.Background(), f.userID, &ChatRequest{
		CourseID: f.courseID,
		Message:  "What is a goroutine?",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "The answer.", resp.Response)

	msgs, err := f.store.ListMessagesBySession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is a goroutine?", msgs[0].Content)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "The answer.", msgs[1].Content)

	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "COURSE KNOWLEDGE BASE:\n\nGoroutines are lightweight threads.")
	assert.Contains(t, f.llm.prompts[0], "QUESTION:\nWhat is a goroutine?")
}

func TestSendMessagePromptIncludesHistory(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.SendMessage(context.Background(), f.userID, &ChatRequest{
		CourseID: f.courseID,
		Message:  "And channels?",
		ConversationHistory: []HistoryItem{
			{Role: "user", Content: "What is a goroutine?"},
			{Role: "assistant", Content: "A lightweight thread."},
		},
	})
	require.NoError(t, err)

	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0],
		"PREVIOUS CONVERSATION:\nUSER: What is a goroutine?\n\nASSISTANT: A lightweight thread.")
}

func TestSendMessageValidation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, "", &ChatRequest{CourseID: f.courseID, Message: "hi"})
	assert.Equal(t, http.StatusUnauthorized, errs.StatusOf(err))

	_, err = f.svc.SendMessage(ctx, f.userID, &ChatRequest{CourseID: "", Message: "hi"})
	assert.Equal(t, "Missing courseId or message", errs.MessageOf(err))

	_, err = f.svc.SendMessage(ctx, f.userID, &ChatRequest{CourseID: f.courseID, Message: "   "})
	assert.Equal(t, "Missing courseId or message", errs.MessageOf(err))

	_, err = f.svc.SendMessage(ctx, f.userID, &ChatRequest{CourseID: f.courseID, Message: strings.Repeat("a", 2001)})
	assert.Equal(t, "Message exceeds 2000 characters", errs.MessageOf(err))
	assert.Equal(t, http.StatusBadRequest, errs.StatusOf(err))

	assert.Zero(t, f.messageCount())
}

func TestSendMessageRequiresEnrollment(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.SendMessage(context.Background(), "stranger", &ChatRequest{
		CourseID: f.courseID,
		Message:  "hi",
	})
	assert.Equal(t, http.StatusForbidden, errs.StatusOf(err))
	assert.Equal(t, "User not enrolled in course", errs.MessageOf(err))
	assert.Zero(t, f.messageCount())
}

func TestSendMessageRateLimitedBeforePersist(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	session := &models.ChatSession{ID: "sess-1", CourseID: f.courseID, UserID: f.userID}
	require.NoError(t, f.store.CreateChatSession(ctx, session))
	for i := 0; i < 10; i++ {
		require.NoError(t, f.store.AppendChatMessage(ctx, &models.ChatMessage{
			ID:        fmt.Sprintf("m-%d", i),
			SessionID: session.ID,
			Role:      models.RoleUser,
			Content:   "spam",
		}))
	}
	before := f.messageCount()

	_, err := f.svc.SendMessage(ctx, f.userID, &ChatRequest{CourseID: f.courseID, Message: "one more"})
	assert.Equal(t, http.StatusTooManyRequests, errs.StatusOf(err))
	assert.Equal(t, "Rate limit exceeded. Try again in a minute.", errs.MessageOf(err))
	assert.Equal(t, before, f.messageCount())
}

func TestSendMessageNoKnowledgeDocument(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.DeleteKnowledgeDocument(ctx, f.courseID))

	_, err := f.svc.SendMessage(ctx, f.userID, &ChatRequest{CourseID: f.courseID, Message: "hi"})
	assert.Equal(t, http.StatusNotFound, errs.StatusOf(err))
	assert.Equal(t, "No knowledge base document for this course", errs.MessageOf(err))

	// the user message was already persisted when the lookup failed
	assert.Equal(t, 1, f.messageCount())
}

func TestSendMessageForeignSessionGetsNewSession(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	foreign := &models.ChatSession{ID: "sess-other", CourseID: f.courseID, UserID: "someone-else"}
	require.NoError(t, f.store.CreateChatSession(ctx, foreign))

	resp, err := f.svc.SendMessage(ctx, f.userID, &ChatRequest{
		CourseID:  f.courseID,
		Message:   "hi",
		SessionID: foreign.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, foreign.ID, resp.SessionID)

	// nothing landed in the foreign thread
	msgs, err := f.store.ListMessagesBySession(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendMessageReusesOwnSession(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	own := &models.ChatSession{ID: "sess-own", CourseID: f.courseID, UserID: f.userID}
	require.NoError(t, f.store.CreateChatSession(ctx, own))

	resp, err := f.svc.SendMessage(ctx, f.userID, &ChatRequest{
		CourseID:  f.courseID,
		Message:   "hi",
		SessionID: own.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, own.ID, resp.SessionID)
}

func TestSendMessageCachesExtractedText(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, f.userID, &ChatRequest{CourseID: f.courseID, Message: "first"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.objects.getCalls)

	entry, err := f.store.GetKnowledgeCache(ctx, f.courseID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Goroutines are lightweight threads.", entry.Text)
	sum := sha256.Sum256([]byte("Goroutines are lightweight threads."))
	assert.Equal(t, hex.EncodeToString(sum[:]), entry.FileHash)

	// second request is served from the cache without touching storage
	_, err = f.svc.SendMessage(ctx, f.userID, &ChatRequest{CourseID: f.courseID, Message: "second"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.objects.getCalls)
}

func TestSendMessageTrustsStaleCache(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.UpsertKnowledgeCache(ctx, f.courseID, "Old extracted text.", "oldhash"))

	_, err := f.svc.SendMessage(ctx, f.userID, &ChatRequest{CourseID: f.courseID, Message: "hi"})
	require.NoError(t, err)

	// the cached text wins even though the stored document says otherwise
	assert.Zero(t, f.objects.getCalls)
	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "Old extracted text.")
}

func TestSendMessageModelFailureKeepsUserMessage(t *testing.T) {
	f := newChatFixture(t)
	f.llm.err = errs.Upstream(500, `{"error":"boom"}`)

	resp, err := f.svc.SendMessage(context.Background(), f.userID, &ChatRequest{
		CourseID: f.courseID,
		Message:  "hi",
	})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, errs.MessageOf(err), "Gemini API error")

	// the user turn stays persisted without a paired assistant reply
	assert.Equal(t, 1, f.messageCount())
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	assert.Equal(t, models.RoleUser, f.store.messages[0].Role)
}

func TestRateLimiterWindow(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	session := &models.ChatSession{ID: "sess-1", CourseID: "course-1", UserID: "user-1"}
	require.NoError(t, store.CreateChatSession(ctx, session))

	limiter := NewRateLimiter(store, 3)

	// no history at all
	allowed, err := limiter.Allow(ctx, "user-1", "course-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	addMsg := func(id string, age time.Duration, role string) {
		require.NoError(t, store.AppendChatMessage(ctx, &models.ChatMessage{
			ID:        id,
			SessionID: session.ID,
			Role:      role,
			Content:   "x",
			CreatedAt: time.Now().Add(-age),
		}))
	}

	addMsg("m-1", 10*time.Second, models.RoleUser)
	addMsg("m-2", 20*time.Second, models.RoleUser)
	allowed, err = limiter.Allow(ctx, "user-1", "course-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	// assistant turns count against the limit too
	addMsg("m-3", 30*time.Second, models.RoleAssistant)
	allowed, err = limiter.Allow(ctx, "user-1", "course-1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimiterCountsBothRoles(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	session := &models.ChatSession{ID: "sess-1", CourseID: "course-1", UserID: "user-1"}
	require.NoError(t, store.CreateChatSession(ctx, session))

	limiter := NewRateLimiter(store, 10)

	for i := 0; i < 5; i++ {
		for _, role := range []string{models.RoleUser, models.RoleAssistant} {
			require.NoError(t, store.AppendChatMessage(ctx, &models.ChatMessage{
				ID:        fmt.Sprintf("m-%s-%d", role, i),
				SessionID: session.ID,
				Role:      role,
				Content:   "x",
				CreatedAt: time.Now().Add(-10 * time.Second),
			}))
		}
	}

	// 5 user + 5 assistant messages exhaust a budget of 10
	allowed, err := limiter.Allow(ctx, "user-1", "course-1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimiterIgnoresExpiredMessages(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	session := &models.ChatSession{ID: "sess-1", CourseID: "course-1", UserID: "user-1"}
	require.NoError(t, store.CreateChatSession(ctx, session))

	limiter := NewRateLimiter(store, 2)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendChatMessage(ctx, &models.ChatMessage{
			ID:        fmt.Sprintf("old-%d", i),
			SessionID: session.ID,
			Role:      models.RoleUser,
			Content:   "x",
			CreatedAt: time.Now().Add(-2 * time.Minute),
		}))
	}

	allowed, err := limiter.Allow(ctx, "user-1", "course-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiterScopedToCourse(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	busy := &models.ChatSession{ID: "sess-busy", CourseID: "course-1", UserID: "user-1"}
	require.NoError(t, store.CreateChatSession(ctx, busy))
	for i := 0; i < 10; i++ {
		require.NoError(t, store.AppendChatMessage(ctx, &models.ChatMessage{
			ID:        fmt.Sprintf("m-%d", i),
			SessionID: busy.ID,
			Role:      models.RoleUser,
			Content:   "x",
		}))
	}

	limiter := NewRateLimiter(store, 10)

	allowed, err := limiter.Allow(ctx, "user-1", "course-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	// a different course has its own budget
	allowed, err = limiter.Allow(ctx, "user-1", "course-2")
	require.NoError(t, err)
	assert.True(t, allowed)
}
