package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursehub-api/coursehub/internal/core"
	db "github.com/coursehub-api/coursehub/internal/core/database"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	objectclient "github.com/coursehub-api/coursehub/internal/core/object-client"
	"github.com/coursehub-api/coursehub/internal/models"
)

const systemPrompt = `You are a helpful course assistant. Answer questions based ONLY on the provided course knowledge base.
If the answer is not in the knowledge base, politely say you don't have that information in the course materials.
Be concise, clear, and educational in your responses.`

const maxMessageLength = 2000

// HistoryItem is one prior conversation turn supplied by the client.
type HistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	CourseID            string        `json:"courseId"`
	Message             string        `json:"message"`
	SessionID           string        `json:"sessionId,omitempty"`
	ConversationHistory []HistoryItem `json:"conversationHistory,omitempty"`
}

type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Response  string `json:"response"`
}

// ChatService runs the full chat request cycle: authorization, rate limiting,
// session resolution, knowledge retrieval, prompt composition, model call, and
// message persistence. All collaborators are explicit constructor arguments.
type ChatService struct {
	db         db.DbClient
	objects    objectclient.ObjectClient
	extractor  core.TextExtractor
	llm        core.LLMProvider
	limiter    *RateLimiter
	httpClient *http.Client
	logger     *zap.Logger
}

func NewChatService(dbClient db.DbClient, objects objectclient.ObjectClient, extractor core.TextExtractor, llm core.LLMProvider, limiter *RateLimiter, logger *zap.Logger) *ChatService {
	return &ChatService{
		db:         dbClient,
		objects:    objects,
		extractor:  extractor,
		llm:        llm,
		limiter:    limiter,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}
}

// SendMessage processes one chat message end to end and returns the
// assistant's reply. The user message is persisted before the knowledge
// lookup and the model call run; if either fails, the user message stays
// persisted without a paired assistant reply. That partial state is accepted
// behavior, relied on by the retry-free error contract.
func (s *ChatService) SendMessage(ctx context.Context, userID string, req *ChatRequest) (*ChatResponse, error) {
	if userID == "" {
		return nil, errs.Unauthorized("Unauthorized")
	}

	message := strings.TrimSpace(req.Message)
	if req.CourseID == "" || message == "" {
		return nil, errs.BadRequest("Missing courseId or message")
	}
	if len(message) > maxMessageLength {
		return nil, errs.BadRequest("Message exceeds 2000 characters")
	}

	enrollment, err := s.db.GetEnrollment(ctx, userID, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, errs.Forbidden("User not enrolled in course")
	}

	// Rate-limit before anything is written so a rejected message leaves no
	// trace.
	allowed, err := s.limiter.Allow(ctx, userID, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		return nil, errs.TooManyRequests("Rate limit exceeded. Try again in a minute.")
	}

	session, err := s.resolveSession(ctx, userID, req.CourseID, req.SessionID)
	if err != nil {
		return nil, err
	}

	userMsg := &models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      models.RoleUser,
		Content:   message,
	}
	if err := s.db.AppendChatMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	doc, err := s.db.GetKnowledgeDocument(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load knowledge document: %w", err)
	}
	if doc == nil || doc.FileURL == "" {
		return nil, errs.NotFound("No knowledge base document for this course")
	}

	knowledgeText, err := s.resolveKnowledgeText(ctx, req.CourseID, doc)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(knowledgeText, req.ConversationHistory, message)

	answer, err := s.llm.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		s.logger.Warn("model call failed",
			zap.String("course_id", req.CourseID),
			zap.String("session_id", session.ID),
			zap.Error(err))
		return nil, err
	}

	assistantMsg := &models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      models.RoleAssistant,
		Content:   answer,
	}
	if err := s.db.AppendChatMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	return &ChatResponse{SessionID: session.ID, Response: answer}, nil
}

// resolveSession accepts a supplied session id only if it exists and belongs
// to the same (user, course); otherwise a new session is created. A foreign
// session id never leaks another user's thread.
func (s *ChatService) resolveSession(ctx context.Context, userID, courseID, sessionID string) (*models.ChatSession, error) {
	if sessionID != "" {
		existing, err := s.db.GetChatSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("resolve session: %w", err)
		}
		if existing != nil && existing.UserID == userID && existing.CourseID == courseID {
			return existing, nil
		}
	}

	session := &models.ChatSession{
		ID:       uuid.NewString(),
		CourseID: courseID,
		UserID:   userID,
	}
	if err := s.db.CreateChatSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// resolveKnowledgeText returns the course's knowledge text, trusting a cache
// hit unconditionally. The cache is keyed by course only and is NOT
// re-validated against the live document's hash; replacing a document leaves
// stale text in place until the explicit cache-clear action runs.
func (s *ChatService) resolveKnowledgeText(ctx context.Context, courseID string, doc *models.KnowledgeDocument) (string, error) {
	cached, err := s.db.GetKnowledgeCache(ctx, courseID)
	if err != nil {
		return "", fmt.Errorf("read knowledge cache: %w", err)
	}
	if cached != nil && cached.Text != "" {
		return cached.Text, nil
	}

	buf, err := s.fetchDocument(ctx, doc.FileURL)
	if err != nil {
		return "", fmt.Errorf("fetch knowledge document: %w", err)
	}

	text, err := s.extractor.Extract(buf, doc.FileURL, doc.FileType)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(buf)
	if err := s.db.UpsertKnowledgeCache(ctx, courseID, text, hex.EncodeToString(sum[:])); err != nil {
		return "", fmt.Errorf("cache knowledge text: %w", err)
	}
	return text, nil
}

// fetchDocument downloads the knowledge document: through the object client
// when the URL points into our storage, by plain HTTP otherwise.
func (s *ChatService) fetchDocument(ctx context.Context, fileURL string) ([]byte, error) {
	if bucket, key := objectclient.ParseURL(fileURL); bucket != "" {
		return s.objects.GetFile(ctx, bucket, key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func buildPrompt(knowledgeText string, history []HistoryItem, question string) string {
	turns := make([]string, 0, len(history))
	for _, h := range history {
		turns = append(turns, fmt.Sprintf("%s: %s", strings.ToUpper(h.Role), h.Content))
	}
	return fmt.Sprintf("COURSE KNOWLEDGE BASE:\n\n%s\n\nPREVIOUS CONVERSATION:\n%s\n\nQUESTION:\n%s",
		knowledgeText, strings.Join(turns, "\n\n"), question)
}
