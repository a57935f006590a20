package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coursehub-api/coursehub/internal/config"
	db "github.com/coursehub-api/coursehub/internal/core/database"
	"github.com/coursehub-api/coursehub/internal/core/extract"
	"github.com/coursehub-api/coursehub/internal/core/llm"
	objectclient "github.com/coursehub-api/coursehub/internal/core/object-client"
	"github.com/coursehub-api/coursehub/internal/services"
)

// Services bundles the wired service layer.
type Services struct {
	Users     *services.UserService
	Courses   *services.CourseService
	Knowledge *services.KnowledgeService
	Chat      *services.ChatService
	Sessions  *services.SessionService
	Progress  *services.ProgressService
}

type App struct {
	DBClient     db.DbClient
	ObjectClient objectclient.ObjectClient
	Server       *Server
	logger       *zap.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database initialized and ready")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("object client initialized and ready")

	llmProvider := llm.NewGeminiLLM(cfg.AIAPIKey, cfg.GenModel, cfg.GenAPIVersion)
	extractor := extract.NewExtractor()
	limiter := services.NewRateLimiter(dbClient, cfg.ChatRatePerMin)

	svcs := &Services{
		Users:     services.NewUserService(dbClient, objClient, cfg.BucketName, cfg.JWTSecret, logger),
		Courses:   services.NewCourseService(dbClient, objClient, logger),
		Knowledge: services.NewKnowledgeService(dbClient, objClient, cfg.BucketName, logger),
		Chat:      services.NewChatService(dbClient, objClient, extractor, llmProvider, limiter, logger),
		Sessions:  services.NewSessionService(dbClient, cfg.SessionPageLimit),
		Progress:  services.NewProgressService(dbClient),
	}

	server := NewServer(cfg, svcs, logger)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Server:       server,
		logger:       logger,
	}, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
