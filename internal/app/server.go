package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/coursehub-api/coursehub/internal/api/handlers"
	appMiddleware "github.com/coursehub-api/coursehub/internal/api/middlewares"
	"github.com/coursehub-api/coursehub/internal/config"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, svcs *Services, logger *zap.Logger) *Server {
	authHandler := handlers.NewAuthHandler(svcs.Users)
	profileHandler := handlers.NewProfileHandler(svcs.Users)
	courseHandler := handlers.NewCourseHandler(svcs.Courses, cfg.BucketName)
	knowledgeHandler := handlers.NewKnowledgeHandler(svcs.Knowledge)
	chatHandler := handlers.NewChatHandler(svcs.Chat)
	sessionHandler := handlers.NewSessionHandler(svcs.Sessions)
	progressHandler := handlers.NewProgressHandler(svcs.Progress)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)
		api.Get("/courses", courseHandler.List)
		api.Get("/courses/{courseID}", courseHandler.Get)
		api.Get("/courses/{courseID}/videos", courseHandler.ListVideos)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTAuth(cfg.JWTSecret))

			protected.Get("/profile", profileHandler.Get)
			protected.Patch("/profile", profileHandler.Update)
			protected.Post("/profile/avatar", profileHandler.UploadAvatar)

			protected.Post("/courses", courseHandler.Create)
			protected.Get("/courses/mine", courseHandler.ListMine)
			protected.Patch("/courses/{courseID}", courseHandler.Update)
			protected.Delete("/courses/{courseID}", courseHandler.Delete)
			protected.Post("/courses/{courseID}/videos", courseHandler.AddVideo)
			protected.Delete("/videos/{videoID}", courseHandler.DeleteVideo)
			protected.Post("/courses/{courseID}/enroll", courseHandler.Enroll)
			protected.Get("/enrollments", courseHandler.ListEnrollments)

			protected.Post("/courses/{courseID}/knowledge-base", knowledgeHandler.Upload)
			protected.Get("/courses/{courseID}/knowledge-base", knowledgeHandler.Get)
			protected.Delete("/courses/{courseID}/knowledge-base", knowledgeHandler.Delete)
			protected.Delete("/courses/{courseID}/knowledge-base/cache", knowledgeHandler.ClearCache)

			protected.Post("/courses/chat", chatHandler.SendMessage)
			protected.Post("/chat/sessions", sessionHandler.Create)
			protected.Get("/chat/sessions", sessionHandler.List)
			protected.Get("/chat/sessions/search", sessionHandler.Search)
			protected.Get("/chat/sessions/{sessionID}/messages", sessionHandler.History)
			protected.Patch("/chat/sessions/{sessionID}", sessionHandler.Rename)
			protected.Delete("/chat/sessions/{sessionID}", sessionHandler.Delete)

			protected.Post("/progress", progressHandler.Record)
			protected.Post("/courses/{courseID}/videos/{videoID}/complete", progressHandler.MarkCompleted)
			protected.Get("/courses/{courseID}/completed-videos", progressHandler.CompletedVideos)
			protected.Get("/analytics/stats", progressHandler.Stats)
			protected.Get("/analytics/continue-learning", progressHandler.ContinueLearning)
			protected.Get("/analytics/activity", progressHandler.Activity)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, logger: logger}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
