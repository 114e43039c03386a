package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/identikit/apiserver/config"
	"github.com/identikit/apiserver/internal/apperr"
	"github.com/identikit/apiserver/internal/db"
	"github.com/identikit/apiserver/internal/events"
	"github.com/identikit/apiserver/internal/handlers"
	"github.com/identikit/apiserver/internal/services"
	"github.com/identikit/apiserver/internal/storage"
	"github.com/identikit/apiserver/internal/store"
	"github.com/identikit/apiserver/internal/token"
)

// maxBodyBytes caps JSON request bodies. Avatar uploads enforce their own,
// larger limit.
const maxBodyBytes = 10 << 10

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  *events.Publisher
	logger     *slog.Logger
}

// New constructs a fully wired Server.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	publisher, err := newPublisher(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("connect event backend: %w", err)
	}

	avatars, err := newAvatarStore(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		if publisher != nil {
			_ = publisher.Close()
		}
		return nil, fmt.Errorf("connect storage backend: %w", err)
	}
	if avatars != nil {
		logger.Info("avatar storage ready",
			"backend", cfg.Storage.Backend, "bucket", avatars.Bucket())
	}

	userRepo := store.NewUserRepository(dbConn)
	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	var eventPublisher services.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}

	authService := services.NewAuthService(userRepo, tokens, eventPublisher, logger)
	userService := services.NewUserService(userRepo, avatars, eventPublisher, logger)

	respond := handlers.NewResponder(cfg.IsProduction(), logger)
	authHandler := handlers.NewAuthHandler(authService, respond)
	userHandler := handlers.NewUserHandler(userService, respond)
	gate := handlers.NewAuthGate(tokens, userRepo, respond)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Compress(5),
		middleware.Timeout(60*time.Second),
		requestLogger(logger),
	)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, apperr.NotFound(fmt.Sprintf("Resource not found: %s", r.URL.Path)))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, apperr.NotFound(fmt.Sprintf("Resource not found: %s", r.URL.Path)))
	})

	router.Get("/health", handlers.Health)

	router.Route("/auth", func(r chi.Router) {
		r.Use(limitBody(maxBodyBytes))
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})

	router.Route("/user", func(r chi.Router) {
		r.Use(gate.RequireAuth)
		r.Get("/profile", userHandler.Profile)
		r.With(limitBody(maxBodyBytes)).Put("/profile", userHandler.UpdateProfile)
		r.Get("/avatar", userHandler.Avatar)
		// Avatar uploads enforce their own, larger limit in the handler.
		r.Put("/avatar", userHandler.UploadAvatar)
		r.Delete("/avatar", userHandler.DeleteAvatar)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and releases resources.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

func newPublisher(ctx context.Context, cfg config.EventsConfig) (*events.Publisher, error) {
	backend, err := events.NewBackend(ctx, cfg)
	if err != nil || backend == nil {
		return nil, err
	}
	return events.NewPublisher(backend, cfg.Channel), nil
}

func newAvatarStore(ctx context.Context, cfg config.StorageConfig) (*storage.AvatarStore, error) {
	var backend storage.ObjectStorage
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		minioBackend, err := storage.NewMinioBackend(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = minioBackend
	case "gcs":
		gcsBackend, err := storage.NewGCSBackend(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = gcsBackend
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	avatars := storage.NewAvatarStore(backend)
	if err := avatars.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return avatars, nil
}

// requestLogger logs every request with its id, outcome, and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr,
			)
		})
	}
}

// limitBody caps request body size for all routes.
func limitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
