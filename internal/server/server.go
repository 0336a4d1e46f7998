// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/reel/internal/api"
	"github.com/stwalsh4118/reel/internal/config"
	"github.com/stwalsh4118/reel/internal/db"
	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/middleware"
	"github.com/stwalsh4118/reel/internal/session"
)

// Paths polled by the editor UI; successful requests are logged at debug level
var quietPaths = []string{"/api/transport/status", "/api/frame.png", "/api/health"}

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	db      *db.DB
	repos   *db.Repositories
	session *session.Session
	library *api.LibraryHandler
	router  *gin.Engine
	server  *http.Server
}

// New creates a new server instance. database may be nil when the probe cache is disabled.
func New(cfg *config.Config, database *db.DB, sess *session.Session) *Server {
	var repos *db.Repositories
	if database != nil {
		repos = db.NewRepositories(database)
	}

	s := &Server{
		config:  cfg,
		db:      database,
		repos:   repos,
		session: sess,
	}
	// Nil interfaces, not typed nils, tell the handlers the cache is off
	if repos != nil {
		s.library = api.NewLibraryHandler(repos.Media, sess)
	} else {
		s.library = api.NewLibraryHandler(nil, sess)
	}
	return s
}

// Handler returns the router, building it on first use
func (s *Server) Handler() http.Handler {
	if s.router == nil {
		s.setupRouter()
	}
	return s.router
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	s.router.Use(middleware.RequestLogger(quietPaths...))
	s.router.Use(gin.Recovery())
	s.router.Use(cors.Default()) // allows all origins

	apiGroup := s.router.Group("/api")

	if s.db != nil {
		api.SetupHealthRoutes(apiGroup, s.db, s.session)
	} else {
		api.SetupHealthRoutes(apiGroup, nil, s.session)
	}
	api.SetupTimelineRoutes(apiGroup, s.session)
	api.SetupTransportRoutes(apiGroup, s.session)
	api.SetupLibraryRoutes(apiGroup, s.library)
}

// Start starts the HTTP server and blocks until it stops. A graceful shutdown returns nil.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Bool("probe_cache", s.db != nil).
		Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for a running folder import
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.library.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Log.Warn().Msg("Folder import still running at shutdown")
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
