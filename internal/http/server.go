// Package http provides the HTTP server, its routes and shared middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/tnptm/next-djchat/internal/auth/http"
	authService "github.com/tnptm/next-djchat/internal/auth/service"
	"github.com/tnptm/next-djchat/internal/config"
	messageHTTP "github.com/tnptm/next-djchat/internal/message/http"
	"github.com/tnptm/next-djchat/internal/metrics"
	"github.com/tnptm/next-djchat/internal/realtime"
	roomHTTP "github.com/tnptm/next-djchat/internal/room/http"
)

// Server is the public API server.
type Server struct {
	db       *sql.DB
	server   *http.Server
	router   *gin.Engine
	ws       *realtime.Handler
	busReady <-chan struct{}
	logger   *slog.Logger
}

// NewServer creates a new Server. Call SetupRouter before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 15 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// SetupRouter registers every route.
//
// ctx bounds the background eviction of rate limiters. busReady is closed once the
// notification bus is listening; /ready reports not ready until then.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	tokenVerifier authService.TokenVerifier,
	currentUserHandler *authHTTP.CurrentUserHandler,
	roomHandler *roomHTTP.RoomHandler,
	messageHandler *messageHTTP.MessageHandler,
	wsHandler *realtime.Handler,
	busReady <-chan struct{},
	metricsProvider *metrics.Provider,
	metricsNamespace string,
) {
	s.ws = wsHandler
	s.busReady = busReady

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), metricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	ws := router.Group("/ws")
	if cfg.RateLimitEnabled {
		ws.Use(authHTTP.IPRateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}
	ws.GET("/rooms", wsHandler.ServeWS)

	v1 := router.Group("/v1")
	v1.Use(authHTTP.AuthenticationMiddleware(tokenVerifier, s.logger))
	if cfg.RateLimitEnabled {
		v1.Use(authHTTP.RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	v1.GET("/me", currentUserHandler.GetHandler)

	rooms := v1.Group("/rooms")
	{
		rooms.GET("", roomHandler.ListHandler)
		rooms.POST("", roomHandler.CreateHandler)
		rooms.GET("/:id", roomHandler.GetHandler)
		rooms.DELETE("/:id", roomHandler.DeleteHandler)
		rooms.POST("/:id/members", roomHandler.AddMemberHandler)
		rooms.GET("/:id/messages", messageHandler.ListHandler)
		rooms.POST("/:id/messages", messageHandler.SendHandler)
		rooms.GET("/:id/messages/:message_id", messageHandler.GetHandler)
		rooms.POST("/:id/files", messageHandler.UploadHandler)
	}

	v1.GET("/attachments/:id", messageHandler.DownloadHandler)

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown closes the websocket connections with a going-away frame, then drains the
// remaining HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	if s.ws != nil {
		s.ws.Shutdown(ctx)
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready only when the database answers and the notification
// bus is listening.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok", "notifications": "ok"}
	ready := true

	if s.db == nil {
		components["database"] = "error"
		ready = false
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.String("component", "database"), slog.Any("error", err))
			components["database"] = "error"
			ready = false
		}
	}

	if !s.busListening() {
		components["notifications"] = "error"
		ready = false
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}

func (s *Server) busListening() bool {
	if s.busReady == nil {
		return false
	}
	select {
	case <-s.busReady:
		return true
	default:
		return false
	}
}
