package app

import (
	"fmt"

	authHTTP "github.com/tnptm/next-djchat/internal/auth/http"
	authService "github.com/tnptm/next-djchat/internal/auth/service"
	"github.com/tnptm/next-djchat/internal/http"
	messageHTTP "github.com/tnptm/next-djchat/internal/message/http"
	"github.com/tnptm/next-djchat/internal/realtime"
	roomHTTP "github.com/tnptm/next-djchat/internal/room/http"
)

type httpComponents struct {
	tokenVerifier   lazy[authService.TokenVerifier]
	realtimeHandler lazy[*realtime.Handler]
	httpServer      lazy[*http.Server]
	metricsServer   lazy[*http.MetricsServer]
}

// TokenVerifier returns the JWT bearer verifier.
func (c *Container) TokenVerifier() (authService.TokenVerifier, error) {
	return c.tokenVerifier.get(func() (authService.TokenVerifier, error) {
		if c.config.JWTSigningKey == "" {
			return nil, fmt.Errorf("JWT_SIGNING_KEY is required")
		}
		users, err := c.UserRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get user repository for token verifier: %w", err)
		}
		return authService.NewJWTVerifier(c.config.JWTSigningKey, c.config.JWTIssuer, users, c.Logger()), nil
	})
}

// RealtimeHandler returns the websocket endpoint handler.
func (c *Container) RealtimeHandler() (*realtime.Handler, error) {
	return c.realtimeHandler.get(func() (*realtime.Handler, error) {
		verifier, err := c.TokenVerifier()
		if err != nil {
			return nil, err
		}
		bus, err := c.NotificationBus()
		if err != nil {
			return nil, err
		}
		realtimeMetrics, err := c.RealtimeMetrics()
		if err != nil {
			return nil, err
		}

		var origins []string
		if c.config.CORSEnabled {
			origins = http.ParseOrigins(c.config.CORSAllowOrigins)
		}
		return realtime.NewHandler(verifier, bus, realtime.HandlerConfig{
			IdleTimeout:    c.config.WSIdleTimeout,
			WriteTimeout:   c.config.WSWriteTimeout,
			SendBuffer:     c.config.WSSendBuffer,
			AllowedOrigins: origins,
		}, realtimeMetrics, c.Logger()), nil
	})
}

// HTTPServer returns the public API server with every route registered.
func (c *Container) HTTPServer() (*http.Server, error) {
	return c.httpServer.get(c.initHTTPServer)
}

// MetricsServer returns the Prometheus scrape server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	return c.metricsServer.get(func() (*http.MetricsServer, error) {
		provider, err := c.MetricsProvider()
		if err != nil || provider == nil {
			return nil, err
		}
		return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
	})
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}
	verifier, err := c.TokenVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get token verifier for http server: %w", err)
	}
	rooms, err := c.RoomUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get room use case for http server: %w", err)
	}
	messages, err := c.MessageUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get message use case for http server: %w", err)
	}
	blobs, err := c.BlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob store for http server: %w", err)
	}
	wsHandler, err := c.RealtimeHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get realtime handler for http server: %w", err)
	}
	bus, err := c.NotificationBus()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification bus for http server: %w", err)
	}
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(
		c.ctx,
		c.config,
		verifier,
		authHTTP.NewCurrentUserHandler(logger),
		roomHTTP.NewRoomHandler(rooms, logger),
		messageHTTP.NewMessageHandler(messages, blobs.URL, c.config.MaxAttachmentSize, logger),
		wsHandler,
		bus.Ready(),
		provider,
		c.config.MetricsNamespace,
	)
	return server, nil
}
