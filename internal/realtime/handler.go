package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	authHTTP "github.com/tnptm/next-djchat/internal/auth/http"
	authService "github.com/tnptm/next-djchat/internal/auth/service"
	"github.com/tnptm/next-djchat/internal/metrics"
)

const maxClientMessageSize = 4096

// HandlerConfig holds the websocket transport settings.
type HandlerConfig struct {
	// IdleTimeout closes a connection that sends nothing, pongs included, for this long.
	IdleTimeout time.Duration
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// SendBuffer is the per-connection notice queue length.
	SendBuffer int
	// AllowedOrigins lists the accepted Origin headers. Empty means same host only; "*" allows any.
	AllowedOrigins []string
}

// Handler upgrades HTTP requests to websocket connections and pumps frames for them.
type Handler struct {
	verifier authService.TokenVerifier
	bus      SubscriptionBus
	config   HandlerConfig
	upgrader websocket.Upgrader
	metrics  metrics.RealtimeMetrics
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[*Connection]struct{}
}

// NewHandler creates a websocket Handler.
func NewHandler(
	verifier authService.TokenVerifier,
	bus SubscriptionBus,
	config HandlerConfig,
	realtimeMetrics metrics.RealtimeMetrics,
	logger *slog.Logger,
) *Handler {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 60 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	h := &Handler{
		verifier: verifier,
		bus:      bus,
		config:   config,
		metrics:  realtimeMetrics,
		logger:   logger,
		conns:    make(map[*Connection]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin(config.AllowedOrigins),
	}
	return h
}

func (h *Handler) checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	if slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// credential reads the bearer token from ?token= or the Authorization header.
func credential(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	token, _ := authHTTP.BearerToken(c.GetHeader("Authorization"))
	return token
}

// ServeWS handles GET /ws/rooms. The credential is verified before the upgrade; a
// rejected handshake gets a bare 401 and no socket.
func (h *Handler) ServeWS(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	conn := NewConnection(h.verifier, h.bus, h.config.SendBuffer, h.metrics, h.logger)

	if err := conn.Authenticate(ctx, credential(c)); err != nil {
		h.logger.Debug("websocket handshake rejected",
			slog.String("reason", string(conn.CloseReason())),
			slog.String("client_ip", c.ClientIP()),
		)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		conn.Close(ctx, ReasonTransportClosed)
		h.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}

	h.track(conn)
	defer h.untrack(conn)

	principal := conn.Principal()
	h.logger.Debug("websocket connection opened", slog.String("user_id", principal.ID.String()))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, ws, conn)
	}()

	h.readLoop(ctx, ws, conn)
	<-writerDone

	h.logger.Debug("websocket connection closed",
		slog.String("user_id", principal.ID.String()),
		slog.String("reason", string(conn.CloseReason())),
	)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, conn *Connection) {
	ws.SetReadLimit(maxClientMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.config.IdleTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.config.IdleTimeout))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			conn.Close(ctx, readCloseReason(err))
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.config.IdleTimeout))

		if err := conn.HandleClientMessage(ctx, data); err != nil {
			return
		}
	}
}

func readCloseReason(err error) CloseReason {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonIdleTimeout
	}
	if errors.Is(err, websocket.ErrReadLimit) {
		return ReasonProtocolViolation
	}
	return ReasonTransportClosed
}

// writeLoop sends queued notices and pings until the connection closes, then sends a
// close frame and releases the socket.
func (h *Handler) writeLoop(ctx context.Context, ws *websocket.Conn, conn *Connection) {
	pingPeriod := h.config.IdleTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case payload, ok := <-conn.Outbound():
			deadline := time.Now().Add(h.config.WriteTimeout)
			if !ok {
				reason := conn.CloseReason()
				_ = ws.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(closeCode(reason), string(reason)),
					deadline,
				)
				return
			}
			_ = ws.SetWriteDeadline(deadline)
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				conn.Close(ctx, ReasonWriteFailed)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(h.config.WriteTimeout)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				conn.Close(ctx, ReasonWriteFailed)
				return
			}
		}
	}
}

func closeCode(reason CloseReason) int {
	switch reason {
	case ReasonProtocolViolation:
		return websocket.ClosePolicyViolation
	case ReasonServerShutdown:
		return websocket.CloseGoingAway
	default:
		return websocket.CloseNormalClosure
	}
}

func (h *Handler) track(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *Handler) untrack(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// ConnectionCount returns the number of live sockets.
func (h *Handler) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown closes every live connection with a going-away frame.
func (h *Handler) Shutdown(ctx context.Context) {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close(ctx, ReasonServerShutdown)
	}
}
