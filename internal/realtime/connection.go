// Package realtime serves the websocket endpoint that nudges clients about new messages.
//
// Each socket is driven by a Connection, a transport-independent state machine:
//
//	Connecting -> Authenticating -> Open -> Closed
//
// A missing or rejected credential closes the connection before it opens. Once open,
// clients subscribe and unsubscribe to rooms and receive minimal notices (room id and
// message id) that tell them to re-fetch.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	authDomain "github.com/tnptm/next-djchat/internal/auth/domain"
	authService "github.com/tnptm/next-djchat/internal/auth/service"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
	"github.com/tnptm/next-djchat/internal/metrics"
	"github.com/tnptm/next-djchat/internal/notify"
)

// State is a Connection lifecycle state.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason records why a connection closed.
type CloseReason string

const (
	ReasonMissingCredential CloseReason = "missing credential"
	ReasonInvalidCredential CloseReason = "invalid credential"
	ReasonTransportClosed   CloseReason = "transport closed"
	ReasonProtocolViolation CloseReason = "protocol violation"
	ReasonIdleTimeout       CloseReason = "idle timeout"
	ReasonWriteFailed       CloseReason = "write failed"
	ReasonServerShutdown    CloseReason = "server shutdown"
)

// Connection errors.
var (
	ErrInvalidTransition = apperrors.New("invalid connection state transition")
	ErrNotOpen           = apperrors.New("connection is not open")
	ErrProtocolViolation = apperrors.Wrap(apperrors.ErrInvalidInput, "malformed client message")
)

// Client actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// NoticeTypeNewMessage is the type of every outbound notice.
const NoticeTypeNewMessage = "new_message"

// ClientMessage is sent by clients: {"action": "subscribe"|"unsubscribe", "room_id": "..."}.
type ClientMessage struct {
	Action string `json:"action"`
	RoomID string `json:"room_id"`
}

// NoticeMessage is sent to clients. It never carries message content.
type NoticeMessage struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

// SubscriptionBus is the part of notify.Bus a connection drives.
type SubscriptionBus interface {
	Subscribe(ctx context.Context, sub notify.Subscriber, roomID uuid.UUID) bool
	Unsubscribe(ctx context.Context, sub notify.Subscriber, roomID uuid.UUID) bool
	RemoveSubscriber(ctx context.Context, sub notify.Subscriber) int
}

// Connection is the state machine behind one client socket. It is safe for concurrent
// use: the read loop, the write loop and bus dispatch all touch it.
//
// Lock order is Connection then bus, never the reverse.
type Connection struct {
	verifier authService.TokenVerifier
	bus      SubscriptionBus
	metrics  metrics.RealtimeMetrics
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	principal   *authDomain.Principal
	closeReason CloseReason
	outbound    chan []byte
}

// NewConnection creates a Connection in the Connecting state. sendBuffer bounds the
// notices queued for a slow client; further notices are dropped.
func NewConnection(
	verifier authService.TokenVerifier,
	bus SubscriptionBus,
	sendBuffer int,
	realtimeMetrics metrics.RealtimeMetrics,
	logger *slog.Logger,
) *Connection {
	if sendBuffer <= 0 {
		sendBuffer = 1
	}
	return &Connection{
		verifier: verifier,
		bus:      bus,
		metrics:  realtimeMetrics,
		logger:   logger,
		state:    StateConnecting,
		outbound: make(chan []byte, sendBuffer),
	}
}

// State returns the current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Principal returns the authenticated principal, or nil before Open.
func (c *Connection) Principal() *authDomain.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principal
}

// CloseReason returns why the connection closed, or "" while it is not closed.
func (c *Connection) CloseReason() CloseReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeReason
}

// Outbound yields encoded notices for the transport. It is closed when the connection closes.
func (c *Connection) Outbound() <-chan []byte {
	return c.outbound
}

// Authenticate verifies credential and opens the connection. Any failure closes it.
func (c *Connection) Authenticate(ctx context.Context, credential string) error {
	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	if credential == "" {
		c.closeLocked(ctx, ReasonMissingCredential)
		c.mu.Unlock()
		return authDomain.ErrMissingCredential
	}
	c.state = StateAuthenticating
	c.mu.Unlock()

	principal, err := c.verifier.Verify(ctx, credential)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAuthenticating {
		return ErrNotOpen
	}
	if err != nil {
		c.closeLocked(ctx, ReasonInvalidCredential)
		return err
	}

	c.state = StateOpen
	c.principal = principal
	c.metrics.ConnectionsChanged(ctx, 1)
	return nil
}

// HandleClientMessage applies a subscribe or unsubscribe request. Undecodable input is a
// protocol violation and closes the connection; unknown actions and room ids that are not
// UUIDs are ignored.
func (c *Connection) HandleClientMessage(ctx context.Context, raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return ErrNotOpen
	}

	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.closeLocked(ctx, ReasonProtocolViolation)
		return ErrProtocolViolation
	}

	roomID, err := uuid.Parse(msg.RoomID)
	if err != nil {
		c.logger.Debug("ignoring client message with invalid room id", slog.String("action", msg.Action))
		return nil
	}

	switch msg.Action {
	case ActionSubscribe:
		c.bus.Subscribe(ctx, c, roomID)
	case ActionUnsubscribe:
		c.bus.Unsubscribe(ctx, c, roomID)
	default:
		c.logger.Debug("ignoring unknown client action", slog.String("action", msg.Action))
	}
	return nil
}

// Deliver queues a notice for the client. It never blocks and reports false when the
// connection is not open or its queue is full.
func (c *Connection) Deliver(notice messageDomain.Notice) bool {
	payload, err := json.Marshal(NoticeMessage{
		Type:      NoticeTypeNewMessage,
		RoomID:    notice.RoomID.String(),
		MessageID: notice.MessageID.String(),
	})
	if err != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return false
	}
	select {
	case c.outbound <- payload:
		return true
	default:
		return false
	}
}

// Close moves the connection to Closed and drops all its subscriptions. Closing twice
// keeps the first reason.
func (c *Connection) Close(ctx context.Context, reason CloseReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(ctx, reason)
}

func (c *Connection) closeLocked(ctx context.Context, reason CloseReason) {
	if c.state == StateClosed {
		return
	}
	if c.state == StateOpen {
		c.bus.RemoveSubscriber(ctx, c)
		c.metrics.ConnectionsChanged(ctx, -1)
	}
	c.state = StateClosed
	c.closeReason = reason
	close(c.outbound)
}
