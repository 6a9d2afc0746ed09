package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
	"github.com/tnptm/next-djchat/internal/metrics"
)

// Subscriber receives notices for the rooms it is subscribed to.
type Subscriber interface {
	// Deliver queues the notice without blocking. It returns false when the notice was dropped.
	Deliver(notice messageDomain.Notice) bool
}

// Stats is a snapshot of the local subscription index.
type Stats struct {
	Rooms         int
	Subscribers   int
	Subscriptions int
}

// wireNotice is the payload carried by the broadcaster.
type wireNotice struct {
	RoomID    uuid.UUID `json:"room_id"`
	MessageID uuid.UUID `json:"message_id"`
}

// Bus indexes the local subscribers by room and relays notices through a Broadcaster.
// Subscription is a presence concern only; callers decide who may subscribe.
type Bus struct {
	broadcaster Broadcaster
	topic       string
	metrics     metrics.RealtimeMetrics
	logger      *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[Subscriber]struct{}
	subs  map[Subscriber]map[uuid.UUID]struct{}
}

// NewBus creates a Bus publishing on "<prefix>.rooms".
func NewBus(
	broadcaster Broadcaster,
	prefix string,
	realtimeMetrics metrics.RealtimeMetrics,
	logger *slog.Logger,
) *Bus {
	return &Bus{
		broadcaster: broadcaster,
		topic:       prefix + ".rooms",
		metrics:     realtimeMetrics,
		logger:      logger,
		ready:       make(chan struct{}),
		rooms:       make(map[uuid.UUID]map[Subscriber]struct{}),
		subs:        make(map[Subscriber]map[uuid.UUID]struct{}),
	}
}

// Subscribe adds sub to the room. Subscribing twice is a no-op; the result reports
// whether a subscription was added.
func (b *Bus) Subscribe(ctx context.Context, sub Subscriber, roomID uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.rooms[roomID][sub]; ok {
		return false
	}
	if b.rooms[roomID] == nil {
		b.rooms[roomID] = make(map[Subscriber]struct{})
	}
	if b.subs[sub] == nil {
		b.subs[sub] = make(map[uuid.UUID]struct{})
	}
	b.rooms[roomID][sub] = struct{}{}
	b.subs[sub][roomID] = struct{}{}

	b.metrics.SubscriptionsChanged(ctx, 1)
	return true
}

// Unsubscribe removes sub from the room. Unsubscribing a non-subscriber is a no-op.
func (b *Bus) Unsubscribe(ctx context.Context, sub Subscriber, roomID uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.unsubscribeLocked(sub, roomID) {
		return false
	}
	b.metrics.SubscriptionsChanged(ctx, -1)
	return true
}

// RemoveSubscriber drops every subscription held by sub and returns how many there were.
func (b *Bus) RemoveSubscriber(ctx context.Context, sub Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for roomID := range b.subs[sub] {
		if b.unsubscribeLocked(sub, roomID) {
			removed++
		}
	}
	if removed > 0 {
		b.metrics.SubscriptionsChanged(ctx, -int64(removed))
	}
	return removed
}

func (b *Bus) unsubscribeLocked(sub Subscriber, roomID uuid.UUID) bool {
	if _, ok := b.rooms[roomID][sub]; !ok {
		return false
	}
	delete(b.rooms[roomID], sub)
	if len(b.rooms[roomID]) == 0 {
		delete(b.rooms, roomID)
	}
	delete(b.subs[sub], roomID)
	if len(b.subs[sub]) == 0 {
		delete(b.subs, sub)
	}
	return true
}

// Publish broadcasts the notice to every process. Local subscribers receive it through Run.
func (b *Bus) Publish(ctx context.Context, notice messageDomain.Notice) error {
	payload, err := json.Marshal(wireNotice{RoomID: notice.RoomID, MessageID: notice.MessageID})
	if err != nil {
		return fmt.Errorf("failed to encode notice: %w", err)
	}
	return b.broadcaster.Broadcast(ctx, b.topic, payload)
}

// Run listens on the broadcaster and dispatches notices to local subscribers until ctx
// is done or the broadcaster stops.
func (b *Bus) Run(ctx context.Context) error {
	payloads, err := b.broadcaster.Listen(ctx, b.topic)
	if err != nil {
		return err
	}

	b.readyOnce.Do(func() { close(b.ready) })
	b.logger.Info("notification bus listening", slog.String("topic", b.topic))
	for payload := range payloads {
		var wire wireNotice
		if err := json.Unmarshal(payload, &wire); err != nil {
			b.logger.Warn("discarding malformed notice", slog.Any("error", err))
			continue
		}
		b.dispatch(ctx, messageDomain.Notice{RoomID: wire.RoomID, MessageID: wire.MessageID})
	}
	return nil
}

func (b *Bus) dispatch(ctx context.Context, notice messageDomain.Notice) {
	b.mu.RLock()
	subscribers := make([]Subscriber, 0, len(b.rooms[notice.RoomID]))
	for sub := range b.rooms[notice.RoomID] {
		subscribers = append(subscribers, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subscribers {
		outcome := "delivered"
		if !sub.Deliver(notice) {
			outcome = "dropped"
		}
		b.metrics.NoticeDelivered(ctx, outcome)
	}
}

// Ready is closed once Run is listening on the broadcaster.
func (b *Bus) Ready() <-chan struct{} {
	return b.ready
}

// Stats returns the current size of the subscription index.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := Stats{Rooms: len(b.rooms), Subscribers: len(b.subs)}
	for _, rooms := range b.subs {
		stats.Subscriptions += len(rooms)
	}
	return stats
}

// Close closes the broadcaster, which ends Run.
func (b *Bus) Close() error {
	return b.broadcaster.Close()
}
