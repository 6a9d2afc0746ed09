// Package notify fans new-message notices out to live connections.
//
// A Bus keeps the local room -> subscriber index and relays every notice through a
// Broadcaster so that connections held by other processes receive it too. Delivery is
// best-effort: notices only prompt clients to re-fetch the message log.
package notify

import (
	"bytes"
	"context"
	"sync"

	apperrors "github.com/tnptm/next-djchat/internal/errors"
)

// ErrBroadcasterClosed is returned by a broadcaster used after Close.
var ErrBroadcasterClosed = apperrors.New("broadcaster closed")

// Broadcaster is the cluster-wide pub/sub substrate behind a Bus.
type Broadcaster interface {
	// Broadcast publishes payload to every listener of topic, in every process.
	Broadcast(ctx context.Context, topic string, payload []byte) error

	// Listen streams the payloads published to topic. The channel is closed once ctx
	// is done or the broadcaster is closed.
	Listen(ctx context.Context, topic string) (<-chan []byte, error)

	Close() error
}

type memoryListener struct {
	ch   chan []byte
	done chan struct{}
}

// MemoryBroadcaster delivers payloads within the current process.
type MemoryBroadcaster struct {
	mu        sync.RWMutex
	listeners map[string]map[*memoryListener]struct{}
	closed    bool
}

// NewMemoryBroadcaster creates an in-process broadcaster.
func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{listeners: make(map[string]map[*memoryListener]struct{})}
}

// Broadcast hands payload to every current listener of topic, waiting for slow listeners
// until ctx is done.
func (m *MemoryBroadcaster) Broadcast(ctx context.Context, topic string, payload []byte) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrBroadcasterClosed
	}
	listeners := make([]*memoryListener, 0, len(m.listeners[topic]))
	for l := range m.listeners[topic] {
		listeners = append(listeners, l)
	}
	m.mu.RUnlock()

	payload = bytes.Clone(payload)
	for _, l := range listeners {
		select {
		case l.ch <- payload:
		case <-l.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Listen registers a listener for topic.
func (m *MemoryBroadcaster) Listen(ctx context.Context, topic string) (<-chan []byte, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrBroadcasterClosed
	}
	l := &memoryListener{ch: make(chan []byte, 64), done: make(chan struct{})}
	if m.listeners[topic] == nil {
		m.listeners[topic] = make(map[*memoryListener]struct{})
	}
	m.listeners[topic][l] = struct{}{}
	m.mu.Unlock()

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer m.remove(topic, l)
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.done:
				return
			case payload := <-l.ch:
				select {
				case out <- payload:
				case <-ctx.Done():
					return
				case <-l.done:
					return
				}
			}
		}
	}()
	return out, nil
}

func (m *MemoryBroadcaster) remove(topic string, l *memoryListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.listeners[topic][l]; !ok {
		return
	}
	delete(m.listeners[topic], l)
	if len(m.listeners[topic]) == 0 {
		delete(m.listeners, topic)
	}
	close(l.done)
}

// Close stops every listener.
func (m *MemoryBroadcaster) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for topic, listeners := range m.listeners {
		for l := range listeners {
			close(l.done)
		}
		delete(m.listeners, topic)
	}
	return nil
}
