package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSBroadcaster relays payloads through NATS subjects.
type NATSBroadcaster struct {
	conn *nats.Conn
}

// NewNATSBroadcaster wraps an existing connection. Close closes the connection.
func NewNATSBroadcaster(conn *nats.Conn) *NATSBroadcaster {
	return &NATSBroadcaster{conn: conn}
}

// OpenNATSBroadcaster connects to the NATS server at url and keeps reconnecting forever.
func OpenNATSBroadcaster(url, name string) (*NATSBroadcaster, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewNATSBroadcaster(conn), nil
}

// Broadcast publishes payload on the topic subject.
func (n *NATSBroadcaster) Broadcast(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.conn.Publish(topic, payload); err != nil {
		return fmt.Errorf("failed to publish to nats: %w", err)
	}
	return nil
}

// Listen subscribes to the topic subject. Every process receives every payload, so no
// queue group is used.
func (n *NATSBroadcaster) Listen(ctx context.Context, topic string) (<-chan []byte, error) {
	messages := make(chan *nats.Msg, 256)
	sub, err := n.conn.ChanSubscribe(topic, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to nats: %w", err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer func() {
			_ = sub.Unsubscribe()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-messages:
				select {
				case out <- msg.Data:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the NATS connection.
func (n *NATSBroadcaster) Close() error {
	n.conn.Close()
	return nil
}
