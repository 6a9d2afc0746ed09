package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster relays payloads through Redis pub/sub channels.
type RedisBroadcaster struct {
	client *redis.Client
}

// NewRedisBroadcaster wraps an existing client. Close closes the client.
func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

// OpenRedisBroadcaster connects to the Redis server at url (redis://host:port/db).
func OpenRedisBroadcaster(url string) (*RedisBroadcaster, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisBroadcaster(redis.NewClient(opts)), nil
}

// Broadcast publishes payload on the topic channel.
func (r *RedisBroadcaster) Broadcast(ctx context.Context, topic string, payload []byte) error {
	if err := r.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Listen subscribes to the topic channel. The subscription is confirmed before returning.
func (r *RedisBroadcaster) Listen(ctx context.Context, topic string) (<-chan []byte, error) {
	sub := r.client.Subscribe(ctx, topic)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to redis: %w", err)
	}

	messages := sub.Channel()
	out := make(chan []byte)
	go func() {
		defer close(out)
		defer func() {
			_ = sub.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the Redis client.
func (r *RedisBroadcaster) Close() error {
	return r.client.Close()
}
