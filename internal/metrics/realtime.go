package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RealtimeMetrics tracks live connections, room subscriptions and notice delivery.
type RealtimeMetrics interface {
	// ConnectionsChanged adjusts the live connection gauge by delta.
	ConnectionsChanged(ctx context.Context, delta int64)
	// SubscriptionsChanged adjusts the room subscription gauge by delta.
	SubscriptionsChanged(ctx context.Context, delta int64)
	// NoticeDelivered counts a notice by outcome ("delivered" or "dropped").
	NoticeDelivered(ctx context.Context, outcome string)
}

type realtimeMetrics struct {
	connections   metric.Int64UpDownCounter
	subscriptions metric.Int64UpDownCounter
	notices       metric.Int64Counter
}

// NewRealtimeMetrics creates RealtimeMetrics instruments prefixed with namespace.
func NewRealtimeMetrics(meterProvider metric.MeterProvider, namespace string) (RealtimeMetrics, error) {
	meter := meterProvider.Meter(namespace)

	connections, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_realtime_connections", namespace),
		metric.WithDescription("Number of open realtime connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connections gauge: %w", err)
	}

	subscriptions, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_realtime_subscriptions", namespace),
		metric.WithDescription("Number of room subscriptions held by open connections"),
		metric.WithUnit("{subscription}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions gauge: %w", err)
	}

	notices, err := meter.Int64Counter(
		fmt.Sprintf("%s_realtime_notices_total", namespace),
		metric.WithDescription("Room notices handed to local connections"),
		metric.WithUnit("{notice}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notices counter: %w", err)
	}

	return &realtimeMetrics{
		connections:   connections,
		subscriptions: subscriptions,
		notices:       notices,
	}, nil
}

func (r *realtimeMetrics) ConnectionsChanged(ctx context.Context, delta int64) {
	r.connections.Add(ctx, delta)
}

func (r *realtimeMetrics) SubscriptionsChanged(ctx context.Context, delta int64) {
	r.subscriptions.Add(ctx, delta)
}

func (r *realtimeMetrics) NoticeDelivered(ctx context.Context, outcome string) {
	r.notices.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// NoOpRealtimeMetrics is used when metrics are disabled.
type NoOpRealtimeMetrics struct{}

// NewNoOpRealtimeMetrics creates a no-op RealtimeMetrics implementation.
func NewNoOpRealtimeMetrics() RealtimeMetrics {
	return &NoOpRealtimeMetrics{}
}

func (n *NoOpRealtimeMetrics) ConnectionsChanged(ctx context.Context, delta int64) {}

func (n *NoOpRealtimeMetrics) SubscriptionsChanged(ctx context.Context, delta int64) {}

func (n *NoOpRealtimeMetrics) NoticeDelivered(ctx context.Context, outcome string) {}
