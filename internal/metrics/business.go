package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "github.com/tnptm/next-djchat/internal/errors"
)

// Outcome labels attached to every business operation sample.
const (
	StatusSuccess   = "success"
	StatusForbidden = "forbidden"
	StatusNotFound  = "not_found"
	StatusInvalid   = "invalid"
	StatusError     = "error"
)

// Most room and message operations are a handful of queries plus AEAD work, so the
// buckets are finer below 100ms than the SDK defaults. Uploads land in the upper range.
var operationBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// Status maps an operation result to an outcome label. Denied reads are counted apart
// from failures so a spike of non-member probes does not look like an outage.
func Status(err error) string {
	if err == nil {
		return StatusSuccess
	}
	switch apperrors.Kind(err) {
	case apperrors.ErrForbidden:
		return StatusForbidden
	case apperrors.ErrNotFound:
		return StatusNotFound
	case apperrors.ErrInvalidInput:
		return StatusInvalid
	default:
		return StatusError
	}
}

// BusinessMetrics records counts and durations of use case operations.
//
// domain is "rooms" or "messages"; operation is e.g. "room_create" or "message_send";
// status is one of the Status* labels.
type BusinessMetrics interface {
	RecordOperation(ctx context.Context, domain, operation, status string)
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)
}

type businessMetrics struct {
	operations metric.Int64Counter
	durations  metric.Float64Histogram
}

// NewBusinessMetrics creates BusinessMetrics instruments prefixed with namespace.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace + "/usecase")

	operations, err := meter.Int64Counter(
		namespace+"_operations_total",
		metric.WithDescription("Room and message operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durations, err := meter.Float64Histogram(
		namespace+"_operation_duration_seconds",
		metric.WithDescription("Time spent in room and message operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(operationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &businessMetrics{operations: operations, durations: durations}, nil
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operations.Add(ctx, 1, metric.WithAttributeSet(operationSet(domain, operation, status)))
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durations.Record(ctx, duration.Seconds(), metric.WithAttributeSet(operationSet(domain, operation, status)))
}

func operationSet(domain, operation, status string) attribute.Set {
	return attribute.NewSet(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
}

// NoOpBusinessMetrics is used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (n *NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}
