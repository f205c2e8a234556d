package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("user_id", "123"),
		attribute.String("session_id", "456"),
		attribute.String("outcome", "created"),
		attribute.String("job", "daily_snapshot"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "user_id" || attr.Key == "session_id" {
			t.Fatalf("unexpected high-cardinality label %q", attr.Key)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordHeartbeat(context.Background(), true)
	m.RecordSnapshotOutcome(context.Background(), "created")
	m.RecordProductivityRecord(context.Background(), "ok")
	m.RecordRateLimitDenied(context.Background(), "/api/activity/heartbeat", "limited")

	NewNop().RecordHeartbeat(context.Background(), false)
}
