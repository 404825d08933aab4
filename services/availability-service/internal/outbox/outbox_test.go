package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/md-rashed-zaman/availability/libs/kafkax"
	otelx "github.com/md-rashed-zaman/availability/libs/otel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestMergedEvent(t *testing.T) {
	at := time.Date(2026, time.March, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	evt, err := MergedEvent(MergedPayload{EmployeeID: 42, Entity: "weekly", UpsertIDs: []int64{7}, MergedAt: at})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	if evt.EventType != "availability.weekly.merged.v1" || evt.AggregateID != "42" {
		t.Fatalf("unexpected envelope %+v", evt)
	}

	var body map[string]any
	if err := json.Unmarshal(evt.Payload, &body); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if body["merged_at"] != "2026-03-01T08:30:00Z" {
		t.Fatalf("expected UTC timestamp, got %v", body["merged_at"])
	}
	if ids, ok := body["delete_ids"].([]any); !ok || len(ids) != 0 {
		t.Fatalf("delete_ids must be an empty list, got %v", body["delete_ids"])
	}
}

func TestMessageForCarriesTraceAndMeta(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	msg := messageFor(context.Background(), Record{
		ID:            1,
		EventID:       "0b6f5d3e-8c43-4a47-9f4e-3e2d7c1f0a11",
		AggregateType: "employee_availability",
		AggregateID:   "42",
		EventType:     "availability.days_off.merged.v1",
		Payload:       []byte(`{}`),
		Trace:         otelx.Carrier{Traceparent: traceparent},
	})
	if msg.Topic != "availability.days_off.merged.v1" || string(msg.Key) != "42" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if got := kafkax.HeaderValue(msg.Headers, "event_id"); got != "0b6f5d3e-8c43-4a47-9f4e-3e2d7c1f0a11" {
		t.Fatalf("unexpected event_id header %q", got)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != traceparent {
		t.Fatalf("expected trace header to be propagated, got %q", got)
	}
}
