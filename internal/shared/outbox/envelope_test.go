package outbox

import (
	"testing"
	"time"

	"beacon/internal/shared/events"
)

type stubEvent struct {
	events.Base
	Detail string `json:"detail"`
}

func (stubEvent) EventType() string { return "stub.raised" }

type stubAggregate struct {
	events.AggregateBase
}

func TestEnvelopeFromEventCarriesCorrelation(t *testing.T) {
	occurred := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := stubEvent{
		Base:   events.Base{ID: "evt-1", Occurred: occurred, Subject: "user-9"},
		Detail: "hello",
	}

	envelope, err := EnvelopeFromEvent("test-service", event)
	if err != nil {
		t.Fatalf("envelope build failed: %v", err)
	}

	if envelope.EventID != "evt-1" || envelope.EventType != "stub.raised" {
		t.Fatalf("unexpected identity %s/%s", envelope.EventID, envelope.EventType)
	}
	if envelope.CorrelationID != "user-9" || envelope.PartitionKey != "user-9" {
		t.Fatalf("expected correlation carried into envelope, got %s/%s", envelope.CorrelationID, envelope.PartitionKey)
	}
	if !envelope.OccurredAt.Equal(occurred) {
		t.Fatalf("expected occurred_at %v, got %v", occurred, envelope.OccurredAt)
	}
	if envelope.SchemaVersion != 1 || envelope.SourceService != "test-service" {
		t.Fatalf("unexpected envelope metadata %+v", envelope)
	}
}

func TestEnvelopesFromDrainsPendingEvents(t *testing.T) {
	aggregate := &stubAggregate{}
	aggregate.Raise(stubEvent{Base: events.Base{ID: "evt-1", Occurred: time.Now(), Subject: "s"}})
	aggregate.Raise(stubEvent{Base: events.Base{ID: "evt-2", Occurred: time.Now(), Subject: "s"}})

	envelopes, err := EnvelopesFrom("test-service", aggregate)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(envelopes) != 2 {
		t.Fatalf("expected two envelopes, got %d", len(envelopes))
	}
	if len(aggregate.PendingEvents()) != 0 {
		t.Fatalf("expected pending events cleared after drain")
	}
}
