package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	contractsv1 "beacon/contracts/gen/events/v1"
	"beacon/internal/shared/events"
)

// EnvelopeFromEvent serializes a domain event into the canonical envelope
// with the event type as discriminator.
func EnvelopeFromEvent(sourceService string, event events.Event) (contractsv1.Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return contractsv1.Envelope{}, fmt.Errorf("serialize %s: %w", event.EventType(), err)
	}
	occurred := event.OccurredAt().UTC()
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return contractsv1.Envelope{
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		OccurredAt:    occurred,
		SourceService: sourceService,
		TraceID:       event.EventID(),
		SchemaVersion: 1,
		CorrelationID: event.CorrelationID(),
		PartitionKey:  event.CorrelationID(),
		Data:          payload,
	}, nil
}

// EnvelopesFrom drains every pending event from the given aggregates.
// Safe to call with aggregates carrying no events.
func EnvelopesFrom(sourceService string, aggregates ...events.Raiser) ([]contractsv1.Envelope, error) {
	var envelopes []contractsv1.Envelope
	for _, aggregate := range aggregates {
		for _, event := range aggregate.PendingEvents() {
			envelope, err := EnvelopeFromEvent(sourceService, event)
			if err != nil {
				return nil, err
			}
			envelopes = append(envelopes, envelope)
		}
		aggregate.ClearPendingEvents()
	}
	return envelopes, nil
}
