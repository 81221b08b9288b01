package events

import (
	"time"
)

// Event is the contract every domain event carries. Concrete events add
// type-specific fields and are serialized into the canonical envelope with
// their event type as discriminator.
type Event interface {
	EventID() string
	EventType() string
	OccurredAt() time.Time
	CorrelationID() string
}

// Raiser is the aggregate-side contract the outbox writer consumes.
// Aggregates expose their pending events and allow them to be cleared once
// harvested into the outbox.
type Raiser interface {
	PendingEvents() []Event
	ClearPendingEvents()
}

// AggregateBase carries the pending-event list for an aggregate. Embed it by
// value and call Raise from state-changing methods.
type AggregateBase struct {
	pending []Event
}

func (a *AggregateBase) Raise(event Event) {
	a.pending = append(a.pending, event)
}

func (a *AggregateBase) PendingEvents() []Event {
	return a.pending
}

func (a *AggregateBase) ClearPendingEvents() {
	a.pending = nil
}

// Base holds the fields shared by all concrete domain events.
type Base struct {
	ID       string    `json:"event_id"`
	Occurred time.Time `json:"occurred_at"`
	Subject  string    `json:"subject_id"`
}

func (b Base) EventID() string       { return b.ID }
func (b Base) OccurredAt() time.Time { return b.Occurred }
func (b Base) CorrelationID() string { return b.Subject }
