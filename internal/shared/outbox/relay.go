package outbox

import (
	"context"

	contractsv1 "beacon/contracts/gen/events/v1"
)

// BrokerPublisher is the broker write port the relay handler needs.
type BrokerPublisher interface {
	Publish(ctx context.Context, topic string, event contractsv1.Envelope) error
}

// BrokerRelay is the outbox handler that republishes a locally raised event
// as a cross-service integration event. Registering it for an event type is
// what makes that type leave the process; the topic is the event type itself.
type BrokerRelay struct {
	Publisher BrokerPublisher
}

func (BrokerRelay) Name() string { return "outbox.broker_relay" }

func (r BrokerRelay) Handle(ctx context.Context, event contractsv1.Envelope) error {
	return r.Publisher.Publish(ctx, event.EventType, event)
}
