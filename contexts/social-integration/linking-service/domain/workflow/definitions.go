package workflow

import (
	"time"

	"beacon/internal/shared/saga"
)

// DefaultTimeoutWindow bounds how long a workflow waits for its completing
// events before compensating.
const DefaultTimeoutWindow = 2 * time.Minute

const (
	LinkingSagaName = "instagram-linking"
	RenewalSagaName = "instagram-access-renewal"
)

// NewLinkingDefinition builds the Instagram account-linking state machine.
func NewLinkingDefinition(window time.Duration) saga.Definition {
	if window <= 0 {
		window = DefaultTimeoutWindow
	}
	return buildDefinition(LinkingSagaName, vocabulary{
		start:       EventTypeAccountLinked,
		dataFetched: EventTypeAccountDataFetched,
		branchDone:  EventTypeMediaSynced,
		failed:      EventTypeLinkingFailed,
		timeout:     EventTypeLinkingTimeout,
		started:     EventTypeLinkingStarted,
		completed:   EventTypeLinkingCompleted,
		compensated: EventTypeLinkingCompensated,
		timedOut:    EventTypeLinkingTimedOut,
	}, window)
}

// NewRenewalDefinition builds the access-renewal state machine, structurally
// identical to linking with its own event vocabulary.
func NewRenewalDefinition(window time.Duration) saga.Definition {
	if window <= 0 {
		window = DefaultTimeoutWindow
	}
	return buildDefinition(RenewalSagaName, vocabulary{
		start:       EventTypeRenewalRequested,
		dataFetched: EventTypeTokenRefreshed,
		branchDone:  EventTypeProfileResynced,
		failed:      EventTypeRenewalFailed,
		timeout:     EventTypeRenewalTimeout,
		started:     EventTypeRenewalStarted,
		completed:   EventTypeRenewalCompleted,
		compensated: EventTypeRenewalCompensated,
		timedOut:    EventTypeRenewalTimedOut,
	}, window)
}
