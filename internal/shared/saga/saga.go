package saga

import (
	"time"

	contractsv1 "beacon/contracts/gen/events/v1"
)

// State names one node of a saga state machine.
type State string

// Instance is the persisted record of one workflow execution, keyed by
// (saga name, correlation id). One live instance exists per key; a finalized
// instance reacts to no event except a starting event, which resets it for a
// new attempt.
type Instance struct {
	SagaName        string
	CorrelationID   string
	CurrentState    State
	StartedAtUTC    time.Time
	CompletionFlags uint32
	TimeoutTokenID  string

	// Attempt counts executions for this key, starting at 1. A start event
	// arriving after finalization increments it. Outcome event ids must
	// incorporate the attempt so each execution emits its own outcomes.
	Attempt uint32
}

// Effect is one side effect a transition requests. The orchestrator shell
// executes effects after the pure transition returns; the transition function
// itself performs no I/O.
type Effect interface{ isEffect() }

// PublishEffect appends an envelope to the outbox.
type PublishEffect struct {
	Envelope contractsv1.Envelope
}

// ScheduleTimeoutEffect durably schedules a timeout token for the instance.
// The token carries the correlation id so a fired timeout can locate the
// instance even after a process restart.
type ScheduleTimeoutEffect struct {
	Delay  time.Duration
	Reason string
}

// CancelTimeoutEffect unschedules the instance's pending timeout token.
// Cancelling an already-fired or already-cancelled token is a no-op.
type CancelTimeoutEffect struct{}

// SetCompletionFlagEffect marks one parallel branch of a composite step as
// finished.
type SetCompletionFlagEffect struct {
	Flag uint32
}

func (PublishEffect) isEffect()           {}
func (ScheduleTimeoutEffect) isEffect()   {}
func (CancelTimeoutEffect) isEffect()     {}
func (SetCompletionFlagEffect) isEffect() {}

// Transition is the outcome of applying one event to an instance.
type Transition struct {
	Next    State
	Effects []Effect
}

// TransitionFunc is the pure decision core of a saga: given the current
// instance and a correlated event it returns the transition to apply, or
// false when the event is not applicable in the current state (the event is
// then ignored, never an error).
type TransitionFunc func(instance Instance, event contractsv1.Envelope) (Transition, bool)

// Definition describes one saga state machine.
type Definition struct {
	Name string

	// InitialState is the state new instances are created in before the
	// starting event's transition applies.
	InitialState State

	// StartEventTypes are the event types allowed to create an instance.
	// Any other event arriving with no live instance is ignored.
	StartEventTypes map[string]bool

	// EventTypes lists every correlating integration event type, used to
	// register the saga's handler at bootstrap.
	EventTypes []string

	// TimeoutEventType is the synthetic event type delivered when a
	// scheduled timeout token fires.
	TimeoutEventType string

	// TerminalStates mark finalized instances.
	TerminalStates map[State]bool

	Transition TransitionFunc
}

// Terminal reports whether the given state finalizes an instance.
func (d Definition) Terminal(state State) bool {
	return d.TerminalStates[state]
}
