package workflow

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	contractsv1 "beacon/contracts/gen/events/v1"
	"beacon/internal/shared/saga"
)

const sourceService = "social-integration/linking-service"

// Both workflows share one state vocabulary.
const (
	StateInitial   saga.State = "initial"
	StateStarted   saga.State = "workflow_started"
	StateFetched   saga.State = "data_fetched"
	StateCompleted saga.State = "completed"
	StateFailed    saga.State = "failed"
)

// Parallel-branch completion flags. The composite completion fires only once
// both branches finished.
const (
	FlagDataFetched uint32 = 1 << 0
	FlagMediaSynced uint32 = 1 << 1

	flagsAll = FlagDataFetched | FlagMediaSynced
)

// vocabulary binds the shared state machine to one event vocabulary.
type vocabulary struct {
	start       string
	dataFetched string
	branchDone  string
	failed      string
	timeout     string

	started     string
	completed   string
	compensated string
	timedOut    string
}

func buildDefinition(name string, v vocabulary, window time.Duration) saga.Definition {
	return saga.Definition{
		Name:         name,
		InitialState: StateInitial,
		StartEventTypes: map[string]bool{
			v.start: true,
		},
		EventTypes: []string{
			v.start, v.dataFetched, v.branchDone, v.failed,
		},
		TimeoutEventType: v.timeout,
		TerminalStates: map[saga.State]bool{
			StateCompleted: true,
			StateFailed:    true,
		},
		Transition: transition(name, v, window),
	}
}

// transition is the pure decision core: no I/O, no clock, no randomness.
// Outcome event ids are derived from (saga, correlation id, attempt, event
// type) so a retried transition appends the same outbox row and each attempt
// emits its outcomes exactly once.
func transition(name string, v vocabulary, window time.Duration) saga.TransitionFunc {
	return func(instance saga.Instance, event contractsv1.Envelope) (saga.Transition, bool) {
		state := instance.CurrentState

		switch event.EventType {
		case v.start:
			if state != StateInitial {
				// A live instance already exists for this subject; the
				// in-flight workflow is reused as is.
				return saga.Transition{}, false
			}
			return saga.Transition{
				Next: StateStarted,
				Effects: []saga.Effect{
					saga.ScheduleTimeoutEffect{Delay: window, Reason: "no completing event within window"},
					saga.PublishEffect{Envelope: outcomeEnvelope(name, v.started, instance, "", event.OccurredAt)},
				},
			}, true

		case v.dataFetched:
			if state != StateStarted {
				return saga.Transition{}, false
			}
			if instance.CompletionFlags|FlagDataFetched == flagsAll {
				return completedTransition(name, v, instance, FlagDataFetched, event.OccurredAt), true
			}
			return saga.Transition{
				Next: StateFetched,
				Effects: []saga.Effect{
					saga.CancelTimeoutEffect{},
					saga.SetCompletionFlagEffect{Flag: FlagDataFetched},
				},
			}, true

		case v.branchDone:
			if state != StateStarted && state != StateFetched {
				return saga.Transition{}, false
			}
			if state == StateFetched && instance.CompletionFlags|FlagMediaSynced == flagsAll {
				return completedTransition(name, v, instance, FlagMediaSynced, event.OccurredAt), true
			}
			return saga.Transition{
				Next: state,
				Effects: []saga.Effect{
					saga.SetCompletionFlagEffect{Flag: FlagMediaSynced},
				},
			}, true

		case v.failed:
			return saga.Transition{
				Next: StateFailed,
				Effects: []saga.Effect{
					saga.CancelTimeoutEffect{},
					saga.PublishEffect{Envelope: outcomeEnvelope(name, v.compensated, instance, "workflow failed, compensated", event.OccurredAt)},
				},
			}, true

		case v.timeout:
			return saga.Transition{
				Next: StateFailed,
				Effects: []saga.Effect{
					saga.PublishEffect{Envelope: outcomeEnvelope(name, v.timedOut, instance, "timed out, user may retry", event.OccurredAt)},
				},
			}, true
		}

		return saga.Transition{}, false
	}
}

func completedTransition(name string, v vocabulary, instance saga.Instance, flag uint32, at time.Time) saga.Transition {
	return saga.Transition{
		Next: StateCompleted,
		Effects: []saga.Effect{
			saga.SetCompletionFlagEffect{Flag: flag},
			saga.CancelTimeoutEffect{},
			saga.PublishEffect{Envelope: outcomeEnvelope(name, v.completed, instance, "", at)},
		},
	}
}

func outcomeEnvelope(sagaName string, eventType string, instance saga.Instance, reason string, at time.Time) contractsv1.Envelope {
	correlationID := instance.CorrelationID
	payload, _ := json.Marshal(OutcomePayload{UserID: correlationID, Reason: reason})
	attempt := strconv.FormatUint(uint64(instance.Attempt), 10)
	eventID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(sagaName+"|"+correlationID+"|"+attempt+"|"+eventType)).String()
	return contractsv1.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    at.UTC(),
		SourceService: sourceService,
		TraceID:       eventID,
		SchemaVersion: 1,
		CorrelationID: correlationID,
		PartitionKey:  correlationID,
		Data:          payload,
	}
}
