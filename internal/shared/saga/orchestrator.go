package saga

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	contractsv1 "beacon/contracts/gen/events/v1"
	"beacon/internal/shared/outbox"
)

// Clock abstracts wall-clock time so tests can drive timeouts.
type Clock interface {
	Now() time.Time
}

// Orchestrator is the impure shell around a saga definition: it loads and
// persists instances, runs the pure transition, and executes the requested
// effects. Published envelopes go through the outbox so they travel the same
// reliable path as every other event.
type Orchestrator struct {
	Definition Definition
	Instances  InstanceStore
	Scheduler  Scheduler
	Outbox     outbox.Appender
	Clock      Clock
	Logger     *slog.Logger
}

// HandleEvent applies one correlated event. The whole read-transition-save
// runs under the instance store's exclusive claim for the correlation, so
// concurrent deliveries for one subject serialize instead of losing updates.
// Events with no valid transition are no-ops, which keeps the saga correct
// under broker reordering; a start event arriving after finalization begins a
// fresh attempt for the same subject.
func (o *Orchestrator) HandleEvent(ctx context.Context, event contractsv1.Envelope) error {
	correlationID := event.CorrelationID
	if correlationID == "" {
		correlationID = event.PartitionKey
	}
	if correlationID == "" {
		o.log(slog.LevelWarn, "saga event missing correlation id", event, "")
		return nil
	}

	var applied *Transition
	var attempt uint32
	err := o.Instances.UpdateInstance(ctx, o.Definition.Name, correlationID, func(instance Instance, found bool) (Instance, bool, error) {
		isStart := o.Definition.StartEventTypes[event.EventType]
		switch {
		case !found:
			if !isStart {
				o.log(slog.LevelDebug, "saga event ignored, no live instance", event, correlationID)
				return instance, false, nil
			}
			instance = o.freshInstance(correlationID, 1)
		case o.Definition.Terminal(instance.CurrentState):
			if !isStart {
				o.log(slog.LevelDebug, "saga event ignored, instance finalized", event, correlationID)
				return instance, false, nil
			}
			instance = o.freshInstance(correlationID, instance.Attempt+1)
		}

		// A fired token from an earlier attempt, or one whose cancellation
		// raced its firing, must not fail the current execution.
		if event.EventType == o.Definition.TimeoutEventType && event.EventID != instance.TimeoutTokenID {
			o.log(slog.LevelDebug, "saga event ignored, stale timeout token", event, correlationID)
			return instance, false, nil
		}

		transition, ok := o.Definition.Transition(instance, event)
		if !ok {
			o.log(slog.LevelDebug, "saga event not applicable in current state", event, correlationID)
			return instance, false, nil
		}

		instance.CurrentState = transition.Next
		if err := o.applyEffects(ctx, &instance, transition.Effects); err != nil {
			return instance, false, err
		}
		applied = &transition
		attempt = instance.Attempt
		return instance, true, nil
	})
	if err != nil {
		return err
	}

	if applied != nil && o.Logger != nil {
		o.Logger.Info("saga transitioned",
			"event", "saga_transitioned",
			"module", "internal/shared/saga",
			"layer", "worker",
			"saga", o.Definition.Name,
			"correlation_id", correlationID,
			"event_type", event.EventType,
			"next_state", string(applied.Next),
			"attempt", attempt,
			"finalized", o.Definition.Terminal(applied.Next),
		)
	}
	return nil
}

func (o *Orchestrator) freshInstance(correlationID string, attempt uint32) Instance {
	return Instance{
		SagaName:      o.Definition.Name,
		CorrelationID: correlationID,
		CurrentState:  o.Definition.InitialState,
		StartedAtUTC:  o.now(),
		Attempt:       attempt,
	}
}

func (o *Orchestrator) applyEffects(ctx context.Context, instance *Instance, effects []Effect) error {
	for _, effect := range effects {
		switch e := effect.(type) {
		case PublishEffect:
			if err := o.Outbox.AppendOutbox(ctx, e.Envelope); err != nil {
				return fmt.Errorf("saga %s publish effect: %w", o.Definition.Name, err)
			}
		case ScheduleTimeoutEffect:
			token := Token{
				TokenID:       uuid.NewString(),
				SagaName:      o.Definition.Name,
				CorrelationID: instance.CorrelationID,
				DueAtUTC:      o.now().Add(e.Delay),
				Reason:        e.Reason,
			}
			if err := o.Scheduler.Schedule(ctx, token); err != nil {
				return fmt.Errorf("saga %s schedule effect: %w", o.Definition.Name, err)
			}
			instance.TimeoutTokenID = token.TokenID
		case CancelTimeoutEffect:
			if instance.TimeoutTokenID == "" {
				continue
			}
			if err := o.Scheduler.Unschedule(ctx, instance.TimeoutTokenID); err != nil {
				return fmt.Errorf("saga %s cancel effect: %w", o.Definition.Name, err)
			}
			instance.TimeoutTokenID = ""
		case SetCompletionFlagEffect:
			instance.CompletionFlags |= e.Flag
		}
	}
	return nil
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) log(level slog.Level, msg string, event contractsv1.Envelope, correlationID string) {
	if o.Logger == nil {
		return
	}
	o.Logger.Log(context.Background(), level, msg,
		"event", "saga_event_skipped",
		"module", "internal/shared/saga",
		"layer", "worker",
		"saga", o.Definition.Name,
		"correlation_id", correlationID,
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
}

// EventHandler adapts an orchestrator to the handler registry contract so
// saga-relevant integration events reach it through the inbox dispatch path.
type EventHandler struct {
	Orchestrator *Orchestrator
}

func (h EventHandler) Name() string {
	return "saga." + h.Orchestrator.Definition.Name
}

func (h EventHandler) Handle(ctx context.Context, event contractsv1.Envelope) error {
	return h.Orchestrator.HandleEvent(ctx, event)
}
