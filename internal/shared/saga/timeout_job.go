package saga

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	contractsv1 "beacon/contracts/gen/events/v1"
	"beacon/internal/shared/outbox"
)

const timeoutSourceService = "saga-timeout-scheduler"

// TimeoutPayload is the data carried by a synthetic timeout event.
type TimeoutPayload struct {
	Reason string `json:"reason"`
}

// InboxAppender is the narrow port the timeout job uses to hand fired tokens
// to the reliable dispatch path.
type InboxAppender interface {
	AppendInbox(ctx context.Context, envelopes ...contractsv1.Envelope) error
}

// TimeoutJob claims due timeout tokens and delivers each as a synthetic
// timeout event through the inbox, so the orchestrator receives it with the
// same ledger and retry guarantees as any broker message. The token id is the
// event id, which makes redelivery an append no-op.
type TimeoutJob struct {
	Scheduler   Scheduler
	Inbox       InboxAppender
	Definitions []Definition
	BatchSize   int
	Clock       Clock
	Logger      *slog.Logger

	running atomic.Bool
}

func (j *TimeoutJob) RunOnce(ctx context.Context) error {
	if !j.running.CompareAndSwap(false, true) {
		return nil
	}
	defer j.running.Store(false)

	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}

	tokens, err := j.Scheduler.ClaimDue(ctx, now, j.BatchSize)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("timeout claim failed",
				"event", "saga_timeout_claim_failed",
				"module", "internal/shared/saga",
				"layer", "worker",
				"error", err.Error(),
			)
		}
		return err
	}

	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			return err
		}

		definition, ok := j.definitionFor(token.SagaName)
		if !ok || definition.TimeoutEventType == "" {
			if j.Logger != nil {
				j.Logger.Warn("timeout token for unknown saga dropped",
					"event", "saga_timeout_unknown_saga",
					"module", "internal/shared/saga",
					"layer", "worker",
					"saga", token.SagaName,
					"token_id", token.TokenID,
				)
			}
			continue
		}

		payload, err := json.Marshal(TimeoutPayload{Reason: token.Reason})
		if err != nil {
			return err
		}
		envelope := contractsv1.Envelope{
			EventID:       token.TokenID,
			EventType:     definition.TimeoutEventType,
			OccurredAt:    now,
			SourceService: timeoutSourceService,
			TraceID:       token.TokenID,
			SchemaVersion: 1,
			CorrelationID: token.CorrelationID,
			PartitionKey:  token.CorrelationID,
			Data:          payload,
		}
		if err := j.Inbox.AppendInbox(ctx, envelope); err != nil {
			return err
		}

		if j.Logger != nil {
			j.Logger.Info("timeout token fired",
				"event", "saga_timeout_fired",
				"module", "internal/shared/saga",
				"layer", "worker",
				"saga", token.SagaName,
				"correlation_id", token.CorrelationID,
				"token_id", token.TokenID,
			)
		}
	}
	return nil
}

func (j *TimeoutJob) definitionFor(sagaName string) (Definition, bool) {
	for _, definition := range j.Definitions {
		if definition.Name == sagaName {
			return definition, true
		}
	}
	return Definition{}, false
}

// RegisterHandlers registers the orchestrator for every correlating event
// type, including its synthetic timeout event.
func RegisterHandlers(registry *outbox.Registry, orchestrator *Orchestrator) {
	handler := EventHandler{Orchestrator: orchestrator}
	for _, eventType := range orchestrator.Definition.EventTypes {
		registry.Register(eventType, handler)
	}
	if timeoutType := orchestrator.Definition.TimeoutEventType; timeoutType != "" {
		registry.Register(timeoutType, handler)
	}
}
