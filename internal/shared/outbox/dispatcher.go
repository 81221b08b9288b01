package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	contractsv1 "beacon/contracts/gen/events/v1"
)

// Dispatcher resolves the handlers registered for a message's event type and
// invokes them sequentially. Every invocation is guarded by the consumer
// ledger: a handler that already ran for a message id is skipped, and the
// ledger row is written only after the handler succeeds. This turns
// at-least-once delivery into effectively-once execution per handler.
type Dispatcher struct {
	Registry *Registry
	Logger   *slog.Logger
}

// Dispatch handles one message. A handler failure aborts the remaining
// handlers for this message and surfaces the error so the record stays
// unprocessed; ledger rows written for handlers that already succeeded keep
// them from re-running on the retry.
func (d Dispatcher) Dispatch(ctx context.Context, scope Scope, msg Message) error {
	var envelope contractsv1.Envelope
	if err := json.Unmarshal(msg.Content, &envelope); err != nil {
		return fmt.Errorf("decode message %s: %w", msg.ID, err)
	}

	for _, handler := range d.Registry.HandlersFor(msg.EventType) {
		applied, err := scope.HandlerApplied(ctx, msg.ID, handler.Name())
		if err != nil {
			return err
		}
		if applied {
			if d.Logger != nil {
				d.Logger.Debug("duplicate delivery suppressed",
					"event", "message_dispatch_duplicate_suppressed",
					"module", "internal/shared/outbox",
					"layer", "worker",
					"message_id", msg.ID,
					"event_type", msg.EventType,
					"handler", handler.Name(),
				)
			}
			continue
		}

		if err := handler.Handle(ctx, envelope); err != nil {
			return fmt.Errorf("handler %s: %w", handler.Name(), err)
		}
		if err := scope.RecordHandlerApplied(ctx, msg.ID, handler.Name()); err != nil {
			return err
		}
	}
	return nil
}
