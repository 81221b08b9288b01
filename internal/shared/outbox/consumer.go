package outbox

import (
	"context"
	"log/slog"
	"sync/atomic"

	contractsv1 "beacon/contracts/gen/events/v1"
)

// ConsumerJob polls unprocessed inbox rows and dispatches them to the
// integration-event handlers registered for each event type, each invocation
// guarded by the inbox consumer ledger.
type ConsumerJob struct {
	Store     Store
	Registry  *Registry
	BatchSize int
	Logger    *slog.Logger

	running atomic.Bool
}

func (j *ConsumerJob) RunOnce(ctx context.Context) error {
	if !j.running.CompareAndSwap(false, true) {
		return nil
	}
	defer j.running.Store(false)

	dispatcher := Dispatcher{Registry: j.Registry, Logger: j.Logger}
	attempted, err := j.Store.ProcessPendingInbox(ctx, j.BatchSize, dispatcher.Dispatch)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("inbox consume cycle failed",
				"event", "inbox_consume_cycle_failed",
				"module", "internal/shared/outbox",
				"layer", "worker",
				"error", err.Error(),
			)
		}
		return err
	}

	if attempted > 0 && j.Logger != nil {
		j.Logger.Info("inbox consume cycle completed",
			"event", "inbox_consume_cycle_completed",
			"module", "internal/shared/outbox",
			"layer", "worker",
			"attempted_count", attempted,
		)
	}
	return nil
}

// Ingest is the broker-subscription side of the inbox: it records a received
// integration event as an inbox row and nothing else. Redelivered event ids
// are append no-ops, so broker redelivery is safe here; the ledger guards the
// dispatch side.
type Ingest struct {
	Store  Store
	Logger *slog.Logger
}

func (i Ingest) Receive(ctx context.Context, envelope contractsv1.Envelope) error {
	if err := i.Store.AppendInbox(ctx, envelope); err != nil {
		if i.Logger != nil {
			i.Logger.Error("inbox ingest failed",
				"event", "inbox_ingest_failed",
				"module", "internal/shared/outbox",
				"layer", "worker",
				"event_id", envelope.EventID,
				"event_type", envelope.EventType,
				"error", err.Error(),
			)
		}
		return err
	}
	return nil
}
