package outbox

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// PublisherJob polls unprocessed outbox rows on a fixed interval and
// dispatches them to the in-process handlers registered for each event type.
// Two instances never process the same row twice: the store's row lock is the
// only mutual exclusion. A failing record is retried every tick until fixed
// and blocks only itself, never the batch.
type PublisherJob struct {
	Store     Store
	Registry  *Registry
	BatchSize int
	Logger    *slog.Logger

	running atomic.Bool
}

func (j *PublisherJob) RunOnce(ctx context.Context) error {
	// Non-overlap guard: a tick firing while the previous run is still
	// in flight is a no-op.
	if !j.running.CompareAndSwap(false, true) {
		return nil
	}
	defer j.running.Store(false)

	dispatcher := Dispatcher{Registry: j.Registry, Logger: j.Logger}
	attempted, err := j.Store.ProcessPendingOutbox(ctx, j.BatchSize, dispatcher.Dispatch)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("outbox publish cycle failed",
				"event", "outbox_publish_cycle_failed",
				"module", "internal/shared/outbox",
				"layer", "worker",
				"error", err.Error(),
			)
		}
		return err
	}

	if attempted > 0 && j.Logger != nil {
		j.Logger.Info("outbox publish cycle completed",
			"event", "outbox_publish_cycle_completed",
			"module", "internal/shared/outbox",
			"layer", "worker",
			"attempted_count", attempted,
		)
	}
	return nil
}
