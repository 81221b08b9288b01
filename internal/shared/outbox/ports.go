package outbox

import (
	"context"

	contractsv1 "beacon/contracts/gen/events/v1"
)

// Scope exposes the consumer ledger bound to the batch transaction that is
// currently processing a message. Ledger reads and writes issued through a
// Scope commit (or roll back) together with the record's status update.
type Scope interface {
	HandlerApplied(ctx context.Context, messageID string, handlerName string) (bool, error)
	RecordHandlerApplied(ctx context.Context, messageID string, handlerName string) error
}

// ProcessFunc handles one locked message inside a batch. Returning an error
// records it on the row and leaves the row unprocessed for the next tick;
// other rows in the batch are still attempted.
type ProcessFunc func(ctx context.Context, scope Scope, msg Message) error

// Store is the event record store. Both process methods open one store
// transaction, lock up to limit unprocessed rows in occurrence order, invoke
// process per row, persist per-row outcomes, then commit. The row lock is the
// only mutual exclusion between concurrent job instances.
type Store interface {
	AppendOutbox(ctx context.Context, envelopes ...contractsv1.Envelope) error
	AppendInbox(ctx context.Context, envelopes ...contractsv1.Envelope) error

	ProcessPendingOutbox(ctx context.Context, limit int, process ProcessFunc) (int, error)
	ProcessPendingInbox(ctx context.Context, limit int, process ProcessFunc) (int, error)

	ListErroredOutbox(ctx context.Context, limit int) ([]Message, error)
	ListErroredInbox(ctx context.Context, limit int) ([]Message, error)
}

// Appender is the narrow write-side port business modules and the saga shell
// use to hand envelopes to the outbox.
type Appender interface {
	AppendOutbox(ctx context.Context, envelopes ...contractsv1.Envelope) error
}

// Handler reacts to one event type. Implementations must be idempotent or
// rely on the ledger guard wrapping every dispatch.
type Handler interface {
	Name() string
	Handle(ctx context.Context, event contractsv1.Envelope) error
}
