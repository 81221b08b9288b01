package outbox

import "time"

// Message is one persisted event record. Outbox and inbox rows share this
// shape: outbox rows are events raised locally and not yet dispatched, inbox
// rows are events received from the broker pending local dispatch.
// Rows are never deleted; processed rows are immutable.
type Message struct {
	ID             string
	EventType      string
	Content        []byte
	OccurredOnUTC  time.Time
	ProcessedOnUTC *time.Time
	Error          *string
}

// LedgerEntry records that one named handler fully executed for one message.
// Append-only; its existence is the sole duplicate-execution guard.
type LedgerEntry struct {
	MessageID   string
	HandlerName string
}
