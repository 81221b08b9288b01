package saga

import (
	"context"
	"time"
)

// Token is a durably scheduled delayed message. It survives process restarts
// and carries enough to locate its saga instance when it fires.
type Token struct {
	TokenID       string
	SagaName      string
	CorrelationID string
	DueAtUTC      time.Time
	Reason        string
}

// Scheduler persists pending timeout tokens. Unschedule is idempotent:
// unknown, already-cancelled, and already-fired token ids are no-ops.
// ClaimDue atomically marks due tokens fired and returns them, so two
// dispatcher instances never deliver the same token twice.
type Scheduler interface {
	Schedule(ctx context.Context, token Token) error
	Unschedule(ctx context.Context, tokenID string) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]Token, error)
}
