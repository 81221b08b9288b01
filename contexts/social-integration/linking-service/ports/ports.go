package ports

import (
	"context"
	"time"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// LinkStatus is the read-side view of a workflow instance.
type LinkStatus struct {
	UserID    string
	Workflow  string
	State     string
	StartedAt time.Time
	Finalized bool
}

// StatusCache caches link statuses for the dashboard read path. Misses and
// stale entries are harmless: the instance store is authoritative.
type StatusCache interface {
	GetStatus(ctx context.Context, userID string, workflow string) (LinkStatus, bool, error)
	SetStatus(ctx context.Context, status LinkStatus, ttl time.Duration) error
}
