package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"beacon/contexts/social-integration/linking-service/ports"
)

// SystemClock is the default runtime clock implementation.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator creates identifiers for trigger events.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

type cacheKey struct {
	workflow string
	userID   string
}

// StatusCache is the in-memory StatusCache used by tests. TTLs are ignored.
type StatusCache struct {
	mu       sync.RWMutex
	statuses map[cacheKey]ports.LinkStatus
}

func NewStatusCache() *StatusCache {
	return &StatusCache{statuses: make(map[cacheKey]ports.LinkStatus)}
}

func (c *StatusCache) GetStatus(_ context.Context, userID string, workflow string) (ports.LinkStatus, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status, found := c.statuses[cacheKey{workflow: workflow, userID: userID}]
	return status, found, nil
}

func (c *StatusCache) SetStatus(_ context.Context, status ports.LinkStatus, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statuses[cacheKey{workflow: status.Workflow, userID: status.UserID}] = status
	return nil
}
