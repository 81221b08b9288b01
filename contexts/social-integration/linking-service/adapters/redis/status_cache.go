package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"beacon/contexts/social-integration/linking-service/ports"
)

// StatusCache caches link statuses in redis, keyed per (workflow, user).
type StatusCache struct {
	client *redis.Client
}

func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client}
}

func statusKey(workflow string, userID string) string {
	return fmt.Sprintf("social:link_status:%s:%s", workflow, userID)
}

func (c *StatusCache) GetStatus(ctx context.Context, userID string, workflow string) (ports.LinkStatus, bool, error) {
	raw, err := c.client.Get(ctx, statusKey(workflow, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.LinkStatus{}, false, nil
		}
		return ports.LinkStatus{}, false, err
	}

	var status ports.LinkStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return ports.LinkStatus{}, false, err
	}
	return status, true, nil
}

func (c *StatusCache) SetStatus(ctx context.Context, status ports.LinkStatus, ttl time.Duration) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return c.client.Set(ctx, statusKey(status.Workflow, status.UserID), raw, ttl).Err()
}
