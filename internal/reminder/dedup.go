// internal/reminder/dedup.go
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupStore guards the "never twice for the same (unit, day)" invariant
// across re-runs and restarts of the daily tick.
type DedupStore interface {
	// Acquire returns true exactly once per key; later calls see false until
	// the key expires.
	Acquire(ctx context.Context, key string) (bool, error)
	// Release frees a slot taken by Acquire, so a send that failed after
	// acquisition can be retried by a later run of the same day.
	Release(ctx context.Context, key string) error
}

// RedisDedup implements DedupStore with SET NX and a TTL comfortably longer
// than one day, so yesterday's keys age out on their own.
type RedisDedup struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDedup(client *redis.Client) *RedisDedup {
	return &RedisDedup{client: client, ttl: 48 * time.Hour}
}

func (d *RedisDedup) Acquire(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, key, 1, d.ttl).Result()
}

func (d *RedisDedup) Release(ctx context.Context, key string) error {
	return d.client.Del(ctx, key).Err()
}

// dedupKey identifies one (unit, day, template) send slot.
func dedupKey(unitID string, day time.Time, template string) string {
	return fmt.Sprintf("reminder:%s:%s:%s", unitID, day.Format("2006-01-02"), template)
}
