package calls

import (
	"context"
	"time"

	"dialer-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Limiter caps concurrent in-flight calls per campaign. Acquire returns
// false when the cap is reached; the dispatch is then skipped and the
// contact retried on a later pass.
type Limiter interface {
	Acquire(ctx context.Context, campaignID string) (bool, error)
	Release(ctx context.Context, campaignID string) error
}

// RedisLimiter backs the cap with a shared Redis counter so every dialer
// process pointed at the same Redis respects one limit. The TTL covers
// slots leaked by a crashed process.
type RedisLimiter struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, ttl time.Duration) *RedisLimiter {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func (l *RedisLimiter) Acquire(ctx context.Context, campaignID string) (bool, error) {
	return utils.AcquireCallSlot(ctx, l.rdb, slotKey(campaignID), l.limit, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context, campaignID string) error {
	return utils.ReleaseCallSlot(ctx, l.rdb, slotKey(campaignID))
}

func slotKey(campaignID string) string {
	return "dialer:active_calls:" + campaignID
}
