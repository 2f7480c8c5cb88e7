package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// RateLimitRedisRepository implements rate limiting counter storage with Redis.
type RateLimitRedisRepository struct {
	r     redis.Cmdable
	clock clockwork.Clock
}

func NewRateLimitRedisRepository(r redis.Cmdable, clock clockwork.Clock) *RateLimitRedisRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RateLimitRedisRepository{r: r, clock: clock}
}

// IncrementWindow increments a per-provider counter for a fixed window.
func (repo *RateLimitRedisRepository) IncrementWindow(ctx context.Context, providerID uuid.UUID, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	windowStart := repo.clock.Now().Truncate(window)
	key := windowKey(keyPrefix, providerID, windowStart)
	pipe := repo.r.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, windowStart, err
	}
	return int(incr.Val()), windowStart, nil
}

func windowKey(prefix string, providerID uuid.UUID, windowStart time.Time) string {
	return fmt.Sprintf("%s:%s:%d", prefix, providerID.String(), windowStart.Unix())
}
