package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var cacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shared_cache_lookups_total",
		Help: "Shared cache lookups by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(cacheLookups)
}

// RedisCache implements ports.Cache using a Redis client.
type RedisCache struct {
	r redis.Cmdable
	// optional key prefix to namespace entries
	prefix string
	logger *logrus.Logger
}

// NewRedisCache creates a new Redis-backed cache. Keys are stored as
// "<prefix>:<key>" when prefix is set.
func NewRedisCache(r redis.Cmdable, prefix string, logger *logrus.Logger) *RedisCache {
	return &RedisCache{r: r, prefix: prefix, logger: logger}
}

func (c *RedisCache) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get implements Cache.Get.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.r.Get(ctx, c.namespaced(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	case err != nil:
		cacheLookups.WithLabelValues("error").Inc()
		if c.logger != nil {
			c.logger.WithError(err).WithField("key", key).Warn("shared cache read failed")
		}
		return nil, false, err
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return val, true, nil
}

// Set implements Cache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.r.Set(ctx, c.namespaced(key), value, ttl).Err()
}

// Delete implements Cache.Delete.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.r.Del(ctx, c.namespaced(key)).Err()
}
