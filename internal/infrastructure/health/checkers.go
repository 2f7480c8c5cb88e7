package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
	infraDB "github.com/avatarctic/services-marketplace/go/internal/infrastructure/db"
)

// probe adapts a ping function to ports.HealthChecker.
type probe struct {
	name string
	ping func(ctx context.Context) error
}

func (p probe) Name() string                    { return p.name }
func (p probe) Check(ctx context.Context) error { return p.ping(ctx) }

// NewDBHealthChecker probes the billing store.
func NewDBHealthChecker(database *infraDB.Database) ports.HealthChecker {
	return probe{name: "database", ping: database.Ping}
}

// NewRedisHealthChecker probes the shared cache and rate-limit counters.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return probe{name: "redis", ping: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}
