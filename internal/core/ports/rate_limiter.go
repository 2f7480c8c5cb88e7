package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RateLimitRepository provides atomic fixed-window counters.
// Implementations must be safe for concurrent use.
type RateLimitRepository interface {
	// IncrementWindow bumps the provider's counter for the current window and
	// keeps the key alive for ttl. Returns the new count and window start.
	IncrementWindow(ctx context.Context, providerID uuid.UUID, window time.Duration, keyPrefix string, ttl time.Duration) (count int, windowStart time.Time, err error)
}

// RateLimiterService is a provider-scoped request limiter.
type RateLimiterService interface {
	// Allow consumes one request unit for the provider.
	// remaining counts the requests still allowed in the current window,
	// reset is when the window rolls over.
	Allow(ctx context.Context, providerID uuid.UUID) (allowed bool, remaining int, limit int, reset time.Time, err error)
}
