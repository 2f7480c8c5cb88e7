package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/services-marketplace/go/internal/application/services"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	tmocks "github.com/avatarctic/services-marketplace/go/test/mocks"
)

type counterRepo struct {
	counts map[uuid.UUID]int
	err    error
	start  time.Time
}

func (r *counterRepo) IncrementWindow(ctx context.Context, providerID uuid.UUID, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if r.err != nil {
		return 0, r.start, r.err
	}
	if r.counts == nil {
		r.counts = map[uuid.UUID]int{}
	}
	r.counts[providerID]++
	return r.counts[providerID], r.start, nil
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	start := time.Unix(1700000000, 0)
	repo := &counterRepo{start: start}
	svc := impl.NewRateLimiterService(repo, nil, &impl.RateLimiterConfig{DefaultRequestsPerMinute: 2, Window: time.Minute}, nil)
	provider := uuid.New()

	ok, remaining, limit, reset, err := svc.Allow(context.Background(), provider)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, 2, limit)
	assert.Equal(t, start.Add(time.Minute), reset)

	ok, _, _, _, _ = svc.Allow(context.Background(), provider)
	assert.True(t, ok)
	ok, remaining, _, _, _ = svc.Allow(context.Background(), provider)
	assert.False(t, ok)
	assert.Zero(t, remaining)

	ok, _, _, _, _ = svc.Allow(context.Background(), uuid.New())
	assert.True(t, ok, "counters are per provider")
}

func TestRateLimiter_ProGetsLargerBudget(t *testing.T) {
	billingRepo := &tmocks.BillingRepositoryMock{
		GetProviderPlanTypeFn: func(ctx context.Context, id uuid.UUID) (billing.PlanType, error) {
			return billing.PlanPro, nil
		},
	}
	svc := impl.NewRateLimiterService(&counterRepo{}, billingRepo, &impl.RateLimiterConfig{DefaultRequestsPerMinute: 10, ProMultiplier: 3}, nil)
	_, _, limit, _, err := svc.Allow(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 30, limit)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	svc := impl.NewRateLimiterService(&counterRepo{err: errors.New("redis down")}, nil, nil, nil)
	ok, _, limit, _, err := svc.Allow(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.True(t, ok)
	assert.Equal(t, 120, limit)
}
