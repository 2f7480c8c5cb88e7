package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/directory"
	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
)

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// loadWithSingleflight coalesces concurrent misses on key into one loader
// call and caches its result.
func loadWithSingleflight[T any](cache ports.Cache, ctx context.Context, key string, ttl time.Duration, loader func() (T, error)) (T, error) {
	if v, ok := cacheGet[T](cache, ctx, key); ok {
		return *v, nil
	}
	res, err, _ := sf.Do(key, func() (any, error) {
		if v, ok := cacheGet[T](cache, ctx, key); ok {
			return *v, nil
		}
		v, err := loader()
		if err != nil {
			return nil, err
		}
		cacheSetSilently(cache, ctx, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected type from singleflight result")
	}
	return v, nil
}

// CachingBillingRepository decorates a BillingRepository with cache-aside
// on the plan catalogue. Provider rows and usage counters always go to the
// primary store.
type CachingBillingRepository struct {
	inner ports.BillingRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingBillingRepository(inner ports.BillingRepository, cache ports.Cache, ttl time.Duration) ports.BillingRepository {
	return &CachingBillingRepository{inner: inner, cache: cache, ttl: ttl}
}

func planKey(t billing.PlanType) string   { return "plan:type:" + string(t) }
func limitsKey(t billing.PlanType) string { return "plan:limits:" + string(t) }

func (c *CachingBillingRepository) GetPlan(ctx context.Context, planType billing.PlanType) (*billing.Plan, error) {
	return loadWithSingleflight(c.cache, ctx, planKey(planType), c.ttl, func() (*billing.Plan, error) {
		return c.inner.GetPlan(ctx, planType)
	})
}

func (c *CachingBillingRepository) GetLimits(ctx context.Context, planType billing.PlanType) (*billing.Limits, error) {
	return loadWithSingleflight(c.cache, ctx, limitsKey(planType), c.ttl, func() (*billing.Limits, error) {
		return c.inner.GetLimits(ctx, planType)
	})
}

func (c *CachingBillingRepository) GetProviderPlanType(ctx context.Context, providerID uuid.UUID) (billing.PlanType, error) {
	return c.inner.GetProviderPlanType(ctx, providerID)
}

func (c *CachingBillingRepository) SetProviderPlanType(ctx context.Context, providerID uuid.UUID, planType billing.PlanType) error {
	return c.inner.SetProviderPlanType(ctx, providerID, planType)
}

func (c *CachingBillingRepository) GetUsage(ctx context.Context, providerID uuid.UUID) (*billing.Usage, error) {
	return c.inner.GetUsage(ctx, providerID)
}

// CachingDirectoryRepository decorates a DirectoryRepository with cache-aside
// on the full lists.
type CachingDirectoryRepository struct {
	inner ports.DirectoryRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingDirectoryRepository(inner ports.DirectoryRepository, cache ports.Cache, ttl time.Duration) ports.DirectoryRepository {
	return &CachingDirectoryRepository{inner: inner, cache: cache, ttl: ttl}
}

func (c *CachingDirectoryRepository) ListCategories(ctx context.Context) ([]directory.Category, error) {
	return loadWithSingleflight(c.cache, ctx, "categories:all", c.ttl, func() ([]directory.Category, error) {
		return c.inner.ListCategories(ctx)
	})
}

func (c *CachingDirectoryRepository) ListCities(ctx context.Context, state string) ([]directory.City, error) {
	return loadWithSingleflight(c.cache, ctx, "cities:"+state, c.ttl, func() ([]directory.City, error) {
		return c.inner.ListCities(ctx, state)
	})
}

var sf singleflight.Group
