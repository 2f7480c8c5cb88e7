// Package queries binds the marketplace resources to cache keys, fetchers and
// staleness windows so every screen reads them the same way.
package queries

import (
	"context"

	"github.com/avatarctic/services-marketplace/go/internal/application/querycache"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
)

const (
	ResourcePlan       = "plan"
	ResourceUsage      = "usage"
	ResourceLimits     = "limits"
	ResourceCategories = "categories"
	ResourceCities     = "cities"
)

var (
	PlanKey       = querycache.NewKey(ResourcePlan, "current")
	UsageKey      = querycache.NewKey(ResourceUsage, "current")
	LimitsKey     = querycache.NewKey(ResourceLimits, "current")
	CategoriesKey = querycache.NewKey(ResourceCategories, "all")
)

// CitiesKey returns the key of the city list for one state.
func CitiesKey(state string) querycache.Key {
	return querycache.NewKey(ResourceCities, state)
}

// Plan reads the provider's current plan. The cached value is a *billing.Plan,
// nil when the collaborator has no record.
func Plan(api ports.BillingAPI) querycache.Query {
	return querycache.Query{
		Key: PlanKey,
		Fetch: func(ctx context.Context) (any, error) {
			return api.CurrentPlan(ctx)
		},
	}
}

// Usage reads the provider's usage counters as a *billing.Usage.
func Usage(api ports.BillingAPI) querycache.Query {
	return querycache.Query{
		Key: UsageKey,
		Fetch: func(ctx context.Context) (any, error) {
			return api.CurrentUsage(ctx)
		},
	}
}

// Limits reads the caps of the provider's plan as a *billing.Limits.
func Limits(api ports.BillingAPI) querycache.Query {
	return querycache.Query{
		Key: LimitsKey,
		Fetch: func(ctx context.Context) (any, error) {
			return api.CurrentLimits(ctx)
		},
	}
}

// Categories reads the category list. It rarely changes, so it uses the long
// staleness window.
func Categories(api ports.DirectoryAPI) querycache.Query {
	return querycache.Query{
		Key:       CategoriesKey,
		StaleTime: querycache.StaticStaleTime,
		Fetch: func(ctx context.Context) (any, error) {
			return api.Categories(ctx)
		},
	}
}

// Cities reads the cities of one state with the long staleness window.
func Cities(api ports.DirectoryAPI, state string) querycache.Query {
	return querycache.Query{
		Key:       CitiesKey(state),
		StaleTime: querycache.StaticStaleTime,
		Fetch: func(ctx context.Context) (any, error) {
			return api.Cities(ctx, state)
		},
	}
}

// ChangePlan switches the provider to planType. A successful change
// invalidates the cached plan and limits; usage is unaffected.
func ChangePlan(api ports.BillingAPI, planType billing.PlanType) querycache.Mutation {
	return querycache.Mutation{
		Name: "plan.change",
		Do: func(ctx context.Context) (any, error) {
			return api.ChangePlan(ctx, planType)
		},
		Invalidates: []querycache.Key{PlanKey, LimitsKey},
	}
}
