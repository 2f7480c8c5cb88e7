package ports

import (
	"context"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	"github.com/google/uuid"
)

// BillingAPI is the client-side view of the billing collaborator. A nil
// result with a nil error means the collaborator has no record.
type BillingAPI interface {
	CurrentPlan(ctx context.Context) (*billing.Plan, error)
	CurrentUsage(ctx context.Context) (*billing.Usage, error)
	CurrentLimits(ctx context.Context) (*billing.Limits, error)
	ChangePlan(ctx context.Context, planType billing.PlanType) (*billing.Plan, error)
}

// BillingRepository defines storage operations for plans and provider usage
type BillingRepository interface {
	GetPlan(ctx context.Context, planType billing.PlanType) (*billing.Plan, error)
	GetLimits(ctx context.Context, planType billing.PlanType) (*billing.Limits, error)
	GetProviderPlanType(ctx context.Context, providerID uuid.UUID) (billing.PlanType, error)
	SetProviderPlanType(ctx context.Context, providerID uuid.UUID, planType billing.PlanType) error
	GetUsage(ctx context.Context, providerID uuid.UUID) (*billing.Usage, error)
}

// BillingService defines the billing business logic served to providers
type BillingService interface {
	CurrentPlan(ctx context.Context, providerID uuid.UUID) (*billing.Plan, error)
	CurrentUsage(ctx context.Context, providerID uuid.UUID) (*billing.Usage, error)
	CurrentLimits(ctx context.Context, providerID uuid.UUID) (*billing.Limits, error)
	ChangePlan(ctx context.Context, providerID uuid.UUID, req *billing.ChangePlanRequest) (*billing.Plan, error)
}
