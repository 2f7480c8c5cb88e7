package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/db"
)

// BillingRepository implements the billing repository interface on Postgres.
type BillingRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewBillingRepository creates a new billing repository
func NewBillingRepository(database *db.Database, logger *logrus.Logger) ports.BillingRepository {
	return &BillingRepository{db: database, logger: logger}
}

// GetPlan retrieves a plan by type
func (r *BillingRepository) GetPlan(ctx context.Context, planType billing.PlanType) (*billing.Plan, error) {
	var (
		p            billing.Plan
		featuresJSON []byte
		detailsJSON  []byte
	)

	query := `SELECT type, name, features, details FROM plans WHERE type = $1`

	err := r.db.DB.QueryRowxContext(ctx, query, planType).Scan(&p.Type, &p.Name, &featuresJSON, &detailsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fault.New(fault.ClassNotFound, "billing.GetPlan", fmt.Errorf("plan %s not found", planType))
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	if len(featuresJSON) > 0 {
		if err := json.Unmarshal(featuresJSON, &p.Features); err != nil {
			return nil, fmt.Errorf("failed to parse plan features: %w", err)
		}
	}
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &p.Details); err != nil {
			return nil, fmt.Errorf("failed to parse plan details: %w", err)
		}
	}
	if p.Features == nil {
		p.Features = []string{}
	}

	return &p, nil
}

// GetLimits retrieves the usage caps of a plan
func (r *BillingRepository) GetLimits(ctx context.Context, planType billing.PlanType) (*billing.Limits, error) {
	var l billing.Limits
	query := `SELECT max_leads, max_services, max_bookings FROM plans WHERE type = $1`
	if err := r.db.DB.GetContext(ctx, &l, query, planType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fault.New(fault.ClassNotFound, "billing.GetLimits", fmt.Errorf("plan %s not found", planType))
		}
		return nil, fmt.Errorf("failed to get limits: %w", err)
	}
	return &l, nil
}

// GetProviderPlanType retrieves the plan a provider is subscribed to
func (r *BillingRepository) GetProviderPlanType(ctx context.Context, providerID uuid.UUID) (billing.PlanType, error) {
	var planType billing.PlanType
	query := `SELECT plan_type FROM providers WHERE id = $1`
	if err := r.db.DB.GetContext(ctx, &planType, query, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fault.New(fault.ClassNotFound, "billing.GetProviderPlanType", fmt.Errorf("provider %s not found", providerID))
		}
		return "", fmt.Errorf("failed to get provider plan: %w", err)
	}
	return planType, nil
}

// SetProviderPlanType moves a provider onto planType
func (r *BillingRepository) SetProviderPlanType(ctx context.Context, providerID uuid.UUID, planType billing.PlanType) error {
	query := `UPDATE providers SET plan_type = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.DB.ExecContext(ctx, query, providerID, planType)
	if err != nil {
		return fmt.Errorf("failed to change provider plan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fault.New(fault.ClassNotFound, "billing.SetProviderPlanType", fmt.Errorf("provider %s not found", providerID))
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"provider_id": providerID, "plan": planType}).Info("provider plan changed")
	}
	return nil
}

// GetUsage retrieves the provider's usage counters. A provider without a
// usage row yields nil and no error.
func (r *BillingRepository) GetUsage(ctx context.Context, providerID uuid.UUID) (*billing.Usage, error) {
	var u billing.Usage
	query := `
		SELECT leads_used, services_active, bookings_this_month, rating
		FROM provider_usage
		WHERE provider_id = $1`
	if err := r.db.DB.GetContext(ctx, &u, query, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}
	return &u, nil
}
