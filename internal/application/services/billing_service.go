package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
)

var ErrInvalidPlanType = errors.New("invalid plan type")

type BillingService struct {
	repo   ports.BillingRepository
	logger *logrus.Logger
}

func NewBillingService(repo ports.BillingRepository, logger *logrus.Logger) ports.BillingService {
	return &BillingService{repo: repo, logger: logger}
}

func (s *BillingService) CurrentPlan(ctx context.Context, providerID uuid.UUID) (*billing.Plan, error) {
	planType, err := s.repo.GetProviderPlanType(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetPlan(ctx, planType)
}

// CurrentUsage returns nil when the provider has no counters yet.
func (s *BillingService) CurrentUsage(ctx context.Context, providerID uuid.UUID) (*billing.Usage, error) {
	return s.repo.GetUsage(ctx, providerID)
}

func (s *BillingService) CurrentLimits(ctx context.Context, providerID uuid.UUID) (*billing.Limits, error) {
	planType, err := s.repo.GetProviderPlanType(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetLimits(ctx, planType)
}

func (s *BillingService) ChangePlan(ctx context.Context, providerID uuid.UUID, req *billing.ChangePlanRequest) (*billing.Plan, error) {
	if req == nil {
		return nil, fault.New(fault.ClassBadRequest, "billing.ChangePlan", ErrInvalidPlanType)
	}
	planType, ok := billing.ParsePlanType(string(req.Type))
	if !ok {
		return nil, fault.New(fault.ClassBadRequest, "billing.ChangePlan", fmt.Errorf("%w: %q", ErrInvalidPlanType, req.Type))
	}

	current, err := s.repo.GetProviderPlanType(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if current != planType {
		if err := s.repo.SetProviderPlanType(ctx, providerID, planType); err != nil {
			return nil, err
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"provider_id": providerID,
				"from":        current,
				"to":          planType,
			}).Info("plan changed")
		}
	}
	return s.repo.GetPlan(ctx, planType)
}
