package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/auth"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/directory"
	"github.com/google/uuid"
)

// BillingAPIMock is a lightweight mock for the client-side BillingAPI
type BillingAPIMock struct {
	CurrentPlanFn   func(ctx context.Context) (*billing.Plan, error)
	CurrentUsageFn  func(ctx context.Context) (*billing.Usage, error)
	CurrentLimitsFn func(ctx context.Context) (*billing.Limits, error)
	ChangePlanFn    func(ctx context.Context, planType billing.PlanType) (*billing.Plan, error)
}

func (m *BillingAPIMock) CurrentPlan(ctx context.Context) (*billing.Plan, error) {
	if m.CurrentPlanFn != nil {
		return m.CurrentPlanFn(ctx)
	}
	return &billing.Plan{Type: billing.PlanFree}, nil
}
func (m *BillingAPIMock) CurrentUsage(ctx context.Context) (*billing.Usage, error) {
	if m.CurrentUsageFn != nil {
		return m.CurrentUsageFn(ctx)
	}
	return &billing.Usage{}, nil
}
func (m *BillingAPIMock) CurrentLimits(ctx context.Context) (*billing.Limits, error) {
	if m.CurrentLimitsFn != nil {
		return m.CurrentLimitsFn(ctx)
	}
	return &billing.Limits{}, nil
}
func (m *BillingAPIMock) ChangePlan(ctx context.Context, planType billing.PlanType) (*billing.Plan, error) {
	if m.ChangePlanFn != nil {
		return m.ChangePlanFn(ctx, planType)
	}
	return &billing.Plan{Type: planType}, nil
}

// BillingRepositoryMock is a lightweight mock for BillingRepository
type BillingRepositoryMock struct {
	GetPlanFn             func(ctx context.Context, planType billing.PlanType) (*billing.Plan, error)
	GetLimitsFn           func(ctx context.Context, planType billing.PlanType) (*billing.Limits, error)
	GetProviderPlanTypeFn func(ctx context.Context, providerID uuid.UUID) (billing.PlanType, error)
	SetProviderPlanTypeFn func(ctx context.Context, providerID uuid.UUID, planType billing.PlanType) error
	GetUsageFn            func(ctx context.Context, providerID uuid.UUID) (*billing.Usage, error)
}

func (m *BillingRepositoryMock) GetPlan(ctx context.Context, planType billing.PlanType) (*billing.Plan, error) {
	if m.GetPlanFn != nil {
		return m.GetPlanFn(ctx, planType)
	}
	return &billing.Plan{Type: planType}, nil
}
func (m *BillingRepositoryMock) GetLimits(ctx context.Context, planType billing.PlanType) (*billing.Limits, error) {
	if m.GetLimitsFn != nil {
		return m.GetLimitsFn(ctx, planType)
	}
	return &billing.Limits{}, nil
}
func (m *BillingRepositoryMock) GetProviderPlanType(ctx context.Context, providerID uuid.UUID) (billing.PlanType, error) {
	if m.GetProviderPlanTypeFn != nil {
		return m.GetProviderPlanTypeFn(ctx, providerID)
	}
	return billing.PlanFree, nil
}
func (m *BillingRepositoryMock) SetProviderPlanType(ctx context.Context, providerID uuid.UUID, planType billing.PlanType) error {
	if m.SetProviderPlanTypeFn != nil {
		return m.SetProviderPlanTypeFn(ctx, providerID, planType)
	}
	return nil
}
func (m *BillingRepositoryMock) GetUsage(ctx context.Context, providerID uuid.UUID) (*billing.Usage, error) {
	if m.GetUsageFn != nil {
		return m.GetUsageFn(ctx, providerID)
	}
	return &billing.Usage{}, nil
}

// BillingServiceMock is a lightweight mock for BillingService
type BillingServiceMock struct {
	CurrentPlanFn   func(ctx context.Context, providerID uuid.UUID) (*billing.Plan, error)
	CurrentUsageFn  func(ctx context.Context, providerID uuid.UUID) (*billing.Usage, error)
	CurrentLimitsFn func(ctx context.Context, providerID uuid.UUID) (*billing.Limits, error)
	ChangePlanFn    func(ctx context.Context, providerID uuid.UUID, req *billing.ChangePlanRequest) (*billing.Plan, error)
}

func (m *BillingServiceMock) CurrentPlan(ctx context.Context, providerID uuid.UUID) (*billing.Plan, error) {
	if m.CurrentPlanFn != nil {
		return m.CurrentPlanFn(ctx, providerID)
	}
	return nil, fmt.Errorf("not implemented")
}
func (m *BillingServiceMock) CurrentUsage(ctx context.Context, providerID uuid.UUID) (*billing.Usage, error) {
	if m.CurrentUsageFn != nil {
		return m.CurrentUsageFn(ctx, providerID)
	}
	return nil, fmt.Errorf("not implemented")
}
func (m *BillingServiceMock) CurrentLimits(ctx context.Context, providerID uuid.UUID) (*billing.Limits, error) {
	if m.CurrentLimitsFn != nil {
		return m.CurrentLimitsFn(ctx, providerID)
	}
	return nil, fmt.Errorf("not implemented")
}
func (m *BillingServiceMock) ChangePlan(ctx context.Context, providerID uuid.UUID, req *billing.ChangePlanRequest) (*billing.Plan, error) {
	if m.ChangePlanFn != nil {
		return m.ChangePlanFn(ctx, providerID, req)
	}
	return nil, fmt.Errorf("not implemented")
}

// DirectoryRepositoryMock is a lightweight mock for DirectoryRepository
type DirectoryRepositoryMock struct {
	ListCategoriesFn func(ctx context.Context) ([]directory.Category, error)
	ListCitiesFn     func(ctx context.Context, state string) ([]directory.City, error)
}

func (m *DirectoryRepositoryMock) ListCategories(ctx context.Context) ([]directory.Category, error) {
	if m.ListCategoriesFn != nil {
		return m.ListCategoriesFn(ctx)
	}
	return nil, nil
}
func (m *DirectoryRepositoryMock) ListCities(ctx context.Context, state string) ([]directory.City, error) {
	if m.ListCitiesFn != nil {
		return m.ListCitiesFn(ctx, state)
	}
	return nil, nil
}

// DirectoryServiceMock is a lightweight mock for DirectoryService
type DirectoryServiceMock struct {
	CategoriesFn func(ctx context.Context) ([]directory.Category, error)
	CitiesFn     func(ctx context.Context, state string) ([]directory.City, error)
}

func (m *DirectoryServiceMock) Categories(ctx context.Context) ([]directory.Category, error) {
	if m.CategoriesFn != nil {
		return m.CategoriesFn(ctx)
	}
	return nil, nil
}
func (m *DirectoryServiceMock) Cities(ctx context.Context, state string) ([]directory.City, error) {
	if m.CitiesFn != nil {
		return m.CitiesFn(ctx, state)
	}
	return nil, nil
}

// CacheMock is an in-memory Cache
type CacheMock struct {
	Data   map[string][]byte
	GetErr error
	SetErr error
}

func (m *CacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	v, ok := m.Data[key]
	return v, ok, nil
}
func (m *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.Data == nil {
		m.Data = map[string][]byte{}
	}
	m.Data[key] = value
	return nil
}
func (m *CacheMock) Delete(ctx context.Context, key string) error {
	delete(m.Data, key)
	return nil
}

// TokenServiceMock is a lightweight mock for TokenService
type TokenServiceMock struct {
	IssueTokenFn    func(ctx context.Context, providerID uuid.UUID, email string, ttl time.Duration) (string, error)
	ValidateTokenFn func(ctx context.Context, token string) (*auth.Claims, error)
}

func (m *TokenServiceMock) IssueToken(ctx context.Context, providerID uuid.UUID, email string, ttl time.Duration) (string, error) {
	if m.IssueTokenFn != nil {
		return m.IssueTokenFn(ctx, providerID, email, ttl)
	}
	return "token", nil
}
func (m *TokenServiceMock) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, token)
	}
	return nil, fmt.Errorf("invalid token")
}

// RateLimiterServiceMock is a lightweight mock for RateLimiterService
type RateLimiterServiceMock struct {
	AllowFn func(ctx context.Context, providerID uuid.UUID) (bool, int, int, time.Time, error)
}

func (m *RateLimiterServiceMock) Allow(ctx context.Context, providerID uuid.UUID) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, providerID)
	}
	return true, 100, 100, time.Now().Add(time.Minute), nil
}
