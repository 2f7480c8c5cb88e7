package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
)

// RateLimiterService implements RateLimiter with a fixed window per
// provider. Pro providers get a larger budget.
type RateLimiterService struct {
	repo            ports.RateLimitRepository
	billingRepo     ports.BillingRepository
	defaultLimit    int
	proMultiplier   float64
	burstMultiplier float64
	window          time.Duration
	keyPrefix       string
	logger          *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	DefaultRequestsPerMinute int
	ProMultiplier            float64
	BurstMultiplier          float64
	Window                   time.Duration
	KeyPrefix                string
}

func NewRateLimiterService(repo ports.RateLimitRepository, billingRepo ports.BillingRepository, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	// Apply defaults
	dl := 120
	pm := 2.0
	bm := 1.0
	w := time.Minute
	kp := "ratelimit:provider"
	if cfg != nil {
		if cfg.DefaultRequestsPerMinute > 0 {
			dl = cfg.DefaultRequestsPerMinute
		}
		if cfg.ProMultiplier > 0 {
			pm = cfg.ProMultiplier
		}
		if cfg.BurstMultiplier > 0 {
			bm = cfg.BurstMultiplier
		}
		if cfg.Window > 0 {
			w = cfg.Window
		}
		if cfg.KeyPrefix != "" {
			kp = cfg.KeyPrefix
		}
	}
	return &RateLimiterService{repo: repo, billingRepo: billingRepo, defaultLimit: dl, proMultiplier: pm, burstMultiplier: bm, window: w, keyPrefix: kp, logger: logger}
}

func (s *RateLimiterService) Allow(ctx context.Context, providerID uuid.UUID) (bool, int, int, time.Time, error) {
	limit := s.limitFor(ctx, providerID)
	ttl := s.window * 2 // retain overlap window
	count, windowStart, err := s.repo.IncrementWindow(ctx, providerID, s.window, s.keyPrefix, ttl)
	reset := windowStart.Add(s.window)
	burst := int(float64(limit) * s.burstMultiplier)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"provider_id": providerID}).WithError(err).Error("rate limiter: failed to increment window")
		}
		// fail open
		return true, burst, limit, reset, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"provider_id": providerID, "count": count, "burst": burst, "limit": limit}).Debug("rate limiter window state")
	}
	if count > burst {
		return false, 0, limit, reset, nil
	}
	return true, burst - count, limit, reset, nil
}

func (s *RateLimiterService) limitFor(ctx context.Context, providerID uuid.UUID) int {
	if s.billingRepo == nil {
		return s.defaultLimit
	}
	planType, err := s.billingRepo.GetProviderPlanType(ctx, providerID)
	if err != nil || planType != billing.PlanPro {
		return s.defaultLimit
	}
	return int(float64(s.defaultLimit) * s.proMultiplier)
}
