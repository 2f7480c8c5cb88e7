package ports

import (
	"context"
	"time"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/auth"
	"github.com/google/uuid"
)

// TokenService issues and validates provider access tokens
type TokenService interface {
	IssueToken(ctx context.Context, providerID uuid.UUID, email string, ttl time.Duration) (string, error)
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}
