package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/avatarctic/services-marketplace/go/configs"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/auth"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	errInvalidState = errors.New("state must be a two-letter code")
)

// TokenService issues and validates HS256 provider access tokens.
type TokenService struct {
	cfg   configs.JWTConfig
	clock clockwork.Clock
}

func NewTokenService(cfg configs.JWTConfig, clock clockwork.Clock) *TokenService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenService{cfg: cfg, clock: clock}
}

// IssueToken signs a token for providerID. ttl <= 0 uses the configured
// access token lifetime.
func (s *TokenService) IssueToken(ctx context.Context, providerID uuid.UUID, email string, ttl time.Duration) (string, error) {
	if s.cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is not configured")
	}
	if ttl <= 0 {
		ttl = s.cfg.AccessTokenTTL
	}
	now := s.clock.Now()
	claims := &auth.Claims{
		ProviderID: providerID,
		Email:      email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   providerID.String(),
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &auth.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*auth.Claims)
	if !ok || claims.ProviderID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing provider", ErrInvalidToken)
	}
	return claims, nil
}
