package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims identifies the provider a bearer token was issued to
type Claims struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Email      string    `json:"email,omitempty"`

	jwt.RegisteredClaims
}
