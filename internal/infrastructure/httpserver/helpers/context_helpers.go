package helpers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Keys under which the JWT middleware stores the authenticated provider.
const (
	providerIDKey    = "provider_id"
	providerEmailKey = "provider_email"
)

// SetProvider records the authenticated provider on the request context.
func SetProvider(c echo.Context, id uuid.UUID, email string) {
	c.Set(providerIDKey, id)
	c.Set(providerEmailKey, email)
}

// ProviderID returns the authenticated provider, if any.
func ProviderID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(providerIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// ProviderEmail returns the e-mail claim of the authenticated provider.
func ProviderEmail(c echo.Context) (string, bool) {
	email, ok := c.Get(providerEmailKey).(string)
	return email, ok && email != ""
}

// GetProviderIDFromContext is ProviderID for handlers behind the JWT
// middleware: a missing provider is a 401.
func GetProviderIDFromContext(c echo.Context) (uuid.UUID, error) {
	id, ok := ProviderID(c)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid provider context")
	}
	return id, nil
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}
	return token, nil
}
