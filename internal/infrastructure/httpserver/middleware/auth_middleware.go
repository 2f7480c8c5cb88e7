package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/httpserver/helpers"
)

type JWTMiddleware struct {
	tokenService ports.TokenService
	logger       *logrus.Logger
}

func NewJWTMiddleware(tokenService ports.TokenService, logger *logrus.Logger) *JWTMiddleware {
	return &JWTMiddleware{tokenService: tokenService, logger: logger}
}

// RequireJWT validates the bearer token and sets the provider context
func (m *JWTMiddleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := helpers.BearerToken(c)
			if err != nil {
				return err
			}

			claims, err := m.tokenService.ValidateToken(c.Request().Context(), tokenString)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("JWT validation failed")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			helpers.SetProvider(c, claims.ProviderID, claims.Email)

			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{"provider_id": claims.ProviderID}).Debug("jwt validated and provider context set")
			}
			return next(c)
		}
	}
}
