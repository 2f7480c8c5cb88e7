package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/httpserver/helpers"
)

func (s *Server) getCurrentPlan(c echo.Context) error {
	providerID, err := helpers.GetProviderIDFromContext(c)
	if err != nil {
		return err
	}
	plan, err := s.billingSvc.CurrentPlan(c.Request().Context(), providerID)
	if err != nil {
		return helpers.HTTPError(err)
	}
	return helpers.Data(c, http.StatusOK, plan)
}

// getCurrentUsage answers {"data": null} for a provider without counters.
func (s *Server) getCurrentUsage(c echo.Context) error {
	providerID, err := helpers.GetProviderIDFromContext(c)
	if err != nil {
		return err
	}
	usage, err := s.billingSvc.CurrentUsage(c.Request().Context(), providerID)
	if err != nil {
		return helpers.HTTPError(err)
	}
	return helpers.Data(c, http.StatusOK, usage)
}

func (s *Server) getCurrentLimits(c echo.Context) error {
	providerID, err := helpers.GetProviderIDFromContext(c)
	if err != nil {
		return err
	}
	limits, err := s.billingSvc.CurrentLimits(c.Request().Context(), providerID)
	if err != nil {
		return helpers.HTTPError(err)
	}
	return helpers.Data(c, http.StatusOK, limits)
}

func (s *Server) changePlan(c echo.Context) error {
	providerID, err := helpers.GetProviderIDFromContext(c)
	if err != nil {
		return err
	}
	var req billing.ChangePlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	plan, err := s.billingSvc.ChangePlan(c.Request().Context(), providerID, &req)
	if err != nil {
		return helpers.HTTPError(err)
	}
	return helpers.Data(c, http.StatusOK, plan)
}
