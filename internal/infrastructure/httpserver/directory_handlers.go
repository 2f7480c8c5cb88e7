package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/httpserver/helpers"
)

func (s *Server) listCategories(c echo.Context) error {
	categories, err := s.directorySvc.Categories(c.Request().Context())
	if err != nil {
		return helpers.HTTPError(err)
	}
	return helpers.Data(c, http.StatusOK, categories)
}

func (s *Server) listCities(c echo.Context) error {
	state := c.QueryParam("state")
	if state == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "state is required")
	}
	cities, err := s.directorySvc.Cities(c.Request().Context(), state)
	if err != nil {
		return helpers.HTTPError(err)
	}
	return helpers.Data(c, http.StatusOK, cities)
}
