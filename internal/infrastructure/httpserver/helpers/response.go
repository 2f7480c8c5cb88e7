package helpers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
)

// Envelope wraps every successful payload as {"data": ...}.
type Envelope struct {
	Data any `json:"data"`
}

func Data(c echo.Context, status int, v any) error {
	return c.JSON(status, Envelope{Data: v})
}

// HTTPError maps a domain error onto the status the client classifies it by.
func HTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	switch fault.Classify(err) {
	case fault.ClassNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case fault.ClassBadRequest:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case fault.ClassUnauthorized:
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}
