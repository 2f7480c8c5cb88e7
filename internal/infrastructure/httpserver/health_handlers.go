package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthProbeTimeout = 2 * time.Second

type healthReport struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Timestamp    string            `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
}

// healthCheck probes every dependency; one failure degrades the report to 503.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthProbeTimeout)
	defer cancel()

	report := healthReport{
		Status:       "healthy",
		Service:      "services-marketplace-billing",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Dependencies: make(map[string]string, len(s.healthCheckers)),
	}
	for _, probe := range s.healthCheckers {
		if probe == nil {
			continue
		}
		if err := probe.Check(ctx); err != nil {
			report.Dependencies[probe.Name()] = "unhealthy"
			report.Status = "degraded"
			s.logger.WithError(err).WithField("dependency", probe.Name()).Warn("dependency probe failed")
			continue
		}
		report.Dependencies[probe.Name()] = "healthy"
	}

	if report.Status != "healthy" {
		return c.JSON(http.StatusServiceUnavailable, report)
	}
	return c.JSON(http.StatusOK, report)
}
