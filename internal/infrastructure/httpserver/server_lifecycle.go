package httpserver

import (
	"context"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Start serves the billing API until Shutdown; TLS is used when both
// certificate files are configured.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, s.config.Port)
	log := s.logger.WithField("addr", addr).WithField("environment", s.config.Environment)

	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		log.Info("billing API listening (https)")
		return s.echo.StartTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	}

	if s.config.Environment == "production" {
		log.Warn("TLS certificates not configured, serving plain HTTP")
	}
	log.Info("billing API listening (http)")
	return s.echo.StartServer(&http.Server{
		Addr:         addr,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for in-process tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
