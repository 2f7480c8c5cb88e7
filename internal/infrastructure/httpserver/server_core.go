package httpserver

import (
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
	customMiddleware "github.com/avatarctic/services-marketplace/go/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
}

type ServerDeps struct {
	BillingService     ports.BillingService
	DirectoryService   ports.DirectoryService
	TokenService       ports.TokenService
	RateLimiterService ports.RateLimiterService
	HealthCheckers     []ports.HealthChecker
}

// Server is the billing API consumed by the client engine.
type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	billingSvc     ports.BillingService
	directorySvc   ports.DirectoryService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		billingSvc:     deps.BillingService,
		directorySvc:   deps.DirectoryService,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.TokenService,
			deps.RateLimiterService,
			logger,
			apiRequests,
			apiLatency,
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
