package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint())

	api := s.echo.Group("/api/v1")
	api.GET("/categories", s.listCategories)
	api.GET("/cities", s.listCities)

	protected := api.Group("")
	protected.Use(s.middleware.JWT.RequireJWT())
	protected.Use(s.middleware.RateLimit.Handler())

	billing := protected.Group("/billing")
	billing.GET("/plan", s.getCurrentPlan)
	billing.GET("/usage", s.getCurrentUsage)
	billing.GET("/limits", s.getCurrentLimits)
	billing.POST("/plan", s.changePlan)
}
