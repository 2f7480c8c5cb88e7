package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "billing_api"

var (
	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Billing API requests by method, route and status code.",
		},
		[]string{"method", "endpoint", "status"},
	)

	apiLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Billing API latency by method and route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(apiRequests, apiLatency)
}

// metricsEndpoint exposes the default registry, which also carries the
// shared cache lookup counters.
func (s *Server) metricsEndpoint() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
