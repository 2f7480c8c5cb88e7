package ports

import "context"

// HealthChecker probes one dependency of the billing API server.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
