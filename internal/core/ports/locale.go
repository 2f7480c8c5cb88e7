package ports

import "context"

// BundleLoader returns the raw JSON message bundle of one locale.
type BundleLoader func(ctx context.Context) ([]byte, error)
