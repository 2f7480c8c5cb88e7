package ports

import (
	"context"
	"encoding/json"
)

// Transport performs one API request and returns the unwrapped `data` member
// of the response envelope. Failures are returned as *fault.Error so callers
// can classify them without inspecting status codes.
type Transport interface {
	Request(ctx context.Context, method, path string, body any) (json.RawMessage, error)
}
