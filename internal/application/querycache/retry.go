package querycache

import "github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"

// RetryPolicy decides whether a failed operation is retried. failureCount is
// the number of retries already performed for the current run. Policies are
// pure: the same inputs always give the same answer.
type RetryPolicy func(failureCount int, class fault.Class) bool

const (
	DefaultReadRetries  = 3
	DefaultWriteRetries = 2
)

// ReadPolicy never retries NotFound or Unauthorized and otherwise allows up to
// maxRetries retries.
func ReadPolicy(maxRetries int) RetryPolicy {
	return func(failureCount int, class fault.Class) bool {
		if class == fault.ClassNotFound || class == fault.ClassUnauthorized {
			return false
		}
		return failureCount < maxRetries
	}
}

// WritePolicy never retries BadRequest and otherwise allows up to maxRetries
// retries.
func WritePolicy(maxRetries int) RetryPolicy {
	return func(failureCount int, class fault.Class) bool {
		if class == fault.ClassBadRequest {
			return false
		}
		return failureCount < maxRetries
	}
}

// NoRetry never retries.
func NoRetry(int, fault.Class) bool { return false }
