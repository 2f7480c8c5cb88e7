package querycache

import (
	"time"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorInfo describes the last failed fetch of an entry.
type ErrorInfo struct {
	Class        fault.Class
	Message      string
	FailureCount int
	Err          error
}

// Entry is a read-only snapshot of a cache entry. Status stays "success" while
// a background refetch of an existing value runs; Fetching reports that.
type Entry struct {
	Key         Key
	Value       any
	HasValue    bool
	FetchedAt   time.Time
	StaleAfter  time.Duration
	ExpireAfter time.Duration
	Status      Status
	Fetching    bool
	Invalidated bool
	Error       *ErrorInfo
}

// IsStale reports whether the value should be revalidated at now.
func (e Entry) IsStale(now time.Time) bool {
	if !e.HasValue || e.Invalidated {
		return true
	}
	return now.Sub(e.FetchedAt) >= e.StaleAfter
}

// Value extracts the typed value of an entry.
func Value[T any](e Entry) (T, bool) {
	var zero T
	if !e.HasValue {
		return zero, false
	}
	v, ok := e.Value.(T)
	return v, ok
}
