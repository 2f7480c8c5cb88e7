package querycache

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	DefaultStaleTime       = 5 * time.Minute
	StaticStaleTime        = 30 * time.Minute
	DefaultGCTime          = 10 * time.Minute
	DefaultRequestTimeout  = 30 * time.Second
	DefaultRetryBaseDelay  = time.Second
	DefaultRetryMaxDelay   = 30 * time.Second
	defaultBackoffMultiple = 2.0
)

// Fetcher loads the value of one resource.
type Fetcher func(ctx context.Context) (any, error)

// Query binds a key to its fetcher. Zero windows fall back to the client
// defaults.
type Query struct {
	Key       Key
	Fetch     Fetcher
	StaleTime time.Duration
	GCTime    time.Duration
}

// Mutation is a write. On success every key in Invalidates is invalidated.
type Mutation struct {
	Name        string
	Do          Fetcher
	Invalidates []Key
}

// Listener receives entry snapshots after every state change.
type Listener func(Entry)

// Options configures a Client.
type Options struct {
	StaleTime      time.Duration
	GCTime         time.Duration
	RequestTimeout time.Duration

	RefetchOnMount     bool
	RefetchOnFocus     bool
	RefetchOnReconnect bool

	ReadRetry      RetryPolicy
	WriteRetry     RetryPolicy
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	Clock  clockwork.Clock
	Logger *logrus.Logger
}

// DefaultOptions returns the read-mostly defaults: 5 minute stale window,
// 10 minute GC window, refetch on mount and reconnect.
func DefaultOptions() Options {
	return Options{
		StaleTime:          DefaultStaleTime,
		GCTime:             DefaultGCTime,
		RequestTimeout:     DefaultRequestTimeout,
		RefetchOnMount:     true,
		RefetchOnReconnect: true,
		ReadRetry:          ReadPolicy(DefaultReadRetries),
		WriteRetry:         WritePolicy(DefaultWriteRetries),
		RetryBaseDelay:     DefaultRetryBaseDelay,
		RetryMaxDelay:      DefaultRetryMaxDelay,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.StaleTime <= 0 {
		o.StaleTime = d.StaleTime
	}
	if o.GCTime <= 0 {
		o.GCTime = d.GCTime
	}
	if o.GCTime < o.StaleTime {
		o.GCTime = o.StaleTime
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = d.RequestTimeout
	}
	if o.ReadRetry == nil {
		o.ReadRetry = d.ReadRetry
	}
	if o.WriteRetry == nil {
		o.WriteRetry = d.WriteRetry
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = d.RetryBaseDelay
	}
	if o.RetryMaxDelay < o.RetryBaseDelay {
		o.RetryMaxDelay = o.RetryBaseDelay
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// windows resolves the stale and GC windows of q, keeping gc >= stale.
func (o Options) windows(q Query) (stale, gc time.Duration) {
	stale, gc = q.StaleTime, q.GCTime
	if stale <= 0 {
		stale = o.StaleTime
	}
	if gc <= 0 {
		gc = o.GCTime
	}
	if gc < stale {
		gc = stale
	}
	return stale, gc
}

func (o Options) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.RetryBaseDelay
	b.MaxInterval = o.RetryMaxDelay
	b.Multiplier = defaultBackoffMultiple
	b.Reset()
	return b
}
