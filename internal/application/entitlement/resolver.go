// Package entitlement merges the cached plan, usage and limits of the current
// provider into a single Entitlement and gates features on it.
package entitlement

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/go/internal/application/queries"
	"github.com/avatarctic/services-marketplace/go/internal/application/querycache"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
)

// LocaleSource reports the active display locale.
type LocaleSource interface {
	Locale() string
}

// Resolver subscribes to plan/current, usage/current and limits/current and
// recomputes the Entitlement whenever one of them changes.
type Resolver struct {
	cache  *querycache.Client
	api    ports.BillingAPI
	locale LocaleSource
	logger *logrus.Logger

	// notifyMu orders recomputation and delivery so listeners observe
	// entitlements in the order they were computed.
	notifyMu sync.Mutex

	mu        sync.Mutex
	started   bool
	resolved  bool
	plan      *billing.Plan
	usage     *billing.Usage
	limits    *billing.Limits
	current   billing.Entitlement
	unsubs    []func()
	listeners map[uint64]func(billing.Entitlement)
	nextID    uint64
}

// NewResolver creates a resolver. It starts in the loading state; call Start
// to subscribe to the sources.
func NewResolver(cache *querycache.Client, api ports.BillingAPI, locale LocaleSource, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Resolver{
		cache:     cache,
		api:       api,
		locale:    locale,
		logger:    logger,
		current:   billing.Entitlement{Loading: true, State: billing.StateLoading},
		listeners: make(map[uint64]func(billing.Entitlement)),
	}
}

// Start subscribes to the three sources, fetching them as needed.
func (r *Resolver) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	onChange := func(querycache.Entry) { r.recompute() }
	unsubs := []func(){
		r.cache.Watch(queries.Plan(r.api), onChange),
		r.cache.Watch(queries.Usage(r.api), onChange),
		r.cache.Watch(queries.Limits(r.api), onChange),
	}

	r.mu.Lock()
	r.unsubs = unsubs
	r.mu.Unlock()
	r.recompute()
}

// Stop removes the source subscriptions. In-flight fetches keep running and
// the entries start their GC countdown.
func (r *Resolver) Stop() {
	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	r.started = false
	r.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}

// Resolve returns the current entitlement.
func (r *Resolver) Resolve() billing.Entitlement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// RequiresPro gates a feature. While the entitlement is loading the decision
// is pending, never denied.
func (r *Resolver) RequiresPro(feature billing.Feature) billing.Decision {
	return r.Resolve().Gate(feature)
}

// Check compares the usage of resource against its plan limit.
func (r *Resolver) Check(resource billing.Resource) billing.LimitStatus {
	return r.Resolve().Check(resource)
}

// Subscribe registers fn for entitlement changes and calls it once with the
// current value.
func (r *Resolver) Subscribe(fn func(billing.Entitlement)) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners[id] = fn
	current := r.current
	r.mu.Unlock()

	fn(current)
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Wait blocks until the entitlement is no longer loading or ctx is done.
func (r *Resolver) Wait(ctx context.Context) (billing.Entitlement, error) {
	done := make(chan billing.Entitlement, 1)
	unsubscribe := r.Subscribe(func(e billing.Entitlement) {
		if !e.Loading {
			select {
			case done <- e:
			default:
			}
		}
	})
	defer unsubscribe()

	select {
	case e := <-done:
		return e, nil
	case <-ctx.Done():
		return r.Resolve(), ctx.Err()
	}
}

// Refresh recomputes the entitlement, e.g. after a locale switch. It must not
// be called from a Subscribe callback.
func (r *Resolver) Refresh() {
	r.recompute()
}

type sourceState int

const (
	sourceLoading sourceState = iota
	sourceFailed
	sourceSettled
)

// observe folds one cache entry into the last known value of a source.
func observe[T any](cache *querycache.Client, key querycache.Key, last **T) (sourceState, error) {
	e, ok := cache.Get(key)
	if ok && e.HasValue {
		if v, typed := querycache.Value[*T](e); typed {
			*last = v
		}
		return sourceSettled, nil
	}
	if ok && e.Status == querycache.StatusError && !e.Fetching && e.Error != nil {
		return sourceFailed, e.Error.Err
	}
	return sourceLoading, nil
}

func (r *Resolver) recompute() {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	planState, planErr := observe(r.cache, queries.PlanKey, &r.plan)
	usageState, usageErr := observe(r.cache, queries.UsageKey, &r.usage)
	limitsState, limitsErr := observe(r.cache, queries.LimitsKey, &r.limits)

	if planState == sourceSettled && usageState == sourceSettled && limitsState == sourceSettled {
		r.resolved = true
	}

	next := r.merge()
	switch {
	case r.resolved:
	case planState == sourceLoading || usageState == sourceLoading || limitsState == sourceLoading:
		next.Loading = true
		next.State = billing.StateLoading
	default:
		next.State = billing.StateError
		next.Err = firstErr(planErr, usageErr, limitsErr)
	}

	prev := r.current
	r.current = next
	listeners := make([]func(billing.Entitlement), 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.Unlock()

	if prev.State != next.State || prev.Loading != next.Loading {
		r.logger.WithFields(logrus.Fields{
			"state":   next.State,
			"loading": next.Loading,
			"is_pro":  next.IsPro,
		}).Debug("entitlement: state changed")
	}
	for _, l := range listeners {
		l(next)
	}
}

// merge builds the entitlement from the last known source values. A source
// that answered with no record makes the entitlement unknown.
func (r *Resolver) merge() billing.Entitlement {
	e := billing.Entitlement{State: billing.StateReady}
	if r.plan == nil || r.usage == nil || r.limits == nil {
		e.State = billing.StateUnknown
	}
	if r.plan != nil {
		e.Plan = r.plan.Localized(r.localeCode())
		e.IsPro = e.Plan.IsPro()
	}
	if r.usage != nil {
		e.Usage = *r.usage
	}
	if r.limits != nil {
		e.Limits = *r.limits
	}
	return e
}

func (r *Resolver) localeCode() string {
	if r.locale == nil {
		return billing.DefaultLocale
	}
	if l := r.locale.Locale(); l != "" {
		return l
	}
	return billing.DefaultLocale
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
