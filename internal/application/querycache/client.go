package querycache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
)

var (
	ErrDisposed   = errors.New("querycache: client disposed")
	ErrNoFetcher  = errors.New("querycache: no fetcher registered for key")
	ErrNoMutation = errors.New("querycache: mutation has no operation")
)

// Result is delivered to Ensure and Refetch callers once their fetch settles.
type Result struct {
	Entry Entry
	Err   error
}

type entry struct {
	key   Key
	fetch Fetcher

	value       any
	hasValue    bool
	fetchedAt   time.Time
	staleAfter  time.Duration
	expireAfter time.Duration
	status      Status
	invalidated bool
	err         *ErrorInfo

	// issued is the sequence number of the latest fetch started for the key,
	// applied the sequence number whose outcome the entry currently holds.
	issued   uint64
	applied  uint64
	inflight int
	// flight is the singleflight key of the newest in-flight fetch.
	flight string

	listeners map[uint64]Listener
	gcTimer   clockwork.Timer
	gcGen     uint64
}

func (e *entry) snapshot() Entry {
	return Entry{
		Key:         e.key,
		Value:       e.value,
		HasValue:    e.hasValue,
		FetchedAt:   e.fetchedAt,
		StaleAfter:  e.staleAfter,
		ExpireAfter: e.expireAfter,
		Status:      e.status,
		Fetching:    e.inflight > 0,
		Invalidated: e.invalidated,
		Error:       e.err,
	}
}

func (e *entry) listenerList() []Listener {
	out := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		out = append(out, l)
	}
	return out
}

// Client is a key-indexed cache of asynchronous fetches. It owns staleness and
// GC windows, deduplicates concurrent fetches per key and applies the read and
// write retry policies. All methods are safe for concurrent use.
type Client struct {
	opts    Options
	clock   clockwork.Clock
	logger  *logrus.Logger
	flights singleflight.Group

	// ctx bounds every read fetch; Dispose cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	entries  map[Key]*entry
	nextID   uint64
	disposed bool
}

// New creates a Client. Zero-valued options take the defaults.
func New(opts Options) *Client {
	opts = opts.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		opts:    opts,
		clock:   opts.Clock,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[Key]*entry),
	}
}

// Get returns the current state of key without triggering a fetch.
func (c *Client) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Ensure makes sure q has a value. A fresh value is returned as is; a stale
// value is returned immediately while a background refetch starts; a missing
// value is fetched and the returned channel receives the outcome of that
// fetch. Concurrent calls for a key share one in-flight fetch.
func (c *Client) Ensure(q Query) <-chan Result {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return settled(Result{Err: ErrDisposed})
	}
	e := c.registerLocked(q)
	snap := e.snapshot()
	c.mu.Unlock()

	switch {
	case snap.HasValue && !snap.IsStale(c.clock.Now()):
		hitsTotal.WithLabelValues(q.Key.Resource()).Inc()
		c.logger.WithFields(logrus.Fields{"key": q.Key.String()}).Debug("querycache: fresh hit")
		return settled(Result{Entry: snap})
	case snap.HasValue:
		c.fetch(q.Key, false)
		return settled(Result{Entry: snap})
	default:
		return c.fetch(q.Key, false)
	}
}

// Fetch ensures q and waits for a typed value or ctx cancellation. Leaving
// early does not cancel the shared fetch. A failed fetch on an entry that
// still holds a value returns that value without error; the failure stays on
// Entry.Error.
func Fetch[T any](ctx context.Context, c *Client, q Query) (T, error) {
	var zero T
	select {
	case r := <-c.Ensure(q):
		if r.Err != nil && !r.Entry.HasValue {
			return zero, r.Err
		}
		v, ok := Value[T](r.Entry)
		if !ok {
			if r.Entry.Error != nil {
				return zero, r.Entry.Error.Err
			}
			return zero, fault.Structural("querycache", fmt.Errorf("unexpected value %T for %s", r.Entry.Value, q.Key))
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Refetch starts a new fetch for key even if one is already in flight. The
// newest fetch wins regardless of completion order.
func (c *Client) Refetch(key Key) <-chan Result {
	return c.fetch(key, true)
}

// Invalidate marks key stale. Subscribed entries refetch immediately;
// unsubscribed ones refetch on their next Ensure.
func (c *Client) Invalidate(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || c.disposed {
		c.mu.Unlock()
		return
	}
	e.invalidated = true
	active := len(e.listeners) > 0 && e.fetch != nil
	snap, listeners := e.snapshot(), e.listenerList()
	c.mu.Unlock()

	notify(listeners, snap)
	if active {
		c.fetch(key, true)
	}
}

// InvalidateResource invalidates every key that belongs to resource.
func (c *Client) InvalidateResource(resource string) {
	c.mu.Lock()
	var keys []Key
	for k := range c.entries {
		if k.Resource() == resource {
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()
	for _, k := range keys {
		c.Invalidate(k)
	}
}

// Subscribe registers fn for state changes of key and cancels a pending
// eviction. The returned func removes the subscription; removing the last
// one starts the GC countdown. It never cancels an in-flight fetch.
func (c *Client) Subscribe(key Key, fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return func() {}
	}
	e, ok := c.entries[key]
	if !ok {
		e = c.newEntryLocked(key)
	}
	c.nextID++
	id := c.nextID
	e.listeners[id] = fn
	c.stopGCLocked(e)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(e, id) })
	}
}

// Watch subscribes fn to q and fetches it when it has no value, or when it
// is stale and refetch-on-mount is enabled.
func (c *Client) Watch(q Query, fn Listener) (unsubscribe func()) {
	unsubscribe = c.Subscribe(q.Key, fn)

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return unsubscribe
	}
	e := c.registerLocked(q)
	snap := e.snapshot()
	c.mu.Unlock()

	if !snap.HasValue || (c.opts.RefetchOnMount && snap.IsStale(c.clock.Now())) {
		c.fetch(q.Key, false)
	}
	return unsubscribe
}

// Mutate runs a write under the write retry policy and invalidates the
// mutation's keys on success.
func (c *Client) Mutate(ctx context.Context, m Mutation) (any, error) {
	if m.Do == nil {
		return nil, ErrNoMutation
	}
	name := m.Name
	if name == "" {
		name = "mutation"
	}
	value, failures, err := c.execute(ctx, name, "write", m.Do, c.opts.WriteRetry)
	if err != nil {
		fetchesTotal.WithLabelValues(name, "error").Inc()
		c.logger.WithFields(logrus.Fields{"mutation": name, "attempts": failures, "class": fault.Classify(err)}).WithError(err).Warn("querycache: mutation failed")
		return nil, err
	}
	fetchesTotal.WithLabelValues(name, "success").Inc()
	for _, k := range m.Invalidates {
		c.Invalidate(k)
	}
	return value, nil
}

// Focus refetches subscribed stale entries when refetch-on-focus is enabled.
func (c *Client) Focus() {
	if c.opts.RefetchOnFocus {
		c.refetchActive("focus")
	}
}

// Reconnect refetches subscribed stale entries when refetch-on-reconnect is
// enabled.
func (c *Client) Reconnect() {
	if c.opts.RefetchOnReconnect {
		c.refetchActive("reconnect")
	}
}

// Dispose cancels in-flight reads, stops every timer and drops all entries.
func (c *Client) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	for _, e := range c.entries {
		c.stopGCLocked(e)
	}
	n := len(c.entries)
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()

	c.cancel()
	c.logger.WithField("entries", n).Info("querycache: disposed")
}

func (c *Client) refetchActive(reason string) {
	now := c.clock.Now()
	c.mu.Lock()
	var keys []Key
	for k, e := range c.entries {
		if len(e.listeners) > 0 && e.fetch != nil && e.snapshot().IsStale(now) {
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()

	if len(keys) > 0 {
		c.logger.WithFields(logrus.Fields{"reason": reason, "entries": len(keys)}).Debug("querycache: refetching active entries")
	}
	for _, k := range keys {
		c.fetch(k, false)
	}
}

func (c *Client) newEntryLocked(key Key) *entry {
	stale, gc := c.opts.windows(Query{Key: key})
	e := &entry{
		key:         key,
		status:      StatusIdle,
		staleAfter:  stale,
		expireAfter: gc,
		listeners:   make(map[uint64]Listener),
	}
	c.entries[key] = e
	return e
}

// registerLocked returns the entry for q, creating it if needed, and records
// the latest fetcher and windows.
func (c *Client) registerLocked(q Query) *entry {
	e, ok := c.entries[q.Key]
	if !ok {
		e = c.newEntryLocked(q.Key)
	}
	if q.Fetch != nil {
		e.fetch = q.Fetch
	}
	e.staleAfter, e.expireAfter = c.opts.windows(q)
	return e
}

// fetch issues or joins a read for key. The sequence number and fetcher of a
// new fetch are fixed here, under the lock, so issue order is call order.
func (c *Client) fetch(key Key, force bool) <-chan Result {
	c.mu.Lock()
	e, ok := c.entries[key]
	switch {
	case c.disposed:
		c.mu.Unlock()
		return settled(Result{Err: ErrDisposed})
	case !ok || e.fetch == nil:
		c.mu.Unlock()
		return settled(Result{Err: ErrNoFetcher})
	}

	var do func() (any, error)
	if !force && e.flight != "" {
		do = func() (any, error) { return c.current(e) }
	} else {
		e.issued++
		seq, fetcher := e.issued, e.fetch
		e.flight = flightName(key, seq)
		e.inflight++
		if !e.hasValue {
			e.status = StatusLoading
		}
		c.stopGCLocked(e)
		do = func() (any, error) { return c.run(e, seq, fetcher) }
	}
	name := e.flight
	ch := c.flights.DoChan(name, do)
	c.mu.Unlock()

	out := make(chan Result, 1)
	go func() {
		r := <-ch
		snap, _ := r.Val.(Entry)
		if r.Shared {
			c.logger.WithField("key", key.String()).Debug("querycache: joined in-flight fetch")
		}
		out <- Result{Entry: snap, Err: r.Err}
	}()
	return out
}

func flightName(key Key, seq uint64) string {
	return fmt.Sprintf("%s#%d", key, seq)
}

// current reports the settled state of e; it serves joins that arrive after
// the flight they targeted has finished.
func (c *Client) current(e *entry) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := e.snapshot()
	if e.status == StatusError && e.err != nil {
		return snap, e.err.Err
	}
	return snap, nil
}

func (c *Client) run(e *entry, seq uint64, fetcher Fetcher) (any, error) {
	c.mu.Lock()
	snap, listeners := e.snapshot(), e.listenerList()
	c.mu.Unlock()

	notify(listeners, snap)

	value, failures, err := c.execute(c.ctx, e.key.Resource(), "read", fetcher, c.opts.ReadRetry)
	return c.settle(e, seq, value, failures, err), err
}

// settle applies the outcome of fetch seq unless a later-issued fetch has
// already been applied.
func (c *Client) settle(e *entry, seq uint64, value any, failures int, err error) Entry {
	resource := e.key.Resource()

	c.mu.Lock()
	e.inflight--
	if e.flight == flightName(e.key, seq) {
		e.flight = ""
	}
	fields := logrus.Fields{"key": e.key.String(), "seq": seq}
	switch {
	case seq < e.applied:
		discardedTotal.WithLabelValues(resource).Inc()
		c.logger.WithFields(fields).WithField("applied", e.applied).Debug("querycache: discarded out-of-order response")
	case err == nil:
		e.applied = seq
		e.value, e.hasValue = value, true
		e.fetchedAt = c.clock.Now()
		e.status = StatusSuccess
		e.invalidated = false
		e.err = nil
		fetchesTotal.WithLabelValues(resource, "success").Inc()
	default:
		e.applied = seq
		e.status = StatusError
		e.err = &ErrorInfo{
			Class:        fault.Classify(err),
			Message:      err.Error(),
			FailureCount: failures,
			Err:          err,
		}
		fetchesTotal.WithLabelValues(resource, "error").Inc()
		c.logger.WithFields(fields).WithFields(logrus.Fields{"class": e.err.Class, "attempts": failures}).WithError(err).Warn("querycache: fetch failed")
	}
	if len(e.listeners) == 0 && e.inflight == 0 && c.entries[e.key] == e {
		c.scheduleGCLocked(e)
	}
	snap, listeners := e.snapshot(), e.listenerList()
	c.mu.Unlock()

	notify(listeners, snap)
	return snap
}

// execute runs fn until it succeeds or policy refuses another retry. It
// returns the number of failed attempts alongside the final error.
func (c *Client) execute(ctx context.Context, resource, kind string, fn Fetcher, policy RetryPolicy) (any, int, error) {
	bo := c.opts.newBackoff()
	for failures := 0; ; failures++ {
		value, err := c.attempt(ctx, fn)
		if err == nil {
			return value, failures, nil
		}
		if ctx.Err() != nil {
			return nil, failures + 1, err
		}
		class := fault.Classify(err)
		if !policy(failures, class) {
			return nil, failures + 1, err
		}
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return nil, failures + 1, err
		}
		retriesTotal.WithLabelValues(resource, kind).Inc()
		c.logger.WithFields(logrus.Fields{"resource": resource, "kind": kind, "retry": failures + 1, "class": class, "wait": wait}).Debug("querycache: retrying")
		select {
		case <-c.clock.After(wait):
		case <-ctx.Done():
			return nil, failures + 1, err
		}
	}
}

func (c *Client) attempt(ctx context.Context, fn Fetcher) (value any, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("querycache: fetcher panicked: %v", r)
		}
	}()
	return fn(reqCtx)
}

func (c *Client) unsubscribe(e *entry, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(e.listeners, id)
	if len(e.listeners) == 0 && e.inflight == 0 && c.entries[e.key] == e {
		c.scheduleGCLocked(e)
	}
}

func (c *Client) scheduleGCLocked(e *entry) {
	c.stopGCLocked(e)
	gen := e.gcGen
	e.gcTimer = c.clock.AfterFunc(e.expireAfter, func() { c.collect(e, gen) })
}

func (c *Client) stopGCLocked(e *entry) {
	e.gcGen++
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
}

func (c *Client) collect(e *entry, gen uint64) {
	c.mu.Lock()
	if e.gcGen != gen || c.entries[e.key] != e || len(e.listeners) > 0 || e.inflight > 0 {
		c.mu.Unlock()
		return
	}
	delete(c.entries, e.key)
	e.gcTimer = nil
	c.mu.Unlock()

	evictionsTotal.Inc()
	c.logger.WithField("key", e.key.String()).Debug("querycache: evicted")
}

func notify(listeners []Listener, snap Entry) {
	for _, l := range listeners {
		l(snap)
	}
}

func settled(r Result) <-chan Result {
	ch := make(chan Result, 1)
	ch <- r
	return ch
}
