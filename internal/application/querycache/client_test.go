package querycache

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func newTestClient(t *testing.T, clock clockwork.Clock, mutate func(*Options)) *Client {
	t.Helper()
	opts := DefaultOptions()
	opts.Clock = clock
	opts.RetryBaseDelay = time.Millisecond
	opts.RetryMaxDelay = 2 * time.Millisecond
	if mutate != nil {
		mutate(&opts)
	}
	c := New(opts)
	t.Cleanup(c.Dispose)
	return c
}

func staticQuery(key Key, calls *int32, value any) Query {
	return Query{Key: key, Fetch: func(ctx context.Context) (any, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}}
}

func receive(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for result")
		return Result{}
	}
}

func TestEnsure_ConcurrentCallsShareOneFetch(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), nil)
	key := NewKey("plan", "current")
	release := make(chan struct{})
	var calls int32
	q := Query{Key: key, Fetch: func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "pro", nil
	}}

	const callers = 20
	results := make([]<-chan Result, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Ensure(q)
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		e, ok := c.Get(key)
		return ok && e.Status == StatusLoading && e.Fetching
	}, waitFor, tick)
	close(release)

	for _, ch := range results {
		r := receive(t, ch)
		require.NoError(t, r.Err)
		assert.Equal(t, "pro", r.Entry.Value)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEnsure_FreshValueIsServedFromCache(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestClient(t, clock, nil)
	var calls int32
	q := staticQuery(NewKey("categories", "all"), &calls, []string{"plumbing"})

	first := receive(t, c.Ensure(q))
	require.NoError(t, first.Err)
	clock.Advance(time.Minute)
	second := receive(t, c.Ensure(q))

	assert.Equal(t, first.Entry.Value, second.Entry.Value)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEnsure_StaleValueIsServedWhileRevalidating(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestClient(t, clock, nil)
	key := NewKey("usage", "current")
	var calls int32
	q := Query{Key: key, Fetch: func(ctx context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		return int(n), nil
	}}

	require.NoError(t, receive(t, c.Ensure(q)).Err)
	clock.Advance(DefaultStaleTime + time.Second)

	r := receive(t, c.Ensure(q))
	assert.Equal(t, 1, r.Entry.Value, "stale read returns the cached value immediately")

	assert.Eventually(t, func() bool {
		e, ok := c.Get(key)
		return ok && e.Value == 2 && !e.Fetching
	}, waitFor, tick)
}

func TestRefetch_LastIssuedFetchWins(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), nil)
	key := NewKey("plan", "current")
	gates := []chan struct{}{make(chan struct{}), make(chan struct{})}
	values := []string{"A", "B"}
	var calls int32
	q := Query{Key: key, Fetch: func(ctx context.Context) (any, error) {
		i := atomic.AddInt32(&calls, 1) - 1
		<-gates[i]
		return values[i], nil
	}}

	chA := c.Ensure(q)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, waitFor, tick)
	chB := c.Refetch(key)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, waitFor, tick)

	close(gates[1])
	rB := receive(t, chB)
	require.NoError(t, rB.Err)
	assert.Equal(t, "B", rB.Entry.Value)

	close(gates[0])
	rA := receive(t, chA)
	assert.Equal(t, "B", rA.Entry.Value, "late response must not overwrite the newer value")

	e, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "B", e.Value)
}

func TestFetch_IssueFixesSequenceAndFetcher(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), nil)
	key := NewKey("plan", "current")
	release := make(chan struct{})
	var aCalls, bCalls int32
	qA := Query{Key: key, Fetch: func(ctx context.Context) (any, error) {
		atomic.AddInt32(&aCalls, 1)
		<-release
		return "A", nil
	}}
	qB := Query{Key: key, Fetch: func(ctx context.Context) (any, error) {
		atomic.AddInt32(&bCalls, 1)
		return "B", nil
	}}

	chA := c.Ensure(qA)
	e, ok := c.Get(key)
	require.True(t, ok)
	assert.True(t, e.Fetching, "the fetch is issued before Ensure returns")
	assert.Equal(t, StatusLoading, e.Status)

	// joins the in-flight fetch; its fetcher is only recorded for later fetches
	chJoin := c.Ensure(qB)
	close(release)

	assert.Equal(t, "A", receive(t, chA).Entry.Value)
	assert.Equal(t, "A", receive(t, chJoin).Entry.Value)
	assert.Equal(t, int32(1), atomic.LoadInt32(&aCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&bCalls))

	r := receive(t, c.Refetch(key))
	require.NoError(t, r.Err)
	assert.Equal(t, "B", r.Entry.Value)
}

func TestFetch_FailedRevalidationServesCachedValue(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), func(o *Options) { o.ReadRetry = NoRetry })
	key := NewKey("plan", "current")
	gates := []chan struct{}{make(chan struct{}), make(chan struct{})}
	var calls int32
	q := Query{Key: key, Fetch: func(ctx context.Context) (any, error) {
		i := atomic.AddInt32(&calls, 1) - 1
		<-gates[i]
		if i == 0 {
			return "free", nil
		}
		return nil, fault.FromStatus(http.StatusBadGateway, "GET /billing/plan", nil)
	}}

	first := c.Ensure(q)
	second := c.Refetch(key)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, waitFor, tick)

	type outcome struct {
		plan string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		plan, err := Fetch[string](context.Background(), c, q)
		done <- outcome{plan, err}
	}()
	// let Fetch join the second flight before either settles
	time.Sleep(20 * time.Millisecond)

	close(gates[0])
	require.NoError(t, receive(t, first).Err)
	close(gates[1])
	require.Error(t, receive(t, second).Err)

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.Equal(t, "free", got.plan)
	case <-time.After(waitFor):
		t.Fatal("Fetch did not return")
	}
	e, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, StatusError, e.Status)
	require.NotNil(t, e.Error)
	assert.Equal(t, fault.ClassTransient, e.Error.Class)
}

func TestEnsure_ReadDoesNotRetryTerminalErrors(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized} {
		c := newTestClient(t, clockwork.NewRealClock(), nil)
		var calls int32
		q := Query{Key: NewKey("plan", "current"), Fetch: func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			return nil, fault.FromStatus(status, "GET /billing/plan", nil)
		}}

		r := receive(t, c.Ensure(q))
		require.Error(t, r.Err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		require.NotNil(t, r.Entry.Error)
		assert.Equal(t, fault.ClassForStatus(status), r.Entry.Error.Class)
		assert.Equal(t, StatusError, r.Entry.Status)
		assert.Equal(t, 1, r.Entry.Error.FailureCount)
	}
}

func TestEnsure_ReadRetriesTransientErrors(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), nil)
	var calls int32
	q := Query{Key: NewKey("cities", "SP"), Fetch: func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, fault.FromStatus(http.StatusBadGateway, "GET /cities", nil)
		}
		return []string{"Campinas"}, nil
	}}

	r := receive(t, c.Ensure(q))
	require.NoError(t, r.Err)
	assert.Equal(t, []string{"Campinas"}, r.Entry.Value)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEnsure_ReadGivesUpAfterThreeRetries(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), nil)
	var calls int32
	q := Query{Key: NewKey("usage", "current"), Fetch: func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("connection reset")
	}}

	r := receive(t, c.Ensure(q))
	require.Error(t, r.Err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	require.NotNil(t, r.Entry.Error)
	assert.Equal(t, fault.ClassTransient, r.Entry.Error.Class)
	assert.Equal(t, 4, r.Entry.Error.FailureCount)
}

func TestEnsure_ErrorKeepsPreviousValue(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestClient(t, clock, func(o *Options) { o.ReadRetry = NoRetry })
	key := NewKey("limits", "current")
	var fail atomic.Bool
	q := Query{Key: key, Fetch: func(ctx context.Context) (any, error) {
		if fail.Load() {
			return nil, errors.New("offline")
		}
		return 10, nil
	}}

	require.NoError(t, receive(t, c.Ensure(q)).Err)
	fail.Store(true)
	r := receive(t, c.Refetch(key))

	require.Error(t, r.Err)
	assert.True(t, r.Entry.HasValue)
	assert.Equal(t, 10, r.Entry.Value)
	assert.Equal(t, StatusError, r.Entry.Status)
}

func TestFetch_Typed(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), nil)
	var calls int32
	q := staticQuery(NewKey("categories", "all"), &calls, []string{"cleaning", "moving"})

	got, err := Fetch[[]string](context.Background(), c, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"cleaning", "moving"}, got)

	_, err = Fetch[int](context.Background(), c, q)
	assert.True(t, fault.Is(err, fault.ClassStructural))
}

func TestFetch_CallerCancellationDoesNotCancelSharedFetch(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), nil)
	key := NewKey("plan", "current")
	release := make(chan struct{})
	q := Query{Key: key, Fetch: func(ctx context.Context) (any, error) {
		<-release
		return "pro", ctx.Err()
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fetch[string](ctx, c, q)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.Eventually(t, func() bool {
		e, ok := c.Get(key)
		return ok && e.Status == StatusSuccess && e.Value == "pro"
	}, waitFor, tick)
}

func TestEnsure_PanickingFetcherBecomesEntryError(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), func(o *Options) { o.ReadRetry = NoRetry })
	q := Query{Key: NewKey("earnings", "month"), Fetch: func(ctx context.Context) (any, error) {
		panic("boom")
	}}

	r := receive(t, c.Ensure(q))
	require.Error(t, r.Err)
	assert.Equal(t, StatusError, r.Entry.Status)
}

func TestMutate_WritePolicy(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), nil)

	var badCalls int32
	_, err := c.Mutate(context.Background(), Mutation{Name: "plan.change", Do: func(ctx context.Context) (any, error) {
		atomic.AddInt32(&badCalls, 1)
		return nil, fault.FromStatus(http.StatusBadRequest, "POST /billing/plan", nil)
	}})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&badCalls))

	var flakyCalls int32
	_, err = c.Mutate(context.Background(), Mutation{Name: "plan.change", Do: func(ctx context.Context) (any, error) {
		atomic.AddInt32(&flakyCalls, 1)
		return nil, fault.FromStatus(http.StatusServiceUnavailable, "POST /billing/plan", nil)
	}})
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&flakyCalls), "one attempt plus two retries")

	_, err = c.Mutate(context.Background(), Mutation{})
	assert.ErrorIs(t, err, ErrNoMutation)
}

func TestMutate_InvalidatesAndRefetchesSubscribedKeys(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), nil)
	key := NewKey("plan", "current")
	var calls int32
	q := Query{Key: key, Fetch: func(ctx context.Context) (any, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}}
	unsub := c.Watch(q, func(Entry) {})
	defer unsub()
	require.Eventually(t, func() bool {
		e, ok := c.Get(key)
		return ok && e.Value == 1
	}, waitFor, tick)

	v, err := c.Mutate(context.Background(), Mutation{
		Name:        "plan.change",
		Do:          func(ctx context.Context) (any, error) { return "ok", nil },
		Invalidates: []Key{key},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Eventually(t, func() bool {
		e, ok := c.Get(key)
		return ok && e.Value == 2 && !e.Invalidated
	}, waitFor, tick)
}

func TestInvalidate_UnsubscribedEntryRefetchesOnNextEnsure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestClient(t, clock, nil)
	key := NewKey("cities", "RJ")
	var calls int32
	q := staticQuery(key, &calls, "rio")

	require.NoError(t, receive(t, c.Ensure(q)).Err)
	c.Invalidate(key)
	e, _ := c.Get(key)
	assert.True(t, e.Invalidated)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	r := receive(t, c.Ensure(q))
	assert.Equal(t, "rio", r.Entry.Value)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, waitFor, tick)
}

func TestInvalidateResource(t *testing.T) {
	c := newTestClient(t, clockwork.NewFakeClock(), nil)
	var calls int32
	for _, state := range []string{"SP", "RJ"} {
		require.NoError(t, receive(t, c.Ensure(staticQuery(NewKey("cities", state), &calls, state))).Err)
	}
	require.NoError(t, receive(t, c.Ensure(staticQuery(NewKey("plan", "current"), &calls, "free"))).Err)

	c.InvalidateResource("cities")

	sp, _ := c.Get(NewKey("cities", "SP"))
	rj, _ := c.Get(NewKey("cities", "RJ"))
	plan, _ := c.Get(NewKey("plan", "current"))
	assert.True(t, sp.Invalidated)
	assert.True(t, rj.Invalidated)
	assert.False(t, plan.Invalidated)
}

func TestGC_EvictsAfterWindowWithoutSubscribers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestClient(t, clock, nil)
	key := NewKey("categories", "all")
	var calls int32

	require.NoError(t, receive(t, c.Ensure(staticQuery(key, &calls, "x"))).Err)

	clock.Advance(DefaultStaleTime)
	e, ok := c.Get(key)
	require.True(t, ok, "entry must survive past its stale point")
	assert.True(t, e.IsStale(clock.Now()))
	assert.GreaterOrEqual(t, e.ExpireAfter, e.StaleAfter)

	clock.Advance(DefaultGCTime - DefaultStaleTime)
	assert.Eventually(t, func() bool {
		_, ok := c.Get(key)
		return !ok
	}, waitFor, tick)
}

func TestGC_ResubscribingCancelsEviction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestClient(t, clock, nil)
	key := NewKey("plan", "current")
	var calls int32
	q := staticQuery(key, &calls, "free")

	unsub := c.Watch(q, func(Entry) {})
	require.Eventually(t, func() bool {
		e, ok := c.Get(key)
		return ok && e.Status == StatusSuccess
	}, waitFor, tick)
	unsub()

	clock.Advance(DefaultGCTime - time.Minute)
	unsub = c.Subscribe(key, func(Entry) {})
	clock.Advance(2 * time.Minute)
	_, ok := c.Get(key)
	assert.True(t, ok, "re-subscription cancels the pending eviction")

	unsub()
	clock.Advance(DefaultGCTime)
	assert.Eventually(t, func() bool {
		_, ok := c.Get(key)
		return !ok
	}, waitFor, tick)
}

func TestSubscribe_UnsubscribeKeepsSharedFetchAlive(t *testing.T) {
	c := newTestClient(t, clockwork.NewRealClock(), nil)
	key := NewKey("usage", "current")
	release := make(chan struct{})
	var calls int32
	q := Query{Key: key, Fetch: func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 7, nil
	}}

	var got atomic.Value
	unsubA := c.Watch(q, func(Entry) {})
	unsubB := c.Watch(q, func(e Entry) {
		if e.Status == StatusSuccess {
			got.Store(e.Value)
		}
	})
	defer unsubB()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, waitFor, tick)

	unsubA()
	close(release)

	assert.Eventually(t, func() bool { return got.Load() == 7 }, waitFor, tick)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWatch_RefetchOnMount(t *testing.T) {
	clock := clockwork.NewFakeClock()
	key := NewKey("plan", "current")

	for _, tc := range []struct {
		name      string
		onMount   bool
		wantCalls int32
	}{
		{name: "enabled", onMount: true, wantCalls: 2},
		{name: "disabled", onMount: false, wantCalls: 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, clock, func(o *Options) { o.RefetchOnMount = tc.onMount })
			var calls int32
			q := staticQuery(key, &calls, "pro")
			require.NoError(t, receive(t, c.Ensure(q)).Err)
			clock.Advance(DefaultStaleTime + time.Second)

			unsub := c.Watch(q, func(Entry) {})
			defer unsub()
			assert.Eventually(t, func() bool {
				e, _ := c.Get(key)
				return atomic.LoadInt32(&calls) == tc.wantCalls && !e.Fetching
			}, waitFor, tick)
		})
	}
}

func TestFocusAndReconnect(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newTestClient(t, clock, nil)
	key := NewKey("usage", "current")
	var calls int32
	unsub := c.Watch(staticQuery(key, &calls, 1), func(Entry) {})
	defer unsub()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, waitFor, tick)

	clock.Advance(DefaultStaleTime + time.Second)
	c.Focus()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "refetch on focus is off by default")

	c.Reconnect()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, waitFor, tick)
}

func TestOptions_GCWindowNeverBelowStaleWindow(t *testing.T) {
	c := newTestClient(t, clockwork.NewFakeClock(), func(o *Options) {
		o.StaleTime = 20 * time.Minute
		o.GCTime = 5 * time.Minute
	})
	var calls int32
	r := receive(t, c.Ensure(staticQuery(NewKey("cities", "MG"), &calls, "bh")))
	assert.Equal(t, 20*time.Minute, r.Entry.StaleAfter)
	assert.GreaterOrEqual(t, r.Entry.ExpireAfter, r.Entry.StaleAfter)

	static := staticQuery(NewKey("cities", "BA"), &calls, "ssa")
	static.StaleTime, static.GCTime = StaticStaleTime, time.Minute
	r = receive(t, c.Ensure(static))
	assert.Equal(t, StaticStaleTime, r.Entry.StaleAfter)
	assert.Equal(t, StaticStaleTime, r.Entry.ExpireAfter)
}

func TestDispose(t *testing.T) {
	c := newTestClient(t, clockwork.NewFakeClock(), nil)
	var calls int32
	q := staticQuery(NewKey("plan", "current"), &calls, "free")
	require.NoError(t, receive(t, c.Ensure(q)).Err)

	c.Dispose()
	_, ok := c.Get(q.Key)
	assert.False(t, ok)
	assert.ErrorIs(t, receive(t, c.Ensure(q)).Err, ErrDisposed)
	assert.ErrorIs(t, receive(t, c.Refetch(q.Key)).Err, ErrDisposed)
}

func TestRefetch_UnknownKey(t *testing.T) {
	c := newTestClient(t, clockwork.NewFakeClock(), nil)
	assert.ErrorIs(t, receive(t, c.Refetch(NewKey("nope"))).Err, ErrNoFetcher)
}

func TestDefaultLifecycle(t *testing.T) {
	first := Init(Options{Clock: clockwork.NewFakeClock()})
	assert.Same(t, first, Default())

	second := Init(Options{Clock: clockwork.NewFakeClock()})
	assert.Same(t, second, Default())
	assert.ErrorIs(t, receive(t, first.Refetch(NewKey("x"))).Err, ErrDisposed)

	Shutdown()
	assert.Nil(t, Default())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "plan/current", NewKey("plan", "current").String())
	assert.Equal(t, "categories", NewKey("categories").String())
	assert.Equal(t, "cities", NewKey("cities", "SP").Resource())
	assert.Equal(t, NewKey("cities", "SP"), NewKey("cities", "SP"))
}
