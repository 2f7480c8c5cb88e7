// Package toast keeps the queue of transient user-facing messages. Each toast
// removes itself after its duration unless dismissed first.
package toast

import (
	"container/list"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const DefaultDuration = 5 * time.Second

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSuccess     Variant = "success"
	VariantDestructive Variant = "destructive"
)

// Options describes a toast to show. Zero Duration uses the notifier default.
type Options struct {
	Title       string
	Description string
	Variant     Variant
	Duration    time.Duration
}

// Toast is a visible message.
type Toast struct {
	ID          string
	Title       string
	Description string
	Variant     Variant
	Duration    time.Duration
	CreatedAt   time.Time
}

// Config tunes a Notifier. Limit <= 0 keeps every toast.
type Config struct {
	DefaultDuration time.Duration
	Limit           int
}

type item struct {
	toast Toast
	elem  *list.Element
	timer clockwork.Timer
}

// Notifier is an in-memory toast queue in insertion order. Expiry timers are
// indexed by id so Dismiss cancels in constant time.
type Notifier struct {
	clock    clockwork.Clock
	duration time.Duration
	limit    int
	logger   *logrus.Logger

	mu        sync.Mutex
	order     *list.List
	items     map[string]*item
	listeners map[uint64]func([]Toast)
	nextID    uint64
}

// New creates a Notifier. A nil clock uses the real clock.
func New(clock clockwork.Clock, cfg Config, logger *logrus.Logger) *Notifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = DefaultDuration
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Notifier{
		clock:     clock,
		duration:  cfg.DefaultDuration,
		limit:     cfg.Limit,
		logger:    logger,
		order:     list.New(),
		items:     make(map[string]*item),
		listeners: make(map[uint64]func([]Toast)),
	}
}

// Show queues a toast and schedules its removal. It returns the toast id.
func (n *Notifier) Show(opts Options) string {
	t := Toast{
		ID:          uuid.NewString(),
		Title:       opts.Title,
		Description: opts.Description,
		Variant:     opts.Variant,
		Duration:    opts.Duration,
		CreatedAt:   n.clock.Now(),
	}
	if t.Variant == "" {
		t.Variant = VariantDefault
	}
	if t.Duration <= 0 {
		t.Duration = n.duration
	}

	n.mu.Lock()
	it := &item{toast: t}
	it.elem = n.order.PushBack(it)
	n.items[t.ID] = it
	id := t.ID
	it.timer = n.clock.AfterFunc(t.Duration, func() { n.expire(id) })
	for n.limit > 0 && n.order.Len() > n.limit {
		oldest := n.order.Front().Value.(*item)
		n.removeLocked(oldest)
	}
	snap, listeners := n.snapshotLocked(), n.listenerList()
	n.mu.Unlock()

	n.logger.WithFields(logrus.Fields{"id": id, "variant": t.Variant, "duration": t.Duration}).Debug("toast: shown")
	notify(listeners, snap)
	return id
}

// Dismiss removes a toast before its expiry. It reports whether the toast was
// still visible.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	it, ok := n.items[id]
	if !ok {
		n.mu.Unlock()
		return false
	}
	n.removeLocked(it)
	snap, listeners := n.snapshotLocked(), n.listenerList()
	n.mu.Unlock()

	notify(listeners, snap)
	return true
}

// Clear removes every toast.
func (n *Notifier) Clear() {
	n.mu.Lock()
	for _, it := range n.items {
		n.removeLocked(it)
	}
	listeners := n.listenerList()
	n.mu.Unlock()

	notify(listeners, nil)
}

// List returns the visible toasts, oldest first.
func (n *Notifier) List() []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snapshotLocked()
}

// Subscribe registers fn for queue changes.
func (n *Notifier) Subscribe(fn func([]Toast)) (unsubscribe func()) {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.listeners[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

func (n *Notifier) expire(id string) {
	n.mu.Lock()
	it, ok := n.items[id]
	if !ok {
		n.mu.Unlock()
		return
	}
	n.removeLocked(it)
	snap, listeners := n.snapshotLocked(), n.listenerList()
	n.mu.Unlock()

	n.logger.WithField("id", id).Debug("toast: expired")
	notify(listeners, snap)
}

func (n *Notifier) removeLocked(it *item) {
	if it.timer != nil {
		it.timer.Stop()
	}
	n.order.Remove(it.elem)
	delete(n.items, it.toast.ID)
}

func (n *Notifier) snapshotLocked() []Toast {
	if n.order.Len() == 0 {
		return nil
	}
	out := make([]Toast, 0, n.order.Len())
	for e := n.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*item).toast)
	}
	return out
}

func (n *Notifier) listenerList() []func([]Toast) {
	out := make([]func([]Toast), 0, len(n.listeners))
	for _, l := range n.listeners {
		out = append(out, l)
	}
	return out
}

func notify(listeners []func([]Toast), snap []Toast) {
	for _, l := range listeners {
		l(snap)
	}
}
