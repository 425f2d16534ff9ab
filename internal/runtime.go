package internal

import (
	"log/slog"
)

// Runtime holds the reactive state of one logical thread of control:
// its tracking frames, batches, lifetime graph and pending notifications.
// A Runtime must not be used from more than one goroutine at a time.
type Runtime struct {
	clock     *Clock
	tracker   *Tracker
	batcher   *Batcher
	lifetimes *lifetimeGraph

	scheduler    Scheduler
	notifyQueue  *NotifyQueue
	settledQueue *SettledQueue

	// run nodes of the resources currently being set up
	owners []any

	subscriptionIDs uint64

	scheduled bool
	flushing  bool

	logger   *slog.Logger
	observer Observer
}

type RuntimeOption func(*Runtime)

// WithLogger sets the logger used for debug traces and swallowed failures.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver adds an observer. Several observers are called in the order they were added.
func WithObserver(o Observer) RuntimeOption {
	return func(r *Runtime) {
		switch existing := r.observer.(type) {
		case nil:
			r.observer = o
		case Observers:
			r.observer = append(existing, o)
		default:
			r.observer = Observers{existing, o}
		}
	}
}

// WithScheduler sets when notification flushes run. The default is a
// ManualScheduler of the runtime's own, drained by Drain.
func WithScheduler(s Scheduler) RuntimeOption {
	return func(r *Runtime) {
		if s != nil {
			r.scheduler = s
		}
	}
}

// WithClock replaces the process clock, mostly for tests.
func WithClock(c *Clock) RuntimeOption {
	return func(r *Runtime) {
		if c != nil {
			r.clock = c
		}
	}
}

func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		clock:     ProcessClock(),
		tracker:   NewTracker(),
		lifetimes: newLifetimeGraph(),

		scheduler:    NewManualScheduler(),
		notifyQueue:  NewNotifyQueue(),
		settledQueue: NewSettledQueue(),

		logger: slog.Default(),
	}

	r.batcher = NewBatcher(r.requestFlush)

	r.Configure(opts...)
	return r
}

func (r *Runtime) Configure(opts ...RuntimeOption) {
	for _, opt := range opts {
		opt(r)
	}
}

func (r *Runtime) Clock() *Clock { return r.clock }

func (r *Runtime) Now() Timestamp { return r.clock.Now() }

func (r *Runtime) Logger() *slog.Logger { return r.logger }

// Untrack runs fn without recording any of its reads in the active frame.
func (r *Runtime) Untrack(fn func()) {
	r.tracker.RunUntracked(fn)
}

func (r *Runtime) IsTracking() bool {
	return r.tracker.IsTracking()
}

// OnSettled runs fn once, after the next flush that leaves no subscription pending.
func (r *Runtime) OnSettled(fn func()) {
	r.settledQueue.Enqueue(fn)
}

// Pending reports whether subscriptions are waiting for a flush.
func (r *Runtime) Pending() bool {
	return r.notifyQueue.Len() > 0
}

func (r *Runtime) requestFlush() {
	if r.batcher.IsBatching() || r.scheduled || r.flushing {
		return
	}

	if r.notifyQueue.Len() == 0 && r.settledQueue.Len() == 0 {
		return
	}

	r.scheduled = true
	r.scheduler.Schedule(r.Flush)
}

// Flush notifies every queued subscription once, in registration order.
// Subscriptions queued by the notified callbacks wait for the next flush.
func (r *Runtime) Flush() {
	if r.flushing {
		return
	}

	r.scheduled = false
	r.flushing = true

	pass := r.notifyQueue.Drain()
	end := r.observe(Event{Kind: EventFlush, Description: "flush"})

	next := 0
	defer func() {
		if rec := recover(); rec != nil {
			// the remaining subscriptions are not lost, they go to the next flush
			for _, s := range pass[next:] {
				s.queued = false
				s.notify()
			}
			r.flushing = false
			end(&PanicError{Value: rec})
			panic(rec)
		}
	}()

	for next < len(pass) {
		s := pass[next]
		next++
		s.fire()
	}

	r.flushing = false
	end(nil)

	r.logger.Debug("flushed", "notified", len(pass), "pending", r.notifyQueue.Len())

	// settled callbacks wait until a flush leaves nothing behind
	if r.notifyQueue.Len() > 0 {
		r.requestFlush()
		return
	}

	r.settledQueue.Run()
}

// Drain flushes until no subscription is pending, including the ones queued
// by the notified callbacks. Called from within a flush it does nothing.
func (r *Runtime) Drain() {
	r.Flush()
	for r.Pending() && !r.flushing {
		r.Flush()
	}
}

func (r *Runtime) pushOwner(owner any) {
	r.owners = append(r.owners, owner)
}

func (r *Runtime) popOwner(owner any) {
	top := len(r.owners) - 1
	if top < 0 || r.owners[top] != owner {
		panic("reactor: resource owners popped out of order")
	}

	r.owners[top] = nil
	r.owners = r.owners[:top]
}

func (r *Runtime) currentOwner() any {
	if len(r.owners) == 0 {
		return nil
	}
	return r.owners[len(r.owners)-1]
}
