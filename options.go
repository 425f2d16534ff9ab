package reactor

import (
	"log/slog"

	"github.com/AnatoleLucet/reactor/internal"
)

// Option configures a cell, formula, marker or resource.
type Option func(*options)

type options struct {
	description string
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Describe sets the description reported by the value's tag.
// Without it a description like "cell#12" is generated.
func Describe(description string) Option {
	return func(o *options) {
		o.description = description
	}
}

// RuntimeOption configures the runtime of the calling goroutine, see Configure.
type RuntimeOption = internal.RuntimeOption

type (
	Scheduler       = internal.Scheduler
	SchedulerFunc   = internal.SchedulerFunc
	SyncScheduler   = internal.SyncScheduler
	ManualScheduler = internal.ManualScheduler
)

// NewManualScheduler returns a scheduler that only flushes when its Run method is called.
func NewManualScheduler() *ManualScheduler {
	return internal.NewManualScheduler()
}

type (
	Observer     = internal.Observer
	ObserverFunc = internal.ObserverFunc
	Observers    = internal.Observers
	Event        = internal.Event
	EventKind    = internal.EventKind
)

const (
	EventWrite    = internal.EventWrite
	EventMark     = internal.EventMark
	EventCompute  = internal.EventCompute
	EventSetup    = internal.EventSetup
	EventCleanup  = internal.EventCleanup
	EventFinalize = internal.EventFinalize
	EventNotify   = internal.EventNotify
	EventFlush    = internal.EventFlush
)

// WithLogger sets the logger used for debug traces and swallowed failures.
// The default is slog.Default().
func WithLogger(logger *slog.Logger) RuntimeOption {
	return internal.WithLogger(logger)
}

// WithObserver adds an observer notified of every write, computation, setup,
// cleanup, finalization, notification and flush.
func WithObserver(o Observer) RuntimeOption {
	return internal.WithObserver(o)
}

// WithScheduler sets when subscription notifications are flushed.
// By default they wait for the host to call Flush, the way a micro-task queue
// waits for the current task to end, so every write made in between is
// coalesced into one notification per subscription. SyncScheduler flushes at
// the end of the outermost batch instead. A host with an event loop passes a
// SchedulerFunc that queues the flush on it.
func WithScheduler(s Scheduler) RuntimeOption {
	return internal.WithScheduler(s)
}

// Configure applies opts to the runtime of the calling goroutine.
func Configure(opts ...RuntimeOption) {
	internal.GetRuntime().Configure(opts...)
}

// Release drops the runtime of the calling goroutine.
// Values created by it keep working, but new ones get a fresh runtime.
func Release() {
	internal.ReleaseRuntime()
}
