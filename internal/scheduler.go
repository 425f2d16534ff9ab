package internal

// Scheduler decides when a requested flush actually runs.
// Schedule is called at most once between two flushes.
type Scheduler interface {
	Schedule(flush func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(flush func())

func (f SchedulerFunc) Schedule(flush func()) {
	f(flush)
}

// SyncScheduler flushes as soon as the outermost batch completes.
// A write outside of any batch is a batch of its own.
type SyncScheduler struct{}

func (SyncScheduler) Schedule(flush func()) {
	flush()
}

// ManualScheduler holds requested flushes until the host calls Run.
// It plays the role of a micro-task queue for hosts that have an event loop.
type ManualScheduler struct {
	pending func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Schedule(flush func()) {
	s.pending = flush
}

// Pending reports whether a flush is waiting.
func (s *ManualScheduler) Pending() bool {
	return s.pending != nil
}

// Run runs the waiting flush, if any, and reports whether there was one.
func (s *ManualScheduler) Run() bool {
	flush := s.pending
	if flush == nil {
		return false
	}

	s.pending = nil
	flush()
	return true
}
