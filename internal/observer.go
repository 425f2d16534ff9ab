package internal

type EventKind uint8

const (
	EventWrite EventKind = iota + 1
	EventMark
	EventCompute
	EventSetup
	EventCleanup
	EventFinalize
	EventNotify
	EventFlush
)

func (k EventKind) String() string {
	switch k {
	case EventWrite:
		return "write"
	case EventMark:
		return "mark"
	case EventCompute:
		return "compute"
	case EventSetup:
		return "setup"
	case EventCleanup:
		return "cleanup"
	case EventFinalize:
		return "finalize"
	case EventNotify:
		return "notify"
	case EventFlush:
		return "flush"
	default:
		return "unknown"
	}
}

// Event describes one unit of work done by the runtime.
type Event struct {
	Kind        EventKind
	Description string
	Timestamp   Timestamp
}

// Observer is told when the runtime starts a unit of work.
// The returned function is called once the work is done, with its error if any.
// Events nest: an Event begun while another is open finishes before it.
type Observer interface {
	Begin(ev Event) func(err error)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event) func(err error)

func (f ObserverFunc) Begin(ev Event) func(err error) {
	return f(ev)
}

// Observers fans every event out to each observer, in order.
type Observers []Observer

func (o Observers) Begin(ev Event) func(err error) {
	ends := make([]func(error), 0, len(o))
	for _, obs := range o {
		if obs != nil {
			ends = append(ends, obs.Begin(ev))
		}
	}

	return func(err error) {
		for i := len(ends) - 1; i >= 0; i-- {
			if ends[i] != nil {
				ends[i](err)
			}
		}
	}
}

func noopEnd(error) {}

func (r *Runtime) observe(ev Event) func(error) {
	if r.observer == nil {
		return noopEnd
	}

	if ev.Timestamp == 0 {
		ev.Timestamp = r.clock.Now()
	}

	if end := r.observer.Begin(ev); end != nil {
		return end
	}
	return noopEnd
}
