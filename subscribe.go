package reactor

import "github.com/AnatoleLucet/reactor/internal"

// Subscription follows a reactive value on behalf of an outside consumer,
// typically a renderer.
type Subscription[T any] struct {
	sub    *internal.Subscription
	source Reactive[T]

	value T
}

// Subscribe reads r once and calls onStale, from a flush, each time something
// r depends on is written. onStale usually calls Poll, or arranges for it to be called.
func Subscribe[T any](r Reactive[T], onStale func()) (*Subscription[T], error) {
	rt := internal.GetRuntime()

	seenAt := rt.Now()
	value, err := readUntracked(r)
	if err != nil && !isCleanupError(err) {
		return nil, err
	}

	// the tag's leaves are only known once r has been read
	s := &Subscription[T]{
		sub:    rt.Subscribe(r.Tag(), onStale),
		source: r,
		value:  value,
	}
	s.sub.Seen(seenAt)

	return s, nil
}

// Poll revalidates the value now and reports whether it changed since the last poll.
// Values equal under DefaultEquals are not reported as changed.
// On failure the last good value is returned.
func (s *Subscription[T]) Poll() (T, bool, error) {
	if !s.sub.IsActive() {
		return s.value, false, nil
	}

	stale := s.sub.IsStale()
	seenAt := internal.GetRuntime().Now()

	value, err := readUntracked(s.source)
	if err != nil && !isCleanupError(err) {
		return s.value, false, err
	}

	// dependencies may differ after a recomputation
	s.sub.Resubscribe()
	s.sub.Seen(seenAt)

	changed := stale && !DefaultEquals(any(s.value), any(value))
	s.value = value

	return value, changed, err
}

// Value returns the value seen by the last poll.
func (s *Subscription[T]) Value() T {
	return s.value
}

// Unsubscribe stops notifications. It is safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.sub.Unsubscribe()
}

// Watch calls onStale, from a flush, each time something t depends on is written.
// Unlike Subscribe it does not follow dependency changes of t after the call.
func Watch(t Tagged, onStale func()) (unsubscribe func()) {
	sub := internal.GetRuntime().Subscribe(t.Tag(), onStale)
	return sub.Unsubscribe
}

func readUntracked[T any](r Reactive[T]) (value T, err error) {
	Untrack(func() struct{} {
		value, err = r.Read()
		return struct{}{}
	})
	return value, err
}

func isCleanupError(err error) bool {
	return IsCleanupOnly(err)
}
