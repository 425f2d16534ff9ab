package internal

import (
	"cmp"
	"slices"
)

// NotifyQueue holds the subscriptions waiting for the next flush.
type NotifyQueue struct {
	subs []*Subscription
}

func NewNotifyQueue() *NotifyQueue {
	return &NotifyQueue{
		subs: make([]*Subscription, 0),
	}
}

func (q *NotifyQueue) Enqueue(s *Subscription) {
	q.subs = append(q.subs, s)
}

func (q *NotifyQueue) Len() int {
	return len(q.subs)
}

// Drain empties the queue and returns its content in registration order.
func (q *NotifyQueue) Drain() []*Subscription {
	subs := q.subs
	q.subs = make([]*Subscription, 0)

	slices.SortFunc(subs, func(a, b *Subscription) int {
		return cmp.Compare(a.id, b.id)
	})

	return subs
}

type SettledQueue struct {
	callbacks []func()
}

func NewSettledQueue() *SettledQueue {
	return &SettledQueue{
		callbacks: make([]func(), 0),
	}
}

func (q *SettledQueue) Enqueue(fn func()) {
	q.callbacks = append(q.callbacks, fn)
}

func (q *SettledQueue) Len() int {
	return len(q.callbacks)
}

func (q *SettledQueue) Run() {
	callbacks := q.callbacks
	// callbacks enqueued while running wait for the next flush
	q.callbacks = make([]func(), 0)

	for _, cb := range callbacks {
		cb()
	}
}
