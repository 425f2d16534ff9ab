package internal

// Subscription calls onStale, from a flush, whenever a cell or marker the
// watched tag depends on is written. It is registered on the leaves of the
// tag, so it has to be refreshed with Resubscribe when the tag's dependencies change.
type Subscription struct {
	rt  *Runtime
	id  uint64
	tag *Tag

	onStale func()
	leaves  []*Tag

	seenAt Timestamp
	queued bool
	active bool
}

func (r *Runtime) Subscribe(tag *Tag, onStale func()) *Subscription {
	r.subscriptionIDs++

	s := &Subscription{
		rt:      r,
		id:      r.subscriptionIDs,
		tag:     tag,
		onStale: onStale,
		seenAt:  r.clock.Now(),
		active:  true,
	}
	s.Resubscribe()

	return s
}

func (s *Subscription) ID() uint64 { return s.id }

func (s *Subscription) Tag() *Tag { return s.tag }

// Resubscribe registers the subscription on the current leaves of its tag.
func (s *Subscription) Resubscribe() {
	if !s.active {
		return
	}

	for _, leaf := range s.leaves {
		leaf.removeSubscriber(s)
	}

	s.leaves = s.leaves[:0]
	for leaf := range s.tag.Leaves() {
		leaf.addSubscriber(s)
		s.leaves = append(s.leaves, leaf)
	}
}

// IsStale reports whether the tag changed since the subscription last saw it.
func (s *Subscription) IsStale() bool {
	return s.tag.IsUpdatedSince(s.seenAt)
}

// Seen records that the subscriber is up to date as of ts.
func (s *Subscription) Seen(ts Timestamp) {
	s.seenAt = ts
}

func (s *Subscription) IsActive() bool {
	return s.active
}

func (s *Subscription) Unsubscribe() {
	if !s.active {
		return
	}

	s.active = false
	for _, leaf := range s.leaves {
		leaf.removeSubscriber(s)
	}
	s.leaves = nil
}

func (s *Subscription) notify() {
	if !s.active || s.queued {
		return
	}

	s.queued = true
	s.rt.notifyQueue.Enqueue(s)
}

func (s *Subscription) fire() {
	s.queued = false
	if !s.active || s.onStale == nil {
		return
	}

	end := s.rt.observe(Event{Kind: EventNotify, Description: s.tag.Description()})
	defer end(nil)

	s.onStale()
}
