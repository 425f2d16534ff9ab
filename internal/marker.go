package internal

// Marker is a valueless dependency: reading it is Consume, writing it is Mark.
type Marker struct {
	rt  *Runtime
	tag *Tag
}

func (r *Runtime) NewMarker(description string) *Marker {
	return &Marker{
		rt:  r,
		tag: NewCellTag(description, r.clock.Now()),
	}
}

func (m *Marker) Tag() *Tag { return m.tag }

// Consume records the marker as a dependency of the active frame.
func (m *Marker) Consume() {
	m.rt.tracker.Consume(m.tag)
}

// Mark invalidates everything that consumed the marker.
func (m *Marker) Mark() {
	end := m.rt.observe(Event{Kind: EventMark, Description: m.tag.Description()})
	defer end(nil)

	m.rt.Batch(func() {
		m.tag.bump(m.rt.clock.Bump())
		m.tag.notifySubscribers()
	})
}
