package internal

// frame accumulates the tags read while it is the innermost frame.
type frame struct {
	recording bool

	tags []*Tag
	seen map[*Tag]struct{}
}

func (f *frame) add(tag *Tag) {
	if _, ok := f.seen[tag]; ok {
		return
	}

	f.seen[tag] = struct{}{}
	f.tags = append(f.tags, tag)
}

// Tracker is the autotracking frame stack of one runtime.
// Frames are strictly nested: a frame is only ever popped by the call that pushed it.
type Tracker struct {
	frames []*frame
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Track runs fn inside a fresh frame and returns the tags it read, in first-read order.
// The frame is popped even if fn panics.
func (t *Tracker) Track(fn func() error) ([]*Tag, error) {
	f := &frame{recording: true, seen: make(map[*Tag]struct{})}

	t.frames = append(t.frames, f)
	defer t.pop(f)

	err := fn()
	return f.tags, err
}

// RunUntracked runs fn so that none of its reads reach the enclosing frame.
func (t *Tracker) RunUntracked(fn func()) {
	f := &frame{recording: false}

	t.frames = append(t.frames, f)
	defer t.pop(f)

	fn()
}

// Consume records tag as a dependency of the innermost frame, if it is recording.
func (t *Tracker) Consume(tag *Tag) {
	if len(t.frames) == 0 {
		return
	}

	if f := t.frames[len(t.frames)-1]; f.recording {
		f.add(tag)
	}
}

// IsTracking reports whether a read right now would be recorded.
func (t *Tracker) IsTracking() bool {
	return len(t.frames) > 0 && t.frames[len(t.frames)-1].recording
}

func (t *Tracker) Depth() int {
	return len(t.frames)
}

func (t *Tracker) pop(f *frame) {
	top := len(t.frames) - 1
	if top < 0 || t.frames[top] != f {
		panic("reactor: tracking frames popped out of order")
	}

	t.frames[top] = nil
	t.frames = t.frames[:top]
}
