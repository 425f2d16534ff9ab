package internal

// Formula is a lazily evaluated, memoized derivation.
// Its tag is stable for its whole life; only the tag's children change.
type Formula struct {
	rt  *Runtime
	tag *Tag

	fn func() (any, error)

	value       any
	validAt     Timestamp
	initialized bool
	evaluating  bool

	// the last run failed; the next read retries
	failed bool
}

func (r *Runtime) NewFormula(fn func() (any, error), description string) *Formula {
	return &Formula{
		rt:  r,
		tag: NewFormulaTag(description),
		fn:  fn,
	}
}

func (f *Formula) Tag() *Tag { return f.tag }

// Read revalidates the formula if needed and records its tag in the active frame.
// The formula's own tag is recorded, never its children. A failed read is
// recorded too, so a reader that recovers from the error still depends on it.
func (f *Formula) Read() (any, error) {
	if f.evaluating {
		return nil, &CyclicDependencyError{Description: f.tag.Description()}
	}

	value, err := f.Value()
	f.rt.tracker.Consume(f.tag)

	if err != nil {
		return nil, err
	}
	return value, nil
}

// Value revalidates the formula if needed without recording a dependency.
func (f *Formula) Value() (any, error) {
	if f.evaluating {
		return nil, &CyclicDependencyError{Description: f.tag.Description()}
	}

	if _, err := f.revalidate(); err != nil {
		return nil, err
	}

	return f.value, nil
}

// IsStale reports whether the next read would call the function.
func (f *Formula) IsStale() bool {
	return !f.initialized || f.failed || f.tag.IsUpdatedSince(f.validAt)
}

// ValidAt returns the clock time the cached value was computed at.
func (f *Formula) ValidAt() Timestamp {
	return f.validAt
}

// revalidate recomputes the cache when a dependency changed since the last run.
// On failure the previous cache stays untouched.
func (f *Formula) revalidate() (bool, error) {
	if !f.IsStale() {
		return false, nil
	}

	// captured before running so writes made during the run still invalidate it
	validAt := f.rt.clock.Now()

	f.evaluating = true
	defer func() { f.evaluating = false }()

	var value any
	var err error

	end := f.rt.observe(Event{Kind: EventCompute, Description: f.tag.Description(), Timestamp: validAt})
	defer func() { end(err) }()

	children, err := f.rt.tracker.Track(func() (err error) {
		value, err = f.fn()
		return err
	})
	// what the failed run read is kept so dependents go stale when it changes
	f.tag.setChildren(children)

	if err != nil {
		f.failed = true
		f.rt.logger.Debug("formula failed", "formula", f.tag.Description(), "error", err)
		return false, err
	}

	f.value = value
	f.validAt = validAt
	f.initialized = true
	f.failed = false

	f.rt.logger.Debug("formula recomputed", "formula", f.tag.Description(), "deps", len(children), "at", validAt)
	return true, nil
}
