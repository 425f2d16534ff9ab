package internal

import "reflect"

// EqualityFunc reports whether two cell values are interchangeable.
// Writing a value equal to the current one is a no-op.
type EqualityFunc func(a, b any) bool

type Cell struct {
	rt  *Runtime
	tag *Tag

	value  any
	equals EqualityFunc
}

func (r *Runtime) NewCell(initial any, description string, equals EqualityFunc) *Cell {
	if equals == nil {
		equals = DefaultEquals
	}

	return &Cell{
		rt:     r,
		tag:    NewCellTag(description, r.clock.Now()),
		value:  initial,
		equals: equals,
	}
}

func (c *Cell) Tag() *Tag { return c.tag }

// Read returns the value and records the cell as a dependency of the active frame.
func (c *Cell) Read() (any, error) {
	if c.rt.IsFinalized(c) {
		return nil, &UseAfterFinalizeError{Description: c.tag.Description()}
	}

	c.rt.tracker.Consume(c.tag)
	return c.value, nil
}

// Peek returns the value without recording a dependency.
func (c *Cell) Peek() any {
	return c.value
}

// Write replaces the value, stamps the tag with a fresh timestamp and queues
// every subscription watching it. Equal values are ignored.
func (c *Cell) Write(v any) error {
	if c.rt.IsFinalized(c) {
		return &UseAfterFinalizeError{Description: c.tag.Description()}
	}

	if c.equals(c.value, v) {
		return nil
	}

	end := c.rt.observe(Event{Kind: EventWrite, Description: c.tag.Description()})
	defer end(nil)

	c.rt.Batch(func() {
		c.value = v
		c.tag.bump(c.rt.clock.Bump())
		c.tag.notifySubscribers()
	})

	return nil
}

// DefaultEquals compares comparable scalars with == and everything else with reflect.DeepEqual.
func DefaultEquals(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case int32:
		bv, ok := b.(int32)
		return ok && av == bv
	case uint:
		bv, ok := b.(uint)
		return ok && av == bv
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case float32:
		bv, ok := b.(float32)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}

	return reflect.DeepEqual(a, b)
}

// SetEquals replaces the equality used to suppress writes. nil restores DefaultEquals.
func (c *Cell) SetEquals(equals EqualityFunc) {
	if equals == nil {
		equals = DefaultEquals
	}
	c.equals = equals
}
