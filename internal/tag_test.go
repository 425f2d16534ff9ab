package internal

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTag(t *testing.T) {
	t.Run("static tags are never stale", func(t *testing.T) {
		tag := NewStaticTag("config")

		assert.False(t, tag.IsUpdatedSince(0))
		assert.Equal(t, "config", tag.Description())
	})

	t.Run("cell tags compare their last update", func(t *testing.T) {
		tag := NewCellTag("count", 5)

		assert.True(t, tag.IsUpdatedSince(4))
		assert.False(t, tag.IsUpdatedSince(5))
		assert.False(t, tag.IsUpdatedSince(6))
	})

	t.Run("formula tags are stale when a child is", func(t *testing.T) {
		a := NewCellTag("a", 2)
		b := NewCellTag("b", 8)
		f := NewFormulaTag("sum")
		f.setChildren([]*Tag{a, b})

		assert.True(t, f.IsUpdatedSince(7))
		assert.False(t, f.IsUpdatedSince(8))
		assert.Equal(t, Timestamp(8), f.LastUpdated())
	})

	t.Run("delegates forward everything", func(t *testing.T) {
		cell := NewCellTag("inner", 3)
		d := NewDelegateTag(cell)

		assert.Equal(t, KindDelegate, d.Kind())
		assert.Equal(t, "inner", d.Description())
		assert.True(t, d.IsUpdatedSince(2))

		cell.bump(10)
		assert.True(t, d.IsUpdatedSince(9))
		assert.Same(t, cell, d.Target())
	})

	t.Run("generates a description", func(t *testing.T) {
		tag := NewFormulaTag("")

		assert.Regexp(t, `^formula#\d+$`, tag.Description())
	})

	t.Run("shared sub-graphs are visited once", func(t *testing.T) {
		leaf := NewCellTag("leaf", 1)
		left := NewFormulaTag("left")
		right := NewFormulaTag("right")
		left.setChildren([]*Tag{leaf})
		right.setChildren([]*Tag{leaf})

		top := NewFormulaTag("top")
		top.setChildren([]*Tag{left, NewDelegateTag(right), right})

		assert.Equal(t, []*Tag{leaf}, slices.Collect(top.Leaves()))
		assert.False(t, top.IsUpdatedSince(1))
	})

	t.Run("terminates on self references", func(t *testing.T) {
		leaf := NewCellTag("leaf", 4)
		f := NewFormulaTag("self")
		f.setChildren([]*Tag{f, leaf})

		assert.True(t, f.IsUpdatedSince(3))
		assert.False(t, f.IsUpdatedSince(4))
		assert.Len(t, slices.Collect(f.Leaves()), 1)
	})
}

func TestClock(t *testing.T) {
	c := NewClock()
	start := c.Now()

	next := c.Bump()
	assert.True(t, next.Gt(start))
	assert.True(t, c.Now().Eq(next))
	assert.Equal(t, "@2", next.String())
}

func TestTracker(t *testing.T) {
	t.Run("records reads of the innermost frame", func(t *testing.T) {
		tr := NewTracker()
		a, b := NewCellTag("a", 1), NewCellTag("b", 1)

		var inner []*Tag
		outer, err := tr.Track(func() error {
			tr.Consume(a)
			inner, _ = tr.Track(func() error {
				tr.Consume(b)
				return nil
			})
			tr.Consume(a)
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, []*Tag{a}, outer)
		assert.Equal(t, []*Tag{b}, inner)
		assert.Equal(t, 0, tr.Depth())
	})

	t.Run("untracked frames record nothing", func(t *testing.T) {
		tr := NewTracker()
		a := NewCellTag("a", 1)

		tags, _ := tr.Track(func() error {
			tr.RunUntracked(func() {
				assert.False(t, tr.IsTracking())
				tr.Consume(a)
			})
			return nil
		})

		assert.Empty(t, tags)
	})

	t.Run("pops frames on panic", func(t *testing.T) {
		tr := NewTracker()

		assert.Panics(t, func() {
			tr.Track(func() error { panic("boom") })
		})
		assert.Equal(t, 0, tr.Depth())
	})
}
