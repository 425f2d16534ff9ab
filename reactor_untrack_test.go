package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUntrack(t *testing.T) {
	t.Run("does not track reads", func(t *testing.T) {
		runs := 0

		count := NewCell(0)
		f := NewFormula(func() (int, error) {
			runs++
			return Untrack(count.Current), nil
		})

		assert.Equal(t, 0, f.Current())

		count.Set(10)
		assert.Equal(t, 0, f.Current())
		assert.Equal(t, 1, runs)
	})

	t.Run("peek does not track", func(t *testing.T) {
		count := NewCell(0)
		f := NewFormula(func() (int, error) {
			return count.Peek(), nil
		})

		f.Current()
		assert.Empty(t, f.Tag().Children())
	})
}

func TestDelegate(t *testing.T) {
	count := NewCell(0, Describe("count"))
	d := Delegate(count)

	assert.Equal(t, "count", d.Tag().Description())
	assert.Equal(t, KindDelegate, d.Tag().Kind())

	before := Now()
	assert.False(t, d.Tag().IsUpdatedSince(before))

	count.Set(1)
	assert.True(t, d.Tag().IsUpdatedSince(before))
}

func TestMarker(t *testing.T) {
	runs := 0

	m := NewMarker(Describe("reload"))
	f := NewFormula(func() (int, error) {
		runs++
		m.Consume()
		return runs, nil
	})

	assert.Equal(t, 1, f.Current())
	assert.Equal(t, 1, f.Current())

	m.Mark()
	assert.Equal(t, 2, f.Current())
	assert.Equal(t, "reload", m.Tag().Description())
}
