package reactor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormula(t *testing.T) {
	t.Run("derives value from cell", func(t *testing.T) {
		log := []string{}

		count := NewCell(1)
		double := NewFormula(func() (int, error) {
			log = append(log, "doubling")
			return count.Current() * 2, nil
		})
		plustwo := NewFormula(func() (int, error) {
			log = append(log, "adding")
			return double.Current() + 2, nil
		})

		assert.Equal(t, 1, count.Current())
		assert.Equal(t, 2, double.Current())
		assert.Equal(t, 4, plustwo.Current())

		count.Set(10)
		assert.Equal(t, 10, count.Current())
		assert.Equal(t, 20, double.Current())
		assert.Equal(t, 22, plustwo.Current())

		assert.Equal(t, []string{
			"doubling",
			"adding",
			"doubling",
			"adding",
		}, log)
	})

	t.Run("is lazy", func(t *testing.T) {
		runs := 0

		count := NewCell(1)
		double := NewFormula(func() (int, error) {
			runs++
			return count.Current() * 2, nil
		})

		count.Set(2)
		count.Set(3)
		assert.Equal(t, 0, runs)
		assert.True(t, double.IsStale())

		assert.Equal(t, 6, double.Current())
		assert.Equal(t, 1, runs)
		assert.False(t, double.IsStale())
	})

	t.Run("reads twice, computes once", func(t *testing.T) {
		runs := 0

		count := NewCell(1)
		double := NewFormula(func() (int, error) {
			runs++
			return count.Current() * 2, nil
		})

		double.Current()
		double.Current()
		assert.Equal(t, 1, runs)
	})

	t.Run("only recomputes what changed", func(t *testing.T) {
		log := []string{}

		a := NewCell(1)
		b := NewCell(1)
		fa := NewFormula(func() (int, error) {
			log = append(log, "fa")
			return a.Current(), nil
		})
		fb := NewFormula(func() (int, error) {
			log = append(log, "fb")
			return b.Current(), nil
		})

		fa.Current()
		fb.Current()

		a.Set(2)
		fa.Current()
		fb.Current()

		assert.Equal(t, []string{"fa", "fb", "fa"}, log)
	})

	t.Run("sees the latest write of every dependency", func(t *testing.T) {
		first := NewCell("a")
		last := NewCell("b")
		full := NewFormula(func() (string, error) {
			return first.Current() + " " + last.Current(), nil
		})

		assert.Equal(t, "a b", full.Current())

		Batch(func() {
			first.Set("x")
			assert.Equal(t, "x b", full.Current())
			last.Set("y")
			first.Set("z")
		})

		assert.Equal(t, "z y", full.Current())
	})

	t.Run("follows dynamic dependencies", func(t *testing.T) {
		runs := 0

		useA := NewCell(true)
		a := NewCell("a")
		b := NewCell("b")
		pick := NewFormula(func() (string, error) {
			runs++
			if useA.Current() {
				return a.Current(), nil
			}
			return b.Current(), nil
		})

		assert.Equal(t, "a", pick.Current())

		b.Set("b2")
		assert.Equal(t, "a", pick.Current())
		assert.Equal(t, 1, runs)

		useA.Set(false)
		assert.Equal(t, "b2", pick.Current())

		a.Set("a2")
		assert.Equal(t, "b2", pick.Current())
		assert.Equal(t, 2, runs)
	})

	t.Run("records only its own tag in enclosing formulas", func(t *testing.T) {
		count := NewCell(1)
		inner := NewFormula(func() (int, error) {
			return count.Current(), nil
		})
		outer := NewFormula(func() (int, error) {
			return inner.Current(), nil
		})

		outer.Current()

		assert.Equal(t, []*Tag{inner.Tag()}, outer.Tag().Children())
		assert.Equal(t, KindFormula, outer.Tag().Kind())
	})

	t.Run("keeps the previous value on error", func(t *testing.T) {
		runs := 0
		boom := errors.New("boom")

		count := NewCell(1)
		double := NewFormula(func() (int, error) {
			runs++
			if n := count.Current(); n < 0 {
				return 0, boom
			} else {
				return n * 2, nil
			}
		})

		assert.Equal(t, 2, double.Current())

		count.Set(-1)
		_, err := double.Read()
		assert.ErrorIs(t, err, boom)
		assert.True(t, double.IsStale())

		_, err = double.Read()
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, runs)

		count.Set(4)
		assert.Equal(t, 8, double.Current())
	})

	t.Run("a caught error still tracks the failed formula", func(t *testing.T) {
		boom := errors.New("boom")

		count := NewCell(0)
		inner := NewFormula(func() (int, error) {
			n := count.Current()
			if n == 0 {
				return 0, boom
			}
			return n * 4, nil
		})
		outer := NewFormula(func() (int, error) {
			n, err := inner.Read()
			if err != nil {
				return -1, nil
			}
			return n, nil
		})

		assert.Equal(t, -1, outer.Current())

		count.Set(5)
		assert.True(t, outer.IsStale())
		assert.Equal(t, 20, outer.Current())
	})

	t.Run("recovers from a panic", func(t *testing.T) {
		fail := NewCell(true)
		f := NewFormula(func() (int, error) {
			if fail.Current() {
				panic("boom")
			}
			return 1, nil
		})

		assert.Panics(t, func() { f.Current() })

		fail.Set(false)
		assert.Equal(t, 1, f.Current())
	})

	t.Run("detects cycles", func(t *testing.T) {
		var self *Formula[int]
		self = NewFormula(func() (int, error) {
			n, err := self.Read()
			return n + 1, err
		}, Describe("self"))

		_, err := self.Read()
		assert.ErrorIs(t, err, ErrCyclicDependency)

		var cerr *CyclicDependencyError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "self", cerr.Description)
	})

	t.Run("detects indirect cycles", func(t *testing.T) {
		var a, b *Formula[int]
		a = NewFormula(func() (int, error) { return b.Read() })
		b = NewFormula(func() (int, error) { return a.Read() })

		_, err := a.Read()
		assert.ErrorIs(t, err, ErrCyclicDependency)
	})

	t.Run("a write during evaluation invalidates it", func(t *testing.T) {
		runs := 0

		count := NewCell(1)
		f := NewFormula(func() (string, error) {
			runs++
			n := count.Current()
			if n == 1 {
				count.Set(2)
			}
			return fmt.Sprint(n), nil
		})

		assert.Equal(t, "1", f.Current())
		assert.Equal(t, "2", f.Current())
		assert.Equal(t, 2, runs)
	})
}
