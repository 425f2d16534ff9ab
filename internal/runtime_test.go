package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeFlush(t *testing.T) {
	t.Run("defers notifications by default", func(t *testing.T) {
		r := newTestRuntime()
		log := []string{}

		c := r.NewCell(0, "count", nil)
		r.Subscribe(c.Tag(), func() { log = append(log, "stale") })

		c.Write(1)
		c.Write(2)
		assert.Empty(t, log)
		assert.True(t, r.Pending())

		r.Drain()
		assert.Equal(t, []string{"stale"}, log)
		assert.False(t, r.Pending())
	})

	t.Run("sync scheduler flushes after the outermost batch", func(t *testing.T) {
		r := newTestRuntime(WithScheduler(SyncScheduler{}))
		log := []string{}

		c := r.NewCell(0, "count", nil)
		r.Subscribe(c.Tag(), func() { log = append(log, "stale") })

		r.Batch(func() {
			c.Write(1)
			r.Batch(func() { c.Write(2) })
			log = append(log, "batched")
		})
		c.Write(3)

		assert.Equal(t, []string{"batched", "stale", "stale"}, log)
	})

	t.Run("manual scheduler waits for the host", func(t *testing.T) {
		s := NewManualScheduler()
		r := newTestRuntime(WithScheduler(s))
		log := []string{}

		c := r.NewCell(0, "count", nil)
		r.Subscribe(c.Tag(), func() { log = append(log, "stale") })

		c.Write(1)
		c.Write(2)
		assert.Empty(t, log)
		assert.True(t, s.Pending())

		assert.True(t, s.Run())
		assert.False(t, s.Run())
		assert.Equal(t, []string{"stale"}, log)
	})

	t.Run("notifies in registration order", func(t *testing.T) {
		r := newTestRuntime()
		log := []string{}

		a := r.NewCell(0, "a", nil)
		b := r.NewCell(0, "b", nil)
		r.Subscribe(a.Tag(), func() { log = append(log, "first") })
		r.Subscribe(b.Tag(), func() { log = append(log, "second") })

		r.Batch(func() {
			b.Write(1)
			a.Write(1)
		})
		r.Drain()

		assert.Equal(t, []string{"first", "second"}, log)
	})

	t.Run("subscriptions queued during a flush wait for the next one", func(t *testing.T) {
		s := NewManualScheduler()
		r := newTestRuntime(WithScheduler(s))
		log := []string{}

		a := r.NewCell(0, "a", nil)
		b := r.NewCell(0, "b", nil)
		r.Subscribe(a.Tag(), func() {
			log = append(log, "a")
			b.Write(1)
		})
		r.Subscribe(b.Tag(), func() { log = append(log, "b") })

		a.Write(1)
		s.Run()
		assert.Equal(t, []string{"a"}, log)

		s.Run()
		assert.Equal(t, []string{"a", "b"}, log)
	})

	t.Run("drain follows chained notifications", func(t *testing.T) {
		r := newTestRuntime()
		log := []string{}

		a := r.NewCell(0, "a", nil)
		b := r.NewCell(0, "b", nil)
		r.Subscribe(a.Tag(), func() {
			log = append(log, "a")
			b.Write(1)
		})
		r.Subscribe(b.Tag(), func() { log = append(log, "b") })

		a.Write(1)
		r.Drain()
		assert.Equal(t, []string{"a", "b"}, log)
	})

	t.Run("keeps the rest of the pass when a subscriber panics", func(t *testing.T) {
		r := newTestRuntime(WithScheduler(NewManualScheduler()))
		log := []string{}

		a := r.NewCell(0, "a", nil)
		r.Subscribe(a.Tag(), func() { panic("boom") })
		r.Subscribe(a.Tag(), func() { log = append(log, "second") })

		a.Write(1)
		assert.Panics(t, r.Flush)
		assert.True(t, r.Pending())

		r.Flush()
		assert.Equal(t, []string{"second"}, log)
	})

	t.Run("observers see nested events", func(t *testing.T) {
		log := []string{}
		obs := ObserverFunc(func(ev Event) func(error) {
			log = append(log, "begin "+ev.Kind.String()+" "+ev.Description)
			return func(err error) {
				log = append(log, "end "+ev.Kind.String())
			}
		})
		r := newTestRuntime(WithObserver(obs))

		c := r.NewCell(1, "c", nil)
		f := r.NewFormula(func() (any, error) {
			v, err := c.Read()
			return v.(int) * 2, err
		}, "double")

		f.Read()
		c.Write(2)

		assert.Equal(t, []string{
			"begin compute double",
			"end compute",
			"begin write c",
			"end write",
		}, log)
	})
}
