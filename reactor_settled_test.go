package reactor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnSettled(t *testing.T) {
	t.Run("runs when flush finishes", func(t *testing.T) {
		log := []string{}

		count := NewCell(0)
		Watch(count, func() {
			log = append(log, fmt.Sprintf("changed %d", count.Peek()))
		})

		OnSettled(func() {
			log = append(log, "settled")
		})

		count.Set(10)
		Flush()

		assert.Equal(t, []string{
			"changed 10",
			"settled",
		}, log)
	})

	t.Run("waits for chained notifications", func(t *testing.T) {
		log := []string{}

		a := NewCell(0)
		b := NewCell(0)

		Watch(a, func() {
			log = append(log, fmt.Sprintf("A changed %d", a.Peek()))
			b.Set(a.Peek() * 2)
		})
		Watch(b, func() {
			log = append(log, fmt.Sprintf("B changed %d", b.Peek()))
		})

		OnSettled(func() {
			log = append(log, "settled")
		})

		a.Set(10)
		Flush()

		assert.Equal(t, []string{
			"A changed 10",
			"B changed 20",
			"settled",
		}, log)
	})

	t.Run("runs once", func(t *testing.T) {
		log := []string{}

		count := NewCell(0)
		Watch(count, func() {
			log = append(log, fmt.Sprintf("changed %d", count.Peek()))
		})

		OnSettled(func() {
			log = append(log, "settled")
		})

		count.Set(10)
		Flush()
		count.Set(20)
		Flush()

		assert.Equal(t, []string{
			"changed 10",
			"settled",
			"changed 20",
		}, log)
	})
}
