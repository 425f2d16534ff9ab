//go:build !wasm

package internal

import (
	"sync"

	"github.com/petermattis/goid"
)

// runtimes maps goroutine ids to their runtime. Reactive state is not safe for
// concurrent use, so each goroutine gets a runtime of its own instead of a lock.
var runtimes sync.Map

// GetRuntime returns the runtime of the calling goroutine, creating it on first use.
func GetRuntime() *Runtime {
	gid := goid.Get()

	if r, ok := runtimes.Load(gid); ok {
		return r.(*Runtime)
	}

	r, _ := runtimes.LoadOrStore(gid, NewRuntime())
	return r.(*Runtime)
}

// ReleaseRuntime forgets the runtime of the calling goroutine. Goroutines that
// used reactive values should call it before exiting, or the runtime stays in
// the map for the life of the process.
func ReleaseRuntime() {
	runtimes.Delete(goid.Get())
}
