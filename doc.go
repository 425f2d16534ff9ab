// Package reactor is a fine-grained reactive state runtime.
//
// Cells hold mutable values. Formulas derive values from cells and other
// formulas, and remember exactly which of them they read. A formula is only
// recomputed when one of those dependencies was written after its last run,
// so reading it twice without intervening writes calls its function once.
//
// Resources pair a setup routine with the cleanups it registers. They re-run,
// cleaning up the previous run first, whenever a dependency of their setup
// changes or a new generation is requested with Refresh.
//
// Ownership is expressed with Link: finalizing a node finalizes everything it
// owns, exactly once per node. A node is finalized as soon as any of its owners is.
//
// Subscriptions tell an outside consumer, such as a renderer, that a value may
// have changed. Notifications are deferred: writes only queue them, and they are
// delivered, once per subscription however many writes happened, when the host
// calls Flush or when the Scheduler set with WithScheduler runs the flush.
//
// State lives in a per-goroutine runtime. Values must not be used from two
// goroutines at the same time.
package reactor
