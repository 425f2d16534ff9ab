// Package harness runs reactive scenarios described in YAML and records a
// deterministic trace of what the runtime did.
//
// A scenario declares cells, markers, plain lifetime nodes, formulas and
// resources, then lists steps to apply to them. Formula and resource bodies
// are Risor scripts; the value of the last expression is the result. Scripts
// see these builtins:
//
//	get(name)              tracked read of a cell, formula or resource
//	peek(name)             untracked read
//	consume(name)          tracks a marker
//	fail(message)          fails the evaluation
//	on_cleanup(args...)    resources only: logs args when the run is cleaned up
//	own(name)              resources only: the run owns the named node
//
// The trace contains no timestamps or generated ids, so it can be compared
// against golden files.
package harness
