package reactor

import "github.com/AnatoleLucet/reactor/internal"

var (
	// ErrCyclicDependency is matched by errors.Is when a formula or resource
	// was read during its own evaluation.
	ErrCyclicDependency = internal.ErrCyclicDependency

	// ErrUseAfterFinalize is matched by errors.Is when a finalized cell or
	// resource is read or written.
	ErrUseAfterFinalize = internal.ErrUseAfterFinalize
)

type (
	CyclicDependencyError = internal.CyclicDependencyError
	UseAfterFinalizeError = internal.UseAfterFinalizeError

	// FinalizerError is returned by Finalize when finalizers failed.
	// Every finalizer of the cascade ran regardless.
	FinalizerError = internal.FinalizerError

	// SetupError is returned by a resource read when setup failed.
	// The resource keeps its previous instance and retries on the next read.
	SetupError = internal.SetupError

	// CleanupError is returned next to a new resource instance when the
	// cleanup of the previous run failed.
	CleanupError = internal.CleanupError

	// PanicError wraps a value recovered from a panicking finalizer.
	PanicError = internal.PanicError
)

// IsCleanupOnly reports whether err only tells of a failed cleanup, in which
// case the value read alongside it is valid.
func IsCleanupOnly(err error) bool {
	return internal.IsCleanupOnly(err)
}
