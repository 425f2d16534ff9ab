package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCyclicDependency matches any *CyclicDependencyError.
var ErrCyclicDependency = errors.New("reactor: cyclic dependency")

// ErrUseAfterFinalize matches any *UseAfterFinalizeError.
var ErrUseAfterFinalize = errors.New("reactor: used after finalization")

// CyclicDependencyError is returned when a formula is read while it is being evaluated.
type CyclicDependencyError struct {
	Description string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("reactor: cyclic dependency: %q was read during its own evaluation", e.Description)
}

func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// UseAfterFinalizeError is returned when a finalized cell or resource is read or written.
type UseAfterFinalizeError struct {
	Description string
}

func (e *UseAfterFinalizeError) Error() string {
	return fmt.Sprintf("reactor: %q used after finalization", e.Description)
}

func (e *UseAfterFinalizeError) Is(target error) bool {
	return target == ErrUseAfterFinalize
}

// FinalizerError collects every finalizer failure of one finalize cascade.
type FinalizerError struct {
	Errors []error
}

func (e *FinalizerError) Error() string {
	if len(e.Errors) == 1 {
		return "reactor: finalizer failed: " + e.Errors[0].Error()
	}

	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("reactor: %d finalizers failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *FinalizerError) Unwrap() []error {
	return e.Errors
}

// SetupError wraps a failure of a resource's setup function.
type SetupError struct {
	Description string
	Err         error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("reactor: setup of %q failed: %v", e.Description, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// CleanupError wraps a failure of a resource's cleanup before a re-run.
// The re-run itself still happened.
type CleanupError struct {
	Description string
	Err         error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("reactor: cleanup of %q failed: %v", e.Description, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// IsCleanupOnly reports whether err is a failed cleanup returned next to a
// valid value. A setup that failed right after a failed cleanup is not.
func IsCleanupOnly(err error) bool {
	var (
		setup   *SetupError
		cleanup *CleanupError
	)
	return errors.As(err, &cleanup) && !errors.As(err, &setup)
}

// PanicError carries a value recovered from a panicking finalizer.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("reactor: panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
