package internal

import (
	"errors"
	"fmt"
)

type ResourceState uint8

const (
	ResourceUninitialized ResourceState = iota
	ResourceActive
	ResourceFinalized
)

func (s ResourceState) String() string {
	switch s {
	case ResourceUninitialized:
		return "uninitialized"
	case ResourceActive:
		return "active"
	case ResourceFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Resource pairs a re-runnable setup routine with the cleanups it registers.
// Every run gets its own lifetime node, owned by the resource, which holds the
// run's cleanups and nested resources. Re-running finalizes the previous run first.
type Resource struct {
	rt          *Runtime
	description string

	setup func(*ResourceScope) (any, error)

	generation *Marker
	formula    *Formula
	tag        *Tag

	state      ResourceState
	run        *resourceRun
	runs       int
	cleanupErr error
}

type resourceRun struct {
	res *Resource
	n   int

	syncs []*Formula

	finalized bool
}

func (run *resourceRun) markFinalized() { run.finalized = true }

func (run *resourceRun) lifetimeFinalized() bool { return run.finalized }

func (run *resourceRun) Description() string {
	return fmt.Sprintf("%s/run#%d", run.res.description, run.n)
}

// ResourceScope is handed to a setup routine to register hooks for the current run.
type ResourceScope struct {
	run *resourceRun
}

func (r *Runtime) NewResource(setup func(*ResourceScope) (any, error), description string) *Resource {
	res := &Resource{rt: r, setup: setup}

	res.formula = r.NewFormula(res.step, description)
	res.description = res.formula.tag.Description()
	res.generation = r.NewMarker(res.description + "/generation")
	res.tag = NewDelegateTag(res.formula.tag)

	// resources created during another resource's setup belong to that run
	if owner := r.currentOwner(); owner != nil {
		if err := r.Link(owner, res); err != nil {
			r.logger.Warn("linking nested resource failed", "resource", res.description, "error", err)
		}
	}

	return res
}

func (res *Resource) Tag() *Tag { return res.tag }

func (res *Resource) Description() string { return res.description }

func (res *Resource) markFinalized() {
	res.state = ResourceFinalized
	res.run = nil
}

func (res *Resource) lifetimeFinalized() bool { return res.state == ResourceFinalized }

// Read returns the current instance, running setup first if the resource is
// uninitialized or stale, and records the resource as a dependency.
// A failed cleanup of the previous run is returned next to the new instance.
func (res *Resource) Read() (any, error) {
	if res.formula.evaluating {
		return nil, &CyclicDependencyError{Description: res.description}
	}

	value, err := res.Value()

	// a failed setup is still a dependency: the reader retries when it re-runs
	var ferr *UseAfterFinalizeError
	if !errors.As(err, &ferr) {
		res.rt.tracker.Consume(res.tag)
	}
	return value, err
}

// Value is Read without recording a dependency.
func (res *Resource) Value() (any, error) {
	if res.state == ResourceFinalized {
		return nil, &UseAfterFinalizeError{Description: res.description}
	}

	value, err := res.formula.Value()
	if err != nil {
		return nil, err
	}

	if cerr := res.cleanupErr; cerr != nil {
		res.cleanupErr = nil
		return value, cerr
	}
	return value, nil
}

// IsActive reports whether setup succeeded at least once and the resource is not finalized.
// It never records a dependency.
func (res *Resource) IsActive() bool {
	return res.state == ResourceActive
}

func (res *Resource) State() ResourceState {
	return res.state
}

// Refresh starts a new generation: the next read re-runs setup even if no dependency changed.
func (res *Resource) Refresh() {
	res.generation.Mark()
}

// Sync brings the resource up to date, then re-runs every sync hook of the
// current run whose own dependencies changed since it last ran.
func (res *Resource) Sync() error {
	var (
		serr *SetupError
		cerr *CleanupError
	)
	if _, err := res.Value(); err != nil && (errors.As(err, &serr) || !errors.As(err, &cerr)) {
		return err
	}

	run := res.run
	if run == nil {
		return nil
	}

	var errs []error
	for _, hook := range run.syncs {
		if _, err := hook.Value(); err != nil {
			errs = append(errs, err)
		}
	}

	if cerr != nil {
		errs = append([]error{cerr}, errs...)
	}
	return errors.Join(errs...)
}

// Finalize tears the resource down: cleanups of the current run, then nested resources.
func (res *Resource) Finalize() error {
	return res.rt.Finalize(res)
}

// step is the function of the resource's formula. It runs once per generation
// or dependency change.
func (res *Resource) step() (any, error) {
	rt := res.rt
	res.generation.Consume()

	if prev := res.run; prev != nil {
		res.run = nil

		var err error
		rt.Untrack(func() { err = rt.Finalize(prev) })
		if err != nil {
			rt.logger.Warn("resource cleanup failed", "resource", res.description, "error", err)
			res.cleanupErr = &CleanupError{Description: res.description, Err: err}
		}
		rt.retire(res, prev)
	}

	res.runs++
	run := &resourceRun{res: res, n: res.runs}
	if err := rt.Link(res, run); err != nil {
		return nil, res.setupFailed(err)
	}

	value, err := res.runSetup(run)
	if err != nil {
		// nothing of a failed run survives
		var ferr error
		rt.Untrack(func() { ferr = rt.Finalize(run) })
		if ferr != nil {
			rt.logger.Warn("cleanup of failed setup failed", "resource", res.description, "error", ferr)
		}
		rt.retire(res, run)

		return nil, res.setupFailed(err)
	}

	res.run = run
	res.state = ResourceActive

	rt.logger.Debug("resource set up", "resource", res.description, "run", run.n)
	return value, nil
}

// setupFailed wraps err in a SetupError, together with the failed cleanup of
// the previous run if any, which would otherwise surface on a later read.
func (res *Resource) setupFailed(err error) error {
	if cerr := res.cleanupErr; cerr != nil {
		res.cleanupErr = nil
		err = errors.Join(err, cerr)
	}
	return &SetupError{Description: res.description, Err: err}
}

func (res *Resource) runSetup(run *resourceRun) (value any, err error) {
	rt := res.rt

	end := rt.observe(Event{Kind: EventSetup, Description: run.Description()})
	defer func() { end(err) }()

	rt.pushOwner(run)
	defer rt.popOwner(run)

	return res.setup(&ResourceScope{run: run})
}

// OnCleanup registers fn to run when this run is torn down, either because the
// resource re-runs or because it is finalized. Cleanups run in registration order.
func (s *ResourceScope) OnCleanup(fn func() error) {
	rt := s.run.res.rt
	desc := s.run.Description()

	rt.OnFinalize(s.run, func() (err error) {
		end := rt.observe(Event{Kind: EventCleanup, Description: desc})
		defer func() { end(err) }()

		return fn()
	})
}

// OnSync registers fn to run on every Sync of the resource while this run is current.
// fn is tracked on its own: it only re-runs when something it read changed.
func (s *ResourceScope) OnSync(fn func() error) {
	rt := s.run.res.rt

	hook := rt.NewFormula(func() (any, error) {
		return nil, fn()
	}, fmt.Sprintf("%s/sync#%d", s.run.Description(), len(s.run.syncs)+1))

	s.run.syncs = append(s.run.syncs, hook)
}

// Own links child to this run so it is finalized with it.
func (s *ResourceScope) Own(child any) error {
	return s.run.res.rt.Link(s.run, child)
}

// Run returns the 1-based number of the run this scope belongs to.
func (s *ResourceScope) Run() int {
	return s.run.n
}
