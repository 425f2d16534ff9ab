package reactor

import "github.com/AnatoleLucet/reactor/internal"

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

type (
	Tag       = internal.Tag
	TagKind   = internal.TagKind
	Timestamp = internal.Timestamp
)

const (
	KindStatic   = internal.KindStatic
	KindCell     = internal.KindCell
	KindFormula  = internal.KindFormula
	KindDelegate = internal.KindDelegate
)

// Tagged is anything that can be tracked as a dependency.
type Tagged interface {
	Tag() *Tag
}

// Reactive is a value that can be read with dependency tracking.
type Reactive[T any] interface {
	Tagged
	Read() (T, error)
}

// Now returns the current time of the process-wide logical clock.
func Now() Timestamp {
	return internal.GetRuntime().Now()
}

// NewStaticTag returns a tag that never changes, for constants exposed as Tagged.
func NewStaticTag(description string) *Tag {
	return internal.NewStaticTag(description)
}

// DefaultEquals is the equality cells use unless WithEquals replaces it:
// == for comparable scalars, reflect.DeepEqual for everything else.
func DefaultEquals(a, b any) bool {
	return internal.DefaultEquals(a, b)
}

type Cell[T any] struct {
	cell *internal.Cell
}

// NewCell creates a mutable reactive value.
func NewCell[T any](initial T, opts ...Option) *Cell[T] {
	o := buildOptions(opts)

	return &Cell[T]{
		internal.GetRuntime().NewCell(initial, o.description, nil),
	}
}

// Read returns the value, tracking the dependency if within a formula or resource.
// It fails once the cell was finalized.
func (c *Cell[T]) Read() (T, error) {
	v, err := c.cell.Read()
	return as[T](v), err
}

// Current is Read for cells that are never finalized. It panics on error.
func (c *Cell[T]) Current() T {
	return must(c.Read())
}

// Peek returns the value without tracking it.
func (c *Cell[T]) Peek() T {
	return as[T](c.cell.Peek())
}

// Set replaces the value. Setting a value equal to the current one does nothing.
func (c *Cell[T]) Set(v T) error {
	return c.cell.Write(v)
}

// Update sets the value to fn applied to the current one, without tracking the read.
func (c *Cell[T]) Update(fn func(T) T) error {
	return c.Set(fn(c.Peek()))
}

// WithEquals replaces the equality used to ignore redundant writes.
func (c *Cell[T]) WithEquals(equals func(a, b T) bool) *Cell[T] {
	c.cell.SetEquals(func(a, b any) bool {
		return equals(as[T](a), as[T](b))
	})
	return c
}

func (c *Cell[T]) Tag() *Tag { return c.cell.Tag() }

func (c *Cell[T]) lifetimeKey() any { return c.cell }

type Formula[T any] struct {
	formula *internal.Formula
}

// NewFormula creates a lazily computed value derived from whatever fn reads.
// fn runs on the first read and again only when something it read has changed.
// If fn fails the previous value is kept and the next read retries.
func NewFormula[T any](fn func() (T, error), opts ...Option) *Formula[T] {
	o := buildOptions(opts)

	return &Formula[T]{
		internal.GetRuntime().NewFormula(func() (any, error) {
			return fn()
		}, o.description),
	}
}

// Read returns the value, recomputing it first if needed, and tracks the dependency.
func (f *Formula[T]) Read() (T, error) {
	v, err := f.formula.Read()
	return as[T](v), err
}

// Current is Read that panics on error.
func (f *Formula[T]) Current() T {
	return must(f.Read())
}

// IsStale reports whether the next read will call the function.
func (f *Formula[T]) IsStale() bool {
	return f.formula.IsStale()
}

func (f *Formula[T]) Tag() *Tag { return f.formula.Tag() }

func (f *Formula[T]) lifetimeKey() any { return f.formula }

// Marker is a dependency with no value, for invalidation sources that have none.
type Marker struct {
	marker *internal.Marker
}

func NewMarker(opts ...Option) *Marker {
	o := buildOptions(opts)

	return &Marker{
		internal.GetRuntime().NewMarker(o.description),
	}
}

// Consume tracks the marker as a dependency.
func (m *Marker) Consume() { m.marker.Consume() }

// Mark invalidates everything that consumed the marker.
func (m *Marker) Mark() { m.marker.Mark() }

func (m *Marker) Tag() *Tag { return m.marker.Tag() }

func (m *Marker) lifetimeKey() any { return m.marker }

type delegate struct {
	tag *Tag
}

func (d *delegate) Tag() *Tag { return d.tag }

// Delegate exposes target under a new identity.
// Staleness and description are always those of target.
func Delegate(target Tagged) Tagged {
	return &delegate{internal.NewDelegateTag(target.Tag())}
}

type ResourceState = internal.ResourceState

const (
	ResourceUninitialized = internal.ResourceUninitialized
	ResourceActive        = internal.ResourceActive
	ResourceFinalized     = internal.ResourceFinalized
)

// ResourceScope is handed to a resource's setup to register hooks on the current run.
type ResourceScope struct {
	scope *internal.ResourceScope
}

// OnCleanup registers fn to run when this run is torn down, either because the
// resource re-runs or because it is finalized. Cleanups run in registration order.
func (s *ResourceScope) OnCleanup(fn func() error) { s.scope.OnCleanup(fn) }

// OnSync registers fn to run on Sync while this run is current.
// fn only runs again when something it read changed.
func (s *ResourceScope) OnSync(fn func() error) { s.scope.OnSync(fn) }

// Own makes this run the owner of child, so child is finalized with the run.
func (s *ResourceScope) Own(child any) error { return s.scope.Own(keyOf(child)) }

// Run returns the 1-based number of the current run.
func (s *ResourceScope) Run() int { return s.scope.Run() }

type Resource[T any] struct {
	resource *internal.Resource
}

// NewResource creates a resource whose instance is built by setup.
// setup runs on the first read and re-runs when something it read changes or
// after Refresh. Cleanups registered on the scope run before every re-run and
// on finalization. Resources created inside setup are owned by that run.
func NewResource[T any](setup func(*ResourceScope) (T, error), opts ...Option) *Resource[T] {
	o := buildOptions(opts)

	return &Resource[T]{
		internal.GetRuntime().NewResource(func(s *internal.ResourceScope) (any, error) {
			return setup(&ResourceScope{s})
		}, o.description),
	}
}

// Read returns the current instance, running setup first if needed, and tracks the dependency.
// A *CleanupError is returned together with a valid new instance.
func (r *Resource[T]) Read() (T, error) {
	v, err := r.resource.Read()
	return as[T](v), err
}

// Current is Read that panics on any error but a *CleanupError.
func (r *Resource[T]) Current() T {
	v, err := r.Read()
	if err != nil && !IsCleanupOnly(err) {
		panic(err)
	}
	return v
}

// IsActive reports whether the resource holds a live instance. It is not tracked.
func (r *Resource[T]) IsActive() bool { return r.resource.IsActive() }

func (r *Resource[T]) State() ResourceState { return r.resource.State() }

// Refresh makes the next read re-run setup.
func (r *Resource[T]) Refresh() { r.resource.Refresh() }

// Sync updates the resource and re-runs the sync hooks whose dependencies changed.
func (r *Resource[T]) Sync() error { return r.resource.Sync() }

// Finalize runs the cleanups of the current run and finalizes everything the resource owns.
func (r *Resource[T]) Finalize() error { return r.resource.Finalize() }

func (r *Resource[T]) Tag() *Tag { return r.resource.Tag() }

func (r *Resource[T]) lifetimeKey() any { return r.resource }

// Batch runs fn and notifies subscribers once, after fn and every enclosing batch returned.
func Batch(fn func()) {
	internal.GetRuntime().Batch(fn)
}

// Untrack runs fn without tracking any of its reads.
func Untrack[T any](fn func() T) T {
	var result T
	internal.GetRuntime().Untrack(func() { result = fn() })
	return result
}

// Flush notifies the pending subscriptions now, whatever the scheduler, and
// keeps flushing until the notified callbacks stop queueing new ones.
// With the default scheduler this is how notifications get delivered.
func Flush() {
	internal.GetRuntime().Drain()
}

// OnSettled runs fn once, after the next flush that leaves no subscription pending.
func OnSettled(fn func()) {
	internal.GetRuntime().OnSettled(fn)
}
