package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/risor-io/risor/object"

	"github.com/AnatoleLucet/reactor"
)

// Result is the outcome of running a scenario.
type Result struct {
	Scenario string

	// Trace is the deterministic, human readable record of the run.
	Trace string
}

type runConfig struct {
	logger    *slog.Logger
	observers []reactor.Observer
}

// RunOption configures Run.
type RunOption func(*runConfig)

// WithLogger sets the logger of the runtime the scenario runs on.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithObserver adds an observer to the runtime the scenario runs on.
func WithObserver(o reactor.Observer) RunOption {
	return func(c *runConfig) {
		c.observers = append(c.observers, o)
	}
}

// node is a plain lifetime node declared by a scenario.
type node struct {
	name string
}

func (n *node) Description() string { return n.name }

type runner struct {
	ctx      context.Context
	scenario *Scenario
	trace    *recorder

	values    map[string]reactor.Reactive[any]
	cells     map[string]*reactor.Cell[any]
	markers   map[string]*reactor.Marker
	resources map[string]*reactor.Resource[any]
	subs      map[string]*reactor.Subscription[any]

	// everything declared, as lifetime nodes
	nodes map[string]any
}

// Run executes the scenario on a fresh runtime and returns its trace.
// A failed expectation stops the run; the trace so far is still returned.
func Run(ctx context.Context, s *Scenario, opts ...RunOption) (*Result, error) {
	var config runConfig
	for _, opt := range opts {
		opt(&config)
	}

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)

	// a new goroutine gets a runtime of its own
	go func() {
		defer reactor.Release()

		var o outcome
		defer func() {
			if rec := recover(); rec != nil {
				o.err = fmt.Errorf("harness: scenario %s panicked: %v", s.Name, rec)
			}
			done <- o
		}()

		o.res, o.err = run(ctx, s, config)
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func run(ctx context.Context, s *Scenario, config runConfig) (*Result, error) {
	r := &runner{
		ctx:      ctx,
		scenario: s,
		trace:    &recorder{},

		values:    map[string]reactor.Reactive[any]{},
		cells:     map[string]*reactor.Cell[any]{},
		markers:   map[string]*reactor.Marker{},
		resources: map[string]*reactor.Resource[any]{},
		subs:      map[string]*reactor.Subscription[any]{},
		nodes:     map[string]any{},
	}

	opts := []reactor.RuntimeOption{reactor.WithObserver(r.trace)}
	if config.logger != nil {
		opts = append(opts, reactor.WithLogger(config.logger))
	}
	for _, o := range config.observers {
		opts = append(opts, reactor.WithObserver(o))
	}
	reactor.Configure(opts...)

	r.trace.lines = append(r.trace.lines, "scenario "+s.Name)

	err := r.declare()
	if err == nil {
		err = r.runSteps(s.Steps, "steps")
	}

	return &Result{Scenario: s.Name, Trace: r.trace.String()}, err
}

func (r *runner) declare() error {
	s := r.scenario

	for _, def := range s.Cells {
		c := reactor.NewCell[any](normalize(def.Value), reactor.Describe(def.Name))
		r.cells[def.Name] = c
		r.values[def.Name] = c
		r.nodes[def.Name] = c
	}

	for _, name := range s.Markers {
		m := reactor.NewMarker(reactor.Describe(name))
		r.markers[name] = m
		r.nodes[name] = m
	}

	for _, def := range s.Nodes {
		n := &node{name: def.Name}
		fail := def.Fail

		reactor.OnFinalize(n, func() error {
			r.trace.say("finalizer " + n.name)
			if fail {
				return fmt.Errorf("node %s failed to finalize", n.name)
			}
			return nil
		})

		r.nodes[def.Name] = n
	}

	for _, def := range s.Formulas {
		f := reactor.NewFormula(func() (any, error) {
			return r.eval(r.ctx, def.Name, def.Script, nil)
		}, reactor.Describe(def.Name))

		r.values[def.Name] = f
		r.nodes[def.Name] = f
	}

	for _, def := range s.Resources {
		res := reactor.NewResource(func(scope *reactor.ResourceScope) (any, error) {
			return r.eval(r.ctx, def.Name, def.Script, map[string]*object.Builtin{
				"on_cleanup": r.makeOnCleanupFn(scope),
				"own":        r.makeOwnFn(scope),
			})
		}, reactor.Describe(def.Name))

		r.resources[def.Name] = res
		r.values[def.Name] = res
		r.nodes[def.Name] = res
	}

	for _, l := range s.Links {
		if err := reactor.Link(r.nodes[l.Owner], r.nodes[l.Child]); err != nil {
			return fmt.Errorf("link %s -> %s: %w", l.Owner, l.Child, err)
		}
		r.trace.step("link %s -> %s", l.Owner, l.Child)
	}

	for _, name := range s.Subscriptions {
		sub, err := reactor.Subscribe(r.values[name], func() {})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", name, err)
		}

		r.subs[name] = sub
		r.trace.step("subscribe %s -> %s", name, formatValue(sub.Value()))
	}

	return nil
}

func (r *runner) runSteps(steps []Step, path string) error {
	for i, step := range steps {
		if err := r.runStep(step, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) runStep(step Step, where string) error {
	action, err := step.action()
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}

	switch action {
	case "read":
		value, err := r.values[step.Read].Read()
		r.trace.step("read %s -> %s", step.Read, outcome(value, err))
		return expect(where, step, value, err)

	case "set":
		value := normalize(step.Value)
		err := r.cells[step.Set].Set(value)
		r.trace.step("set %s = %s%s", step.Set, formatValue(value), failure(err))
		return expectError(where, step, err)

	case "mark":
		r.markers[step.Mark].Mark()
		r.trace.step("mark %s", step.Mark)

	case "poll":
		sub, ok := r.subs[step.Poll]
		if !ok {
			return fmt.Errorf("%s: %q is not subscribed", where, step.Poll)
		}

		value, changed, err := sub.Poll()
		state := "unchanged"
		if changed {
			state = "changed"
		}
		r.trace.step("poll %s -> %s %s", step.Poll, outcome(value, err), state)

		if step.ExpectChanged != nil && *step.ExpectChanged != changed {
			return fmt.Errorf("%s: poll %s: expected changed=%t", where, step.Poll, *step.ExpectChanged)
		}
		return expect(where, step, value, err)

	case "refresh":
		r.resources[step.Refresh].Refresh()
		r.trace.step("refresh %s", step.Refresh)

	case "finalize":
		err := reactor.Finalize(r.nodes[step.Finalize])
		r.trace.step("finalize %s%s", step.Finalize, failure(err))
		return expectError(where, step, err)

	case "flush":
		reactor.Flush()
		r.trace.step("flush")

	case "batch":
		r.trace.step("batch")

		r.trace.base++
		reactor.Batch(func() {
			err = r.runSteps(step.Batch, where+".batch")
		})
		r.trace.base--

		r.trace.step("end batch")
		return err
	}

	return nil
}

// outcome formats the result of a read for the trace.
func outcome(value any, err error) string {
	if err != nil && !reactor.IsCleanupOnly(err) {
		return "error(" + ErrorCategory(err) + ")"
	}
	return formatValue(value) + failure(err)
}

func failure(err error) string {
	if err == nil {
		return ""
	}
	return " error(" + ErrorCategory(err) + ")"
}

func expect(where string, step Step, value any, err error) error {
	if err := expectError(where, step, err); err != nil {
		return err
	}

	if step.Expect != nil && !reactor.DefaultEquals(normalize(step.Expect), normalize(value)) {
		return fmt.Errorf("%s: expected %s, got %s", where, formatValue(step.Expect), formatValue(value))
	}
	return nil
}

func expectError(where string, step Step, err error) error {
	got := ErrorCategory(err)
	if got != step.ExpectError {
		if step.ExpectError == "" {
			return fmt.Errorf("%s: unexpected error: %w", where, err)
		}
		return fmt.Errorf("%s: expected %s error, got %q", where, step.ExpectError, got)
	}
	return nil
}

func readUntracked(r reactor.Reactive[any]) (value any, err error) {
	reactor.Untrack(func() struct{} {
		value, err = r.Read()
		return struct{}{}
	})
	return value, err
}

func (r *Result) String() string {
	return r.Trace
}
