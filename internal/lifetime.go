package internal

import (
	"fmt"
	"reflect"
	"slices"
)

type finalizer struct {
	fn func() error
}

type lifetimeNode struct {
	key any

	parents  []int
	children []int

	finalizers []*finalizer
	finalized  bool
}

// selfFinalizing is implemented by nodes that remember being finalized, so the
// graph can drop them once nothing owns them anymore.
type selfFinalizing interface {
	markFinalized()
	lifetimeFinalized() bool
}

// lifetimeGraph is an arena of ownership nodes indexed by integer id.
// Any comparable value can be a node; it joins the graph the first time it is used.
type lifetimeGraph struct {
	nodes []*lifetimeNode
	index map[any]int
	free  []int

	// finalizing is the depth of Finalize cascades in progress
	finalizing int
}

func newLifetimeGraph() *lifetimeGraph {
	return &lifetimeGraph{index: make(map[any]int)}
}

func (g *lifetimeGraph) lookup(key any) (*lifetimeNode, bool) {
	id, ok := g.index[key]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

func (g *lifetimeGraph) node(key any) (int, error) {
	if key == nil {
		return 0, fmt.Errorf("reactor: nil lifetime node")
	}

	if !reflect.TypeOf(key).Comparable() {
		return 0, fmt.Errorf("reactor: lifetime node of type %T is not comparable", key)
	}

	if id, ok := g.index[key]; ok {
		return id, nil
	}

	n := &lifetimeNode{key: key}
	if sf, ok := key.(selfFinalizing); ok {
		n.finalized = sf.lifetimeFinalized()
	}

	var id int
	if last := len(g.free) - 1; last >= 0 {
		id = g.free[last]
		g.free = g.free[:last]
		g.nodes[id] = n
	} else {
		id = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}

	g.index[key] = id
	return id, nil
}

// prune releases key if it is a finalized self-finalizing node with no owner,
// then does the same for whatever it owned. Released slots are reused.
func (g *lifetimeGraph) prune(key any) {
	if g.finalizing > 0 {
		return
	}

	id, ok := g.index[key]
	if !ok {
		return
	}

	stack := []int{id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := g.nodes[id]
		if n == nil || !n.finalized || len(n.parents) > 0 {
			continue
		}
		if _, ok := n.key.(selfFinalizing); !ok {
			continue
		}

		for _, cid := range n.children {
			c := g.nodes[cid]
			c.parents = slices.DeleteFunc(c.parents, func(p int) bool { return p == id })
			stack = append(stack, cid)
		}

		delete(g.index, n.key)
		g.nodes[id] = nil
		g.free = append(g.free, id)
	}
}

// Link records that finalizing owner also finalizes child. Linking twice is a no-op.
// A child linked to an owner that is already finalized is finalized right away.
func (r *Runtime) Link(owner, child any) error {
	oid, err := r.lifetimes.node(owner)
	if err != nil {
		return err
	}
	cid, err := r.lifetimes.node(child)
	if err != nil {
		return err
	}

	o, c := r.lifetimes.nodes[oid], r.lifetimes.nodes[cid]
	if o.finalized {
		return r.Finalize(child)
	}

	if !slices.Contains(o.children, cid) {
		o.children = append(o.children, cid)
		c.parents = append(c.parents, oid)
	}

	return nil
}

// Unlink removes the ownership edge between owner and child, if any.
func (r *Runtime) Unlink(owner, child any) {
	o, ok := r.lifetimes.lookup(owner)
	if !ok {
		return
	}
	c, ok := r.lifetimes.lookup(child)
	if !ok {
		return
	}

	oid, cid := r.lifetimes.index[owner], r.lifetimes.index[child]
	o.children = slices.DeleteFunc(o.children, func(id int) bool { return id == cid })
	c.parents = slices.DeleteFunc(c.parents, func(id int) bool { return id == oid })
}

// OnFinalize attaches fn to node and returns a function that detaches it.
// On a node that is already finalized fn runs immediately.
func (r *Runtime) OnFinalize(node any, fn func() error) func() {
	id, err := r.lifetimes.node(node)
	if err != nil {
		panic(err)
	}

	n := r.lifetimes.nodes[id]
	if n.finalized {
		if err := runFinalizer(fn); err != nil {
			r.logger.Warn("late finalizer failed", "node", describe(node), "error", err)
		}
		r.lifetimes.prune(node)
		return func() {}
	}

	f := &finalizer{fn: fn}
	n.finalizers = append(n.finalizers, f)

	return func() {
		n.finalizers = slices.DeleteFunc(n.finalizers, func(other *finalizer) bool { return other == f })
	}
}

func (r *Runtime) IsFinalized(node any) bool {
	if node == nil || !reflect.TypeOf(node).Comparable() {
		return false
	}

	if n, ok := r.lifetimes.lookup(node); ok {
		return n.finalized
	}

	sf, ok := node.(selfFinalizing)
	return ok && sf.lifetimeFinalized()
}

// retire detaches a finalized node from its owner and gives its slot back to
// the graph, along with everything it owned that nothing else does.
func (r *Runtime) retire(owner, node any) {
	r.Unlink(owner, node)
	r.lifetimes.prune(node)
}

// Finalize runs the finalizers of node, then of everything it transitively owns.
// Each node is finalized at most once no matter how many paths reach it.
// Finalizer failures do not stop the cascade; they are returned together once it is done.
func (r *Runtime) Finalize(node any) (err error) {
	if sf, ok := node.(selfFinalizing); ok && sf.lifetimeFinalized() {
		if _, tracked := r.lifetimes.index[node]; !tracked {
			return nil
		}
	}

	root, err := r.lifetimes.node(node)
	if err != nil {
		return err
	}

	if r.lifetimes.nodes[root].finalized {
		return nil
	}

	end := r.observe(Event{Kind: EventFinalize, Description: describe(node)})
	defer func() { end(err) }()

	r.lifetimes.finalizing++
	defer func() { r.lifetimes.finalizing-- }()

	var errs []error

	stack := []int{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := r.lifetimes.nodes[id]
		if n.finalized {
			continue
		}
		n.finalized = true
		if sf, ok := n.key.(selfFinalizing); ok {
			sf.markFinalized()
		}

		finalizers := n.finalizers
		n.finalizers = nil

		for _, f := range finalizers {
			if err := runFinalizer(f.fn); err != nil {
				r.logger.Warn("finalizer failed", "node", describe(n.key), "error", err)
				errs = append(errs, err)
			}
		}

		// pushed in reverse so children are finalized in link order
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}

	r.logger.Debug("finalized", "node", describe(node))

	if len(errs) > 0 {
		return &FinalizerError{Errors: errs}
	}
	return nil
}

func runFinalizer(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec}
		}
	}()

	return fn()
}

type describer interface {
	Description() string
}

func describe(node any) string {
	switch n := node.(type) {
	case describer:
		return n.Description()
	case interface{ Tag() *Tag }:
		return n.Tag().Description()
	case fmt.Stringer:
		return n.String()
	}

	return fmt.Sprintf("%T", node)
}
