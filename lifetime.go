package reactor

import "github.com/AnatoleLucet/reactor/internal"

type lifetimeKeyer interface {
	lifetimeKey() any
}

func keyOf(node any) any {
	if k, ok := node.(lifetimeKeyer); ok {
		return k.lifetimeKey()
	}
	return node
}

// Link makes owner own child: finalizing owner finalizes child.
// A child may have many owners and is finalized as soon as any of them is.
// Nodes are compared by identity, so use pointers for your own types.
func Link(owner, child any) error {
	return internal.GetRuntime().Link(keyOf(owner), keyOf(child))
}

// Unlink removes the edge added by Link.
func Unlink(owner, child any) {
	internal.GetRuntime().Unlink(keyOf(owner), keyOf(child))
}

// OnFinalize registers fn to run when node is finalized and returns a function
// that unregisters it. If node is already finalized fn runs right away.
func OnFinalize(node any, fn func() error) (unregister func()) {
	return internal.GetRuntime().OnFinalize(keyOf(node), fn)
}

// Finalize runs the finalizers of node, then finalizes everything it owns.
// It does nothing on a node that was already finalized.
func Finalize(node any) error {
	return internal.GetRuntime().Finalize(keyOf(node))
}

func IsFinalized(node any) bool {
	return internal.GetRuntime().IsFinalized(keyOf(node))
}
