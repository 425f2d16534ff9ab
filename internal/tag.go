package internal

import (
	"fmt"
	"iter"
	"slices"
	"sync/atomic"
)

type TagKind uint8

const (
	KindStatic TagKind = iota
	KindCell
	KindFormula
	KindDelegate
)

func (k TagKind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindCell:
		return "cell"
	case KindFormula:
		return "formula"
	case KindDelegate:
		return "delegate"
	default:
		return "unknown"
	}
}

var tagIDs atomic.Uint64

// Tag is the identity and staleness descriptor of one trackable entity.
type Tag struct {
	id          uint64
	kind        TagKind
	description string

	// cell tags only
	lastUpdated Timestamp
	subs        []*Subscription

	// formula tags only, replaced wholesale on every recomputation
	children []*Tag

	// delegate tags only
	target *Tag
}

func newTag(kind TagKind, description string) *Tag {
	id := tagIDs.Add(1)
	if description == "" {
		description = fmt.Sprintf("%s#%d", kind, id)
	}

	return &Tag{id: id, kind: kind, description: description}
}

// NewStaticTag creates a tag that is never stale.
func NewStaticTag(description string) *Tag {
	return newTag(KindStatic, description)
}

// NewCellTag creates a leaf tag last updated at the given time.
func NewCellTag(description string, now Timestamp) *Tag {
	t := newTag(KindCell, description)
	t.lastUpdated = now
	return t
}

// NewFormulaTag creates a tag with no children yet.
func NewFormulaTag(description string) *Tag {
	return newTag(KindFormula, description)
}

// NewDelegateTag creates a tag that forwards every staleness and description
// query to target.
func NewDelegateTag(target *Tag) *Tag {
	if target == nil {
		panic("reactor: delegate tag needs a target")
	}

	t := newTag(KindDelegate, "")
	t.target = target
	return t
}

func (t *Tag) ID() uint64 { return t.id }

func (t *Tag) Kind() TagKind { return t.kind }

func (t *Tag) Description() string {
	if t.kind == KindDelegate {
		return t.target.Description()
	}

	return t.description
}

// Target returns the tag a delegate forwards to, or t itself.
func (t *Tag) Target() *Tag {
	for t.kind == KindDelegate {
		t = t.target
	}
	return t
}

// Children returns the dependencies captured by the last evaluation of a formula tag.
// The returned slice must not be modified.
func (t *Tag) Children() []*Tag {
	return t.Target().children
}

// LastUpdated returns the most recent timestamp among the leaves reachable from t.
func (t *Tag) LastUpdated() Timestamp {
	var latest Timestamp
	for leaf := range t.Leaves() {
		if leaf.lastUpdated.Gt(latest) {
			latest = leaf.lastUpdated
		}
	}
	return latest
}

// IsUpdatedSince reports whether anything t depends on changed after ts.
// It has no side effects and terminates on shared sub-graphs.
func (t *Tag) IsUpdatedSince(ts Timestamp) bool {
	t = t.Target()

	switch t.kind {
	case KindStatic:
		return false
	case KindCell:
		return t.lastUpdated.Gt(ts)
	}

	return t.updatedSince(ts, make(map[*Tag]struct{}))
}

func (t *Tag) updatedSince(ts Timestamp, seen map[*Tag]struct{}) bool {
	t = t.Target()

	switch t.kind {
	case KindStatic:
		return false
	case KindCell:
		return t.lastUpdated.Gt(ts)
	}

	if _, ok := seen[t]; ok {
		return false
	}
	seen[t] = struct{}{}

	for _, child := range t.children {
		if child.updatedSince(ts, seen) {
			return true
		}
	}

	return false
}

// Leaves iterates over the distinct cell tags reachable from t.
func (t *Tag) Leaves() iter.Seq[*Tag] {
	return func(yield func(*Tag) bool) {
		seen := make(map[*Tag]struct{})
		stack := []*Tag{t}

		for len(stack) > 0 {
			next := stack[len(stack)-1].Target()
			stack = stack[:len(stack)-1]

			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}

			switch next.kind {
			case KindCell:
				if !yield(next) {
					return
				}
			case KindFormula:
				for i := len(next.children) - 1; i >= 0; i-- {
					stack = append(stack, next.children[i])
				}
			}
		}
	}
}

func (t *Tag) String() string {
	return fmt.Sprintf("%s(%s)", t.kind, t.Description())
}

func (t *Tag) setChildren(children []*Tag) {
	t.children = children
}

func (t *Tag) bump(ts Timestamp) {
	t.lastUpdated = ts
}

func (t *Tag) addSubscriber(s *Subscription) {
	if !slices.Contains(t.subs, s) {
		t.subs = append(t.subs, s)
	}
}

func (t *Tag) removeSubscriber(s *Subscription) {
	if i := slices.Index(t.subs, s); i >= 0 {
		t.subs = slices.Delete(t.subs, i, i+1)
	}
}

// notifySubscribers queues every subscription watching this leaf.
func (t *Tag) notifySubscribers() {
	// cloned since a subscriber may unsubscribe while being queued
	for _, s := range slices.Clone(t.subs) {
		s.notify()
	}
}
