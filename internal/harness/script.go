package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"

	"github.com/AnatoleLucet/reactor"
)

// eval runs a scenario script and converts its last value back to Go.
// When a builtin failed because of a runtime error, that error is returned
// instead of the script error so its type survives.
func (r *runner) eval(ctx context.Context, label, source string, extra map[string]*object.Builtin) (any, error) {
	var cause error

	globals := map[string]*object.Builtin{
		"get":     r.makeGetFn(&cause, true),
		"peek":    r.makeGetFn(&cause, false),
		"consume": r.makeConsumeFn(),
		"fail":    makeFailFn(&cause),
	}
	for name, fn := range extra {
		globals[name] = fn
	}

	var opts []risor.Option
	for name, fn := range globals {
		opts = append(opts, risor.WithGlobal(name, fn))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		if cause != nil {
			return nil, cause
		}
		return nil, fmt.Errorf("harness: script %s: %w", label, err)
	}

	return fromObject(result), nil
}

// makeGetFn creates the "get" and "peek" builtins.
//
// get(name) → value
func (r *runner) makeGetFn(cause *error, tracked bool) *object.Builtin {
	name := "peek"
	if tracked {
		name = "get"
	}

	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}

		target, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("%s: name must be a string, got %s", name, args[0].Type())
		}

		entry, ok := r.values[target.Value()]
		if !ok {
			return object.Errorf("%s: %q is not a cell, formula or resource", name, target.Value())
		}

		read := entry.Read
		if !tracked {
			read = func() (any, error) {
				return readUntracked(entry)
			}
		}

		value, err := read()
		if err != nil && !reactor.IsCleanupOnly(err) {
			*cause = err
			return object.Errorf("%s: %s: %v", name, target.Value(), err)
		}

		return toObject(value)
	})
}

// makeConsumeFn creates the "consume" builtin.
//
// consume(marker)
func (r *runner) makeConsumeFn() *object.Builtin {
	return object.NewBuiltin("consume", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("consume", 1, len(args))
		}

		target, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("consume: name must be a string, got %s", args[0].Type())
		}

		marker, ok := r.markers[target.Value()]
		if !ok {
			return object.Errorf("consume: %q is not a marker", target.Value())
		}

		marker.Consume()
		return object.Nil
	})
}

// makeFailFn creates the "fail" builtin.
//
// fail(message)
func makeFailFn(cause *error) *object.Builtin {
	return object.NewBuiltin("fail", func(ctx context.Context, args ...object.Object) object.Object {
		msg := joinArgs(args)
		*cause = errors.New(msg)
		return object.Errorf("%s", msg)
	})
}

// makeOnCleanupFn creates the "on_cleanup" builtin of a resource run.
//
// on_cleanup(args...)
func (r *runner) makeOnCleanupFn(scope *reactor.ResourceScope) *object.Builtin {
	return object.NewBuiltin("on_cleanup", func(ctx context.Context, args ...object.Object) object.Object {
		msg := joinArgs(args)
		scope.OnCleanup(func() error {
			r.trace.say(msg)
			return nil
		})
		return object.Nil
	})
}

// makeOwnFn creates the "own" builtin of a resource run.
//
// own(name)
func (r *runner) makeOwnFn(scope *reactor.ResourceScope) *object.Builtin {
	return object.NewBuiltin("own", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("own", 1, len(args))
		}

		target, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("own: name must be a string, got %s", args[0].Type())
		}

		child, ok := r.nodes[target.Value()]
		if !ok {
			return object.Errorf("own: unknown name %q", target.Value())
		}

		if err := scope.Own(child); err != nil {
			return object.Errorf("own: %v", err)
		}
		return object.Nil
	})
}

func joinArgs(args []object.Object) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		v := fromObject(arg)
		if str, ok := v.(string); ok {
			parts[i] = str
			continue
		}
		parts[i] = formatValue(v)
	}
	return strings.Join(parts, " ")
}

func fromObject(obj object.Object) any {
	switch o := obj.(type) {
	case nil:
		return nil
	case *object.Int:
		return o.Value()
	case *object.Float:
		return o.Value()
	case *object.String:
		return o.Value()
	case *object.Bool:
		return o.Value()
	}

	if obj == object.Nil {
		return nil
	}
	return obj.Interface()
}

func toObject(v any) object.Object {
	switch val := normalize(v).(type) {
	case nil:
		return object.Nil
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}
