package harness

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AnatoleLucet/reactor"
)

// recorder builds the trace. It observes the runtime and buffers the events
// caused by a step until the step's own line is written.
type recorder struct {
	lines   []string
	pending []pendingLine

	// indentation of step lines, increased inside batches
	base int

	// whether each open event was written to the trace
	open []bool
}

type pendingLine struct {
	// number of traced events open when the line was recorded
	depth int
	text  string
}

func (r *recorder) Begin(ev reactor.Event) func(error) {
	traced := isTraced(ev.Kind)
	if traced {
		r.say(ev.Kind.String() + " " + ev.Description)
	}

	r.open = append(r.open, traced)
	n := len(r.open)

	return func(error) {
		if len(r.open) >= n {
			r.open = r.open[:n-1]
		}
	}
}

func isTraced(kind reactor.EventKind) bool {
	switch kind {
	case reactor.EventCompute, reactor.EventSetup, reactor.EventCleanup, reactor.EventFinalize, reactor.EventNotify:
		return true
	default:
		return false
	}
}

// say adds a free-form line nested under the innermost open event.
func (r *recorder) say(msg string) {
	r.pending = append(r.pending, pendingLine{depth: r.depth(), text: msg})
}

// step writes a step line followed by the events it caused.
func (r *recorder) step(format string, args ...any) {
	r.lines = append(r.lines, r.indent(r.base)+fmt.Sprintf(format, args...))
	r.drain()
}

func (r *recorder) drain() {
	for _, p := range r.pending {
		r.lines = append(r.lines, r.indent(r.base+1+p.depth)+p.text)
	}
	r.pending = r.pending[:0]
}

func (r *recorder) depth() int {
	d := 0
	for _, traced := range r.open {
		if traced {
			d++
		}
	}
	return d
}

func (r *recorder) indent(depth int) string {
	return strings.Repeat("  ", depth)
}

func (r *recorder) String() string {
	return strings.Join(r.lines, "\n") + "\n"
}

// normalize maps the numeric types of YAML and Go onto int64 and float64.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

func formatValue(v any) string {
	switch val := normalize(v).(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ErrorCategory names the kind of a runtime error as used by expect_error.
func ErrorCategory(err error) string {
	var (
		setup    *reactor.SetupError
		cleanup  *reactor.CleanupError
		finalize *reactor.FinalizerError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &setup):
		return "setup"
	case errors.Is(err, reactor.ErrCyclicDependency):
		return "cyclic_dependency"
	case errors.Is(err, reactor.ErrUseAfterFinalize):
		return "use_after_finalize"
	case errors.As(err, &cleanup):
		return "cleanup"
	case errors.As(err, &finalize):
		return "finalizer"
	default:
		return "error"
	}
}
