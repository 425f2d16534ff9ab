package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a reactive graph and the steps applied to it.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	Cells     []CellDef   `yaml:"cells,omitempty"`
	Markers   []string    `yaml:"markers,omitempty"`
	Nodes     []NodeDef   `yaml:"nodes,omitempty"`
	Formulas  []ScriptDef `yaml:"formulas,omitempty"`
	Resources []ScriptDef `yaml:"resources,omitempty"`
	Links     []LinkDef   `yaml:"links,omitempty"`

	// Subscriptions lists the names to subscribe to before the first step.
	Subscriptions []string `yaml:"subscriptions,omitempty"`

	Steps []Step `yaml:"steps"`
}

type CellDef struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

// NodeDef declares a plain lifetime node whose finalizer logs its name.
type NodeDef struct {
	Name string `yaml:"name"`

	// Fail makes the finalizer return an error after logging.
	Fail bool `yaml:"fail,omitempty"`
}

type ScriptDef struct {
	Name   string `yaml:"name"`
	Script string `yaml:"script"`
}

type LinkDef struct {
	Owner string `yaml:"owner"`
	Child string `yaml:"child"`
}

// Step is a single action. Exactly one of the action fields must be set.
type Step struct {
	Read     string `yaml:"read,omitempty"`
	Set      string `yaml:"set,omitempty"`
	Mark     string `yaml:"mark,omitempty"`
	Poll     string `yaml:"poll,omitempty"`
	Refresh  string `yaml:"refresh,omitempty"`
	Finalize string `yaml:"finalize,omitempty"`
	Flush    bool   `yaml:"flush,omitempty"`
	Batch    []Step `yaml:"batch,omitempty"`

	// Value is the value written by a set step.
	Value any `yaml:"value,omitempty"`

	// Expect is the value a read or poll must return.
	Expect any `yaml:"expect,omitempty"`

	// ExpectError is the error category a read, poll or finalize must fail with:
	// cyclic_dependency, use_after_finalize, setup, cleanup, finalizer or error.
	ExpectError string `yaml:"expect_error,omitempty"`

	// ExpectChanged is whether a poll must report a change.
	ExpectChanged *bool `yaml:"expect_changed,omitempty"`
}

func (s Step) action() (string, error) {
	actions := []string{}
	if s.Read != "" {
		actions = append(actions, "read")
	}
	if s.Set != "" {
		actions = append(actions, "set")
	}
	if s.Mark != "" {
		actions = append(actions, "mark")
	}
	if s.Poll != "" {
		actions = append(actions, "poll")
	}
	if s.Refresh != "" {
		actions = append(actions, "refresh")
	}
	if s.Finalize != "" {
		actions = append(actions, "finalize")
	}
	if s.Flush {
		actions = append(actions, "flush")
	}
	if len(s.Batch) > 0 {
		actions = append(actions, "batch")
	}

	switch len(actions) {
	case 0:
		return "", errors.New("step has no action")
	case 1:
		return actions[0], nil
	default:
		return "", fmt.Errorf("step has more than one action: %v", actions)
	}
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and that every reference resolves.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	names := map[string]string{}
	declare := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%s without a name", kind)
		}
		if other, ok := names[name]; ok {
			return fmt.Errorf("%s %q already declared as a %s", kind, name, other)
		}
		names[name] = kind
		return nil
	}

	for _, c := range s.Cells {
		if err := declare("cell", c.Name); err != nil {
			return err
		}
	}
	for _, m := range s.Markers {
		if err := declare("marker", m); err != nil {
			return err
		}
	}
	for _, n := range s.Nodes {
		if err := declare("node", n.Name); err != nil {
			return err
		}
	}
	for _, f := range s.Formulas {
		if err := declare("formula", f.Name); err != nil {
			return err
		}
		if f.Script == "" {
			return fmt.Errorf("formula %q has no script", f.Name)
		}
	}
	for _, r := range s.Resources {
		if err := declare("resource", r.Name); err != nil {
			return err
		}
		if r.Script == "" {
			return fmt.Errorf("resource %q has no script", r.Name)
		}
	}

	known := func(name string) error {
		if _, ok := names[name]; !ok {
			return fmt.Errorf("unknown name %q", name)
		}
		return nil
	}

	for _, l := range s.Links {
		if err := known(l.Owner); err != nil {
			return fmt.Errorf("link: %w", err)
		}
		if err := known(l.Child); err != nil {
			return fmt.Errorf("link: %w", err)
		}
	}

	for _, name := range s.Subscriptions {
		if err := known(name); err != nil {
			return fmt.Errorf("subscription: %w", err)
		}
	}

	return validateSteps(s.Steps, names, "steps")
}

func validateSteps(steps []Step, names map[string]string, path string) error {
	for i, step := range steps {
		where := fmt.Sprintf("%s[%d]", path, i)

		action, err := step.action()
		if err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}

		var target, want string
		switch action {
		case "read", "poll":
			target = step.Read + step.Poll
		case "set":
			target, want = step.Set, "cell"
		case "mark":
			target, want = step.Mark, "marker"
		case "refresh":
			target, want = step.Refresh, "resource"
		case "finalize":
			target = step.Finalize
		case "batch":
			if err := validateSteps(step.Batch, names, where+".batch"); err != nil {
				return err
			}
			continue
		default:
			continue
		}

		kind, ok := names[target]
		if !ok {
			return fmt.Errorf("%s: unknown name %q", where, target)
		}
		if want != "" && kind != want {
			return fmt.Errorf("%s: %s needs a %s, %q is a %s", where, action, want, target, kind)
		}
		if (action == "read" || action == "poll") && (kind == "marker" || kind == "node") {
			return fmt.Errorf("%s: cannot %s %s %q", where, action, kind, target)
		}
	}

	return nil
}
