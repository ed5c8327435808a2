package ecs

import (
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/simstream/internal/evaluator"
)

const clockDoc = `
name: clock
entities:
  world: [heading]
variables:
  heading:
    time: 0
systems_definitions:
  heading:
    - formula: world_time = world_time + 1
      visibility: plan
`

func compileDoc(t *testing.T, source string) *Compiled {
	t.Helper()
	doc, err := ParseDocument([]byte(source), "test.yaml")
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	compiled, err := Compile(doc, evaluator.NewRegistry(1), nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return compiled
}

func TestCompileClock(t *testing.T) {
	compiled := compileDoc(t, clockDoc)

	if len(compiled.Operators) != 1 {
		t.Fatalf("operators = %d, want 1", len(compiled.Operators))
	}
	op := compiled.Operators[0]
	if op.ID != "operator_1_world_heading" {
		t.Errorf("id = %s", op.ID)
	}
	if op.Formula != "world_time = world_time + 1" {
		t.Errorf("formula = %s", op.Formula)
	}
	// A single operator rings to itself.
	if op.Next.Kind != NextStatic || op.Next.Value != op.ID {
		t.Errorf("next = %+v, want self-ring", op.Next)
	}
	if compiled.First != op.ID {
		t.Errorf("first = %s", compiled.First)
	}

	wt, _ := compiled.State.Get("world_time")
	if wt.Inspect() != "0" {
		t.Errorf("world_time = %s, want 0", wt.Inspect())
	}
	for key, want := range map[string]string{
		"agent_index":        "0",
		"prompt":             `""`,
		"max_context_length": "1000000",
		"sample_mode":        `"full"`,
		"all":                "True",
	} {
		got, ok := compiled.State.Get(key)
		if !ok || got.Inspect() != want {
			t.Errorf("state[%s] = %v, want %s", key, got, want)
		}
	}
	if view, ok := compiled.State.Get("state"); !ok {
		t.Error("state is not reachable under the key state")
	} else if _, isView := view.(*evaluator.StateView); !isView {
		t.Errorf("state[state] is %T, want *StateView", view)
	}
}

func TestCompileRingAndIDs(t *testing.T) {
	compiled := compileDoc(t, `
name: ring
entities:
  world: [heading]
  agent: [motion]
variables:
  heading:
    time: 0
  motion:
    x: 0
systems_definitions:
  heading:
    - formula: world_time = world_time + 1
  motion:
    - formula: "{entity}_x = {entity}_x + 1"
    - formula: "{entity}_x = {entity}_x * 2"
      id: custom_double
    - formula: "{entity}_x = 0"
`)

	ids := make([]string, len(compiled.Operators))
	for i, op := range compiled.Operators {
		ids[i] = op.ID
	}
	want := []string{
		"operator_1_world_heading",
		"operator_1_agent_motion",
		"custom_double",
		"operator_3_agent_motion",
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}

	// Entity substitution applied.
	if compiled.Operators[1].Formula != "agent_x = agent_x + 1" {
		t.Errorf("formula = %s", compiled.Operators[1].Formula)
	}

	// Fall-through ring: each operator points at the next, last wraps.
	for i, op := range compiled.Operators {
		wantNext := compiled.Operators[(i+1)%len(compiled.Operators)].ID
		if op.Next.Value != wantNext {
			t.Errorf("operator %s next = %s, want %s", op.ID, op.Next.Value, wantNext)
		}
	}
}

func TestCompileDefaultsMerge(t *testing.T) {
	compiled := compileDoc(t, `
name: defaults
entities:
  world: [heading]
variables:
  defaults:
    visibility: plan
    for_summary: "No"
  heading:
    time: 0
systems_definitions:
  heading:
    - formula: world_time = world_time + 1
      for_summary: "Yes"
`)

	op := compiled.Operators[0]
	if got := op.Meta["visibility"].Inspect(); got != `"plan"` {
		t.Errorf("visibility = %s, want plan from defaults", got)
	}
	if got := op.Meta["for_summary"].Inspect(); got != `"Yes"` {
		t.Errorf("for_summary = %s, want the template's own value", got)
	}
}

func TestCompileCallableInitializer(t *testing.T) {
	compiled := compileDoc(t, `
name: init
index: 2
entities:
  world: [layout]
variables:
  layout:
    size: "max(3, 5)"
    label: "grid {index}"
    scale: 1.5
systems_definitions:
  layout:
    - formula: world_time = 0
`)

	size, _ := compiled.State.Get("world_size")
	if size.Inspect() != "5" {
		t.Errorf("world_size = %s, want evaluated call result 5", size.Inspect())
	}
	label, _ := compiled.State.Get("world_label")
	if label.Inspect() != `"grid 2"` {
		t.Errorf("world_label = %s, want index-expanded literal", label.Inspect())
	}
	scale, _ := compiled.State.Get("world_scale")
	if scale.Inspect() != "1.5" {
		t.Errorf("world_scale = %s", scale.Inspect())
	}
}

func TestCompileConditionalNextPreserved(t *testing.T) {
	compiled := compileDoc(t, `
name: cond
entities:
  world: [heading]
variables:
  heading:
    time: 0
systems_definitions:
  heading:
    - formula: world_time = world_time + 1
      next: "'operator_1_world_heading' if world_time < 5 else 'done'"
    - formula: blank
      id: done
`)

	op := compiled.Operators[0]
	if op.Next.Kind != NextCond {
		t.Fatalf("next kind = %v, want conditional", op.Next.Kind)
	}
	if !strings.Contains(op.Next.Value, " if ") {
		t.Errorf("conditional next lost its expression: %s", op.Next.Value)
	}
}

func TestCompileDuplicateID(t *testing.T) {
	doc, err := ParseDocument([]byte(`
name: dup
entities:
  world: [heading]
variables:
  heading:
    time: 0
systems_definitions:
  heading:
    - formula: world_time = world_time + 1
    - formula: world_time = world_time + 2
      id: operator_1_world_heading
`), "dup.yaml")
	if err != nil {
		t.Fatal(err)
	}
	_, err = Compile(doc, evaluator.NewRegistry(1), nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Compile error = %v, want *ConfigError for duplicate id", err)
	}
}

func TestCompileUnknownNext(t *testing.T) {
	doc, err := ParseDocument([]byte(`
name: bad
entities:
  world: [heading]
variables:
  heading:
    time: 0
systems_definitions:
  heading:
    - formula: world_time = world_time + 1
      next: nowhere
`), "bad.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Compile(doc, evaluator.NewRegistry(1), nil); err == nil {
		t.Fatal("Compile succeeded with a dangling next reference")
	}
}

func TestCompileProgrammaticSystem(t *testing.T) {
	registry := evaluator.NewRegistry(1)
	registry.Register("pulse", &evaluator.Builtin{
		Name: "pulse",
		Fn: func(e *evaluator.Evaluator, args ...evaluator.Object) evaluator.Object {
			tmpl := evaluator.NewMap()
			tmpl.Set(&evaluator.Str{Value: "formula"}, &evaluator.Str{Value: "{entity}_beat = {entity}_beat + 1"})
			tmpl.Set(&evaluator.Str{Value: "visibility"}, &evaluator.Str{Value: "x"})
			return &evaluator.List{Elements: []evaluator.Object{tmpl}}
		},
	})

	doc, err := ParseDocument([]byte(`
name: generated
entities:
  world: [pulse]
variables:
  pulse:
    beat: 0
`), "gen.yaml")
	if err != nil {
		t.Fatal(err)
	}
	compiled, err := Compile(doc, registry, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(compiled.Operators) != 1 {
		t.Fatalf("operators = %d, want 1 generated", len(compiled.Operators))
	}
	op := compiled.Operators[0]
	if op.ID != "operator_1_world_pulse" {
		t.Errorf("id = %s", op.ID)
	}
	if op.Formula != "world_beat = world_beat + 1" {
		t.Errorf("formula = %s", op.Formula)
	}
}

func TestUnknownVariableReference(t *testing.T) {
	_, err := ParseDocument([]byte(`
name: bad
entities:
  world: [ghost]
variables:
  heading:
    time: 0
`), "bad.yaml")
	if err == nil {
		t.Fatal("ParseDocument accepted an entity referencing an undeclared variable")
	}
}

func TestParseNext(t *testing.T) {
	cases := []struct {
		input string
		kind  NextKind
	}{
		{"operator_1_world_heading", NextStatic},
		{"'A' if flag else 'B'", NextCond},
		{"gift", NextStatic}, // `if` must stand alone between spaces
	}
	for _, tc := range cases {
		if got := ParseNext(tc.input); got.Kind != tc.kind {
			t.Errorf("ParseNext(%q).Kind = %v, want %v", tc.input, got.Kind, tc.kind)
		}
	}
}
