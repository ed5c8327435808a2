package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/funvibe/simstream/internal/ecs"
	"github.com/funvibe/simstream/internal/evaluator"
	"github.com/funvibe/simstream/internal/sampler"
)

const clockDoc = `
name: clock
end_time: 3
entities:
  world: [heading]
variables:
  heading:
    time: 0
systems_definitions:
  heading:
    - formula: world_time = world_time + 1
      visibility: plan
      for_summary: "No"
`

func newClockDriver(t *testing.T) *Driver {
	t.Helper()
	doc, err := ecs.ParseDocument([]byte(clockDoc), "clock.yaml")
	if err != nil {
		t.Fatal(err)
	}
	registry := evaluator.NewRegistry(1)
	compiled, err := ecs.Compile(doc, registry, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewDriver(compiled, NewRunner(registry, sampler.Loopback{}, 3))
}

func TestDriverClockThreeSteps(t *testing.T) {
	driver := newClockDriver(t)
	ctx := context.Background()

	want := []string{"world_time = 1", "world_time = 2", "world_time = 3"}
	for i, line := range want {
		step, err := driver.Step(ctx)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if len(step.Output) != 1 || step.Output[0] != line {
			t.Errorf("step %d output = %q, want %q", i, step.Output, line)
		}
		if step.OperatorID != "operator_1_world_heading" {
			t.Errorf("step %d operator = %s", i, step.OperatorID)
		}
	}

	if driver.History().Len() != 3 {
		t.Errorf("history length = %d, want 3", driver.History().Len())
	}
	wt, _ := driver.State().Get("world_time")
	if wt.Inspect() != "3" {
		t.Errorf("final world_time = %s, want 3", wt.Inspect())
	}
}

func TestDriverSnapshotsAreImmutable(t *testing.T) {
	driver := newClockDriver(t)
	ctx := context.Background()

	first, err := driver.Step(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := driver.Step(ctx); err != nil {
			t.Fatal(err)
		}
	}

	wt, _ := first.State.Get("world_time")
	if wt.Inspect() != "1" {
		t.Errorf("earlier snapshot mutated: world_time = %s, want 1", wt.Inspect())
	}
}

func TestDriverCopiesMetadataIntoState(t *testing.T) {
	driver := newClockDriver(t)
	if _, err := driver.Step(context.Background()); err != nil {
		t.Fatal(err)
	}

	vis, ok := driver.State().Get("visibility")
	if !ok || vis.Inspect() != `"plan"` {
		t.Errorf("state[visibility] = %v, want plan", vis)
	}
	useLM, ok := driver.State().Get("use_lm")
	if !ok || useLM != evaluator.FALSE {
		t.Errorf("state[use_lm] = %v, want False", useLM)
	}
	if _, ok := driver.State().Get("id"); ok {
		t.Error("operator id must not leak into state")
	}
	if _, ok := driver.State().Get("formula"); ok {
		t.Error("operator formula must not leak into state")
	}
	if _, ok := driver.State().Get("next"); ok {
		t.Error("operator next must not leak into state")
	}
}

func TestDriverConditionalNext(t *testing.T) {
	doc, err := ecs.ParseDocument([]byte(`
name: branching
entities:
  world: [flow]
variables:
  flow:
    flag: true
    time: 0
systems_definitions:
  flow:
    - formula: world_time = world_time + 1
      next: "'operator_3_world_flow' if world_flag else 'operator_2_world_flow'"
    - formula: world_mark = 'B'
      id: operator_2_world_flow
    - formula: world_mark = 'C'
      id: operator_3_world_flow
`), "branching.yaml")
	if err != nil {
		t.Fatal(err)
	}

	runSequence := func(flag bool) string {
		registry := evaluator.NewRegistry(1)
		compiled, err := ecs.Compile(doc, registry, nil)
		if err != nil {
			t.Fatal(err)
		}
		flagObj := evaluator.Object(evaluator.FALSE)
		if flag {
			flagObj = evaluator.TRUE
		}
		compiled.State.Set("world_flag", flagObj)
		driver := NewDriver(compiled, NewRunner(registry, sampler.Loopback{}, 3))

		ctx := context.Background()
		if _, err := driver.Step(ctx); err != nil { // A
			t.Fatal(err)
		}
		step, err := driver.Step(ctx)
		if err != nil {
			t.Fatal(err)
		}
		return step.OperatorID
	}

	if got := runSequence(true); got != "operator_3_world_flow" {
		t.Errorf("flag=true: second operator = %s, want C", got)
	}
	if got := runSequence(false); got != "operator_2_world_flow" {
		t.Errorf("flag=false: second operator = %s, want B", got)
	}
}

func TestDriverCancellation(t *testing.T) {
	driver := newClockDriver(t)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := driver.Step(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	_, err := driver.Step(ctx)
	if !errors.Is(err, ErrCancelRequested) {
		t.Fatalf("err = %v, want ErrCancelRequested", err)
	}
	// The discarded step must not have reached history or state.
	if driver.History().Len() != 1 {
		t.Errorf("history length = %d after cancellation, want 1", driver.History().Len())
	}
	wt, _ := driver.State().Get("world_time")
	if wt.Inspect() != "1" {
		t.Errorf("state advanced after cancellation: %s", wt.Inspect())
	}
}

func TestDriverRunUntilEndTime(t *testing.T) {
	driver := newClockDriver(t)
	stream, err := driver.Run(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(stream) != 5 {
		t.Fatalf("stream length = %d, want 5", len(stream))
	}
	wt, _ := stream[len(stream)-1].State.Get("world_time")
	if wt.Inspect() != "5" {
		t.Errorf("final world_time = %s", wt.Inspect())
	}
}
