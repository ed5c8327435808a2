package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/funvibe/simstream/internal/ecs"
	"github.com/funvibe/simstream/internal/evaluator"
	"github.com/funvibe/simstream/internal/sampler"
)

// ErrCancelRequested reports a cooperative stop: the driver returns it
// between steps without touching state or history.
var ErrCancelRequested = errors.New("cancel requested")

// Driver advances the simulation one operator at a time, starting from
// the compiled first operator and following the fall-through relation.
// It owns the state and the history; there is exactly one driver per
// simulation.
type Driver struct {
	state   *evaluator.Environment
	byID    map[string]*ecs.Operator
	runner  *Runner
	history *History
	current string

	Log io.Writer
}

func NewDriver(compiled *ecs.Compiled, runner *Runner) *Driver {
	return &Driver{
		state:   compiled.State,
		byID:    compiled.ByID,
		runner:  runner,
		history: NewHistory(),
		current: compiled.First,
		Log:     io.Discard,
	}
}

func (d *Driver) History() *History { return d.history }

// State exposes the live world state. It is owned by the driver; only
// read it between steps.
func (d *Driver) State() *evaluator.Environment { return d.state }

// Current returns the id of the operator the next Step will run.
func (d *Driver) Current() string { return d.current }

// Step runs one operator: copy its metadata into state, invoke the
// runner, snapshot, append to history, then resolve the successor. A
// *sampler.TransportError is returned together with the completed step
// as a warning; any other runner error discards the step. An error
// resolving the successor is returned with the step, which is already
// in history, and the current operator is left unchanged.
func (d *Driver) Step(ctx context.Context) (*HistoryStep, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelRequested, err)
	}

	op, ok := d.byID[d.current]
	if !ok {
		return nil, fmt.Errorf("unknown operator %s", d.current)
	}

	d.injectMetadata(op)

	outputs, runErr := d.runner.Run(ctx, d.state, op, d.history)
	if runErr != nil {
		var transport *sampler.TransportError
		if !errors.As(runErr, &transport) {
			return nil, runErr
		}
		fmt.Fprintf(d.Log, "warning: %v\n", runErr)
	}

	step := &HistoryStep{
		State:      d.state.Snapshot(),
		Output:     outputs,
		OperatorID: op.ID,
	}
	d.history.Append(step)

	next, err := d.resolveNext(op)
	if err != nil {
		return step, err
	}
	d.current = next

	return step, runErr
}

// injectMetadata copies the operator's fields other than id, formula
// and next into state, so downstream operators and context queries can
// observe the tags.
func (d *Driver) injectMetadata(op *ecs.Operator) {
	if op.Query != nil {
		q := evaluator.NewMap()
		keys := make([]string, 0, len(op.Query))
		for k := range op.Query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			q.Set(&evaluator.Str{Value: k}, op.Query[k])
		}
		d.state.Set("query", q)
	} else {
		d.state.Set("query", evaluator.NONE)
	}

	if op.UseLM != nil {
		d.state.Set("use_lm", op.UseLM)
	} else {
		d.state.Set("use_lm", evaluator.FALSE)
	}

	if op.Prompt != "" {
		d.state.Set("prompt", &evaluator.Str{Value: op.Prompt})
	}

	keys := make([]string, 0, len(op.Meta))
	for k := range op.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.state.Set(k, op.Meta[k])
	}
}

// resolveNext computes the successor id: conditional references
// evaluate against the post-operator state and must produce a string.
func (d *Driver) resolveNext(op *ecs.Operator) (string, error) {
	if op.Next.Kind == ecs.NextStatic {
		return op.Next.Value, nil
	}

	e := evaluator.New(d.runner.Registry)
	e.Names = d.state
	result, err := e.Eval(op.Next.Value)
	if err != nil {
		return "", fmt.Errorf("operator %s: evaluating next: %w", op.ID, err)
	}
	id, ok := result.(*evaluator.Str)
	if !ok {
		return "", fmt.Errorf("operator %s: next evaluated to %s, want a string id", op.ID, evaluator.TypeName(result))
	}
	if _, exists := d.byID[id.Value]; !exists {
		return "", fmt.Errorf("operator %s: next resolved to unknown operator %s", op.ID, id.Value)
	}
	return id.Value, nil
}

// Run steps the driver until world_time reaches endTime, collecting the
// stream. Transport warnings are logged and do not stop the run.
func (d *Driver) Run(ctx context.Context, endTime int) ([]*HistoryStep, error) {
	var stream []*HistoryStep
	for {
		step, err := d.Step(ctx)
		if err != nil {
			var transport *sampler.TransportError
			if errors.As(err, &transport) {
				stream = append(stream, step)
			} else {
				return stream, err
			}
		} else {
			stream = append(stream, step)
		}

		if worldTime, ok := stepWorldTime(step); ok && worldTime >= float64(endTime) {
			return stream, nil
		}
	}
}

func stepWorldTime(step *HistoryStep) (float64, bool) {
	if step == nil {
		return 0, false
	}
	switch t := step.State.GetOr("world_time", evaluator.NONE).(type) {
	case *evaluator.Integer:
		return float64(t.Value), true
	case *evaluator.Float:
		return t.Value, true
	default:
		return 0, false
	}
}
