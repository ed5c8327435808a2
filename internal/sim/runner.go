package sim

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/funvibe/simstream/internal/ecs"
	"github.com/funvibe/simstream/internal/evaluator"
	"github.com/funvibe/simstream/internal/sampler"
)

// Runner executes a single operator against the state: either a direct
// formula evaluation, a blank no-op, or the sampling retry loop.
type Runner struct {
	Registry    *evaluator.Registry
	Sampler     sampler.Oracle
	MaxAttempts int
	Log         io.Writer
}

func NewRunner(registry *evaluator.Registry, oracle sampler.Oracle, maxAttempts int) *Runner {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Runner{
		Registry:    registry,
		Sampler:     oracle,
		MaxAttempts: maxAttempts,
		Log:         io.Discard,
	}
}

func (r *Runner) evaluator(state *evaluator.Environment) *evaluator.Evaluator {
	e := evaluator.New(r.Registry)
	e.Names = state
	return e
}

// Run executes op. The returned outputs are never empty: every branch
// emits at least one line. A *sampler.TransportError return means the
// step completed with the pre-operator value; state is intact.
func (r *Runner) Run(ctx context.Context, state *evaluator.Environment, op *ecs.Operator, history *History) ([]string, error) {
	state.Set("state", &evaluator.StateView{Env: state})

	if r.resolveUseLM(state, op) {
		return r.runSampled(ctx, state, op, history)
	}
	return r.runDirect(state, op), nil
}

// resolveUseLM folds the tri-state use_lm setting to a bool: a literal
// boolean is used directly, a string evaluates as an expression against
// the state, a callable applies to the state view. Anything that fails
// or returns a non-boolean counts as false.
func (r *Runner) resolveUseLM(state *evaluator.Environment, op *ecs.Operator) bool {
	switch setting := op.UseLM.(type) {
	case *evaluator.Boolean:
		return setting.Value
	case *evaluator.Str:
		result, err := r.evaluator(state).Eval(setting.Value)
		if err != nil {
			fmt.Fprintf(r.Log, "failed to evaluate use_lm expression: %v\n", err)
			return false
		}
		if b, ok := result.(*evaluator.Boolean); ok {
			return b.Value
		}
		return false
	case *evaluator.Builtin:
		result := setting.Fn(r.evaluator(state), &evaluator.StateView{Env: state})
		if b, ok := result.(*evaluator.Boolean); ok {
			return b.Value
		}
		return false
	default:
		return false
	}
}

// runDirect evaluates the formula's right-hand side and assigns the
// left-hand side, supporting nested subscript targets. An evaluation
// failure is logged and degrades to a comment line, so every operator
// still contributes output.
func (r *Runner) runDirect(state *evaluator.Environment, op *ecs.Operator) []string {
	if op.Formula == "blank" {
		return []string{"# \n"}
	}

	lhs, rhs, ok := splitAssignment(op.Formula)
	if !ok {
		fmt.Fprintf(r.Log, "error executing formula: %s. Reason: not an assignment\n", op.Formula)
		return []string{"# error executing formula"}
	}

	value, err := r.evaluator(state).Eval(rhs)
	if err != nil {
		fmt.Fprintf(r.Log, "error executing formula: %s. Reason: %v\n", op.Formula, err)
		return []string{"# error executing formula"}
	}

	if err := assignPath(state, lhs, value); err != nil {
		fmt.Fprintf(r.Log, "error executing formula: %s. Reason: %v\n", op.Formula, err)
		return []string{"# error executing formula"}
	}

	return []string{lhs + " = " + value.Inspect()}
}

var subscriptKeyPattern = regexp.MustCompile(`\['(.*?)'\]`)

// assignPath writes value at a flat key, or walks a chained subscript
// target like name['k1']['k2'], creating intermediate maps as needed
// without disturbing existing keys at higher levels. Indexing into a
// non-map value is refused.
func assignPath(state *evaluator.Environment, lhs string, value evaluator.Object) error {
	if !strings.Contains(lhs, "['") {
		state.Set(lhs, value)
		return nil
	}

	base := lhs[:strings.Index(lhs, "[")]
	keys := subscriptKeyPattern.FindAllStringSubmatch(lhs, -1)
	if base == "" || len(keys) == 0 {
		return fmt.Errorf("invalid assignment target %s", lhs)
	}

	container, ok := state.Get(base)
	if !ok {
		container = evaluator.NewMap()
		state.Set(base, container)
	}
	current, ok := container.(*evaluator.Map)
	if !ok {
		return fmt.Errorf("cannot index into %s value of %s", evaluator.TypeName(container), base)
	}

	for _, match := range keys[:len(keys)-1] {
		key := &evaluator.Str{Value: match[1]}
		next, ok := current.Get(key)
		if !ok {
			child := evaluator.NewMap()
			current.Set(key, child)
			current = child
			continue
		}
		child, ok := next.(*evaluator.Map)
		if !ok {
			return fmt.Errorf("cannot index into %s value at key %s", evaluator.TypeName(next), match[1])
		}
		current = child
	}
	current.Set(&evaluator.Str{Value: keys[len(keys)-1][1]}, value)
	return nil
}

func splitAssignment(formula string) (lhs, rhs string, ok bool) {
	idx := strings.Index(formula, "=")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(formula[:idx]), strings.TrimSpace(formula[idx+1:]), true
}

// attemptCtx carries the retry state the feedback paragraph is rendered
// from; the runner knows nothing about provider semantics.
type attemptCtx struct {
	lastText string
	lastErr  string
}

func (a attemptCtx) feedback() string {
	return "\nFeedback: You already tried (generated text: " + a.lastText +
		") and got the following error: " + a.lastErr +
		". \nPlease adjust and try again, making sure to closely follow the" +
		" format of the example from the previous block, do not use apostrophes" +
		" within strings but skip them or use a * instead, which avoids" +
		" unterminated string errors in the special setting used here."
}

func shapeMismatchMessage(defaultAssignment string) string {
	return "The response did not follow the expected pattern, which is a" +
		" one-line python assignment formula as in the example from the" +
		" previous block with the same left-hand side (" + defaultAssignment +
		"). Do not otherwise communicate, only generate a one-line python" +
		" formula inside single quotations (no escape characters are required)" +
		" and if the right-hand side is a string then use double quotes for the" +
		" string and avoid apostrophes within it (skip them or use * instead)."
}

// runSampled drives the bounded sampling loop: derive the expected type
// from the default right-hand side, build the context, then request
// candidates until one parses to a matching type. Exhaustion re-emits
// the current value so the per-operator line count stays stable.
func (r *Runner) runSampled(ctx context.Context, state *evaluator.Environment, op *ecs.Operator, history *History) ([]string, error) {
	defaultLHS, defaultRHS, hasRHS := splitAssignment(op.Formula)
	if !hasRHS {
		defaultLHS = strings.TrimSpace(op.Formula)
	}

	expected := "str"
	if hasRHS {
		if value, err := r.evaluator(state).Eval(defaultRHS); err != nil {
			fmt.Fprintf(r.Log, "error evaluating default right-hand side in formula: %s. Reason: %v\n", op.Formula, err)
		} else {
			expected = expectedType(value)
		}
	}

	context, _ := BuildContext(history, op.Query, state)
	prompt := r.resolvePrompt(state, op)

	var attempt attemptCtx
	errorOccurred := false
	attempts := 0

	for attempts < r.MaxAttempts {
		fmt.Fprintf(r.Log, "attempt %d of %d\n", attempts, r.MaxAttempts)

		if errorOccurred {
			prompt += attempt.feedback()
		}

		sampleMode := sampler.Mode(evaluator.StrValue(state.GetOr("sample_mode", &evaluator.Str{Value: "full"})))
		currentValue, _ := state.Get(defaultLHS)

		req := sampler.Request{
			Prompt:            prompt,
			Context:           context,
			DefaultAssignment: defaultLHS,
			CurrentValue:      currentValue,
			Mode:              sampler.ModeFull,
		}

		var candidate string
		var err error
		if sampleMode == sampler.ModeRHSOnly {
			req.Mode = sampler.ModeRHSOnly
			req.Context = context + defaultLHS + " = "
			var rhs string
			rhs, err = r.Sampler.Sample(ctx, req)
			candidate = defaultLHS + " = " + rhs
		} else {
			candidate, err = r.Sampler.Sample(ctx, req)
		}
		if err != nil {
			// Transport failure: the adapter already retried. Complete
			// the step with the pre-operator value and surface the
			// warning.
			fmt.Fprintf(r.Log, "sampler transport failed for %s: %v\n", op.ID, err)
			return []string{r.fallbackLine(state, defaultLHS)}, err
		}

		attempt.lastText = candidate

		if !strings.HasPrefix(candidate, defaultLHS) {
			attempt.lastErr = shapeMismatchMessage(defaultLHS)
			fmt.Fprintln(r.Log, attempt.lastErr)
			errorOccurred = true
			attempts++
			continue
		}

		_, candidateRHS, ok := splitAssignment(candidate)
		if !ok {
			attempt.lastErr = shapeMismatchMessage(defaultLHS)
			fmt.Fprintln(r.Log, attempt.lastErr)
			errorOccurred = true
			attempts++
			continue
		}

		value, evalErr := r.evaluator(state).Eval(candidateRHS)
		if evalErr != nil {
			attempt.lastErr = fmt.Sprintf("Error evaluating sampled formula. Reason: %v. ", evalErr)
			fmt.Fprintln(r.Log, attempt.lastErr)
			errorOccurred = true
			attempts++
			continue
		}

		if !typeMatches(expected, value) {
			attempt.lastErr = fmt.Sprintf("Type mismatch: Expected %s, got %s.", expected, evaluator.TypeName(value))
			fmt.Fprintln(r.Log, attempt.lastErr)
			errorOccurred = true
			attempts++
			continue
		}

		state.Set(defaultLHS, value)
		return []string{defaultLHS + " = " + value.Inspect() + " # sampled"}, nil
	}

	return []string{r.fallbackLine(state, defaultLHS)}, nil
}

// fallbackLine re-emits the current value as a sampled assignment, with
// no state change.
func (r *Runner) fallbackLine(state *evaluator.Environment, defaultLHS string) string {
	value := state.GetOr(defaultLHS, &evaluator.Str{Value: "Unknown"})
	return defaultLHS + " = " + value.Inspect() + " # sampled"
}

// resolvePrompt picks the instruction template: an operator prompt that
// names a state key dereferences it, otherwise the literal is used, and
// without an operator prompt the state's default applies.
func (r *Runner) resolvePrompt(state *evaluator.Environment, op *ecs.Operator) string {
	if op.Prompt != "" {
		return evaluator.StrValue(state.GetOr(op.Prompt, &evaluator.Str{Value: op.Prompt}))
	}
	return evaluator.StrValue(state.GetOr("prompt", &evaluator.Str{Value: ""}))
}

// expectedType derives the type tag constraining sampled values from
// the default's evaluation.
func expectedType(value evaluator.Object) string {
	switch value.(type) {
	case *evaluator.Boolean:
		return "bool"
	case *evaluator.Integer, *evaluator.Float:
		return "number"
	default:
		return evaluator.TypeName(value)
	}
}

// typeMatches applies the numeric type policy: int and float are
// interchangeable under number, booleans only satisfy bool, the
// container kinds must match exactly.
func typeMatches(expected string, value evaluator.Object) bool {
	switch expected {
	case "number", "int", "int64", "float":
		switch value.(type) {
		case *evaluator.Integer, *evaluator.Float:
			return true
		}
		return false
	case "bool":
		_, ok := value.(*evaluator.Boolean)
		return ok
	case "str":
		_, ok := value.(*evaluator.Str)
		return ok
	case "tuple":
		_, ok := value.(*evaluator.Tuple)
		return ok
	case "list":
		_, ok := value.(*evaluator.List)
		return ok
	case "dict":
		_, ok := value.(*evaluator.Map)
		return ok
	default:
		return false
	}
}
