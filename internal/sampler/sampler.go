// Package sampler implements the oracle contract the operator runner
// samples assignments through, plus the transport adapters that talk to
// concrete model providers. The runner only ever sees normalised
// candidate lines; markup stripping and quote repair happen here.
package sampler

import (
	"context"
	"fmt"

	"github.com/funvibe/simstream/internal/evaluator"
)

// Mode selects what the oracle returns: a whole assignment line, or
// only the right-hand side to be concatenated with the known LHS.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeRHSOnly Mode = "rhs_only"
)

// Request carries everything an adapter needs to produce a candidate.
type Request struct {
	Prompt            string
	Context           string
	DefaultAssignment string
	CurrentValue      evaluator.Object // nil when the key is unset
	Mode              Mode
}

// Oracle produces a candidate assignment line. Adapters retry transport
// failures internally; a returned error means the adapter surrendered.
type Oracle interface {
	Sample(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Sample(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// TransportError reports that an adapter gave up after its own retries.
// It never corrupts state: the runner finishes the step with the
// pre-operator value.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("sampler transport: %v", e.Err)
	}
	return fmt.Sprintf("sampler transport (%s): %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Loopback is the no-model oracle: it answers every request with the
// current value, so simulations run deterministically without a
// provider configured.
type Loopback struct{}

func (Loopback) Sample(ctx context.Context, req Request) (string, error) {
	var value string
	if req.CurrentValue != nil {
		value = req.CurrentValue.Inspect()
	} else {
		value = evaluator.QuoteString("Unknown")
	}
	if req.Mode == ModeRHSOnly {
		return value, nil
	}
	return req.DefaultAssignment + " = " + value, nil
}

// CurrentLineHint renders the "current line" paragraph appended to the
// prompt, naming the default assignment and the expected value type.
func CurrentLineHint(req Request) string {
	value := req.CurrentValue
	if value == nil {
		value = &evaluator.Str{Value: "Unknown"}
	}
	outputValue := req.DefaultAssignment + " = " + value.Inspect()
	return fmt.Sprintf(
		"\nIn the last block, the current line was:\n%s.\nPlease"+
			" update the right-hand-side (a concrete value of type %s) "+
			" based on recent developments while keep the left-hand-side unchanged"+
			" as %s. First think about the choices and their"+
			" format, but only write a python line when you have chosen your"+
			" continuation.",
		outputValue, evaluator.TypeName(value), req.DefaultAssignment)
}
