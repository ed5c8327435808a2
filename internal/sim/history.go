// Package sim contains the stepwise simulation core: the append-only
// history store, the context builder, the operator runner and the step
// driver.
package sim

import (
	"strings"

	"github.com/funvibe/simstream/internal/evaluator"
)

// HistoryStep records one completed operator: a defensive snapshot of
// the state, the output lines it produced, and the operator id. Steps
// are never mutated after they are appended.
type HistoryStep struct {
	State      *evaluator.Environment
	Output     []string
	OperatorID string
}

// History is the append-only log owned by the driver.
type History struct {
	steps []*HistoryStep
}

func NewHistory() *History { return &History{} }

func (h *History) Append(step *HistoryStep) { h.steps = append(h.steps, step) }

func (h *History) Len() int { return len(h.steps) }

// Steps returns the underlying log in order. Callers must treat it as
// read-only.
func (h *History) Steps() []*HistoryStep { return h.steps }

// Query concatenates the output lines of every step whose state matches
// all filters, newline-joined with exactly one trailing newline. A
// filter value that is a list matches by membership; anything else by
// structural equality. A missing state key compares as None. With no
// matching lines the result is empty.
func (h *History) Query(filters map[string]evaluator.Object) string {
	var results []string
	for _, step := range h.steps {
		if stepMatches(step, filters) {
			results = append(results, step.Output...)
		}
	}
	if len(results) == 0 {
		return ""
	}
	context := strings.Join(results, "\n")
	return strings.TrimRight(context, "\n") + "\n"
}

func stepMatches(step *HistoryStep, filters map[string]evaluator.Object) bool {
	for key, want := range filters {
		have := step.State.GetOr(key, evaluator.NONE)
		if list, ok := want.(*evaluator.List); ok {
			found := false
			for _, el := range list.Elements {
				if evaluator.ObjectsEqual(have, el) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if !evaluator.ObjectsEqual(have, want) {
			return false
		}
	}
	return true
}
