package sim

import (
	"strings"
	"testing"

	"github.com/funvibe/simstream/internal/evaluator"
)

func snapshotWith(t *testing.T, pairs map[string]evaluator.Object) *evaluator.Environment {
	t.Helper()
	env := evaluator.NewEnvironment()
	for k, v := range pairs {
		env.Set(k, v)
	}
	return env
}

func str(s string) *evaluator.Str { return &evaluator.Str{Value: s} }

func TestQueryEmptyHistory(t *testing.T) {
	h := NewHistory()
	if got := h.Query(map[string]evaluator.Object{"all": evaluator.TRUE}); got != "" {
		t.Errorf("Query on empty history = %q, want empty", got)
	}
}

func TestQueryAllMatchesEverything(t *testing.T) {
	h := NewHistory()
	h.Append(&HistoryStep{
		State:  snapshotWith(t, map[string]evaluator.Object{"all": evaluator.TRUE}),
		Output: []string{"a = 1", "b = 2"},
	})
	h.Append(&HistoryStep{
		State:  snapshotWith(t, map[string]evaluator.Object{"all": evaluator.TRUE}),
		Output: []string{"c = 3"},
	})

	got := h.Query(map[string]evaluator.Object{"all": evaluator.TRUE})
	want := "a = 1\nb = 2\nc = 3\n"
	if got != want {
		t.Errorf("Query(all) = %q, want %q", got, want)
	}
	if !strings.HasSuffix(got, "\n") || strings.HasSuffix(got, "\n\n") {
		t.Errorf("Query must end with exactly one newline: %q", got)
	}
}

func TestQueryEqualityAndMembership(t *testing.T) {
	h := NewHistory()
	for i, vis := range []string{"plan", "x", "plan", "summary"} {
		h.Append(&HistoryStep{
			State:  snapshotWith(t, map[string]evaluator.Object{"visibility": str(vis)}),
			Output: []string{str(vis).Value + "_" + string(rune('0'+i))},
		})
	}

	got := h.Query(map[string]evaluator.Object{"visibility": str("plan")})
	if got != "plan_0\nplan_2\n" {
		t.Errorf("equality query = %q", got)
	}

	membership := h.Query(map[string]evaluator.Object{
		"visibility": &evaluator.List{Elements: []evaluator.Object{str("plan"), str("summary")}},
	})
	if membership != "plan_0\nplan_2\nsummary_3\n" {
		t.Errorf("membership query = %q", membership)
	}
}

func TestQueryMissingKeyComparesAsNone(t *testing.T) {
	h := NewHistory()
	h.Append(&HistoryStep{
		State:  snapshotWith(t, map[string]evaluator.Object{}),
		Output: []string{"untagged"},
	})
	h.Append(&HistoryStep{
		State:  snapshotWith(t, map[string]evaluator.Object{"tag": str("yes")}),
		Output: []string{"tagged"},
	})

	if got := h.Query(map[string]evaluator.Object{"tag": evaluator.NONE}); got != "untagged\n" {
		t.Errorf("Query(tag=None) = %q", got)
	}
	if got := h.Query(map[string]evaluator.Object{"tag": str("yes")}); got != "tagged\n" {
		t.Errorf("Query(tag=yes) = %q", got)
	}
}
