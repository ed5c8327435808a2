package sim

import "github.com/funvibe/simstream/internal/evaluator"

// TruncationNotice is prepended to a context that was cut at the
// character budget; the cut is character-exact, so the text may start
// mid-turn.
const TruncationNotice = "[Note: The following history has been truncated due to length" +
	" constraints and can, due to this, start mid-turn.]\n\n"

// BuildContext assembles the textual context for one sampling call. The
// query is expanded against the current state first: a string value
// naming a state key is replaced by that key's value. The result is
// truncated to the last max_context_length characters.
func BuildContext(history *History, query map[string]evaluator.Object, state *evaluator.Environment) (string, bool) {
	if query == nil {
		return "", false
	}

	maxChars := contextBudget(state)

	expanded := make(map[string]evaluator.Object, len(query))
	for key, value := range query {
		if s, ok := value.(*evaluator.Str); ok {
			expanded[key] = state.GetOr(s.Value, value)
			continue
		}
		expanded[key] = value
	}

	context := history.Query(expanded)
	runes := []rune(context)
	if len(runes) <= maxChars {
		return context, false
	}
	return TruncationNotice + string(runes[len(runes)-maxChars:]), true
}

func contextBudget(state *evaluator.Environment) int {
	if obj, ok := state.Get("max_context_length"); ok {
		if n, ok := obj.(*evaluator.Integer); ok && n.Value > 0 {
			return int(n.Value)
		}
	}
	return 1000000
}
