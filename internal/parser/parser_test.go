package parser

import (
	"strings"
	"testing"
)

func TestParseExpressions(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"integer", "5", "5"},
		{"float", "0.5", "0.5"},
		{"string", "'left'", `"left"`},
		{"boolean", "True", "True"},
		{"none", "None", "None"},
		{"precedence", "1 + 2 * 3", "(1 + (2 * 3))"},
		{"grouped", "(1 + 2) * 3", "((1 + 2) * 3)"},
		{"unary_minus", "-a * b", "((-a) * b)"},
		{"power_right_assoc", "2 ** 3 ** 2", "(2 ** (3 ** 2))"},
		{"unary_vs_power", "-2 ** 2", "(-(2 ** 2))"},
		{"floordiv", "7 // 2", "(7 // 2)"},
		{"modulo", "7 % 2", "(7 % 2)"},
		{"comparison", "a < b", "(a < b)"},
		{"chained_comparison", "0 <= x < 10", "(0 <= x < 10)"},
		{"membership", "x in [1, 2]", "(x in [1, 2])"},
		{"not_in", "x not in tiles", "(x not in tiles)"},
		{"is_not", "x is not None", "(x is not None)"},
		{"bool_ops", "a and b or c", "((a and b) or c)"},
		{"not_binds_loose", "not a == b", "(not (a == b))"},
		{"ternary", "'C' if flag else 'B'", `("C" if flag else "B")`},
		{"nested_ternary", "a if p else b if q else c", "(a if p else (b if q else c))"},
		{"empty_tuple", "()", "()"},
		{"single_tuple", "(1,)", "(1,)"},
		{"tuple", "(1, 2, 3)", "(1, 2, 3)"},
		{"list", "[1, 2]", "[1, 2]"},
		{"empty_list", "[]", "[]"},
		{"dict", "{1: 'a', (0, 1): 'b'}", `{1: "a", (0, 1): "b"}`},
		{"empty_dict", "{}", "{}"},
		{"index", "tiles[(x, y)]", "tiles[(x, y)]"},
		{"slice", "xs[1:3]", "xs[1:3]"},
		{"slice_step", "xs[::2]", "xs[::2]"},
		{"slice_open", "xs[2:]", "xs[2:]"},
		{"call", "max(a, b)", "max(a, b)"},
		{"call_kwargs", "object_map(5, index=2)", "object_map(5, index=2)"},
		{"attribute_call", "s.lower()", "s.lower()"},
		{"chained_attribute", "s.lower().startswith('y')", `s.lower().startswith("y")`},
		{"comprehension", "[x * 2 for x in xs]", "[(x * 2) for x in xs]"},
		{"comprehension_filter", "[x for x in xs if x > 0]", "[x for x in xs if (x > 0)]"},
		{"comprehension_unpack", "[x + y for x, y in pairs]", "[(x + y) for (x, y) in pairs]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.input, err)
			}
			if got := expr.String(); got != tc.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantSub string
	}{
		{"empty", "", "unexpected token"},
		{"trailing", "1 + 2 3", "after expression"},
		{"unterminated_string", "'oops", "unterminated string"},
		{"assignment", "x = 5", "after expression"},
		{"double_generator", "[x for x in xs for y in ys]", "single generator"},
		{"bad_ternary", "a if b", "expected ELSE"},
		{"positional_after_keyword", "f(a=1, 2)", "positional argument follows keyword"},
		{"unclosed_paren", "(1 + 2", "expected )"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error containing %q", tc.input, tc.wantSub)
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("Parse(%q) error = %q, want substring %q", tc.input, err.Error(), tc.wantSub)
			}
		})
	}
}
