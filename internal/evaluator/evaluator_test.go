package evaluator

import (
	"errors"
	"testing"
)

func testEval(t *testing.T, input string, names map[string]Object) (Object, error) {
	t.Helper()
	e := New(NewRegistry(1))
	for name, value := range names {
		e.Names.Set(name, value)
	}
	return e.Eval(input)
}

func mustEval(t *testing.T, input string, names map[string]Object) Object {
	t.Helper()
	obj, err := testEval(t, input, names)
	if err != nil {
		t.Fatalf("Eval(%q): %v", input, err)
	}
	return obj
}

func TestEvalExpressions(t *testing.T) {
	names := map[string]Object{
		"x":     &Integer{Value: 3},
		"y":     &Float{Value: 0.5},
		"name":  &Str{Value: "Left"},
		"flag":  TRUE,
		"items": &List{Elements: []Object{&Integer{Value: 3}, &Integer{Value: 1}, &Integer{Value: 2}}},
		"pairs": &List{Elements: []Object{
			&Tuple{Elements: []Object{&Integer{Value: 1}, &Integer{Value: 2}}},
			&Tuple{Elements: []Object{&Integer{Value: 3}, &Integer{Value: 4}}},
		}},
	}

	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"arithmetic", "1 + 2 * 3", "7"},
		{"true_division", "1 / 2", "0.5"},
		{"float_promotion", "x + y", "3.5"},
		{"floor_division", "7 // 2", "3"},
		{"floor_division_negative", "-7 // 2", "-4"},
		{"modulo_sign", "-7 % 3", "2"},
		{"power", "2 ** 10", "1024"},
		{"negative_power", "2 ** -1", "0.5"},
		{"bitwise", "6 & 3 | 8 ^ 1", "11"},
		{"shift", "1 << 4", "16"},
		{"unary", "-x", "-3"},
		{"invert", "~0", "-1"},
		{"string_concat", "'a' + 'b'", `"ab"`},
		{"string_repeat", "'ab' * 2", `"abab"`},
		{"comparison", "x >= 3", "True"},
		{"chained_true", "1 < x < 10", "True"},
		{"chained_false", "1 < x < 2", "False"},
		{"equality_cross_numeric", "3 == 3.0", "True"},
		{"bool_not_number", "True == 1", "False"},
		{"and_short_circuit", "False and missing", "False"},
		{"or_short_circuit", "True or missing", "True"},
		{"not", "not flag", "False"},
		{"ternary_true", "'C' if flag else 'B'", `"C"`},
		{"ternary_false", "'C' if x < 0 else 'B'", `"B"`},
		{"membership", "2 in items", "True"},
		{"not_membership", "9 not in items", "True"},
		{"substring", "'ef' in 'Left'", "True"},
		{"is_none", "None is None", "True"},
		{"tuple_literal", "(1, 2 + 3)", "(1, 5)"},
		{"list_index", "items[0]", "3"},
		{"negative_index", "items[-1]", "2"},
		{"slice", "items[1:]", "[1, 2]"},
		{"slice_step", "items[::2]", "[3, 2]"},
		{"slice_reverse", "items[::-1]", "[2, 1, 3]"},
		{"string_index", "name[0]", `"L"`},
		{"dict_literal", "{(0, 1): 'wall'}[(0, 1)]", `"wall"`},
		{"attribute_method", "name.lower()", `"left"`},
		{"attribute_chain", "name.lower().startswith('l')", "True"},
		{"registry_call", "abs(-5)", "5"},
		{"registry_min_iterable", "min(items)", "1"},
		{"registry_max_args", "max(1, 7, 3)", "7"},
		{"registry_sum", "sum(items)", "6"},
		{"registry_sum_float", "sum([1, 0.5])", "1.5"},
		{"registry_len", "len(name)", "4"},
		{"registry_sorted", "sorted(items)", "[1, 2, 3]"},
		{"registry_round_banker", "round(0.5)", "0"},
		{"registry_round_digits", "round(2.675, 2)", "2.67"},
		{"registry_str", "str(1.5)", `"1.5"`},
		{"registry_int", "int('12')", "12"},
		{"registry_float", "float(3)", "3.0"},
		{"registry_bool", "bool([])", "False"},
		{"registry_dict", "len(dict())", "0"},
		{"registry_zip", "zip([1, 2], ['a', 'b'])", `[(1, "a"), (2, "b")]`},
		{"registry_enumerate", "enumerate(['a', 'b'])", `[(0, "a"), (1, "b")]`},
		{"registry_any", "any([False, True])", "True"},
		{"registry_all", "all([True, 0])", "False"},
		{"registry_ceil", "ceil(0.2)", "1"},
		{"registry_sqrt", "sqrt(16)", "4.0"},
		{"registry_mean", "mean([1, 2, 3])", "2.0"},
		{"registry_median", "median([1, 3, 2, 10])", "2.5"},
		{"registry_variance", "variance([1, 2, 3, 4])", "1.6666666666666667"},
		{"string_fn_replace", "replace('a b', ' ', '*')", `"a*b"`},
		{"string_fn_split", "split('a,b', ',')", `["a", "b"]`},
		{"string_fn_join", "join('-', ['a', 'b'])", `"a-b"`},
		{"string_fn_title", "title('the car')", `"The Car"`},
		{"string_fn_strip", "strip('  hi  ')", `"hi"`},
		{"string_fn_count", "count('banana', 'an')", "2"},
		{"kwargs", "round(number=2.5)", "2"},
		{"comprehension", "[n * 2 for n in items]", "[6, 2, 4]"},
		{"comprehension_filter", "[n for n in items if n > 1]", "[3, 2]"},
		{"comprehension_unpack", "[a + b for a, b in pairs]", "[3, 7]"},
		{"comprehension_over_string", "[c for c in 'ab']", `["a", "b"]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			obj := mustEval(t, tc.input, names)
			if got := obj.Inspect(); got != tc.want {
				t.Errorf("Eval(%q) = %s, want %s", tc.input, got, tc.want)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		kind  ErrorKind
	}{
		{"name_not_found", "missing + 1", NameNotFound},
		{"unsupported_syntax", "x = = 1", UnsupportedSyntax},
		{"bad_operand", "1 + 'a'", BadOperand},
		{"division_by_zero", "1 / 0", BadOperand},
		{"subscript_missing_key", "{1: 2}[3]", SubscriptError},
		{"subscript_out_of_range", "[1][5]", SubscriptError},
		{"call_non_function", "'abc'(1)", CallError},
		{"unordered_comparison", "1 < 'a'", BadOperand},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testEval(t, tc.input, map[string]Object{"x": &Integer{Value: 1}})
			if err == nil {
				t.Fatalf("Eval(%q) succeeded, want %s error", tc.input, tc.kind)
			}
			var evalErr *EvalError
			if !errors.As(err, &evalErr) {
				t.Fatalf("Eval(%q) error type %T, want *EvalError", tc.input, err)
			}
			if evalErr.Kind != tc.kind {
				t.Errorf("Eval(%q) kind = %s, want %s", tc.input, evalErr.Kind, tc.kind)
			}
		})
	}
}

func TestComprehensionRestoresNames(t *testing.T) {
	e := New(NewRegistry(1))
	e.Names.Set("n", &Integer{Value: 99})
	e.Names.Set("items", &List{Elements: []Object{&Integer{Value: 1}}})

	if _, err := e.Eval("[n for n in items]"); err != nil {
		t.Fatal(err)
	}
	obj, _ := e.Names.Get("n")
	if n, ok := obj.(*Integer); !ok || n.Value != 99 {
		t.Errorf("comprehension leaked its target: n = %v", obj)
	}

	if _, err := e.Eval("[tmp for tmp in items]"); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Names.Get("tmp"); ok {
		t.Error("comprehension target tmp leaked into names")
	}
}

func TestDeterministicRandom(t *testing.T) {
	run := func() string {
		e := New(NewRegistry(7))
		obj, err := e.Eval("[randint(0, 100) for i in [1, 2, 3]]")
		if err != nil {
			t.Fatal(err)
		}
		return obj.Inspect()
	}
	if a, b := run(), run(); a != b {
		t.Errorf("same seed, different draws: %s vs %s", a, b)
	}
}

func TestConstantEvaluationIsPure(t *testing.T) {
	e := New(NewRegistry(1))
	e.Names.Set("x", &Integer{Value: 4})
	first, err := e.Eval("sqrt(x) + 1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Eval("sqrt(x) + 1")
	if err != nil {
		t.Fatal(err)
	}
	if !ObjectsEqual(first, second) {
		t.Errorf("same expression, different results: %s vs %s", first.Inspect(), second.Inspect())
	}
}

func TestStateViewSubscript(t *testing.T) {
	e := New(NewRegistry(1))
	e.Names.Set("world_time", &Integer{Value: 5})
	e.Names.Set("state", &StateView{Env: e.Names})

	obj := mustEvalOn(t, e, "state['world_time'] + 1")
	if got := obj.Inspect(); got != "6" {
		t.Errorf("state['world_time'] + 1 = %s, want 6", got)
	}
}

func mustEvalOn(t *testing.T, e *Evaluator, input string) Object {
	t.Helper()
	obj, err := e.Eval(input)
	if err != nil {
		t.Fatalf("Eval(%q): %v", input, err)
	}
	return obj
}
