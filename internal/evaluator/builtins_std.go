package evaluator

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// StdBuiltins returns the arithmetic and container builtins.
func StdBuiltins() map[string]Object {
	return map[string]Object{
		"abs":       &Builtin{Name: "abs", Params: []string{"x"}, Fn: builtinAbs},
		"round":     &Builtin{Name: "round", Params: []string{"number", "ndigits"}, Fn: builtinRound},
		"min":       &Builtin{Name: "min", Fn: builtinMin},
		"max":       &Builtin{Name: "max", Fn: builtinMax},
		"sum":       &Builtin{Name: "sum", Params: []string{"iterable", "start"}, Fn: builtinSum},
		"len":       &Builtin{Name: "len", Params: []string{"obj"}, Fn: builtinLen},
		"sorted":    &Builtin{Name: "sorted", Params: []string{"iterable"}, Fn: builtinSorted},
		"enumerate": &Builtin{Name: "enumerate", Params: []string{"iterable", "start"}, Fn: builtinEnumerate},
		"zip":       &Builtin{Name: "zip", Fn: builtinZip},
		"any":       &Builtin{Name: "any", Params: []string{"iterable"}, Fn: builtinAny},
		"all":       &Builtin{Name: "all", Params: []string{"iterable"}, Fn: builtinAll},
		"filter":    &Builtin{Name: "filter", Params: []string{"function", "iterable"}, Fn: builtinFilter},
		"map":       &Builtin{Name: "map", Params: []string{"function", "iterable"}, Fn: builtinMap},
		"str":       &Builtin{Name: "str", Params: []string{"object"}, Fn: builtinStr},
		"int":       &Builtin{Name: "int", Params: []string{"x"}, Fn: builtinInt},
		"float":     &Builtin{Name: "float", Params: []string{"x"}, Fn: builtinFloat},
		"bool":      &Builtin{Name: "bool", Params: []string{"x"}, Fn: builtinBool},
		"dict":      &Builtin{Name: "dict", Params: []string{"mapping"}, Fn: builtinDict},
	}
}

func builtinAbs(e *Evaluator, args ...Object) Object {
	if len(args) != 1 {
		return newKindError(CallError, "abs() takes exactly one argument (%d given)", len(args))
	}
	switch o := args[0].(type) {
	case *Integer:
		if o.Value < 0 {
			return &Integer{Value: -o.Value}
		}
		return o
	case *Float:
		return &Float{Value: math.Abs(o.Value)}
	default:
		return newKindError(BadOperand, "bad operand type for abs(): '%s'", TypeName(args[0]))
	}
}

// builtinRound rounds half to even. Without ndigits the result is an
// integer; with ndigits it keeps the operand's floatness.
func builtinRound(e *Evaluator, args ...Object) Object {
	if len(args) == 0 || len(args) > 2 {
		return newKindError(CallError, "round() takes 1 or 2 arguments (%d given)", len(args))
	}
	v, errObj := floatArg("round", args, 0)
	if errObj != nil {
		return errObj
	}
	if len(args) == 1 {
		return &Integer{Value: int64(math.RoundToEven(v))}
	}
	n, errObj := intArg("round", args, 1)
	if errObj != nil {
		return errObj
	}
	var rounded float64
	if n >= 0 {
		// Decimal formatting rounds the exact binary value, so 2.675
		// (stored just below it) rounds to 2.67.
		rounded, _ = strconv.ParseFloat(strconv.FormatFloat(v, 'f', int(n), 64), 64)
	} else {
		scale := math.Pow(10, float64(n))
		rounded = math.RoundToEven(v*scale) / scale
	}
	if _, ok := args[0].(*Integer); ok {
		return &Integer{Value: int64(rounded)}
	}
	return &Float{Value: rounded}
}

// minMaxArgs flattens min/max arguments: a single iterable argument or
// two and more plain values.
func minMaxArgs(name string, args []Object) ([]Object, *Error) {
	if len(args) == 0 {
		return nil, newKindError(CallError, "%s() expected at least 1 argument", name)
	}
	if len(args) == 1 {
		items, errObj := iterate(args[0])
		if errObj != nil {
			return nil, errObj
		}
		if len(items) == 0 {
			return nil, newKindError(BadOperand, "%s() arg is an empty sequence", name)
		}
		return items, nil
	}
	return args, nil
}

func builtinMin(e *Evaluator, args ...Object) Object {
	items, errObj := minMaxArgs("min", args)
	if errObj != nil {
		return errObj
	}
	best := items[0]
	for _, item := range items[1:] {
		c, err := CompareOrder(item, best)
		if err != nil {
			return newKindError(BadOperand, "%s", err.Error())
		}
		if c < 0 {
			best = item
		}
	}
	return best
}

func builtinMax(e *Evaluator, args ...Object) Object {
	items, errObj := minMaxArgs("max", args)
	if errObj != nil {
		return errObj
	}
	best := items[0]
	for _, item := range items[1:] {
		c, err := CompareOrder(item, best)
		if err != nil {
			return newKindError(BadOperand, "%s", err.Error())
		}
		if c > 0 {
			best = item
		}
	}
	return best
}

func builtinSum(e *Evaluator, args ...Object) Object {
	if len(args) == 0 || len(args) > 2 {
		return newKindError(CallError, "sum() takes 1 or 2 arguments (%d given)", len(args))
	}
	items, errObj := iterate(args[0])
	if errObj != nil {
		return errObj
	}

	intTotal := int64(0)
	floatTotal := 0.0
	isFloat := false
	if len(args) == 2 {
		switch start := args[1].(type) {
		case *Integer:
			intTotal = start.Value
		case *Float:
			floatTotal = start.Value
			isFloat = true
		default:
			return newKindError(BadOperand, "sum() start must be a number, not %s", TypeName(args[1]))
		}
	}

	for _, item := range items {
		switch o := item.(type) {
		case *Integer:
			if isFloat {
				floatTotal += float64(o.Value)
			} else {
				intTotal += o.Value
			}
		case *Float:
			if !isFloat {
				floatTotal = float64(intTotal)
				isFloat = true
			}
			floatTotal += o.Value
		default:
			return newKindError(BadOperand, "unsupported operand type(s) for +: 'int' and '%s'", TypeName(item))
		}
	}
	if isFloat {
		return &Float{Value: floatTotal}
	}
	return &Integer{Value: intTotal}
}

func builtinLen(e *Evaluator, args ...Object) Object {
	if len(args) != 1 {
		return newKindError(CallError, "len() takes exactly one argument (%d given)", len(args))
	}
	switch o := args[0].(type) {
	case *Str:
		return &Integer{Value: int64(utf8.RuneCountInString(o.Value))}
	case *List:
		return &Integer{Value: int64(len(o.Elements))}
	case *Tuple:
		return &Integer{Value: int64(len(o.Elements))}
	case *Map:
		return &Integer{Value: int64(o.Len())}
	default:
		return newKindError(BadOperand, "object of type '%s' has no len()", TypeName(args[0]))
	}
}

func builtinSorted(e *Evaluator, args ...Object) Object {
	if len(args) != 1 {
		return newKindError(CallError, "sorted() takes exactly one argument (%d given)", len(args))
	}
	items, errObj := iterate(args[0])
	if errObj != nil {
		return errObj
	}
	out := make([]Object, len(items))
	copy(out, items)

	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		c, err := CompareOrder(out[i], out[j])
		if err != nil {
			sortErr = err
			return false
		}
		return c < 0
	})
	if sortErr != nil {
		return newKindError(BadOperand, "%s", sortErr.Error())
	}
	return &List{Elements: out}
}

func builtinEnumerate(e *Evaluator, args ...Object) Object {
	if len(args) == 0 || len(args) > 2 {
		return newKindError(CallError, "enumerate() takes 1 or 2 arguments (%d given)", len(args))
	}
	items, errObj := iterate(args[0])
	if errObj != nil {
		return errObj
	}
	start := int64(0)
	if len(args) == 2 {
		s, errObj := intArg("enumerate", args, 1)
		if errObj != nil {
			return errObj
		}
		start = s
	}
	out := make([]Object, len(items))
	for i, item := range items {
		out[i] = &Tuple{Elements: []Object{&Integer{Value: start + int64(i)}, item}}
	}
	return &List{Elements: out}
}

func builtinZip(e *Evaluator, args ...Object) Object {
	if len(args) == 0 {
		return &List{}
	}
	sequences := make([][]Object, len(args))
	shortest := -1
	for i, arg := range args {
		items, errObj := iterate(arg)
		if errObj != nil {
			return errObj
		}
		sequences[i] = items
		if shortest < 0 || len(items) < shortest {
			shortest = len(items)
		}
	}
	out := make([]Object, shortest)
	for i := 0; i < shortest; i++ {
		row := make([]Object, len(sequences))
		for j, seq := range sequences {
			row[j] = seq[i]
		}
		out[i] = &Tuple{Elements: row}
	}
	return &List{Elements: out}
}

func builtinAny(e *Evaluator, args ...Object) Object {
	if len(args) != 1 {
		return newKindError(CallError, "any() takes exactly one argument (%d given)", len(args))
	}
	items, errObj := iterate(args[0])
	if errObj != nil {
		return errObj
	}
	for _, item := range items {
		if Truthy(item) {
			return TRUE
		}
	}
	return FALSE
}

func builtinAll(e *Evaluator, args ...Object) Object {
	if len(args) != 1 {
		return newKindError(CallError, "all() takes exactly one argument (%d given)", len(args))
	}
	items, errObj := iterate(args[0])
	if errObj != nil {
		return errObj
	}
	for _, item := range items {
		if !Truthy(item) {
			return FALSE
		}
	}
	return TRUE
}

func builtinFilter(e *Evaluator, args ...Object) Object {
	if len(args) != 2 {
		return newKindError(CallError, "filter() takes exactly 2 arguments (%d given)", len(args))
	}
	items, errObj := iterate(args[1])
	if errObj != nil {
		return errObj
	}
	var out []Object
	for _, item := range items {
		keep := false
		if _, isNil := args[0].(*Nil); isNil {
			keep = Truthy(item)
		} else {
			result := e.apply(args[0], []Object{item}, nil)
			if isError(result) {
				return result
			}
			keep = Truthy(result)
		}
		if keep {
			out = append(out, item)
		}
	}
	return &List{Elements: out}
}

func builtinMap(e *Evaluator, args ...Object) Object {
	if len(args) != 2 {
		return newKindError(CallError, "map() takes exactly 2 arguments (%d given)", len(args))
	}
	items, errObj := iterate(args[1])
	if errObj != nil {
		return errObj
	}
	out := make([]Object, len(items))
	for i, item := range items {
		result := e.apply(args[0], []Object{item}, nil)
		if isError(result) {
			return result
		}
		out[i] = result
	}
	return &List{Elements: out}
}

func builtinStr(e *Evaluator, args ...Object) Object {
	if len(args) == 0 {
		return &Str{Value: ""}
	}
	if len(args) != 1 {
		return newKindError(CallError, "str() takes at most 1 argument (%d given)", len(args))
	}
	return &Str{Value: StrValue(args[0])}
}

func builtinInt(e *Evaluator, args ...Object) Object {
	if len(args) == 0 {
		return &Integer{Value: 0}
	}
	if len(args) != 1 {
		return newKindError(CallError, "int() takes at most 1 argument (%d given)", len(args))
	}
	switch o := args[0].(type) {
	case *Integer:
		return o
	case *Float:
		return &Integer{Value: int64(math.Trunc(o.Value))}
	case *Boolean:
		if o.Value {
			return &Integer{Value: 1}
		}
		return &Integer{Value: 0}
	case *Str:
		v, err := strconv.ParseInt(strings.TrimSpace(o.Value), 10, 64)
		if err != nil {
			return newKindError(BadOperand, "invalid literal for int(): %s", QuoteString(o.Value))
		}
		return &Integer{Value: v}
	default:
		return newKindError(BadOperand, "int() argument must be a string or a number, not '%s'", TypeName(args[0]))
	}
}

func builtinFloat(e *Evaluator, args ...Object) Object {
	if len(args) == 0 {
		return &Float{Value: 0}
	}
	if len(args) != 1 {
		return newKindError(CallError, "float() takes at most 1 argument (%d given)", len(args))
	}
	switch o := args[0].(type) {
	case *Float:
		return o
	case *Integer:
		return &Float{Value: float64(o.Value)}
	case *Boolean:
		if o.Value {
			return &Float{Value: 1}
		}
		return &Float{Value: 0}
	case *Str:
		v, err := strconv.ParseFloat(strings.TrimSpace(o.Value), 64)
		if err != nil {
			return newKindError(BadOperand, "could not convert string to float: %s", QuoteString(o.Value))
		}
		return &Float{Value: v}
	default:
		return newKindError(BadOperand, "float() argument must be a string or a number, not '%s'", TypeName(args[0]))
	}
}

func builtinBool(e *Evaluator, args ...Object) Object {
	if len(args) == 0 {
		return FALSE
	}
	if len(args) != 1 {
		return newKindError(CallError, "bool() takes at most 1 argument (%d given)", len(args))
	}
	return nativeBoolToBooleanObject(Truthy(args[0]))
}

func builtinDict(e *Evaluator, args ...Object) Object {
	if len(args) == 0 {
		return NewMap()
	}
	if len(args) != 1 {
		return newKindError(CallError, "dict() takes at most 1 argument (%d given)", len(args))
	}
	switch o := args[0].(type) {
	case *Map:
		return o.Copy()
	case *List, *Tuple:
		items, _ := iterate(o)
		m := NewMap()
		for _, item := range items {
			pair, ok := sequenceElements(item)
			if !ok || len(pair) != 2 {
				return newKindError(BadOperand, "dict() requires key/value pairs")
			}
			if !Hashable(pair[0]) {
				return newKindError(BadOperand, "unhashable type: '%s'", TypeName(pair[0]))
			}
			m.Set(pair[0], pair[1])
		}
		return m
	default:
		return newKindError(BadOperand, "dict() argument must be a mapping or pairs, not '%s'", TypeName(args[0]))
	}
}
