package evaluator

import "math"

// MathBuiltins returns the mathematical primitives callable from
// formulas. ceil and floor return integers; the rest return floats.
func MathBuiltins() map[string]Object {
	pack := map[string]Object{
		"pi": &Float{Value: math.Pi},
		"e":  &Float{Value: math.E},
	}

	intUnary := map[string]func(float64) float64{
		"ceil":  math.Ceil,
		"floor": math.Floor,
	}
	for name, fn := range intUnary {
		fn := fn
		pack[name] = &Builtin{Name: name, Params: []string{"x"}, Fn: func(e *Evaluator, args ...Object) Object {
			v, errObj := floatArg(name, args, 0)
			if errObj != nil {
				return errObj
			}
			return &Integer{Value: int64(fn(v))}
		}}
	}

	floatUnary := map[string]func(float64) float64{
		"sqrt":    math.Sqrt,
		"exp":     math.Exp,
		"log":     math.Log,
		"log10":   math.Log10,
		"sin":     math.Sin,
		"cos":     math.Cos,
		"tan":     math.Tan,
		"asin":    math.Asin,
		"acos":    math.Acos,
		"atan":    math.Atan,
		"degrees": func(v float64) float64 { return v * 180 / math.Pi },
		"radians": func(v float64) float64 { return v * math.Pi / 180 },
	}
	for name, fn := range floatUnary {
		name, fn := name, fn
		pack[name] = &Builtin{Name: name, Params: []string{"x"}, Fn: func(e *Evaluator, args ...Object) Object {
			v, errObj := floatArg(name, args, 0)
			if errObj != nil {
				return errObj
			}
			result := fn(v)
			if math.IsNaN(result) {
				return newKindError(BadOperand, "math domain error")
			}
			return &Float{Value: result}
		}}
	}

	return pack
}

func floatArg(name string, args []Object, i int) (float64, *Error) {
	if i >= len(args) {
		return 0, newKindError(CallError, "%s() missing argument", name)
	}
	v, ok := asFloat(args[i])
	if !ok {
		return 0, newKindError(BadOperand, "%s() argument must be a number, not %s", name, TypeName(args[i]))
	}
	return v, nil
}

func intArg(name string, args []Object, i int) (int64, *Error) {
	if i >= len(args) {
		return 0, newKindError(CallError, "%s() missing argument", name)
	}
	v, ok := args[i].(*Integer)
	if !ok {
		return 0, newKindError(BadOperand, "%s() argument must be an integer, not %s", name, TypeName(args[i]))
	}
	return v.Value, nil
}
