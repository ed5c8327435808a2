package evaluator

import "math/rand"

// RandomBuiltins returns the random functions bound to the registry's
// seeded RNG, so evaluation stays reproducible under a fixed seed.
func RandomBuiltins(rng *rand.Rand) map[string]Object {
	return map[string]Object{
		"random": &Builtin{Name: "random", Params: []string{}, Fn: func(e *Evaluator, args ...Object) Object {
			if len(args) != 0 {
				return newKindError(CallError, "random() takes no arguments (%d given)", len(args))
			}
			return &Float{Value: rng.Float64()}
		}},
		"randint": &Builtin{Name: "randint", Params: []string{"a", "b"}, Fn: func(e *Evaluator, args ...Object) Object {
			if len(args) != 2 {
				return newKindError(CallError, "randint() takes 2 arguments (%d given)", len(args))
			}
			a, errObj := intArg("randint", args, 0)
			if errObj != nil {
				return errObj
			}
			b, errObj := intArg("randint", args, 1)
			if errObj != nil {
				return errObj
			}
			if b < a {
				return newKindError(BadOperand, "randint() empty range (%d, %d)", a, b)
			}
			return &Integer{Value: a + rng.Int63n(b-a+1)}
		}},
	}
}
