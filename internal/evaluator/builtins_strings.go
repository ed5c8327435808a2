package evaluator

import (
	"strings"
	"unicode"
)

// stringMethodNames lists the registry entries that are also reachable
// through attribute access on a string value.
var stringMethodNames = map[string]bool{
	"lower": true, "upper": true, "title": true, "capitalize": true,
	"strip": true, "lstrip": true, "rstrip": true, "replace": true,
	"split": true, "join": true, "startswith": true, "endswith": true,
	"find": true, "count": true,
}

// StringBuiltins exposes string methods as plain functions taking the
// receiver as their first argument. The receiver is coerced with str()
// first, so numbers work too.
func StringBuiltins() map[string]Object {
	return map[string]Object{
		"lower": strBuiltin("lower", []string{"s"}, func(e *Evaluator, s string, rest []Object) Object {
			return &Str{Value: strings.ToLower(s)}
		}),
		"upper": strBuiltin("upper", []string{"s"}, func(e *Evaluator, s string, rest []Object) Object {
			return &Str{Value: strings.ToUpper(s)}
		}),
		"title": strBuiltin("title", []string{"s"}, func(e *Evaluator, s string, rest []Object) Object {
			return &Str{Value: titleCase(s)}
		}),
		"capitalize": strBuiltin("capitalize", []string{"s"}, func(e *Evaluator, s string, rest []Object) Object {
			return &Str{Value: capitalize(s)}
		}),
		"strip": strBuiltin("strip", []string{"s", "chars"}, func(e *Evaluator, s string, rest []Object) Object {
			cutset, errObj := stripCutset(rest)
			if errObj != nil {
				return errObj
			}
			return &Str{Value: strings.Trim(s, cutset)}
		}),
		"lstrip": strBuiltin("lstrip", []string{"s", "chars"}, func(e *Evaluator, s string, rest []Object) Object {
			cutset, errObj := stripCutset(rest)
			if errObj != nil {
				return errObj
			}
			return &Str{Value: strings.TrimLeft(s, cutset)}
		}),
		"rstrip": strBuiltin("rstrip", []string{"s", "chars"}, func(e *Evaluator, s string, rest []Object) Object {
			cutset, errObj := stripCutset(rest)
			if errObj != nil {
				return errObj
			}
			return &Str{Value: strings.TrimRight(s, cutset)}
		}),
		"replace": strBuiltin("replace", []string{"s", "old", "new"}, func(e *Evaluator, s string, rest []Object) Object {
			if len(rest) != 2 {
				return newKindError(CallError, "replace() takes 3 arguments (%d given)", len(rest)+1)
			}
			old, ok1 := rest[0].(*Str)
			new_, ok2 := rest[1].(*Str)
			if !ok1 || !ok2 {
				return newKindError(BadOperand, "replace() arguments must be strings")
			}
			return &Str{Value: strings.ReplaceAll(s, old.Value, new_.Value)}
		}),
		"split": strBuiltin("split", []string{"s", "sep"}, func(e *Evaluator, s string, rest []Object) Object {
			var parts []string
			if len(rest) == 0 {
				parts = strings.Fields(s)
			} else {
				sep, ok := rest[0].(*Str)
				if !ok {
					return newKindError(BadOperand, "split() separator must be a string")
				}
				parts = strings.Split(s, sep.Value)
			}
			out := make([]Object, len(parts))
			for i, p := range parts {
				out[i] = &Str{Value: p}
			}
			return &List{Elements: out}
		}),
		"join": strBuiltin("join", []string{"s", "iterable"}, func(e *Evaluator, s string, rest []Object) Object {
			if len(rest) != 1 {
				return newKindError(CallError, "join() takes 2 arguments (%d given)", len(rest)+1)
			}
			items, errObj := iterate(rest[0])
			if errObj != nil {
				return errObj
			}
			parts := make([]string, len(items))
			for i, item := range items {
				str, ok := item.(*Str)
				if !ok {
					return newKindError(BadOperand, "sequence item %d: expected str, %s found", i, TypeName(item))
				}
				parts[i] = str.Value
			}
			return &Str{Value: strings.Join(parts, s)}
		}),
		"startswith": strBuiltin("startswith", []string{"s", "prefix"}, func(e *Evaluator, s string, rest []Object) Object {
			prefix, errObj := strRest("startswith", rest)
			if errObj != nil {
				return errObj
			}
			return nativeBoolToBooleanObject(strings.HasPrefix(s, prefix))
		}),
		"endswith": strBuiltin("endswith", []string{"s", "suffix"}, func(e *Evaluator, s string, rest []Object) Object {
			suffix, errObj := strRest("endswith", rest)
			if errObj != nil {
				return errObj
			}
			return nativeBoolToBooleanObject(strings.HasSuffix(s, suffix))
		}),
		"find": strBuiltin("find", []string{"s", "sub"}, func(e *Evaluator, s string, rest []Object) Object {
			sub, errObj := strRest("find", rest)
			if errObj != nil {
				return errObj
			}
			idx := strings.Index(s, sub)
			if idx < 0 {
				return &Integer{Value: -1}
			}
			// Report the index in characters, not bytes.
			return &Integer{Value: int64(len([]rune(s[:idx])))}
		}),
		"count": strBuiltin("count", []string{"s", "sub"}, func(e *Evaluator, s string, rest []Object) Object {
			sub, errObj := strRest("count", rest)
			if errObj != nil {
				return errObj
			}
			return &Integer{Value: int64(strings.Count(s, sub))}
		}),
	}
}

func strBuiltin(name string, params []string, fn func(e *Evaluator, s string, rest []Object) Object) *Builtin {
	return &Builtin{Name: name, Params: params, Fn: func(e *Evaluator, args ...Object) Object {
		if len(args) == 0 {
			return newKindError(CallError, "%s() missing argument", name)
		}
		return fn(e, StrValue(args[0]), args[1:])
	}}
}

func strRest(name string, rest []Object) (string, *Error) {
	if len(rest) != 1 {
		return "", newKindError(CallError, "%s() takes 2 arguments (%d given)", name, len(rest)+1)
	}
	s, ok := rest[0].(*Str)
	if !ok {
		return "", newKindError(BadOperand, "%s() argument must be a string, not %s", name, TypeName(rest[0]))
	}
	return s.Value, nil
}

func stripCutset(rest []Object) (string, *Error) {
	if len(rest) == 0 {
		return " \t\n\r\v\f", nil
	}
	s, ok := rest[0].(*Str)
	if !ok {
		return "", newKindError(BadOperand, "strip arg must be a string, not %s", TypeName(rest[0]))
	}
	return s.Value, nil
}

func titleCase(s string) string {
	var sb strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			sb.WriteRune(r)
			prevLetter = false
		}
	}
	return sb.String()
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	out := []rune{unicode.ToUpper(runes[0])}
	for _, r := range runes[1:] {
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
