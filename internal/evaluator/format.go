package evaluator

import (
	"strconv"
	"strings"
)

// Inspect implementations live here so the rendering rules for output
// lines stay in one place. Strings render with double quotes; the other
// kinds render so they parse back to an equal value.

func (i *Integer) Inspect() string { return strconv.FormatInt(i.Value, 10) }

func (f *Float) Inspect() string { return FormatFloat(f.Value) }

func (b *Boolean) Inspect() string {
	if b.Value {
		return "True"
	}
	return "False"
}

func (s *Str) Inspect() string { return QuoteString(s.Value) }

func (n *Nil) Inspect() string { return "None" }

func (t *Tuple) Inspect() string {
	elems := make([]string, len(t.Elements))
	for i, el := range t.Elements {
		elems[i] = el.Inspect()
	}
	if len(elems) == 1 {
		return "(" + elems[0] + ",)"
	}
	return "(" + strings.Join(elems, ", ") + ")"
}

func (l *List) Inspect() string {
	elems := make([]string, len(l.Elements))
	for i, el := range l.Elements {
		elems[i] = el.Inspect()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

func (m *Map) Inspect() string {
	pairs := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		pairs[i] = p.Key.Inspect() + ": " + p.Value.Inspect()
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

func (b *Builtin) Inspect() string { return "<builtin " + b.Name + ">" }

func (bm *BoundMethod) Inspect() string { return "<bound " + bm.Method.Name + ">" }

func (sv *StateView) Inspect() string { return "<state>" }

// FormatFloat renders a float the way the output stream expects: the
// shortest round-trip form, always with a decimal point or exponent so
// it reads back as a float.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "Inf") && s != "NaN" {
		s += ".0"
	}
	return s
}

// QuoteString renders a string in double quotes with minimal escaping.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// StrValue renders obj the way str() would: strings stay raw, the rest
// use their canonical rendering.
func StrValue(obj Object) string {
	if s, ok := obj.(*Str); ok {
		return s.Value
	}
	return obj.Inspect()
}

// TypeName reports the surface-level type name used in diagnostics and
// sampler feedback.
func TypeName(obj Object) string {
	switch obj.(type) {
	case *Integer:
		return "int"
	case *Float:
		return "float"
	case *Boolean:
		return "bool"
	case *Str:
		return "str"
	case *Tuple:
		return "tuple"
	case *List:
		return "list"
	case *Map:
		return "dict"
	case *Nil:
		return "NoneType"
	case *StateView:
		return "state"
	case *Builtin, *BoundMethod:
		return "function"
	default:
		return strings.ToLower(string(obj.Type()))
	}
}
