package evaluator

import "fmt"

// ObjectsEqual performs a deep structural equality check. Numeric kinds
// compare across int and float; booleans are their own kind and never
// equal a number.
func ObjectsEqual(a, b Object) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch aVal := a.(type) {
	case *Integer:
		switch bVal := b.(type) {
		case *Integer:
			return aVal.Value == bVal.Value
		case *Float:
			return float64(aVal.Value) == bVal.Value
		}
	case *Float:
		switch bVal := b.(type) {
		case *Float:
			return aVal.Value == bVal.Value
		case *Integer:
			return aVal.Value == float64(bVal.Value)
		}
	case *Boolean:
		if bVal, ok := b.(*Boolean); ok {
			return aVal.Value == bVal.Value
		}
	case *Str:
		if bVal, ok := b.(*Str); ok {
			return aVal.Value == bVal.Value
		}
	case *Nil:
		_, ok := b.(*Nil)
		return ok
	case *Tuple:
		if bVal, ok := b.(*Tuple); ok {
			return elementsEqual(aVal.Elements, bVal.Elements)
		}
	case *List:
		if bVal, ok := b.(*List); ok {
			return elementsEqual(aVal.Elements, bVal.Elements)
		}
	case *Map:
		if bVal, ok := b.(*Map); ok {
			if aVal.Len() != bVal.Len() {
				return false
			}
			for _, p := range aVal.pairs {
				bv, ok := bVal.Get(p.Key)
				if !ok || !ObjectsEqual(p.Value, bv) {
					return false
				}
			}
			return true
		}
	}
	return false
}

func elementsEqual(a, b []Object) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ObjectsEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// CompareOrder returns -1, 0 or 1 for ordered kinds, or an error for
// operands that have no ordering.
func CompareOrder(a, b Object) (int, error) {
	if an, aok := asFloat(a); aok {
		if bn, bok := asFloat(b); bok {
			switch {
			case an < bn:
				return -1, nil
			case an > bn:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if as, ok := a.(*Str); ok {
		if bs, ok := b.(*Str); ok {
			switch {
			case as.Value < bs.Value:
				return -1, nil
			case as.Value > bs.Value:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	al, aok := sequenceElements(a)
	bl, bok := sequenceElements(b)
	if aok && bok && a.Type() == b.Type() {
		for i := 0; i < len(al) && i < len(bl); i++ {
			c, err := CompareOrder(al[i], bl[i])
			if err != nil {
				return 0, err
			}
			if c != 0 {
				return c, nil
			}
		}
		switch {
		case len(al) < len(bl):
			return -1, nil
		case len(al) > len(bl):
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, fmt.Errorf("'<' not supported between instances of '%s' and '%s'", TypeName(a), TypeName(b))
}

func sequenceElements(obj Object) ([]Object, bool) {
	switch o := obj.(type) {
	case *List:
		return o.Elements, true
	case *Tuple:
		return o.Elements, true
	default:
		return nil, false
	}
}

// asFloat widens any non-boolean numeric value to float64.
func asFloat(obj Object) (float64, bool) {
	switch o := obj.(type) {
	case *Integer:
		return float64(o.Value), true
	case *Float:
		return o.Value, true
	default:
		return 0, false
	}
}

// Truthy implements the usual truthiness rules: zero, empty and None are
// false, everything else is true.
func Truthy(obj Object) bool {
	switch o := obj.(type) {
	case *Boolean:
		return o.Value
	case *Integer:
		return o.Value != 0
	case *Float:
		return o.Value != 0
	case *Str:
		return o.Value != ""
	case *Nil:
		return false
	case *Tuple:
		return len(o.Elements) > 0
	case *List:
		return len(o.Elements) > 0
	case *Map:
		return o.Len() > 0
	default:
		return true
	}
}
