package evaluator

import "sort"

// Environment is the flat name table the evaluator resolves identifiers
// against. For a simulation it is the world state itself.
type Environment struct {
	store map[string]Object
}

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]Object)}
}

func (e *Environment) Get(name string) (Object, bool) {
	obj, ok := e.store[name]
	return obj, ok
}

// GetOr returns the value for name, or fallback if absent.
func (e *Environment) GetOr(name string, fallback Object) Object {
	if obj, ok := e.store[name]; ok {
		return obj
	}
	return fallback
}

func (e *Environment) Set(name string, val Object) {
	e.store[name] = val
}

func (e *Environment) Delete(name string) {
	delete(e.store, name)
}

func (e *Environment) Len() int { return len(e.store) }

// Keys returns all keys in sorted order for deterministic iteration.
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.store))
	for k := range e.store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot deep-copies the table so later subscript assignments cannot
// reach back into it. The self-referential "state" entry is rebound to a
// view over the snapshot itself.
func (e *Environment) Snapshot() *Environment {
	out := NewEnvironment()
	for k, v := range e.store {
		if _, ok := v.(*StateView); ok {
			continue
		}
		out.store[k] = CopyValue(v)
	}
	out.store["state"] = &StateView{Env: out}
	return out
}

// CopyValue returns a deep copy of containers and the value itself for
// immutable kinds.
func CopyValue(obj Object) Object {
	switch o := obj.(type) {
	case *Tuple:
		elems := make([]Object, len(o.Elements))
		for i, el := range o.Elements {
			elems[i] = CopyValue(el)
		}
		return &Tuple{Elements: elems}
	case *List:
		elems := make([]Object, len(o.Elements))
		for i, el := range o.Elements {
			elems[i] = CopyValue(el)
		}
		return &List{Elements: elems}
	case *Map:
		return o.Copy()
	default:
		return obj
	}
}
