package evaluator

import (
	"fmt"
	"sort"
)

// FromGo converts a decoded configuration value (YAML or JSON shapes)
// into a runtime object.
func FromGo(v interface{}) (Object, error) {
	switch v := v.(type) {
	case nil:
		return NONE, nil
	case bool:
		return nativeBoolToBooleanObject(v), nil
	case int:
		return &Integer{Value: int64(v)}, nil
	case int64:
		return &Integer{Value: v}, nil
	case float64:
		return &Float{Value: v}, nil
	case string:
		return &Str{Value: v}, nil
	case []interface{}:
		elems := make([]Object, len(v))
		for i, el := range v {
			obj, err := FromGo(el)
			if err != nil {
				return nil, err
			}
			elems[i] = obj
		}
		return &List{Elements: elems}, nil
	case map[string]interface{}:
		m := NewMap()
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			value, err := FromGo(v[k])
			if err != nil {
				return nil, err
			}
			m.Set(&Str{Value: k}, value)
		}
		return m, nil
	case Object:
		return v, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to a runtime value", v)
	}
}

// ToGo converts a runtime object into plain Go data for JSON encoding.
// Non-string map keys render through Inspect, since JSON keys must be
// strings.
func ToGo(obj Object) interface{} {
	switch o := obj.(type) {
	case *Integer:
		return o.Value
	case *Float:
		return o.Value
	case *Boolean:
		return o.Value
	case *Str:
		return o.Value
	case *Nil:
		return nil
	case *Tuple:
		out := make([]interface{}, len(o.Elements))
		for i, el := range o.Elements {
			out[i] = ToGo(el)
		}
		return out
	case *List:
		out := make([]interface{}, len(o.Elements))
		for i, el := range o.Elements {
			out[i] = ToGo(el)
		}
		return out
	case *Map:
		out := make(map[string]interface{}, o.Len())
		for _, p := range o.Pairs() {
			key := StrValue(p.Key)
			out[key] = ToGo(p.Value)
		}
		return out
	default:
		return obj.Inspect()
	}
}
