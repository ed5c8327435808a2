package evaluator

import (
	"math"
	"sort"
)

// StatsBuiltins returns the statistics functions over numeric sequences.
func StatsBuiltins() map[string]Object {
	return map[string]Object{
		"mean":     &Builtin{Name: "mean", Params: []string{"data"}, Fn: builtinMean},
		"median":   &Builtin{Name: "median", Params: []string{"data"}, Fn: builtinMedian},
		"mode":     &Builtin{Name: "mode", Params: []string{"data"}, Fn: builtinMode},
		"stdev":    &Builtin{Name: "stdev", Params: []string{"data"}, Fn: builtinStdev},
		"variance": &Builtin{Name: "variance", Params: []string{"data"}, Fn: builtinVariance},
	}
}

func numericData(name string, args []Object) ([]float64, *Error) {
	if len(args) != 1 {
		return nil, newKindError(CallError, "%s() takes exactly one argument (%d given)", name, len(args))
	}
	items, errObj := iterate(args[0])
	if errObj != nil {
		return nil, errObj
	}
	if len(items) == 0 {
		return nil, newKindError(BadOperand, "%s() requires at least one data point", name)
	}
	data := make([]float64, len(items))
	for i, item := range items {
		v, ok := asFloat(item)
		if !ok {
			return nil, newKindError(BadOperand, "%s() data must be numeric, got %s", name, TypeName(item))
		}
		data[i] = v
	}
	return data, nil
}

func builtinMean(e *Evaluator, args ...Object) Object {
	data, errObj := numericData("mean", args)
	if errObj != nil {
		return errObj
	}
	total := 0.0
	for _, v := range data {
		total += v
	}
	return &Float{Value: total / float64(len(data))}
}

func builtinMedian(e *Evaluator, args ...Object) Object {
	data, errObj := numericData("median", args)
	if errObj != nil {
		return errObj
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return &Float{Value: sorted[n/2]}
	}
	return &Float{Value: (sorted[n/2-1] + sorted[n/2]) / 2}
}

// builtinMode returns the most common value; ties resolve to the value
// seen first, matching the seeded reference behaviour.
func builtinMode(e *Evaluator, args ...Object) Object {
	if len(args) != 1 {
		return newKindError(CallError, "mode() takes exactly one argument (%d given)", len(args))
	}
	items, errObj := iterate(args[0])
	if errObj != nil {
		return errObj
	}
	if len(items) == 0 {
		return newKindError(BadOperand, "mode() requires at least one data point")
	}

	var best Object
	bestCount := 0
	for i, item := range items {
		if !Hashable(item) {
			return newKindError(BadOperand, "unhashable type: '%s'", TypeName(item))
		}
		count := 0
		for _, other := range items {
			if ObjectsEqual(item, other) {
				count++
			}
		}
		if count > bestCount {
			best = items[i]
			bestCount = count
		}
	}
	return best
}

func builtinStdev(e *Evaluator, args ...Object) Object {
	v := builtinVariance(e, args...)
	if isError(v) {
		return v
	}
	return &Float{Value: math.Sqrt(v.(*Float).Value)}
}

// builtinVariance computes the sample variance (n-1 denominator).
func builtinVariance(e *Evaluator, args ...Object) Object {
	data, errObj := numericData("variance", args)
	if errObj != nil {
		return errObj
	}
	if len(data) < 2 {
		return newKindError(BadOperand, "variance() requires at least two data points")
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	total := 0.0
	for _, v := range data {
		d := v - mean
		total += d * d
	}
	return &Float{Value: total / float64(len(data)-1)}
}
