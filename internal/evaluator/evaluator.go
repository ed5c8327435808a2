package evaluator

import (
	"github.com/funvibe/simstream/internal/ast"
	"github.com/funvibe/simstream/internal/parser"
)

// Evaluator walks a single-expression AST against a name table and a
// function registry. It has no side effects outside the injected table.
type Evaluator struct {
	Registry *Registry
	Names    *Environment
}

func New(registry *Registry) *Evaluator {
	return &Evaluator{
		Registry: registry,
		Names:    NewEnvironment(),
	}
}

// Eval parses and evaluates a single expression. Parse failures surface
// as UnsupportedSyntax; evaluation failures carry their own kind.
func (e *Evaluator) Eval(input string) (Object, error) {
	expr, err := parser.Parse(input)
	if err != nil {
		return nil, &EvalError{Kind: UnsupportedSyntax, Message: err.Error()}
	}
	result := e.eval(expr)
	if errObj, ok := result.(*Error); ok {
		return nil, &EvalError{Kind: errObj.Kind, Message: errObj.Message}
	}
	return result, nil
}

func (e *Evaluator) eval(node ast.Expression) Object {
	switch node := node.(type) {
	case *ast.IntegerLiteral:
		return &Integer{Value: node.Value}
	case *ast.FloatLiteral:
		return &Float{Value: node.Value}
	case *ast.StringLiteral:
		return &Str{Value: node.Value}
	case *ast.BooleanLiteral:
		return nativeBoolToBooleanObject(node.Value)
	case *ast.NoneLiteral:
		return NONE
	case *ast.Identifier:
		return e.evalIdentifier(node)
	case *ast.TupleLiteral:
		elems := e.evalExpressions(node.Elements)
		if len(elems) == 1 && isError(elems[0]) {
			return elems[0]
		}
		return &Tuple{Elements: elems}
	case *ast.ListLiteral:
		elems := e.evalExpressions(node.Elements)
		if len(elems) == 1 && isError(elems[0]) {
			return elems[0]
		}
		return &List{Elements: elems}
	case *ast.MapLiteral:
		return e.evalMapLiteral(node)
	case *ast.PrefixExpression:
		right := e.eval(node.Right)
		if isError(right) {
			return right
		}
		return e.evalPrefixExpression(node.Operator, right)
	case *ast.InfixExpression:
		left := e.eval(node.Left)
		if isError(left) {
			return left
		}
		right := e.eval(node.Right)
		if isError(right) {
			return right
		}
		return e.evalInfixExpression(node.Operator, left, right)
	case *ast.CompareExpression:
		return e.evalCompareExpression(node)
	case *ast.BoolExpression:
		return e.evalBoolExpression(node)
	case *ast.ConditionalExpression:
		test := e.eval(node.Test)
		if isError(test) {
			return test
		}
		if Truthy(test) {
			return e.eval(node.Body)
		}
		return e.eval(node.OrElse)
	case *ast.IndexExpression:
		return e.evalIndexExpression(node)
	case *ast.AttributeExpression:
		return e.evalAttributeExpression(node)
	case *ast.CallExpression:
		return e.evalCallExpression(node)
	case *ast.ListComprehension:
		return e.evalListComprehension(node)
	default:
		return newKindError(UnsupportedSyntax, "unsupported syntax %T", node)
	}
}

func (e *Evaluator) evalIdentifier(node *ast.Identifier) Object {
	if e.Names != nil {
		if obj, ok := e.Names.Get(node.Value); ok {
			return obj
		}
	}
	if e.Registry != nil {
		if obj, ok := e.Registry.Lookup(node.Value); ok {
			return obj
		}
	}
	return newKindError(NameNotFound, "Name '%s' is not defined", node.Value)
}

func (e *Evaluator) evalExpressions(exprs []ast.Expression) []Object {
	var result []Object
	for _, expr := range exprs {
		obj := e.eval(expr)
		if isError(obj) {
			return []Object{obj}
		}
		result = append(result, obj)
	}
	return result
}

func (e *Evaluator) evalMapLiteral(node *ast.MapLiteral) Object {
	m := NewMap()
	for i := range node.Keys {
		key := e.eval(node.Keys[i])
		if isError(key) {
			return key
		}
		if !Hashable(key) {
			return newKindError(BadOperand, "unhashable type: '%s'", TypeName(key))
		}
		value := e.eval(node.Values[i])
		if isError(value) {
			return value
		}
		m.Set(key, value)
	}
	return m
}

func (e *Evaluator) evalCompareExpression(node *ast.CompareExpression) Object {
	left := e.eval(node.Left)
	if isError(left) {
		return left
	}
	for i, op := range node.Ops {
		right := e.eval(node.Comparators[i])
		if isError(right) {
			return right
		}
		result := e.evalComparisonOp(op, left, right)
		if isError(result) {
			return result
		}
		if !Truthy(result) {
			return FALSE
		}
		left = right // for chained comparisons
	}
	return TRUE
}

func (e *Evaluator) evalBoolExpression(node *ast.BoolExpression) Object {
	switch node.Operator {
	case "and":
		for _, value := range node.Values {
			result := e.eval(value)
			if isError(result) {
				return result
			}
			if !Truthy(result) {
				return FALSE
			}
		}
		return TRUE
	case "or":
		for _, value := range node.Values {
			result := e.eval(value)
			if isError(result) {
				return result
			}
			if Truthy(result) {
				return TRUE
			}
		}
		return FALSE
	default:
		return newKindError(UnsupportedSyntax, "unsupported boolean operator %s", node.Operator)
	}
}

func (e *Evaluator) evalIndexExpression(node *ast.IndexExpression) Object {
	left := e.eval(node.Left)
	if isError(left) {
		return left
	}

	if slice, ok := node.Index.(*ast.SliceExpression); ok {
		return e.evalSliceExpression(left, slice)
	}

	index := e.eval(node.Index)
	if isError(index) {
		return index
	}
	return e.evalSubscript(left, index)
}

func (e *Evaluator) evalSubscript(left, index Object) Object {
	switch receiver := left.(type) {
	case *List:
		return indexSequence(receiver.Elements, index, func(el Object) Object { return el })
	case *Tuple:
		return indexSequence(receiver.Elements, index, func(el Object) Object { return el })
	case *Str:
		runes := []rune(receiver.Value)
		i, ok := index.(*Integer)
		if !ok {
			return newKindError(SubscriptError, "string indices must be integers, not %s", TypeName(index))
		}
		pos := normalizeIndex(i.Value, len(runes))
		if pos < 0 {
			return newKindError(SubscriptError, "string index out of range")
		}
		return &Str{Value: string(runes[pos])}
	case *Map:
		if !Hashable(index) {
			return newKindError(SubscriptError, "unhashable type: '%s'", TypeName(index))
		}
		if value, ok := receiver.Get(index); ok {
			return value
		}
		return newKindError(SubscriptError, "KeyError: %s", index.Inspect())
	case *StateView:
		key, ok := index.(*Str)
		if !ok {
			return newKindError(SubscriptError, "state keys are strings, not %s", TypeName(index))
		}
		if value, ok := receiver.Env.Get(key.Value); ok {
			return value
		}
		return newKindError(SubscriptError, "KeyError: %s", index.Inspect())
	default:
		return newKindError(SubscriptError, "'%s' object is not subscriptable", TypeName(left))
	}
}

func indexSequence(elements []Object, index Object, get func(Object) Object) Object {
	i, ok := index.(*Integer)
	if !ok {
		return newKindError(SubscriptError, "indices must be integers, not %s", TypeName(index))
	}
	pos := normalizeIndex(i.Value, len(elements))
	if pos < 0 {
		return newKindError(SubscriptError, "index out of range")
	}
	return get(elements[pos])
}

// normalizeIndex maps a possibly-negative index onto [0, length) or
// returns -1 when out of range.
func normalizeIndex(index int64, length int) int {
	if index < 0 {
		index += int64(length)
	}
	if index < 0 || index >= int64(length) {
		return -1
	}
	return int(index)
}

func (e *Evaluator) evalSliceExpression(left Object, node *ast.SliceExpression) Object {
	bound := func(expr ast.Expression) (int64, bool, Object) {
		if expr == nil {
			return 0, false, nil
		}
		obj := e.eval(expr)
		if isError(obj) {
			return 0, false, obj
		}
		i, ok := obj.(*Integer)
		if !ok {
			return 0, false, newKindError(SubscriptError, "slice indices must be integers, not %s", TypeName(obj))
		}
		return i.Value, true, nil
	}

	lower, hasLower, errObj := bound(node.Lower)
	if errObj != nil {
		return errObj
	}
	upper, hasUpper, errObj := bound(node.Upper)
	if errObj != nil {
		return errObj
	}
	step, hasStep, errObj := bound(node.Step)
	if errObj != nil {
		return errObj
	}
	if !hasStep {
		step = 1
	}
	if step == 0 {
		return newKindError(SubscriptError, "slice step cannot be zero")
	}

	switch receiver := left.(type) {
	case *List:
		return &List{Elements: sliceElements(receiver.Elements, lower, hasLower, upper, hasUpper, step)}
	case *Tuple:
		return &Tuple{Elements: sliceElements(receiver.Elements, lower, hasLower, upper, hasUpper, step)}
	case *Str:
		runes := []rune(receiver.Value)
		elems := make([]Object, len(runes))
		for i, r := range runes {
			elems[i] = &Str{Value: string(r)}
		}
		picked := sliceElements(elems, lower, hasLower, upper, hasUpper, step)
		var sb []rune
		for _, el := range picked {
			sb = append(sb, []rune(el.(*Str).Value)...)
		}
		return &Str{Value: string(sb)}
	default:
		return newKindError(SubscriptError, "'%s' object is not sliceable", TypeName(left))
	}
}

func sliceElements(elements []Object, lower int64, hasLower bool, upper int64, hasUpper bool, step int64) []Object {
	length := int64(len(elements))

	clamp := func(v int64) int64 {
		if v < 0 {
			v += length
		}
		if step > 0 {
			if v < 0 {
				v = 0
			}
			if v > length {
				v = length
			}
		} else {
			if v < -1 {
				v = -1
			}
			if v >= length {
				v = length - 1
			}
		}
		return v
	}

	var start, stop int64
	if step > 0 {
		start, stop = int64(0), length
	} else {
		start, stop = length-1, -1
	}
	if hasLower {
		start = clamp(lower)
	}
	if hasUpper {
		stop = clamp(upper)
	}

	var out []Object
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, elements[i])
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, elements[i])
		}
	}
	return out
}

func (e *Evaluator) evalAttributeExpression(node *ast.AttributeExpression) Object {
	left := e.eval(node.Left)
	if isError(left) {
		return left
	}

	if _, ok := left.(*Str); ok {
		if e.Registry != nil {
			if method, ok := e.Registry.StringMethod(node.Name); ok {
				return &BoundMethod{Recv: left, Method: method}
			}
		}
	}
	return newKindError(BadOperand, "'%s' object has no attribute '%s'", TypeName(left), node.Name)
}

func (e *Evaluator) evalCallExpression(node *ast.CallExpression) Object {
	fn := e.eval(node.Function)
	if isError(fn) {
		return fn
	}

	args := e.evalExpressions(node.Args)
	if len(args) == 1 && isError(args[0]) {
		return args[0]
	}

	var kwargs []kwarg
	for _, kw := range node.Kwargs {
		value := e.eval(kw.Value)
		if isError(value) {
			return value
		}
		kwargs = append(kwargs, kwarg{name: kw.Name, value: value})
	}

	return e.apply(fn, args, kwargs)
}

type kwarg struct {
	name  string
	value Object
}

func (e *Evaluator) apply(fn Object, args []Object, kwargs []kwarg) Object {
	switch callee := fn.(type) {
	case *Builtin:
		full, errObj := resolveArguments(callee, args, kwargs)
		if errObj != nil {
			return errObj
		}
		return callee.Fn(e, full...)
	case *BoundMethod:
		full, errObj := resolveArguments(callee.Method, append([]Object{callee.Recv}, args...), kwargs)
		if errObj != nil {
			return errObj
		}
		return callee.Method.Fn(e, full...)
	default:
		return newKindError(CallError, "Attempt to call non-function %s", TypeName(fn))
	}
}

// resolveArguments folds keyword arguments into positional order using
// the builtin's declared parameter names.
func resolveArguments(fn *Builtin, args []Object, kwargs []kwarg) ([]Object, *Error) {
	if len(kwargs) == 0 {
		return args, nil
	}
	if fn.Params == nil {
		return nil, newKindError(CallError, "%s() does not accept keyword arguments", fn.Name)
	}

	slots := make([]Object, len(fn.Params))
	if len(args) > len(slots) {
		return nil, newKindError(CallError, "%s() takes at most %d arguments", fn.Name, len(fn.Params))
	}
	copy(slots, args)

	filled := len(args)
	for _, kw := range kwargs {
		idx := -1
		for i, p := range fn.Params {
			if p == kw.name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, newKindError(CallError, "%s() got an unexpected keyword argument '%s'", fn.Name, kw.name)
		}
		if idx < len(args) || slots[idx] != nil {
			return nil, newKindError(CallError, "%s() got multiple values for argument '%s'", fn.Name, kw.name)
		}
		slots[idx] = kw.value
		if idx+1 > filled {
			filled = idx + 1
		}
	}

	out := make([]Object, 0, filled)
	for i := 0; i < filled; i++ {
		if slots[i] == nil {
			return nil, newKindError(CallError, "%s() missing argument '%s'", fn.Name, fn.Params[i])
		}
		out = append(out, slots[i])
	}
	return out, nil
}

func (e *Evaluator) evalListComprehension(node *ast.ListComprehension) Object {
	iter := e.eval(node.Iter)
	if isError(iter) {
		return iter
	}
	items, errObj := iterate(iter)
	if errObj != nil {
		return errObj
	}

	saved := e.saveTargets(node.Target)
	defer e.restoreTargets(saved)

	var result []Object
	for _, item := range items {
		if errObj := e.assignTarget(node.Target, item); errObj != nil {
			return errObj
		}
		keep := true
		for _, iff := range node.Ifs {
			cond := e.eval(iff)
			if isError(cond) {
				return cond
			}
			if !Truthy(cond) {
				keep = false
				break
			}
		}
		if !keep {
			continue
		}
		value := e.eval(node.Elt)
		if isError(value) {
			return value
		}
		result = append(result, value)
	}
	return &List{Elements: result}
}

// iterate enumerates the items of an iterable value: list and tuple
// elements, string characters, map keys in insertion order.
func iterate(obj Object) ([]Object, *Error) {
	switch o := obj.(type) {
	case *List:
		return o.Elements, nil
	case *Tuple:
		return o.Elements, nil
	case *Str:
		items := make([]Object, 0, len(o.Value))
		for _, r := range o.Value {
			items = append(items, &Str{Value: string(r)})
		}
		return items, nil
	case *Map:
		return o.Keys(), nil
	default:
		return nil, newKindError(BadOperand, "'%s' object is not iterable", TypeName(obj))
	}
}

type savedName struct {
	name    string
	value   Object
	present bool
}

func (e *Evaluator) saveTargets(target ast.Expression) []savedName {
	var saved []savedName
	for _, name := range targetNames(target) {
		value, present := e.Names.Get(name)
		saved = append(saved, savedName{name: name, value: value, present: present})
	}
	return saved
}

func (e *Evaluator) restoreTargets(saved []savedName) {
	for _, s := range saved {
		if s.present {
			e.Names.Set(s.name, s.value)
		} else {
			e.Names.Delete(s.name)
		}
	}
}

func targetNames(target ast.Expression) []string {
	switch t := target.(type) {
	case *ast.Identifier:
		return []string{t.Value}
	case *ast.TupleLiteral:
		var names []string
		for _, el := range t.Elements {
			names = append(names, targetNames(el)...)
		}
		return names
	default:
		return nil
	}
}

func (e *Evaluator) assignTarget(target ast.Expression, value Object) *Error {
	switch t := target.(type) {
	case *ast.Identifier:
		e.Names.Set(t.Value, value)
		return nil
	case *ast.TupleLiteral:
		elems, ok := sequenceElements(value)
		if !ok {
			return newKindError(BadOperand, "Expected a list or tuple to unpack")
		}
		if len(t.Elements) != len(elems) {
			return newKindError(BadOperand, "Mismatched number of elements for unpacking")
		}
		for i, el := range t.Elements {
			if errObj := e.assignTarget(el, elems[i]); errObj != nil {
				return errObj
			}
		}
		return nil
	default:
		return newKindError(UnsupportedSyntax, "Unsupported comprehension target")
	}
}
