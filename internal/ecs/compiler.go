package ecs

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/funvibe/simstream/internal/evaluator"
)

// Compiled is the output of Compile: the ordered operator list, an
// index by id, the initial state and the id to start stepping from.
type Compiled struct {
	Operators []*Operator
	ByID      map[string]*Operator
	State     *evaluator.Environment
	First     string
}

var callablePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*\s*\(.*\)$`)

// IsCallableExpression reports whether a string initializer looks like
// a function call to be resolved under the evaluator.
func IsCallableExpression(value string) bool {
	return callablePattern.MatchString(strings.TrimSpace(value))
}

// Compile materialises a document into concrete operators and an
// initial state. Component initializers that look like calls are
// evaluated against the registry; `{index}` placeholders are expanded
// beforehand. The extraDefaults argument is merged over the document's
// own `defaults` pseudo-variable.
func Compile(doc *Document, registry *evaluator.Registry, extraDefaults map[string]interface{}) (*Compiled, error) {
	state := evaluator.NewEnvironment()
	state.Set("state", &evaluator.StateView{Env: state})
	state.Set("agent_index", &evaluator.Integer{Value: 0})
	state.Set("prompt", &evaluator.Str{Value: ""})
	state.Set("max_context_length", &evaluator.Integer{Value: 1000000})
	state.Set("sample_mode", &evaluator.Str{Value: "full"})
	state.Set("all", evaluator.TRUE)

	eval := evaluator.New(registry)
	eval.Names = state

	groups := make(map[string]VariableGroup, len(doc.Variables))
	for _, g := range doc.Variables {
		groups[g.Name] = g
	}

	// Initialize components.
	for _, entity := range doc.Entities {
		for _, variable := range entity.Variables {
			for _, attr := range groups[variable].Attrs {
				fullName := fmt.Sprintf("%s_%s", entity.Name, attr.Name)
				value, err := resolveInitial(eval, attr.Value, doc.Index)
				if err != nil {
					return nil, newConfigError("initializer for %s: %v", fullName, err)
				}
				state.Set(fullName, value)
			}
		}
	}

	defaults := doc.Defaults()
	if extraDefaults != nil {
		if defaults == nil {
			defaults = make(map[string]interface{})
		}
		for k, v := range extraDefaults {
			defaults[k] = v
		}
	}

	// Render systems.
	var operators []*Operator
	for _, entity := range doc.Entities {
		for _, variable := range entity.Variables {
			templates, err := templatesFor(doc, registry, eval, variable)
			if err != nil {
				return nil, err
			}
			for i, tmpl := range templates {
				tmpl = mergeDefaults(tmpl, defaults)

				id := tmpl.ID
				if i == 0 {
					id = fmt.Sprintf("operator_1_%s_%s", entity.Name, variable)
				} else if id == "" {
					id = fmt.Sprintf("operator_%d_%s_%s", i+1, entity.Name, variable)
				}

				formula := strings.ReplaceAll(tmpl.Formula, "{entity}", entity.Name)
				formula = strings.ReplaceAll(formula, "{world_entity}", doc.WorldEntity)

				op, err := buildOperator(id, formula, tmpl)
				if err != nil {
					return nil, err
				}
				operators = append(operators, op)
			}
		}
	}

	if len(operators) == 0 {
		return nil, newConfigError("document %s compiles to no operators", doc.Name)
	}

	// Wire next: missing links fall through to the following operator,
	// and the last wraps to the first, forming a ring.
	byID := make(map[string]*Operator, len(operators))
	for i, op := range operators {
		if op.Next.Value == "" {
			if i < len(operators)-1 {
				op.Next = Next{Kind: NextStatic, Value: operators[i+1].ID}
			} else {
				op.Next = Next{Kind: NextStatic, Value: operators[0].ID}
			}
		}
		if _, dup := byID[op.ID]; dup {
			return nil, newConfigError("duplicate operator id %s", op.ID)
		}
		byID[op.ID] = op
	}
	for _, op := range operators {
		if op.Next.Kind == NextStatic {
			if _, ok := byID[op.Next.Value]; !ok {
				return nil, newConfigError("operator %s: next references unknown operator %s", op.ID, op.Next.Value)
			}
		}
	}

	first := doc.FirstOperator
	if first == "" {
		first = operators[0].ID
	}
	if _, ok := byID[first]; !ok {
		return nil, newConfigError("first operator %s does not exist", first)
	}

	return &Compiled{Operators: operators, ByID: byID, State: state, First: first}, nil
}

// resolveInitial turns a raw initializer into a runtime value. String
// initializers expand `{index}` and, when shaped like a call, evaluate
// under the registry. An initializer that does not parse is an error;
// one that parses but fails to evaluate keeps its literal text, so the
// document still compiles and the failure surfaces in the stream.
func resolveInitial(eval *evaluator.Evaluator, raw interface{}, index int) (evaluator.Object, error) {
	s, ok := raw.(string)
	if !ok {
		return evaluator.FromGo(raw)
	}

	s = strings.ReplaceAll(s, "{index}", strconv.Itoa(index))
	if !IsCallableExpression(s) {
		return &evaluator.Str{Value: s}, nil
	}

	value, err := eval.Eval(s)
	if err != nil {
		var evalErr *evaluator.EvalError
		if errors.As(err, &evalErr) && evalErr.Kind == evaluator.UnsupportedSyntax {
			return nil, err
		}
		return &evaluator.Str{Value: s}, nil
	}
	return value, nil
}

// templatesFor resolves the template list for a variable group: the
// document's systems_definitions first, then a registry generator
// function of the same name producing one or more operator maps.
func templatesFor(doc *Document, registry *evaluator.Registry, eval *evaluator.Evaluator, variable string) ([]Template, error) {
	if templates, ok := doc.SystemFor(variable); ok {
		return templates, nil
	}

	obj, ok := registry.Lookup(variable)
	if !ok {
		return nil, nil
	}
	builtin, ok := obj.(*evaluator.Builtin)
	if !ok {
		return nil, nil
	}

	generated := builtin.Fn(eval)
	if generated == nil {
		return nil, newConfigError("system generator %s returned nothing", variable)
	}
	if generated.Type() == evaluator.ERROR_OBJ {
		return nil, newConfigError("system generator %s failed: %s", variable, generated.Inspect())
	}

	var items []evaluator.Object
	switch g := generated.(type) {
	case *evaluator.List:
		items = g.Elements
	case *evaluator.Tuple:
		items = g.Elements
	default:
		items = []evaluator.Object{generated}
	}

	templates := make([]Template, 0, len(items))
	for i, item := range items {
		m, ok := item.(*evaluator.Map)
		if !ok {
			return nil, newConfigError("system generator %s: template %d is not a mapping", variable, i+1)
		}
		raw, ok := evaluator.ToGo(m).(map[string]interface{})
		if !ok {
			return nil, newConfigError("system generator %s: template %d has non-string keys", variable, i+1)
		}
		tmpl, err := templateFromMap(raw)
		if err != nil {
			return nil, newConfigError("system generator %s: template %d: %v", variable, i+1, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

func templateFromMap(raw map[string]interface{}) (Template, error) {
	var tmpl Template
	meta := make(map[string]interface{})
	for key, value := range raw {
		switch key {
		case "formula":
			s, ok := value.(string)
			if !ok {
				return tmpl, fmt.Errorf("formula must be a string")
			}
			tmpl.Formula = s
		case "id":
			s, ok := value.(string)
			if !ok {
				return tmpl, fmt.Errorf("id must be a string")
			}
			tmpl.ID = s
		case "query":
			q, ok := value.(map[string]interface{})
			if !ok {
				return tmpl, fmt.Errorf("query must be a mapping")
			}
			tmpl.Query = q
		case "use_lm":
			tmpl.UseLM = value
		case "next":
			s, ok := value.(string)
			if !ok {
				return tmpl, fmt.Errorf("next must be a string")
			}
			tmpl.Next = s
		case "prompt":
			s, ok := value.(string)
			if !ok {
				return tmpl, fmt.Errorf("prompt must be a string")
			}
			tmpl.Prompt = s
		default:
			meta[key] = value
		}
	}
	if tmpl.Formula == "" {
		return tmpl, fmt.Errorf("missing formula")
	}
	if len(meta) > 0 {
		tmpl.Meta = meta
	}
	return tmpl, nil
}

func mergeDefaults(tmpl Template, defaults map[string]interface{}) Template {
	for key, value := range defaults {
		switch key {
		case "formula", "id":
			// Never defaulted: they define the operator's identity.
		case "query":
			if tmpl.Query == nil {
				if q, ok := value.(map[string]interface{}); ok {
					tmpl.Query = q
				}
			}
		case "use_lm":
			if tmpl.UseLM == nil {
				tmpl.UseLM = value
			}
		case "next":
			if tmpl.Next == "" {
				if s, ok := value.(string); ok {
					tmpl.Next = s
				}
			}
		case "prompt":
			if tmpl.Prompt == "" {
				if s, ok := value.(string); ok {
					tmpl.Prompt = s
				}
			}
		default:
			if _, present := tmpl.Meta[key]; !present {
				if tmpl.Meta == nil {
					tmpl.Meta = make(map[string]interface{})
				}
				tmpl.Meta[key] = value
			}
		}
	}
	return tmpl
}

func buildOperator(id, formula string, tmpl Template) (*Operator, error) {
	op := &Operator{ID: id, Formula: formula, Prompt: tmpl.Prompt}

	if tmpl.Query != nil {
		op.Query = make(map[string]evaluator.Object, len(tmpl.Query))
		for k, v := range tmpl.Query {
			obj, err := evaluator.FromGo(v)
			if err != nil {
				return nil, newConfigError("operator %s: query value %s: %v", id, k, err)
			}
			op.Query[k] = obj
		}
	}

	if tmpl.UseLM != nil {
		obj, err := evaluator.FromGo(tmpl.UseLM)
		if err != nil {
			return nil, newConfigError("operator %s: use_lm: %v", id, err)
		}
		switch obj.(type) {
		case *evaluator.Boolean, *evaluator.Str, *evaluator.Builtin:
			op.UseLM = obj
		default:
			return nil, newConfigError("operator %s: use_lm must be a bool, expression or callable", id)
		}
	}

	if tmpl.Next != "" {
		op.Next = ParseNext(tmpl.Next)
	}

	if len(tmpl.Meta) > 0 {
		op.Meta = make(map[string]evaluator.Object, len(tmpl.Meta))
		for k, v := range tmpl.Meta {
			obj, err := evaluator.FromGo(v)
			if err != nil {
				return nil, newConfigError("operator %s: tag %s: %v", id, k, err)
			}
			op.Meta[k] = obj
		}
	}

	return op, nil
}
