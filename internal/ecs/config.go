// Package ecs loads declarative simulation documents and compiles them
// into an ordered operator list plus an initial world state.
//
// A document has three top-level maps: entities, variables and
// systems_definitions. Mapping order is significant — operators are
// rendered in declaration order — so decoding goes through yaml.Node
// rather than plain maps.
package ecs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is a parsed simulation configuration.
type Document struct {
	Name          string
	Task          string
	WorldEntity   string
	FirstOperator string
	EndTime       int
	MaxAttempts   int
	Index         int
	Seed          int64
	Metrics       []string

	Entities  []EntityDecl
	Variables []VariableGroup
	Systems   []SystemGroup
}

// EntityDecl names a logical actor and the variable groups attached to
// it, in declaration order.
type EntityDecl struct {
	Name      string
	Variables []string
}

// VariableGroup maps component attributes to initial values or callable
// initializer expressions.
type VariableGroup struct {
	Name  string
	Attrs []Attr
}

type Attr struct {
	Name  string
	Value interface{}
}

// SystemGroup is the ordered list of operator templates for one
// variable group.
type SystemGroup struct {
	Name      string
	Templates []Template
}

// Template is a single operator template before rendering. Unknown keys
// land in Meta and propagate into state snapshots as tags.
type Template struct {
	Formula string
	ID      string
	Query   map[string]interface{}
	UseLM   interface{}
	Next    string
	Prompt  string
	Meta    map[string]interface{}
}

func (t *Template) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	meta := make(map[string]interface{})
	for key, value := range raw {
		switch key {
		case "formula":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("formula must be a string, got %T", value)
			}
			t.Formula = s
		case "id":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("id must be a string, got %T", value)
			}
			t.ID = s
		case "query":
			q, ok := value.(map[string]interface{})
			if !ok {
				return fmt.Errorf("query must be a mapping, got %T", value)
			}
			t.Query = q
		case "use_lm":
			t.UseLM = value
		case "next":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("next must be a string, got %T", value)
			}
			t.Next = s
		case "prompt":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("prompt must be a string, got %T", value)
			}
			t.Prompt = s
		default:
			meta[key] = value
		}
	}
	if len(meta) > 0 {
		t.Meta = meta
	}
	return nil
}

// rawDocument mirrors the file layout; the ordered sections decode via
// yaml.Node and are walked by hand.
type rawDocument struct {
	Name          string    `yaml:"name"`
	Task          string    `yaml:"task"`
	WorldEntity   string    `yaml:"world_entity"`
	FirstOperator string    `yaml:"first_operator"`
	EndTime       int       `yaml:"end_time"`
	MaxAttempts   int       `yaml:"max_attempts"`
	Index         int       `yaml:"index"`
	Seed          int64     `yaml:"seed"`
	Metrics       []string  `yaml:"metrics"`
	Entities      yaml.Node `yaml:"entities"`
	Variables     yaml.Node `yaml:"variables"`
	Systems       yaml.Node `yaml:"systems_definitions"`
}

// LoadDocument reads and parses a simulation document.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", path, err)
	}
	return ParseDocument(data, path)
}

// ParseDocument parses document content from bytes. The path argument is
// used only for error messages.
func ParseDocument(data []byte, path string) (*Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, newConfigError("parsing %s: %v", path, err)
	}

	doc := &Document{
		Name:          raw.Name,
		Task:          raw.Task,
		WorldEntity:   raw.WorldEntity,
		FirstOperator: raw.FirstOperator,
		EndTime:       raw.EndTime,
		MaxAttempts:   raw.MaxAttempts,
		Index:         raw.Index,
		Seed:          raw.Seed,
		Metrics:       raw.Metrics,
	}

	if err := decodeEntities(&raw.Entities, doc); err != nil {
		return nil, newConfigError("%s: %v", path, err)
	}
	if err := decodeVariables(&raw.Variables, doc); err != nil {
		return nil, newConfigError("%s: %v", path, err)
	}
	if err := decodeSystems(&raw.Systems, doc); err != nil {
		return nil, newConfigError("%s: %v", path, err)
	}
	if err := doc.validate(path); err != nil {
		return nil, err
	}
	doc.setDefaults()
	return doc, nil
}

func isMapping(node *yaml.Node) bool {
	return node != nil && node.Kind == yaml.MappingNode
}

func decodeEntities(node *yaml.Node, doc *Document) error {
	if node.Kind == 0 {
		return fmt.Errorf("entities section is required")
	}
	if !isMapping(node) {
		return fmt.Errorf("entities must be a mapping")
	}
	for i := 0; i < len(node.Content); i += 2 {
		var decl EntityDecl
		decl.Name = node.Content[i].Value
		if err := node.Content[i+1].Decode(&decl.Variables); err != nil {
			return fmt.Errorf("entity %s: %v", decl.Name, err)
		}
		doc.Entities = append(doc.Entities, decl)
	}
	return nil
}

func decodeVariables(node *yaml.Node, doc *Document) error {
	if node.Kind == 0 {
		return fmt.Errorf("variables section is required")
	}
	if !isMapping(node) {
		return fmt.Errorf("variables must be a mapping")
	}
	for i := 0; i < len(node.Content); i += 2 {
		group := VariableGroup{Name: node.Content[i].Value}
		attrsNode := node.Content[i+1]
		if attrsNode.Kind == yaml.ScalarNode && attrsNode.Tag == "!!null" {
			doc.Variables = append(doc.Variables, group)
			continue
		}
		if !isMapping(attrsNode) {
			return fmt.Errorf("variable %s must be a mapping", group.Name)
		}
		for j := 0; j < len(attrsNode.Content); j += 2 {
			var value interface{}
			if err := attrsNode.Content[j+1].Decode(&value); err != nil {
				return fmt.Errorf("variable %s.%s: %v", group.Name, attrsNode.Content[j].Value, err)
			}
			group.Attrs = append(group.Attrs, Attr{Name: attrsNode.Content[j].Value, Value: value})
		}
		doc.Variables = append(doc.Variables, group)
	}
	return nil
}

func decodeSystems(node *yaml.Node, doc *Document) error {
	if node.Kind == 0 {
		return nil
	}
	if !isMapping(node) {
		return fmt.Errorf("systems_definitions must be a mapping")
	}
	for i := 0; i < len(node.Content); i += 2 {
		group := SystemGroup{Name: node.Content[i].Value}
		if err := node.Content[i+1].Decode(&group.Templates); err != nil {
			return fmt.Errorf("system %s: %v", group.Name, err)
		}
		doc.Systems = append(doc.Systems, group)
	}
	return nil
}

func (d *Document) validate(path string) error {
	if len(d.Entities) == 0 {
		return newConfigError("%s: no entities defined", path)
	}

	groups := make(map[string]bool, len(d.Variables))
	for _, g := range d.Variables {
		groups[g.Name] = true
	}
	for _, entity := range d.Entities {
		for _, variable := range entity.Variables {
			if !groups[variable] {
				return newConfigError("%s: entity %s references unknown variable %s", path, entity.Name, variable)
			}
		}
	}

	for _, system := range d.Systems {
		for i, tmpl := range system.Templates {
			if tmpl.Formula == "" {
				return newConfigError("%s: system %s template %d is missing a formula", path, system.Name, i+1)
			}
		}
	}
	return nil
}

func (d *Document) setDefaults() {
	if d.WorldEntity == "" {
		d.WorldEntity = "world"
	}
	if d.MaxAttempts == 0 {
		d.MaxAttempts = 3
	}
	if d.EndTime == 0 {
		d.EndTime = 25
	}
}

// Defaults returns the pseudo-variable "defaults" as operator fields
// merged into every rendered operator missing them, or nil.
func (d *Document) Defaults() map[string]interface{} {
	for _, group := range d.Variables {
		if group.Name != "defaults" {
			continue
		}
		out := make(map[string]interface{}, len(group.Attrs))
		for _, attr := range group.Attrs {
			out[attr.Name] = attr.Value
		}
		return out
	}
	return nil
}

// SystemFor returns the template list for a variable group.
func (d *Document) SystemFor(name string) ([]Template, bool) {
	for _, system := range d.Systems {
		if system.Name == name {
			return system.Templates, true
		}
	}
	return nil, false
}
