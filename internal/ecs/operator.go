package ecs

import (
	"fmt"
	"strings"

	"github.com/funvibe/simstream/internal/evaluator"
)

// NextKind discriminates the successor relation of an operator.
type NextKind int

const (
	// NextStatic names a concrete operator id.
	NextStatic NextKind = iota
	// NextCond holds a conditional expression evaluated per step, of
	// the form `'A' if cond else 'B'`.
	NextCond
)

type Next struct {
	Kind  NextKind
	Value string
}

// ParseNext classifies a next reference. A conditional is recognised by
// a whitespace-delimited `if` token, matching how documents write the
// ternary form.
func ParseNext(s string) Next {
	if strings.Contains(" "+s+" ", " if ") {
		return Next{Kind: NextCond, Value: strings.TrimSpace(s)}
	}
	return Next{Kind: NextStatic, Value: s}
}

func (n Next) String() string { return n.Value }

// Operator is a rendered, immutable simulation step. Meta carries the
// opaque tags (visibility, for_summary, experience, ...) that the step
// driver copies into state so context queries can filter on them.
type Operator struct {
	ID      string
	Formula string
	Query   map[string]evaluator.Object
	UseLM   evaluator.Object
	Next    Next
	Prompt  string
	Meta    map[string]evaluator.Object
}

// UseLMIsSet reports whether the template carried an explicit use_lm.
func (o *Operator) UseLMIsSet() bool { return o.UseLM != nil }

// ConfigError reports a structural problem in a configuration: missing
// sections, unknown operator references, duplicate ids, unparseable
// initializers. It is fatal to compilation.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func newConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}
