package evaluator

import "fmt"

// ErrorKind classifies evaluation failures.
type ErrorKind string

const (
	UnsupportedSyntax ErrorKind = "UnsupportedSyntax"
	NameNotFound      ErrorKind = "NameNotFound"
	BadOperand        ErrorKind = "BadOperand"
	SubscriptError    ErrorKind = "Subscript"
	CallError         ErrorKind = "Call"
	EvaluationError   ErrorKind = "Evaluation"
)

// Error is the in-tree error object produced while walking an
// expression. It converts to *EvalError at the package boundary.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string  { return "error: " + e.Message }
func (e *Error) Hash() uint32     { return 0 }

func newError(format string, args ...interface{}) *Error {
	return &Error{Kind: EvaluationError, Message: fmt.Sprintf(format, args...)}
}

func newKindError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func isError(obj Object) bool {
	if obj == nil {
		return true
	}
	return obj.Type() == ERROR_OBJ
}

// EvalError is the Go error surfaced by Evaluator.Eval.
type EvalError struct {
	Kind    ErrorKind
	Message string
}

func (e *EvalError) Error() string { return e.Message }
