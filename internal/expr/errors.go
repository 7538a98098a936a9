package expr

import (
	"errors"
	"fmt"
)

// Errors reported by program execution. Every failure returned from
// Program.Run wraps one of these or is a *SyntaxError.
var (
	// ErrStepLimit indicates the program exceeded its step budget.
	ErrStepLimit = errors.New("step limit exceeded")

	// ErrCollectionLimit indicates a list, set, dict, range or string grew
	// beyond the configured maximum size.
	ErrCollectionLimit = errors.New("collection size limit exceeded")

	// ErrDepthLimit indicates a comparison or hash recursed through more
	// nested containers than allowed, usually because a list holds itself.
	ErrDepthLimit = errors.New("nesting depth limit exceeded")

	// ErrUnboundName indicates a reference to a name that is neither a local,
	// a binding, a registered function nor an allowed builtin.
	ErrUnboundName = errors.New("unbound name")

	// ErrNoResult indicates the program finished without assigning result.
	ErrNoResult = errors.New("result was never assigned")

	// ErrType indicates an operation applied to values of the wrong type.
	ErrType = errors.New("type error")

	// ErrValue indicates a value of the right type but an invalid content,
	// such as an out-of-range index.
	ErrValue = errors.New("value error")

	// ErrZeroDivision indicates division or modulo by zero.
	ErrZeroDivision = errors.New("division by zero")

	// ErrForbidden indicates syntax that parses but is outside the
	// supported language, such as private attribute access.
	ErrForbidden = errors.New("forbidden construct")
)

// SyntaxError reports a program that could not be parsed.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

// Error implements the error interface for SyntaxError.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// RuntimeError ties an execution failure to the source line it happened on.
type RuntimeError struct {
	Line int
	Err  error
}

// Error implements the error interface for RuntimeError.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error { return e.Err }

func errorf(base error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}

func typeErrorf(format string, args ...any) error { return errorf(ErrType, format, args...) }

func valueErrorf(format string, args ...any) error { return errorf(ErrValue, format, args...) }
