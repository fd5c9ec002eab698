package eval

import (
	"errors"
	"strings"
)

// Sentinel errors, wrapped with context by the evaluator.
var (
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrUndefinedFunction = errors.New("undefined function")
	ErrArity             = errors.New("wrong number of arguments")
	ErrType              = errors.New("type mismatch")
)

// CycleError reports named functions that depend on each other.
// Path lists the cycle in traversal order, starting and ending on the same
// name.
type CycleError struct {
	Names []string
	Path  []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " → ")
}
