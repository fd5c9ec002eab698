package harness

import (
	"github.com/roach88/g3d/internal/compiler"
	"github.com/roach88/g3d/internal/ir"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Program is the compiled program, nil when compilation failed.
	Program *ir.Program `json:"program,omitempty"`

	// CompileError is the diagnostic of a failed compile.
	CompileError *compiler.CompileError `json:"compile_error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
