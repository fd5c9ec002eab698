package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/g3d/internal/compiler"
)

// Option configures Run.
type Option func(*Harness)

// WithLogger routes compiler diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Harness runs scenarios. The zero configuration discards logs.
type Harness struct {
	logger *slog.Logger
}

// Run compiles a scenario's program and checks the outcome.
//
// Execution flow:
//  1. Read the program source
//  2. Compile it
//  3. Match a compile failure against expect_error
//  4. Evaluate the assertions against the compiled program
//
// The returned error is reserved for infrastructure failures such as an
// unreadable program file; scenario failures are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h.run(scenario)
}

func (h *Harness) run(s *Scenario) (*Result, error) {
	src, err := scenarioSource(s)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	prog, err := compiler.Compile(src, compiler.WithLogger(h.logger))
	if err != nil {
		var ce *compiler.CompileError
		if !errors.As(err, &ce) {
			return nil, fmt.Errorf("compile %s: %w", s.Name, err)
		}
		result.CompileError = ce
		if s.ExpectError == nil {
			result.AddError(fmt.Sprintf("unexpected compile error: %v", ce))
			return result, nil
		}
		checkExpectedError(s.ExpectError, ce, result)
		return result, nil
	}

	result.Program = prog
	if s.ExpectError != nil {
		result.AddError(fmt.Sprintf("expected compile error %s, program compiled", s.ExpectError.Code))
		return result, nil
	}

	for i, a := range s.Assertions {
		if err := checkAssertion(prog, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	h.logger.Debug("scenario finished", "scenario", s.Name, "pass", result.Pass)
	return result, nil
}

func scenarioSource(s *Scenario) (string, error) {
	if s.Program == "" {
		return s.Source, nil
	}
	data, err := os.ReadFile(s.Program)
	if err != nil {
		return "", fmt.Errorf("failed to read program: %w", err)
	}
	return string(data), nil
}

func checkExpectedError(want *ExpectError, got *compiler.CompileError, result *Result) {
	if got.Code != want.Code {
		result.AddError((&AssertionError{Type: "expect_error", Expected: want.Code, Actual: got.Error()}).Error())
	}
	if want.Line > 0 && got.Line != want.Line {
		result.AddError((&AssertionError{
			Type:     "expect_error",
			Expected: fmt.Sprintf("line %d", want.Line),
			Actual:   fmt.Sprintf("line %d", got.Line),
		}).Error())
	}
	if want.Contains != "" && !strings.Contains(got.Message, want.Contains) {
		result.AddError((&AssertionError{
			Type:     "expect_error",
			Expected: fmt.Sprintf("message containing %q", want.Contains),
			Actual:   fmt.Sprintf("%q", got.Message),
		}).Error())
	}
}
