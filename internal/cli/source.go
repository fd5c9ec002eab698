package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/g3d/internal/compiler"
	"github.com/roach88/g3d/internal/ir"
)

// LoadError represents a failure to read a program before compiling it.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Compiled is a program together with the source it came from.
type Compiled struct {
	Path    string
	Source  string
	Program *ir.Program
	Hash    string
}

// loadProgram reads and compiles the G3D file at path. Errors are a
// *LoadError or the compiler's *compiler.CompileError.
func loadProgram(path string, logger *slog.Logger) (*Compiled, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	return compileSource(path, string(data), logger)
}

func compileSource(path, src string, logger *slog.Logger) (*Compiled, error) {
	prog, err := compiler.Compile(src, compiler.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	hash, err := ir.ProgramHash(prog)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	logger.Debug("program loaded", "path", path, "hash", hash)
	return &Compiled{Path: path, Source: src, Program: prog, Hash: hash}, nil
}

// loadProgramOrFail loads a program and reports any failure through f.
// Compile errors exit with ExitFailure, read errors with ExitCommandError.
func loadProgramOrFail(f *OutputFormatter, path string, logger *slog.Logger) (*Compiled, error) {
	c, err := loadProgram(path, logger)
	if err == nil {
		return c, nil
	}
	return nil, reportLoadError(f, path, err)
}

func reportLoadError(f *OutputFormatter, path string, err error) error {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		if !f.IsJSON() {
			fmt.Fprintf(f.Writer, "✗ %s\n", path)
		}
		_ = f.ErrorAt(ce.Code, ce.Message, ce.Line, nil)
		return WrapExitError(ExitFailure, fmt.Sprintf("compile failed: %s", path), ce)
	}
	var le *LoadError
	if errors.As(err, &le) {
		_ = f.Error(le.Code, le.Message, nil)
		return WrapExitError(ExitCommandError, le.Message, nil)
	}
	return f.fail(ExitCommandError, ErrCodeGeneric, "loading program", err)
}

// shortHash abbreviates a program hash for text output.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
