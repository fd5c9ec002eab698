package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/g3d/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// FileValidation is the outcome for one program file.
type FileValidation struct {
	Path  string                 `json:"path"`
	Valid bool                   `json:"valid"`
	Hash  string                 `json:"hash,omitempty"`
	Error *compiler.CompileError `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program.g3d>...",
		Short: "Check programs without emitting IR",
		Long: `Validate one or more G3D programs.

Every file is compiled and its first error, if any, is reported with
its line number and code. Faster feedback than compile when editing
several programs at once.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	logger := opts.logger()

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)

		fv := FileValidation{Path: path}
		c, err := loadProgram(path, logger)
		var ce *compiler.CompileError
		switch {
		case err == nil:
			fv.Valid = true
			fv.Hash = c.Hash
		case errors.As(err, &ce):
			fv.Error = ce
			result.Valid = false
		default:
			return reportLoadError(formatter, path, err)
		}
		result.Files = append(result.Files, fv)
	}

	if result.Valid {
		return outputValidateSuccess(formatter, result)
	}
	return outputValidationErrors(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	if len(result.Files) == 1 {
		fmt.Fprintln(formatter.Writer, "✓ Program valid")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ All %d programs valid\n", len(result.Files))
	return nil
}

// outputValidationErrors outputs per-file validation failures.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failed := 0
	var first *compiler.CompileError
	for _, f := range result.Files {
		if !f.Valid {
			failed++
			if first == nil {
				first = f.Error
			}
		}
	}

	if formatter.IsJSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
				Line:    first.Line,
			},
		}); err != nil {
			return err
		}
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", failed))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, f := range result.Files {
		if f.Valid {
			fmt.Fprintf(formatter.Writer, "%s: ok\n", f.Path)
			continue
		}
		fmt.Fprintf(formatter.Writer, "%s:%d\n", f.Path, f.Error.Line)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", f.Error.Code, f.Error.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", failed))
}
