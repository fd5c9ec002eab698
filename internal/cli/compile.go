package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/g3d/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled program with its identity.
type CompilationResult struct {
	Hash          string      `json:"hash"`
	IRVersion     string      `json:"ir_version"`
	EngineVersion string      `json:"engine_version"`
	Program       *ir.Program `json:"program"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	Functions int
	Surfaces  int
	Vectors   int
	Tensors   int
	Labels    int
	Frames    int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <program.g3d>",
		Short: "Compile a G3D program to canonical IR",
		Long: `Compile a G3D program to its intermediate representation.

The compiler parses and validates every statement, resolves function
references and outputs the program as JSON together with its
content hash.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	c, err := loadProgramOrFail(formatter, path, opts.logger())
	if err != nil {
		return err
	}
	formatter.VerboseLog("Compiled %s (%d line(s))", path, countLines(c.Source))

	result := &CompilationResult{
		Hash:          c.Hash,
		IRVersion:     ir.IRVersion,
		EngineVersion: ir.EngineVersion,
		Program:       c.Program,
	}

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, calculateStats(c.Program), opts.Output)
}

// calculateStats computes summary statistics from a compiled program.
func calculateStats(p *ir.Program) CompilationStats {
	stats := CompilationStats{
		Functions: len(p.Functions),
		Labels:    len(p.Labels),
	}
	for _, plot := range p.Plots {
		switch plot.Kind {
		case ir.PlotSurface:
			stats.Surfaces++
		case ir.PlotVector:
			stats.Vectors++
		case ir.PlotTensor:
			stats.Tensors++
		}
	}
	if p.Animation != nil {
		stats.Frames = p.Animation.Frames()
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	p := result.Program
	fmt.Fprintf(w, "✓ Compiled program %s\n\n", shortHash(result.Hash))
	fmt.Fprintf(w, "  ranges:    x %s  y %s  z %s\n", p.Ranges.X, p.Ranges.Y, p.Ranges.Z)
	fmt.Fprintf(w, "  functions: %d\n", stats.Functions)
	fmt.Fprintf(w, "  plots:     %d surface(s), %d vector field(s), %d tensor field(s)\n",
		stats.Surfaces, stats.Vectors, stats.Tensors)
	fmt.Fprintf(w, "  color map: %s\n", p.ColorMap)
	if p.Animation != nil {
		fmt.Fprintf(w, "  animation: %s over %d frame(s)\n", p.Animation.Param, stats.Frames)
	}
	if p.Contour != nil {
		fmt.Fprintf(w, "  contours:  %v\n", p.Contour.Levels)
	}
	if p.Particles != nil {
		fmt.Fprintf(w, "  particles: %d\n", p.Particles.Count)
	}
	if stats.Labels > 0 {
		fmt.Fprintf(w, "  labels:    %d\n", stats.Labels)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote IR to %s\n", outputFile)
	}
	return nil
}

// writeIRToFile writes the compilation result to a file as indented JSON.
// Canonical JSON without indentation is used only for hashing.
func writeIRToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func countLines(src string) int {
	n := strings.Count(src, "\n")
	if src != "" && !strings.HasSuffix(src, "\n") {
		n++
	}
	return n
}
