package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/plan"
	"github.com/roach88/g3d/internal/publish"
)

// AnalyzeOptions holds flags shared by the single-analysis commands.
type AnalyzeOptions struct {
	*RootOptions
	Analysis plan.Analysis

	// Renderer connection for commands that can stream their output.
	Publish   string
	Namespace string
	Timeout   time.Duration
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts, Analysis: plan.Analysis{Kind: plan.KindStreamlines}}

	cmd := &cobra.Command{
		Use:   "trace <program.g3d>",
		Short: "Trace streamlines through a program's flow field",
		Long: `Trace streamlines with fourth-order Runge-Kutta integration.

The flow is the program's first vector field, or the negative gradient
of its surface when it declares none. Seeds are placed by one of the
strategies random, grid, boundary or critical-point.

Examples:
  g3d trace saddle.g3d --strategy critical-point --seeds 16
  g3d trace swirl.g3d --publish http://localhost:3000/socket.io/`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(opts, args[0], cmd)
		},
	}

	a := &opts.Analysis
	cmd.Flags().StringVar(&a.Strategy, "strategy", "", "seeding strategy (random|grid|boundary|critical-point)")
	cmd.Flags().IntVar(&a.Seeds, "seeds", 0, "number of seed points")
	cmd.Flags().Float64Var(&a.StepSize, "step-size", 0, "integration step")
	cmd.Flags().IntVar(&a.Steps, "steps", 0, "maximum steps per streamline")
	cmd.Flags().Int64Var(&a.Seed, "seed", 0, "random seed for the random strategy")
	addPublishFlags(cmd, opts)

	return cmd
}

// NewContourCommand creates the contour command.
func NewContourCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts, Analysis: plan.Analysis{Kind: plan.KindContours}}

	cmd := &cobra.Command{
		Use:   "contour <program.g3d>",
		Short: "Extract isolines of a program's surface",
		Long: `Extract isolines with marching squares.

Levels default to the program's CONTOUR LEVELS statement.

Example:
  g3d contour bowl.g3d --levels 0.5,1,2 --resolution 64`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64SliceVar(&opts.Analysis.Levels, "levels", nil, "contour levels (default: the program's)")
	cmd.Flags().IntVar(&opts.Analysis.Resolution, "resolution", 0, "sampling grid resolution")

	return cmd
}

// NewGeodesicCommand creates the geodesic command.
func NewGeodesicCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts, Analysis: plan.Analysis{Kind: plan.KindGeodesic}}

	cmd := &cobra.Command{
		Use:   "geodesic <program.g3d>",
		Short: "Find the shortest path across a program's surface",
		Long: `Approximate the geodesic between two points of the surface.

The surface is sampled into a triangle mesh and searched with
Dijkstra's algorithm; the endpoints are spliced onto the path.

Example:
  g3d geodesic saddle.g3d --from -1.5,0 --to 1.5,0 --resolution 60`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64SliceVar(&opts.Analysis.From, "from", nil, "start point x,y (required)")
	cmd.Flags().Float64SliceVar(&opts.Analysis.To, "to", nil, "end point x,y (required)")
	cmd.Flags().IntVar(&opts.Analysis.Resolution, "resolution", 0, "mesh resolution")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	addPublishFlags(cmd, opts)

	return cmd
}

// NewLyapunovCommand creates the lyapunov command.
func NewLyapunovCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts, Analysis: plan.Analysis{Kind: plan.KindLyapunov}}

	cmd := &cobra.Command{
		Use:   "lyapunov <program.g3d>",
		Short: "Map the stability of particle motion over a program's surface",
		Long: `Estimate the largest Lyapunov exponent on a grid of starting points.

Negative exponents mark basins where nearby trajectories converge,
positive ones mark regions where they separate.

Example:
  g3d lyapunov saddle.g3d --resolution 16 --steps 400`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Analysis.Steps, "steps", 0, "integration steps per estimate")
	cmd.Flags().IntVar(&opts.Analysis.Resolution, "resolution", 0, "grid points per axis")

	return cmd
}

func addPublishFlags(cmd *cobra.Command, opts *AnalyzeOptions) {
	cmd.Flags().StringVar(&opts.Publish, "publish", "", "socket.io URL of a renderer to stream results to")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "/", "socket.io namespace")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "renderer connect timeout")
}

// runAnalysis compiles the program and runs a one-analysis plan over it.
func runAnalysis(opts *AnalyzeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	c, err := loadProgramOrFail(formatter, path, logger)
	if err != nil {
		return err
	}

	p := &plan.Plan{Name: string(opts.Analysis.Kind), Program: c.Source, Analyses: []plan.Analysis{opts.Analysis}}
	if err := p.Validate(); err != nil {
		return formatter.fail(ExitCommandError, ErrCodePlan, "invalid options", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := plan.NewExecutor(plan.WithLogger(logger)).Execute(ctx, p, c.Program)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeAnalysis, fmt.Sprintf("%s failed", opts.Analysis.Kind), err)
	}
	res := report.Results[0]

	if traces := publishable(res); opts.Publish != "" && traces != nil {
		if err := publishTraces(ctx, opts, c.Hash, res.Kind, traces); err != nil {
			return formatter.fail(ExitCommandError, ErrCodePublish, "publishing traces", err)
		}
		formatter.VerboseLog("Published %d trace(s) to %s", len(traces), opts.Publish)
	}

	if formatter.IsJSON() {
		return formatter.Success(report)
	}
	writeResultText(formatter.Writer, res)
	return nil
}

// publishable returns the curves of a result a renderer can draw.
func publishable(res plan.Result) []field.TraceSample {
	switch {
	case res.Streamlines != nil:
		return res.Streamlines.Traces
	case res.Geodesic != nil:
		return []field.TraceSample{res.Geodesic.Trace()}
	}
	return nil
}

func publishTraces(ctx context.Context, opts *AnalyzeOptions, hash string, kind plan.Kind, traces []field.TraceSample) (err error) {
	em, err := publish.Dial(ctx, opts.Publish, publish.DialOptions{
		Namespace: opts.Namespace,
		Timeout:   opts.Timeout,
		Logger:    opts.logger(),
	})
	if err != nil {
		return err
	}
	pub := publish.New(em, publish.WithProgramHash(hash), publish.WithLogger(opts.logger()))
	defer func() {
		err = errors.Join(err, pub.Close())
	}()
	return pub.PublishTraces(string(kind), traces)
}

// writeResultText prints the human-readable summary of one analysis.
func writeResultText(w io.Writer, res plan.Result) {
	switch {
	case res.Particles != nil:
		f := res.Particles.Final
		fmt.Fprintf(w, "✓ Simulated %d particle(s) for %d step(s), t=%.3f, %d respawn(s)\n",
			len(f.Particles), f.Step, f.Time, f.Respawns)
	case res.Streamlines != nil:
		s := res.Streamlines
		fmt.Fprintf(w, "✓ Traced %d streamline(s) through %s (%s seeding), total length %.4g\n",
			len(s.Traces), s.Flow, s.Strategy, s.TotalLength)
	case res.Contours != nil:
		c := res.Contours
		fmt.Fprintf(w, "✓ Extracted %d level(s) at resolution %d\n", len(c.Levels), c.Resolution)
		for _, lv := range c.Levels {
			fmt.Fprintf(w, "  level %g: %d segment(s), %d polyline(s)\n", lv.Value, lv.Segments, lv.Lines)
		}
	case res.Geodesic != nil:
		g := res.Geodesic
		fmt.Fprintf(w, "✓ Geodesic distance %.6g over %d vertices\n", g.Distance, len(g.Vertices))
		fmt.Fprintf(w, "  graph %.6g, snap start %.4g, snap end %.4g\n", g.GraphDistance, g.SnapStart, g.SnapEnd)
	case res.Lyapunov != nil:
		l := res.Lyapunov
		fmt.Fprintf(w, "✓ Lyapunov field %dx%d, exponent range [%.4g, %.4g]\n", l.N, l.N, l.Min, l.Max)
	}
}
