package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/g3d/internal/plan"
	"github.com/roach88/g3d/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// IDGenerator and Clock override the store's run IDs and timestamps
	// (for testing). Nil keeps the store defaults.
	IDGenerator store.IDGenerator
	Clock       store.Clock
}

// RunResult is the outcome of the run command.
type RunResult struct {
	Report *plan.Report `json:"report"`
	RunIDs []string     `json:"run_ids,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <plan.cue|plan.hcl>",
		Short: "Execute an analysis plan",
		Long: `Execute the analyses listed in a plan file.

A plan names a G3D program (source path or inline program) and the
analyses to run over it. Plans are written in CUE or HCL. With --db
the program and every analysis result are recorded in a SQLite
database, creating it if it doesn't exist.

Example:
  g3d run ./plans/saddle.cue
  g3d run --db ./g3d.db ./plans/bowl.hcl --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to record runs in")

	return cmd
}

func runPlan(opts *RunOptions, planPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	logger.Info("loading plan", "path", planPath)
	p, err := plan.Load(planPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodePlan, "loading plan", err)
	}
	src, err := p.ProgramText()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "reading program", err)
	}
	origin := p.Source
	if origin == "" {
		origin = planPath
	}
	c, err := compileSource(origin, src, logger)
	if err != nil {
		return reportLoadError(formatter, origin, err)
	}
	logger.Info("plan loaded", "name", p.Name, "analyses", len(p.Analyses), "program", shortHash(c.Hash))

	ctx, stop := signalContext(cmd, logger)
	defer stop()

	report, err := plan.NewExecutor(plan.WithLogger(logger)).Execute(ctx, p, c.Program)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeAnalysis, "executing plan", err)
	}

	result := RunResult{Report: report}
	if opts.Database != "" {
		ids, err := recordRuns(opts, p, c, report)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "recording runs", err)
		}
		result.RunIDs = ids
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	name := p.Name
	if name == "" {
		name = planPath
	}
	fmt.Fprintf(w, "Plan %s on program %s\n\n", name, shortHash(report.ProgramHash))
	for i, res := range report.Results {
		fmt.Fprintf(w, "[%d] %s (%.1f ms)\n", i+1, res.Kind, res.ElapsedMS)
		writeResultText(w, res)
	}
	if len(result.RunIDs) > 0 {
		fmt.Fprintf(w, "\nRecorded %d run(s) in %s\n", len(result.RunIDs), opts.Database)
	}
	return nil
}

// recordRuns stores the program and one run per analysis result.
func recordRuns(opts *RunOptions, p *plan.Plan, c *Compiled, report *plan.Report) (ids []string, err error) {
	storeOpts := []store.Option{store.WithLogger(opts.logger())}
	if opts.IDGenerator != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
	}
	if opts.Clock != nil {
		storeOpts = append(storeOpts, store.WithClock(opts.Clock))
	}

	st, err := store.Open(opts.Database, storeOpts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()

	// Recording is not cancelled by a late signal: the analyses already ran.
	ctx := context.Background()
	if _, err := st.SaveProgram(ctx, c.Source, c.Program); err != nil {
		return nil, err
	}
	for i, res := range report.Results {
		run, err := store.NewRun(report.ProgramHash, string(res.Kind), p.Analyses[i], res)
		if err != nil {
			return nil, err
		}
		run.Plan = p.Name
		saved, err := st.SaveRun(ctx, run)
		if err != nil {
			return nil, err
		}
		ids = append(ids, saved.ID)
	}
	return ids, nil
}
