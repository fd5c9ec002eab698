package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/g3d/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
}

// HistoryResult lists the recorded runs of one program.
type HistoryResult struct {
	ProgramHash string      `json:"program_hash"`
	Source      string      `json:"source,omitempty"`
	Runs        []store.Run `json:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <program-hash>",
		Short: "List the recorded analysis runs of a program",
		Long: `List the analysis runs recorded by "g3d run --db" for a program,
oldest first. The program hash is printed by compile and run.

Example:
  g3d history --db ./g3d.db 3f2a...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, hash string, cmd *cobra.Command) (err error) {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database, store.WithLogger(opts.logger()))
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "opening database", err)
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()

	ctx := cmd.Context()
	rec, err := st.Program(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("program %s not recorded", hash), nil)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "reading program", err)
	}
	runs, err := st.Runs(ctx, hash)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "reading runs", err)
	}

	result := HistoryResult{ProgramHash: hash, Runs: runs}
	if formatter.IsJSON() {
		result.Source = rec.Source
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Program %s (recorded %s)\n", shortHash(hash), rec.CreatedAt.Format(time.RFC3339))
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "  #%d  %-12s %s  %s\n", r.Seq, r.Kind, r.CreatedAt.Format(time.RFC3339), r.ID)
	}
	return nil
}
