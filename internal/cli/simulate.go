package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/ir"
	"github.com/roach88/g3d/internal/particles"
	"github.com/roach88/g3d/internal/plan"
	"github.com/roach88/g3d/internal/publish"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Steps int
	Every int
	Count int
	Seed  int64

	Publish   string
	Namespace string
	Timeout   time.Duration
	Insecure  bool

	// Emitter overrides the socket.io connection (for testing).
	Emitter publish.Emitter
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	return newSimulateCommand(&SimulateOptions{RootOptions: rootOpts})
}

func newSimulateCommand(opts *SimulateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <program.g3d>",
		Short: "Run particles down a program's surface",
		Long: `Integrate particles under damped gradient descent on the program's
first surface. PARTICLES sets the population and PLOT_VECFIELD PHYSICS
the damping, coupling, time step and restitution.

With --publish, frames are streamed to a socket.io renderer while the
simulation runs. Ctrl-C stops the run after the current step.

Examples:
  g3d simulate bowl.g3d --steps 600
  g3d simulate bowl.g3d --publish http://localhost:3000/socket.io/ --every 5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Steps, "steps", plan.DefaultParticleSteps, "integration steps")
	cmd.Flags().IntVar(&opts.Every, "every", 10, "publish a frame every N steps")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "particle count (default: the program's)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed for initial positions")
	cmd.Flags().StringVar(&opts.Publish, "publish", "", "socket.io URL of a renderer to stream frames to")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "/", "socket.io namespace")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "renderer connect timeout")
	cmd.Flags().BoolVar(&opts.Insecure, "insecure", false, "skip TLS verification for the renderer")

	return cmd
}

func runSimulate(opts *SimulateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	if opts.Steps < 0 || opts.Count < 0 || opts.Count > ir.MaxParticles {
		return formatter.fail(ExitCommandError, ErrCodeGeneric,
			fmt.Sprintf("--steps must be >= 0 and --count within 0..%d", ir.MaxParticles), nil)
	}

	c, err := loadProgramOrFail(formatter, path, logger)
	if err != nil {
		return err
	}
	scene, err := plan.NewScene(c.Program, logger)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeAnalysis, "binding program", err)
	}

	cfg := particles.ConfigFor(c.Program)
	if opts.Count > 0 {
		cfg.Count = opts.Count
	}
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}
	cache := field.NewGradientCache(scene.Potential, cfg.GradStep, field.WithCacheLogger(logger))
	sys := particles.New(scene.Potential, scene.Bounds, cfg,
		particles.WithLogger(logger),
		particles.WithGradientCache(cache),
	)

	ctx, stop := signalContext(cmd, logger)
	defer stop()

	sent := 0
	if opts.Publish != "" || opts.Emitter != nil {
		sent, err = streamFrames(ctx, opts, c.Hash, sys)
		if err != nil && !errors.Is(err, context.Canceled) {
			return formatter.fail(ExitCommandError, ErrCodePublish, "publishing frames", err)
		}
	} else {
		for i := 0; i < opts.Steps && ctx.Err() == nil; i++ {
			sys.Step()
		}
	}

	stats := cache.Stats()
	logger.Debug("simulation finished", "steps", sys.Steps(), "respawns", sys.Respawns(),
		"cache_hits", stats.Hits, "cache_misses", stats.Misses)

	result := SimulationResult{
		ProgramHash: c.Hash,
		Config:      cfg,
		Final:       sys.Snapshot(),
		Published:   sent,
	}
	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	writeResultText(formatter.Writer, plan.Result{Particles: &plan.ParticlesResult{Config: cfg, Final: result.Final}})
	if sent > 0 {
		fmt.Fprintf(formatter.Writer, "  published %d frame(s) to %s\n", sent, opts.Publish)
	}
	return nil
}

// SimulationResult is the outcome of the simulate command.
type SimulationResult struct {
	ProgramHash string           `json:"program_hash"`
	Config      particles.Config `json:"config"`
	Final       particles.Frame  `json:"final"`
	Published   int              `json:"published,omitempty"`
}

func streamFrames(ctx context.Context, opts *SimulateOptions, hash string, sys *particles.System) (sent int, err error) {
	em := opts.Emitter
	if em == nil {
		em, err = publish.Dial(ctx, opts.Publish, publish.DialOptions{
			Namespace:          opts.Namespace,
			Timeout:            opts.Timeout,
			InsecureSkipVerify: opts.Insecure,
			Logger:             opts.logger(),
		})
		if err != nil {
			return 0, err
		}
	}

	pub := publish.New(em, publish.WithProgramHash(hash), publish.WithLogger(opts.logger()))
	defer func() {
		err = errors.Join(err, pub.Close())
	}()
	err = pub.Stream(ctx, sys, opts.Steps, opts.Every)
	return pub.Sent(), err
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
