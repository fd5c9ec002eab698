package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/g3d/internal/compiler"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
	Count    int // stop after this many compiles, 0 = until interrupted

	// onReady is called once the watcher is registered (for testing).
	onReady func()
}

// WatchEvent reports one compile triggered by the watcher.
type WatchEvent struct {
	Time  time.Time              `json:"time"`
	Path  string                 `json:"path"`
	Valid bool                   `json:"valid"`
	Hash  string                 `json:"hash,omitempty"`
	Error *compiler.CompileError `json:"error,omitempty"`
	Read  string                 `json:"read_error,omitempty"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return newWatchCommand(&WatchOptions{RootOptions: rootOpts})
}

func newWatchCommand(opts *WatchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <program.g3d>",
		Short: "Recompile a program whenever it changes",
		Long: `Watch a G3D program and recompile it on every save.

The program's directory is watched so editors that replace the file on
save are followed. Bursts of change events are coalesced with
--debounce. With --format json every compile is reported as one JSON
line. Ctrl-C stops watching.

Example:
  g3d watch saddle.g3d
  g3d watch saddle.g3d --format json --debounce 500ms`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before recompiling")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "stop after N compiles (0 = until interrupted)")

	return cmd
}

func runWatch(opts *WatchOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	abs, err := filepath.Abs(path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "resolving path", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeWatch, "creating watcher", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeWatch, "watching directory", err)
	}

	ctx, stop := signalContext(cmd, logger)
	defer stop()

	builds := 0
	build := func() bool {
		builds++
		ev := compileForWatch(path, opts)
		if err := writeWatchEvent(formatter, ev); err != nil {
			logger.Warn("writing watch event", "error", err)
		}
		return opts.Count > 0 && builds >= opts.Count
	}

	if build() {
		return nil
	}
	if opts.onReady != nil {
		opts.onReady()
	}
	logger.Info("watching", "path", abs, "debounce", opts.Debounce)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped", "compiles", builds)
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("change detected", "op", event.Op.String())
			pending = time.After(opts.Debounce)

		case <-pending:
			pending = nil
			if build() {
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func compileForWatch(path string, opts *WatchOptions) WatchEvent {
	ev := WatchEvent{Time: time.Now().UTC(), Path: path}
	c, err := loadProgram(path, opts.logger())
	var ce *compiler.CompileError
	var le *LoadError
	switch {
	case err == nil:
		ev.Valid = true
		ev.Hash = c.Hash
		opts.logger().Info("recompiled", "path", path, "hash", shortHash(c.Hash))
	case errors.As(err, &ce):
		ev.Error = ce
		opts.logger().Warn("compile failed", "path", path, "line", ce.Line, "code", ce.Code)
	case errors.As(err, &le):
		// The file may be mid-replace; the next event recompiles it.
		ev.Read = le.Message
		opts.logger().Warn("program unreadable", "path", path, "error", le.Message)
	default:
		ev.Read = err.Error()
	}
	return ev
}

func writeWatchEvent(f *OutputFormatter, ev WatchEvent) error {
	if f.IsJSON() {
		return json.NewEncoder(f.Writer).Encode(ev)
	}
	stamp := ev.Time.Local().Format("15:04:05")
	switch {
	case ev.Valid:
		_, err := fmt.Fprintf(f.Writer, "[%s] ✓ %s compiled (%s)\n", stamp, ev.Path, shortHash(ev.Hash))
		return err
	case ev.Error != nil:
		_, err := fmt.Fprintf(f.Writer, "[%s] ✗ %s %v\n", stamp, ev.Path, ev.Error)
		return err
	}
	_, err := fmt.Fprintf(f.Writer, "[%s] ✗ %s\n", stamp, ev.Read)
	return err
}
