package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/g3d/internal/testutil"
)

func decodeWatchEvents(t *testing.T, out string) []WatchEvent {
	t.Helper()
	var events []WatchEvent
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var ev WatchEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	return events
}

func TestWatchInitialCompile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bowl.g3d", testutil.BowlProgram)

	out, err := execute(NewWatchCommand(&RootOptions{Format: "json"}), path, "--count", "1")
	require.NoError(t, err)

	events := decodeWatchEvents(t, out)
	require.Len(t, events, 1)
	assert.True(t, events[0].Valid)
	assert.NotEmpty(t, events[0].Hash)
	assert.Nil(t, events[0].Error)
}

func TestWatchRecompilesOnChange(t *testing.T) {
	path := writeFile(t, t.TempDir(), "prog.g3d", testutil.BowlProgram)

	opts := &WatchOptions{
		RootOptions: &RootOptions{Format: "json"},
		onReady: func() {
			_ = os.WriteFile(path, []byte("SET RANGE X 2 TO 1\n"), 0644)
		},
	}
	cmd := newWatchCommand(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd.SetContext(ctx)

	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--count", "2", "--debounce", "20ms"})
	require.NoError(t, cmd.Execute())

	events := decodeWatchEvents(t, buf.String())
	require.Len(t, events, 2)
	assert.True(t, events[0].Valid)
	assert.False(t, events[1].Valid)
	require.NotNil(t, events[1].Error)
	assert.Equal(t, "E203", events[1].Error.Code)
}

func TestWatchStopsOnCancel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bowl.g3d", testutil.BowlProgram)

	ctx, cancel := context.WithCancel(context.Background())
	opts := &WatchOptions{RootOptions: &RootOptions{Format: "text"}, onReady: cancel}
	cmd := newWatchCommand(opts)
	cmd.SetContext(ctx)

	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ "+path+" compiled")
}

func TestWatchMissingDirectory(t *testing.T) {
	_, err := execute(NewWatchCommand(&RootOptions{Format: "text"}), "/nonexistent/dir/prog.g3d")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWriteWatchEventText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, writeWatchEvent(f, WatchEvent{Time: time.Now(), Path: "a.g3d", Read: "program not found: a.g3d"}))
	assert.Contains(t, buf.String(), "✗ program not found: a.g3d")
}
