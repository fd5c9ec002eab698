package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/geodesic"
	"github.com/roach88/g3d/internal/plan"
	"github.com/roach88/g3d/internal/testutil"
)

// decodeReport parses a JSON success response holding a plan report.
func decodeReport(t *testing.T, out string) *plan.Report {
	t.Helper()
	var resp struct {
		Status string       `json:"status"`
		Data   *plan.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Results, 1)
	return resp.Data
}

func TestTraceJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "swirl.g3d", testutil.SwirlProgram)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), path,
		"--strategy", "grid", "--seeds", "4", "--steps", "50")
	require.NoError(t, err)

	report := decodeReport(t, out)
	res := report.Results[0]
	assert.Equal(t, plan.KindStreamlines, res.Kind)
	require.NotNil(t, res.Streamlines)
	assert.Equal(t, "SWIRL", res.Streamlines.Flow)
	assert.Equal(t, "grid", res.Streamlines.Strategy)
	assert.NotEmpty(t, res.Streamlines.Traces)
	assert.NotEmpty(t, report.ProgramHash)
}

func TestTraceText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "saddle.g3d", testutil.SaddleProgram)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), path, "--strategy", "boundary", "--seeds", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Traced")
	assert.Contains(t, out, "(boundary seeding)")
}

func TestTraceRejectsUnknownStrategy(t *testing.T) {
	path := writeFile(t, t.TempDir(), "saddle.g3d", testutil.SaddleProgram)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), path, "--strategy", "spiral")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestContourDefaultsToProgramLevels(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bowl.g3d", testutil.BowlProgram)

	out, err := execute(NewContourCommand(&RootOptions{Format: "json"}), path, "--resolution", "40")
	require.NoError(t, err)

	res := decodeReport(t, out).Results[0]
	require.NotNil(t, res.Contours)
	assert.Equal(t, 40, res.Contours.Resolution)
	require.Len(t, res.Contours.Levels, 2)
	assert.Equal(t, 1.0, res.Contours.Levels[0].Value)
	assert.Equal(t, 2.0, res.Contours.Levels[1].Value)
	for _, lv := range res.Contours.Levels {
		assert.Positive(t, lv.Segments)
		assert.Equal(t, 1, lv.Lines, "a circle chains into one closed polyline")
	}
}

func TestContourLevelsFlag(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bowl.g3d", testutil.BowlProgram)

	out, err := execute(NewContourCommand(&RootOptions{Format: "text"}), path, "--levels", "0.5,3", "--resolution", "32")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Extracted 2 level(s) at resolution 32")
	assert.Contains(t, out, "level 0.5:")
	assert.Contains(t, out, "level 3:")
}

func TestGeodesicJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bowl.g3d", testutil.BowlProgram)

	out, err := execute(NewGeodesicCommand(&RootOptions{Format: "json"}), path,
		"--from", "-1.5,0", "--to", "1.5,0", "--resolution", "30")
	require.NoError(t, err)

	res := decodeReport(t, out).Results[0]
	require.NotNil(t, res.Geodesic)
	g := res.Geodesic
	assert.GreaterOrEqual(t, g.Distance, 3.0, "no path is shorter than the straight chord")
	assert.InDelta(t, g.GraphDistance+g.SnapStart+g.SnapEnd, g.Distance, 1e-9)
	assert.NotEmpty(t, g.Vertices)
}

func TestGeodesicRequiresEndpoints(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bowl.g3d", testutil.BowlProgram)

	_, err := execute(NewGeodesicCommand(&RootOptions{Format: "text"}), path, "--from", "0,0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "to" not set`)
}

func TestGeodesicRejectsShortEndpoint(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bowl.g3d", testutil.BowlProgram)

	_, err := execute(NewGeodesicCommand(&RootOptions{Format: "text"}), path, "--from", "0", "--to", "1,1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAnalysesRejectResolutionAboveCeiling(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bowl.g3d", testutil.BowlProgram)
	tooBig := "100000"

	out, err := execute(NewLyapunovCommand(&RootOptions{Format: "text"}), path, "--resolution", tooBig)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
	assert.Contains(t, out, "resolution")

	_, err = execute(NewGeodesicCommand(&RootOptions{Format: "text"}), path,
		"--from", "0,0", "--to", "1,1", "--resolution", tooBig)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(NewContourCommand(&RootOptions{Format: "text"}), path, "--resolution", tooBig)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLyapunovText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "saddle.g3d", testutil.SaddleProgram)

	out, err := execute(NewLyapunovCommand(&RootOptions{Format: "text"}), path, "--resolution", "3", "--steps", "40")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Lyapunov field 3x3")
}

func TestAnalysisCompileError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.g3d", "PLOT3D FNMISSING(x,y)\n")

	_, err := execute(NewLyapunovCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPublishable(t *testing.T) {
	assert.Nil(t, publishable(plan.Result{Kind: plan.KindContours, Contours: &plan.ContoursResult{}}))

	traces := []field.TraceSample{{}, {}}
	got := publishable(plan.Result{Streamlines: &plan.StreamlinesResult{Traces: traces}})
	assert.Len(t, got, 2)

	got = publishable(plan.Result{Geodesic: &geodesic.Path{Points: []field.Vec3{{X: 0}, {X: 1}}}})
	assert.Len(t, got, 1)
}

func TestWriteResultText(t *testing.T) {
	buf := &bytes.Buffer{}
	writeResultText(buf, plan.Result{Geodesic: &geodesic.Path{Distance: 2.5, Vertices: []int{1, 2, 3}}})
	assert.Contains(t, buf.String(), "✓ Geodesic distance 2.5 over 3 vertices")
}
