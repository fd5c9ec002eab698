package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/g3d/internal/testutil"
)

func TestValidateSingle(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bowl.g3d", testutil.BowlProgram)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Program valid")
}

func TestValidateMany(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "bowl.g3d", testutil.BowlProgram)
	b := writeFile(t, dir, "saddle.g3d", testutil.SaddleProgram)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 2 programs valid")
}

func TestValidateReportsEveryFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "bowl.g3d", testutil.BowlProgram)
	bad := writeFile(t, dir, "cycle.g3d", "DEF FNA(x,y) = FNB(x,y)\nDEF FNB(x,y) = FNA(x,y)\nPLOT3D FNA(x,y)\n")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, good+": ok")
	assert.Contains(t, out, "E217")
}

func TestValidateJSON(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "bowl.g3d", testutil.BowlProgram)
	bad := writeFile(t, dir, "range.g3d", "SET RANGE Y 3 TO -3\n")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), good, bad)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 2)
	assert.True(t, resp.Data.Files[0].Valid)
	assert.NotEmpty(t, resp.Data.Files[0].Hash)
	require.NotNil(t, resp.Data.Files[1].Error)
	assert.Equal(t, "E203", resp.Error.Code)
	assert.Equal(t, 1, resp.Error.Line)
}

func TestValidateMissingFile(t *testing.T) {
	_, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent.g3d")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateRequiresArgs(t *testing.T) {
	_, err := execute(NewValidateCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}
