package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONErrorAt(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.ErrorAt("E213", "PLOT3D calls undefined function FNX", 4, nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E213", resp.Error.Code)
	assert.Equal(t, 4, resp.Error.Line)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E004", "invalid plan", map[string]string{"field": "analyses"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
	assert.Zero(t, resp.Error.Line)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name    string
		line    int
		verbose bool
		want    []string
		absent  []string
	}{
		{"plain", 0, false, []string{"Error [E001]: boom"}, []string{"Details:"}},
		{"with line", 7, false, []string{"Error [E203] line 7: boom"}, nil},
		{"verbose details", 0, true, []string{"Error [E001]", "Details:"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}
			code := "E001"
			if tt.line > 0 {
				code = "E203"
			}
			require.NoError(t, formatter.ErrorAt(code, "boom", tt.line, "ctx"))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, buf.String(), a)
			}
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf, ErrWriter: errBuf, Verbose: tt.verbose}

			formatter.VerboseLog("Processing %s", "bowl.g3d")

			assert.Empty(t, buf.String(), "verbose output must not corrupt stdout")
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "Processing bowl.g3d")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestFormatterFail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}
	cause := errors.New("disk full")

	err := formatter.fail(ExitCommandError, ErrCodeWriteFailed, "writing output file", cause)

	assert.Contains(t, buf.String(), "Error [E003]: writing output file: disk full")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	wrapped := WrapExitError(ExitFailure, "compile failed", errors.New("E213"))
	assert.Equal(t, "compile failed: E213", wrapped.Error())
	assert.Equal(t, ExitFailure, GetExitCode(errors.Join(errors.New("ctx"), wrapped)))
}
