package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() (*Logger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	l := NewLogger()
	l.SetOutput(&out, &errOut)
	l.SetNoColor(true)
	return l, &out, &errOut
}

func TestLogger_Levels(t *testing.T) {
	l, out, errOut := newTestLogger()

	l.Info("hello %s", "world")
	l.Debug("hidden")
	l.Success("done")
	l.Warn("careful")

	assert.Equal(t, "hello world\n✓ done\n", out.String())
	assert.Equal(t, "Warning: careful\n", errOut.String())

	l.SetVerbose(true)
	l.Debug("shown %d", 1)
	assert.Contains(t, out.String(), "[DEBUG] shown 1")
}

func TestLogger_JSONMode(t *testing.T) {
	l, out, errOut := newTestLogger()
	l.SetJSONMode(true)

	l.Info("suppressed")
	l.Field("key", "value")
	require.NoError(t, l.JSON(map[string]string{"account": "dev-1"}))
	l.Error("still printed")

	assert.JSONEq(t, `{"account":"dev-1"}`, out.String())
	assert.Equal(t, "Error: still printed\n", errOut.String())
}

func TestLogger_PrintSandboxError(t *testing.T) {
	l, _, errOut := newTestLogger()
	l.PrintSandboxError(&SandboxErrorInfo{
		Binary:   "/usr/bin/near-sandbox",
		HomeDir:  "/tmp/sandbox-1",
		LogLines: []string{"line one", "line two"},
		Error:    errors.New("exited with status 3"),
	})

	s := errOut.String()
	assert.Contains(t, s, "Sandbox failed: exited with status 3")
	assert.Contains(t, s, "/usr/bin/near-sandbox")
	assert.Contains(t, s, "last 2 log lines")
	assert.Contains(t, s, "    line two")
}

func TestLogger_Slog(t *testing.T) {
	l, _, errOut := newTestLogger()
	l.Slog().Debug("quiet")
	assert.Empty(t, errOut.String())

	l.SetVerbose(true)
	l.Slog().Debug("loud", "pid", 42)
	assert.Contains(t, errOut.String(), "pid=42")
}
