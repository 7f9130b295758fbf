//go:build !windows

package backfill

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brwells78094/mozaic-daily/internal/testutil"
)

// writeScript creates an executable shell script the runner can invoke in
// place of the real binary.
func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pipeline.sh")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700)) //nolint:gosec // Test script must be executable

	return path
}

func TestSubprocessRunner_Success(t *testing.T) {
	logDir := t.TempDir()
	binary := writeScript(t, `echo "run for $@"`)

	runner := NewSubprocessRunner(testutil.NewTestLogger(), binary, []string{"local"}, logDir, time.Minute)
	outcome := runner.RunForDate(context.Background(), date(t, "2024-06-15"))

	assert.Equal(t, StatusSucceeded, outcome.Status)
	assert.Empty(t, outcome.ErrorSummary)
	assert.Equal(t, filepath.Join(logDir, "backfill_2024-06-15.log"), outcome.LogPath)
	assert.False(t, outcome.EndTime.Before(outcome.StartTime))

	data, err := os.ReadFile(outcome.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Date: 2024-06-15")
	assert.Contains(t, string(data), "Exit code: 0")
	assert.Contains(t, string(data), "run for local --date 2024-06-15")
}

func TestSubprocessRunner_FailureCapturesLastLine(t *testing.T) {
	logDir := t.TempDir()
	binary := writeScript(t, `echo "starting up"
echo "something went wrong" >&2
exit 3`)

	runner := NewSubprocessRunner(testutil.NewTestLogger(), binary, nil, logDir, time.Minute)
	outcome := runner.RunForDate(context.Background(), date(t, "2024-06-15"))

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "something went wrong", outcome.ErrorSummary)

	data, err := os.ReadFile(outcome.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Exit code: 3")
	assert.Contains(t, string(data), "starting up")
}

func TestSubprocessRunner_SpawnFailureStillWritesLog(t *testing.T) {
	logDir := t.TempDir()

	runner := NewSubprocessRunner(testutil.NewTestLogger(),
		filepath.Join(t.TempDir(), "does-not-exist"), nil, logDir, time.Minute)
	outcome := runner.RunForDate(context.Background(), date(t, "2024-06-15"))

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.NotEmpty(t, outcome.ErrorSummary)

	data, err := os.ReadFile(outcome.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Exit code: -1")
}

func TestSubprocessRunner_Timeout(t *testing.T) {
	logDir := t.TempDir()
	binary := writeScript(t, `sleep 10`)

	runner := NewSubprocessRunner(testutil.NewTestLogger(), binary, nil, logDir, 100*time.Millisecond)

	start := time.Now()
	outcome := runner.RunForDate(context.Background(), date(t, "2024-06-15"))

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Contains(t, outcome.ErrorSummary, "timeout after")
	assert.Less(t, time.Since(start), 5*time.Second, "timeout must kill the child promptly")

	_, err := os.Stat(outcome.LogPath)
	require.NoError(t, err, "timed-out runs still leave a log file")
}
