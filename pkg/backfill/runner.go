package backfill

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Runner executes the single-date pipeline for one target date. It never
// returns an error: every pipeline failure is converted into a failed
// Outcome so that one date can never abort another.
type Runner interface {
	RunForDate(ctx context.Context, date time.Time) Outcome
}

// SubprocessRunner runs the single-date pipeline as an isolated child
// process of this binary, capturing its combined output into a per-date log
// file. Process-level isolation means a crash in one date's run cannot
// corrupt the orchestrator or any other in-flight date.
type SubprocessRunner struct {
	log      logrus.FieldLogger
	binary   string
	baseArgs []string
	logDir   string
	timeout  time.Duration
}

// NewSubprocessRunner creates a runner that invokes binary with baseArgs
// plus a per-date --date flag. Logs are written under logDir.
func NewSubprocessRunner(log logrus.FieldLogger, binary string, baseArgs []string, logDir string, timeout time.Duration) *SubprocessRunner {
	return &SubprocessRunner{
		log:      log.WithField("component", "runner"),
		binary:   binary,
		baseArgs: baseArgs,
		logDir:   logDir,
		timeout:  timeout,
	}
}

// RunForDate invokes the pipeline for one date. The log file is created on
// every exit path, including spawn failures and timeouts, so a failed date
// always leaves an inspectable artifact.
func (r *SubprocessRunner) RunForDate(ctx context.Context, date time.Time) Outcome {
	dateStr := date.Format(DateFormat)
	logPath := filepath.Join(r.logDir, "backfill_"+dateStr+".log")

	runCtx := ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(r.baseArgs)+2)
	args = append(args, r.baseArgs...)
	args = append(args, "--date", dateStr)

	r.log.WithFields(logrus.Fields{
		"date":    dateStr,
		"command": r.binary + " " + strings.Join(args, " "),
	}).Info("Starting single-date run")

	start := time.Now()
	// #nosec G204 -- The command is this binary plus orchestrator-built flags
	cmd := exec.CommandContext(runCtx, r.binary, args...)
	output, runErr := cmd.CombinedOutput()
	end := time.Now()

	outcome := Outcome{
		Date:      date,
		Status:    StatusSucceeded,
		StartTime: start,
		EndTime:   end,
		LogPath:   logPath,
	}

	if runErr != nil {
		outcome.Status = StatusFailed
		outcome.ErrorSummary = errorSummary(runCtx, output, runErr, end.Sub(start))
	}

	// ProcessState is nil when the process never started (spawn failure)
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if writeErr := r.writeLog(logPath, dateStr, exitCode, output); writeErr != nil {
		r.log.WithError(writeErr).WithField("date", dateStr).Error("Failed to write run log")
	}

	return outcome
}

func (r *SubprocessRunner) writeLog(path, date string, exitCode int, output []byte) error {
	if err := os.MkdirAll(r.logDir, 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Date: " + date + "\n")
	sb.WriteString(fmt.Sprintf("Exit code: %d\n\n", exitCode))
	sb.WriteString("=== OUTPUT ===\n")
	sb.Write(output)

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("write run log %s: %w", path, err)
	}

	return nil
}

// errorSummary extracts a one-line failure description: the last non-empty
// output line when there is output, otherwise the process error itself.
// Timeouts are reported explicitly since the killed process rarely leaves a
// useful final line.
func errorSummary(ctx context.Context, output []byte, runErr error, elapsed time.Duration) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("timeout after %s", elapsed.Round(time.Second))
	}

	if line := lastNonEmptyLine(output); line != "" {
		return line
	}

	return runErr.Error()
}

func lastNonEmptyLine(output []byte) string {
	lines := strings.Split(string(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}

	return ""
}
