package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/brwells78094/mozaic-daily/pkg/backfill"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	backfillParallel int
	backfillWeekdays []string
	backfillResume   bool
	backfillDryRun   bool
)

// backfillCmd represents the backfill command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var backfillCmd = &cobra.Command{
	Use:   "backfill <start-date> [end-date]",
	Short: "Run historical forecasts for a date range",
	Long: `Backfill runs the single-date pipeline for every date in the
inclusive range, sequentially by default or with a bounded worker pool.
Each date runs in an isolated child process with its own log file; a
failure in one date never aborts the others. Completion state is persisted
per date, so an interrupted backfill can be resumed without reprocessing
completed dates.

Repeated runs for the same date append duplicate rows to the output table.
That is the documented policy of the table, not a bug; deduplication is an
offline concern.

Examples:
  # Single date
  mozaic-daily backfill 2024-06-15

  # Date range with 4 parallel workers
  mozaic-daily backfill 2024-06-01 2024-06-30 --parallel 4

  # Only Mondays, preview without running
  mozaic-daily backfill 2025-07-01 2026-02-01 --weekday monday --dry-run

  # Resume a previous run, retrying its failures
  mozaic-daily backfill 2024-06-01 2024-06-30 --resume`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().IntVar(&backfillParallel, "parallel", 0, "Number of parallel workers (default from config)")
	backfillCmd.Flags().StringArrayVar(&backfillWeekdays, "weekday", nil, "Filter to specific weekday(s), can be repeated")
	backfillCmd.Flags().BoolVar(&backfillResume, "resume", false, "Resume from previous run, skipping completed dates")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Print execution plan without running")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return validationErr
	}

	parallelism := cfg.Backfill.Parallelism
	if backfillParallel > 0 {
		parallelism = backfillParallel
	}

	start, err := backfill.ParseDate(args[0])
	if err != nil {
		return err
	}
	end := start
	if len(args) == 2 {
		if end, err = backfill.ParseDate(args[1]); err != nil {
			return err
		}
	}

	weekdays := make([]time.Weekday, 0, len(backfillWeekdays))
	for _, name := range backfillWeekdays {
		day, parseErr := backfill.ParseWeekday(name)
		if parseErr != nil {
			return parseErr
		}
		weekdays = append(weekdays, day)
	}

	// The reference date is taken once here; planning and the future-date
	// check are deterministic from this point on.
	today := backfill.Day(time.Now().UTC())

	plan, err := backfill.NewPlan(start, end, weekdays, today)
	if err != nil {
		return err
	}

	reporter := backfill.NewReporter(logger, os.Stdout)

	var store *backfill.FileStore
	statePath := backfill.StatePath(cfg.Backfill.LogDir, start, end, weekdays)

	if backfillResume {
		store = backfill.NewFileStore(logger, statePath)
		if initErr := store.Init(start, end, weekdays, uuid.NewString(), time.Now().UTC()); initErr != nil {
			return initErr
		}

		pending := store.FilterPending(plan)
		if skipped := len(plan) - len(pending); skipped > 0 {
			logger.WithField("skipped", skipped).Info("Resuming from previous run, skipping completed dates")
		}
		plan = pending
	}

	if backfillDryRun {
		reporter.PrintPlan(plan, parallelism)

		return nil
	}

	if store == nil {
		store = backfill.NewFileStore(logger, statePath)
		if initErr := store.Init(start, end, weekdays, uuid.NewString(), time.Now().UTC()); initErr != nil {
			return initErr
		}
	}

	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own binary: %w", err)
	}

	baseArgs := []string{"local", "--dau-only", "--forecast-only"}
	if cfgFile != "" {
		baseArgs = append(baseArgs, "--config", cfgFile)
	}

	runner := backfill.NewSubprocessRunner(logger, binary, baseArgs, cfg.Backfill.LogDir, cfg.Backfill.RunTimeout)
	engine := backfill.NewEngine(logger, runner, store, reporter.Progress, parallelism)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithField("state", statePath).Info("Backfill state file")

	outcomes, execErr := engine.Execute(ctx, plan)

	summary := backfill.Summarize(outcomes)
	reporter.PrintSummary(summary)

	if execErr != nil {
		return execErr
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d dates failed", summary.Failed, summary.Total)
	}

	return nil
}
