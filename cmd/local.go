package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brwells78094/mozaic-daily/pkg/forecaster"
	"github.com/brwells78094/mozaic-daily/pkg/pipeline"
	"github.com/brwells78094/mozaic-daily/pkg/warehouse"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	localDate         string
	localDAUOnly      bool
	localForecastOnly bool
	localOutputDir    string
)

// localCmd represents the local command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Run the forecast pipeline once, immediately",
	Long: `Run the full single-date pipeline for one target date. Without
--date the forecast starts yesterday, matching the scheduled daily job.

Examples:
  # Run for yesterday
  mozaic-daily local

  # Historical run for a specific date, forecast rows only
  mozaic-daily local --date 2024-06-15 --dau-only --forecast-only

  # Write a local snapshot instead of appending to the output table
  mozaic-daily local --date 2024-06-15 --output-dir ./forecasts`,
	RunE: runLocal,
}

func init() {
	rootCmd.AddCommand(localCmd)

	localCmd.Flags().StringVar(&localDate, "date", "", "Override forecast start date (YYYY-MM-DD) for historical runs")
	localCmd.Flags().BoolVar(&localDAUOnly, "dau-only", false, "Only query DAU metrics")
	localCmd.Flags().BoolVar(&localForecastOnly, "forecast-only", false, "Return only forecast rows (exclude training data)")
	localCmd.Flags().StringVar(&localOutputDir, "output-dir", "", "Save output to directory instead of uploading")
}

func runLocal(cmd *cobra.Command, _ []string) error {
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

	// Runtime configuration is computed exactly once per process and
	// threaded down; nothing below reads the clock again.
	runtime, err := pipeline.NewRuntimeConfig(time.Now().UTC(), localDate)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	warehouseClient, err := warehouse.NewClient(ctx, logger, &cfg.Warehouse)
	if err != nil {
		return err
	}
	defer warehouseClient.Close()

	forecastClient, err := forecaster.NewExecForecaster(logger, cfg.Pipeline.ForecastCommand)
	if err != nil {
		return err
	}

	service, err := pipeline.NewService(logger, &cfg.Pipeline, runtime, warehouseClient, forecastClient)
	if err != nil {
		return err
	}

	return service.Run(ctx, pipeline.RunOptions{
		DAUOnly:      localDAUOnly,
		ForecastOnly: localForecastOnly,
		OutputDir:    localOutputDir,
	})
}
