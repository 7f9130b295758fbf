package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brwells78094/mozaic-daily/pkg/forecaster"
	"github.com/brwells78094/mozaic-daily/pkg/observability"
	"github.com/brwells78094/mozaic-daily/pkg/pipeline"
	"github.com/brwells78094/mozaic-daily/pkg/scheduler"
	"github.com/brwells78094/mozaic-daily/pkg/warehouse"
)

// daemonCmd represents the daemon command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the deployed job on its schedule",
	Long: `Daemon runs the registered daily forecast job on its cron
schedule and serves metrics. Without a deployed manifest it falls back to
the schedule from the config file.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
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

	schedule := cfg.Scheduler.Schedule
	if manifest, loadErr := scheduler.LoadManifest(cfg.Scheduler.ManifestPath); loadErr == nil {
		schedule = manifest.Schedule
		logger.WithField("job", manifest.Name).Info("Loaded deployed job manifest")
	} else {
		logger.WithError(loadErr).Warn("No deployed job manifest, using config schedule")
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

	// Each trigger derives a fresh runtime configuration from its own
	// trigger time, so the daily run always forecasts from yesterday.
	run := func(runCtx context.Context) error {
		runtime, runtimeErr := pipeline.NewRuntimeConfig(time.Now().UTC(), "")
		if runtimeErr != nil {
			return runtimeErr
		}

		service, serviceErr := pipeline.NewService(logger, &cfg.Pipeline, runtime, warehouseClient, forecastClient)
		if serviceErr != nil {
			return serviceErr
		}

		return service.Run(runCtx, pipeline.RunOptions{})
	}

	service, err := scheduler.NewService(logger, schedule, run)
	if err != nil {
		return err
	}

	observability.StartMetricsServer(logger, cfg.MetricsAddr)

	if startErr := service.Start(ctx); startErr != nil {
		return startErr
	}

	// Wait for interrupt signal
	<-ctx.Done()

	// Graceful shutdown
	service.Stop()

	return nil
}
