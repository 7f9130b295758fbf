package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/brwells78094/mozaic-daily/pkg/scheduler"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var deploySchedule string

// deployCmd represents the deploy command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Register or update the scheduled daily job",
	Long: `Deploy writes the job manifest that the daemon runs from. Running
deploy again updates the schedule in place.`,
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().StringVar(&deploySchedule, "schedule", "", "Cron schedule override (default from config)")
}

func runDeploy(cmd *cobra.Command, _ []string) error {
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
	if deploySchedule != "" {
		schedule = deploySchedule
	}

	manifest, err := scheduler.WriteManifest(cfg.Scheduler.ManifestPath, cfg.Scheduler.JobName, schedule, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Registered job %q with schedule %q (%s)\n",
		manifest.Name, manifest.Schedule, cfg.Scheduler.ManifestPath)

	return nil
}
