package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brwells78094/mozaic-daily/pkg/pipeline"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	combineInputDir string
	combineOutput   string
)

// combineCmd represents the combine command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Merge per-date forecast snapshots into one parquet file",
	Long: `Combine merges the parquet snapshots written by local runs with
--output-dir into a single sorted parquet file, typically after a backfill.`,
	RunE: runCombine,
}

func init() {
	rootCmd.AddCommand(combineCmd)

	combineCmd.Flags().StringVar(&combineInputDir, "input-dir", "forecasts", "Directory containing per-date snapshots")
	combineCmd.Flags().StringVar(&combineOutput, "output", "combined_forecasts.parquet", "Path of the combined output file")
}

func runCombine(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	rows, err := pipeline.CombineSnapshots(combineInputDir, combineOutput)
	if err != nil {
		return err
	}

	fmt.Printf("Combined %d rows into %s\n", rows, combineOutput)

	return nil
}
