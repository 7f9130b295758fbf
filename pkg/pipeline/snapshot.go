package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
)

// ErrNoSnapshots is returned when a combine finds no snapshot files
var ErrNoSnapshots = errors.New("no forecast snapshots found")

// SnapshotPath derives the per-date snapshot file name
func SnapshotPath(dir, date string) string {
	return filepath.Join(dir, fmt.Sprintf("dau_forecast_%s.parquet", date))
}

// WriteSnapshot writes the run's output rows to a per-date parquet file
// instead of the output table. Backfill experiments use this together with
// CombineSnapshots to assemble a range locally before deciding to upload.
func WriteSnapshot(dir, date string, rows []OutputRow) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	path := SnapshotPath(dir, date)
	if err := parquet.WriteFile(path, rows); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", path, err)
	}

	return path, nil
}

// CombineSnapshots merges every per-date snapshot under inputDir into a
// single parquet file at outputPath, sorted like the output table.
func CombineSnapshots(inputDir, outputPath string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(inputDir, "dau_forecast_*.parquet"))
	if err != nil {
		return 0, fmt.Errorf("list snapshots in %s: %w", inputDir, err)
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("%w in %s", ErrNoSnapshots, inputDir)
	}
	sort.Strings(paths)

	var combined []OutputRow
	for _, path := range paths {
		rows, readErr := parquet.ReadFile[OutputRow](path)
		if readErr != nil {
			return 0, fmt.Errorf("read snapshot %s: %w", path, readErr)
		}
		combined = append(combined, rows...)
	}

	sort.Slice(combined, func(i, j int) bool {
		a, b := combined[i], combined[j]
		if a.ForecastStartDate != b.ForecastStartDate {
			return a.ForecastStartDate < b.ForecastStartDate
		}
		if a.DataSource != b.DataSource {
			return a.DataSource < b.DataSource
		}

		return a.TargetDate < b.TargetDate
	})

	if err := parquet.WriteFile(outputPath, combined); err != nil {
		return 0, fmt.Errorf("write combined snapshot %s: %w", outputPath, err)
	}

	return len(combined), nil
}
