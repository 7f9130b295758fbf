package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotRow(targetDate, dataSource string) OutputRow {
	value := 100.0

	return OutputRow{
		ForecastStartDate:    "2026-08-26",
		ForecastRunTimestamp: "2026-08-27 07:00:03",
		MozaicHash:           "abc123",
		TargetDate:           targetDate,
		Source:               "forecast",
		DataSource:           dataSource,
		Country:              "US",
		AppName:              "desktop",
		Segment:              `{"os":"win10"}`,
		DAU:                  &value,
	}
}

func TestWriteSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "forecasts")

	path, err := WriteSnapshot(dir, "2026-08-26", []OutputRow{snapshotRow("2026-08-30", "Glean_Desktop")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dau_forecast_2026-08-26.parquet"), path)

	rows, err := parquet.ReadFile[OutputRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-08-30", rows[0].TargetDate)
	require.NotNil(t, rows[0].DAU)
	assert.Equal(t, 100.0, *rows[0].DAU)
	assert.Nil(t, rows[0].NewProfiles)
}

func TestCombineSnapshots(t *testing.T) {
	dir := t.TempDir()

	_, err := WriteSnapshot(dir, "2026-08-25", []OutputRow{
		snapshotRow("2026-08-28", "Glean_Mobile"),
		snapshotRow("2026-08-27", "Glean_Desktop"),
	})
	require.NoError(t, err)
	_, err = WriteSnapshot(dir, "2026-08-26", []OutputRow{
		snapshotRow("2026-08-29", "Glean_Desktop"),
	})
	require.NoError(t, err)

	output := filepath.Join(dir, "combined.parquet")
	count, err := CombineSnapshots(dir, output)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	rows, err := parquet.ReadFile[OutputRow](output)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Sorted by forecast start date, then data source, then target date.
	assert.Equal(t, "2026-08-27", rows[0].TargetDate)
	assert.Equal(t, "Glean_Desktop", rows[0].DataSource)
	assert.Equal(t, "2026-08-29", rows[1].TargetDate)
	assert.Equal(t, "Glean_Desktop", rows[1].DataSource)
	assert.Equal(t, "2026-08-28", rows[2].TargetDate)
	assert.Equal(t, "Glean_Mobile", rows[2].DataSource)
}

func TestCombineSnapshots_NoFiles(t *testing.T) {
	_, err := CombineSnapshots(t.TempDir(), "out.parquet")
	require.ErrorIs(t, err, ErrNoSnapshots)
}
