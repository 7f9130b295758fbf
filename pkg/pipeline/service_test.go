package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brwells78094/mozaic-daily/internal/testutil"
	"github.com/brwells78094/mozaic-daily/pkg/forecaster"
	"github.com/brwells78094/mozaic-daily/pkg/warehouse"
)

// fakeWarehouse serves canned aggregate rows and records appended rows.
type fakeWarehouse struct {
	mu       sync.Mutex
	rows     []warehouse.AggregateRow
	queryErr error
	queries  []string
	appended [][]any
	table    string
}

func (w *fakeWarehouse) QueryAggregates(_ context.Context, sql string) ([]warehouse.AggregateRow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queries = append(w.queries, sql)

	if w.queryErr != nil {
		return nil, w.queryErr
	}

	return w.rows, nil
}

func (w *fakeWarehouse) AppendRows(_ context.Context, table string, _ []string, rows [][]any) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.table = table
	w.appended = append(w.appended, rows...)

	return int64(len(rows)), nil
}

func (w *fakeWarehouse) Close() {}

// fakeForecaster predicts one fixed point per requested series, echoing the
// segment of the training data.
type fakeForecaster struct {
	err      error
	requests []*forecaster.Request
}

func (f *fakeForecaster) Forecast(_ context.Context, req *forecaster.Request) ([]forecaster.Point, error) {
	f.requests = append(f.requests, req)

	if f.err != nil {
		return nil, f.err
	}

	segment := "win10"
	if req.Platform == "mobile" {
		segment = "Fenix"
	}

	return []forecaster.Point{
		{Date: req.StartDate, Country: "US", Segment: segment, Value: 120, Source: "forecast"},
	}, nil
}

func newTestService(t *testing.T, wh *fakeWarehouse, fc *fakeForecaster) *Service {
	t.Helper()

	cfg := &Config{
		OutputTable:     "forecasts.mozaic_daily_forecast",
		ForecastCommand: "true",
		Quantile:        0.5,
	}
	runtime := testRuntimeConfig(t)

	service, err := NewService(testutil.NewTestLogger(), cfg, runtime, wh, fc)
	require.NoError(t, err)

	return service
}

func trainingRows(segment string) []warehouse.AggregateRow {
	return []warehouse.AggregateRow{
		{Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), Country: "US", Segment: segment, Value: 100},
		{Date: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), Country: "US", Segment: segment, Value: 105},
	}
}

func TestService_RunUploadsValidatedRows(t *testing.T) {
	wh := &fakeWarehouse{rows: trainingRows("win10")}
	fc := &fakeForecaster{}
	service := newTestService(t, wh, fc)

	err := service.Run(context.Background(), RunOptions{DAUOnly: true})
	require.NoError(t, err)

	// One query and one forecast per platform.
	assert.Len(t, wh.queries, 2)
	assert.Len(t, fc.requests, 2)
	assert.Equal(t, "forecasts.mozaic_daily_forecast", wh.table)

	// 2 training + 1 forecast row per platform.
	assert.Len(t, wh.appended, 6)
	for _, values := range wh.appended {
		require.Len(t, values, len(OutputColumns))
	}
}

func TestService_RunForecastOnly(t *testing.T) {
	wh := &fakeWarehouse{rows: trainingRows("win10")}
	service := newTestService(t, wh, &fakeForecaster{})

	err := service.Run(context.Background(), RunOptions{DAUOnly: true, ForecastOnly: true})
	require.NoError(t, err)

	// Only the forecast rows survive, one per platform.
	assert.Len(t, wh.appended, 2)
}

func TestService_RunWritesSnapshotInsteadOfUploading(t *testing.T) {
	dir := t.TempDir()
	wh := &fakeWarehouse{rows: trainingRows("win10")}
	service := newTestService(t, wh, &fakeForecaster{})

	err := service.Run(context.Background(), RunOptions{DAUOnly: true, OutputDir: dir})
	require.NoError(t, err)

	assert.Empty(t, wh.appended, "snapshot runs must not touch the output table")

	path := SnapshotPath(dir, service.runtime.ForecastStartDate.Format("2006-01-02"))
	rows, err := parquet.ReadFile[OutputRow](path)
	require.NoError(t, err)
	assert.Len(t, rows, 6)
}

func TestService_RunQueryFailureAborts(t *testing.T) {
	queryErr := errors.New("relation does not exist")
	wh := &fakeWarehouse{queryErr: queryErr}
	fc := &fakeForecaster{}
	service := newTestService(t, wh, fc)

	err := service.Run(context.Background(), RunOptions{DAUOnly: true})
	require.ErrorIs(t, err, queryErr)
	assert.Empty(t, fc.requests, "forecast must not run after a failed collection")
	assert.Empty(t, wh.appended)
}

func TestService_RunForecastFailureAborts(t *testing.T) {
	forecastErr := errors.New("model did not converge")
	wh := &fakeWarehouse{rows: trainingRows("win10")}
	service := newTestService(t, wh, &fakeForecaster{err: forecastErr})

	err := service.Run(context.Background(), RunOptions{DAUOnly: true})
	require.ErrorIs(t, err, forecastErr)
	assert.Empty(t, wh.appended)
}

func TestService_RunValidationFailureBlocksUpload(t *testing.T) {
	// An unknown country in the warehouse data must fail validation before
	// anything reaches the output table.
	wh := &fakeWarehouse{rows: []warehouse.AggregateRow{
		{Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), Country: "XX", Segment: "win10", Value: 100},
	}}
	service := newTestService(t, wh, &fakeForecaster{})

	err := service.Run(context.Background(), RunOptions{DAUOnly: true})
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Empty(t, wh.appended)
}
