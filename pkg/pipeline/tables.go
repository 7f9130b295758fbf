package pipeline

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/brwells78094/mozaic-daily/pkg/forecaster"
)

// OutputRow is one row of the forecast output table. Metric columns are
// pointers: a row only carries the metrics observed or forecast for its
// (date, country, segment) slice.
type OutputRow struct {
	ForecastStartDate     string   `json:"forecast_start_date" parquet:"forecast_start_date"`
	ForecastRunTimestamp  string   `json:"forecast_run_timestamp" parquet:"forecast_run_timestamp"`
	MozaicHash            string   `json:"mozaic_hash" parquet:"mozaic_hash"`
	TargetDate            string   `json:"target_date" parquet:"target_date"`
	Source                string   `json:"source" parquet:"source"`
	DataSource            string   `json:"data_source" parquet:"data_source"`
	Country               string   `json:"country" parquet:"country"`
	AppName               string   `json:"app_name" parquet:"app_name"`
	Segment               string   `json:"segment" parquet:"segment"`
	DAU                   *float64 `json:"dau,omitempty" parquet:"dau,optional"`
	NewProfiles           *float64 `json:"new_profiles,omitempty" parquet:"new_profiles,optional"`
	ExistingEngagementDAU *float64 `json:"existing_engagement_dau,omitempty" parquet:"existing_engagement_dau,optional"`
	ExistingEngagementMAU *float64 `json:"existing_engagement_mau,omitempty" parquet:"existing_engagement_mau,optional"`
}

// OutputColumns is the column order of the output table
//
//nolint:gochecknoglobals // Static column order
var OutputColumns = []string{
	"forecast_start_date",
	"forecast_run_timestamp",
	"mozaic_hash",
	"target_date",
	"source",
	"data_source",
	"country",
	"app_name",
	"segment",
	"dau",
	"new_profiles",
	"existing_engagement_dau",
	"existing_engagement_mau",
}

// Values returns the row in OutputColumns order, for the append step
func (r OutputRow) Values() []any {
	return []any{
		r.ForecastStartDate,
		r.ForecastRunTimestamp,
		r.MozaicHash,
		r.TargetDate,
		r.Source,
		r.DataSource,
		r.Country,
		r.AppName,
		r.Segment,
		r.DAU,
		r.NewProfiles,
		r.ExistingEngagementDAU,
		r.ExistingEngagementMAU,
	}
}

type rowKey struct {
	targetDate string
	country    string
	segment    string
	source     string
}

// combineSeries merges per-metric point series into output rows keyed by
// (target date, country, segment, source), turning each metric's value into
// its own column.
func combineSeries(series map[string][]forecaster.Point) map[rowKey]*OutputRow {
	rows := make(map[rowKey]*OutputRow)

	for metric, points := range series {
		for _, point := range points {
			key := rowKey{
				targetDate: point.Date,
				country:    point.Country,
				segment:    point.Segment,
				source:     point.Source,
			}

			row, ok := rows[key]
			if !ok {
				row = &OutputRow{
					TargetDate: point.Date,
					Country:    point.Country,
					Segment:    point.Segment,
					Source:     point.Source,
				}
				rows[key] = row
			}

			value := point.Value
			switch metric {
			case MetricDAU:
				row.DAU = &value
			case MetricNewProfiles:
				row.NewProfiles = &value
			case MetricExistingEngagementDAU:
				row.ExistingEngagementDAU = &value
			case MetricExistingEngagementMAU:
				row.ExistingEngagementMAU = &value
			}
		}
	}

	return rows
}

// formatDesktopRows applies the desktop segment conventions: the segment
// label becomes a JSON object with an os field, the app name is fixed and
// the data source is Glean desktop telemetry.
func formatDesktopRows(rows map[rowKey]*OutputRow) []OutputRow {
	formatted := make([]OutputRow, 0, len(rows))
	for _, row := range rows {
		segment := row.Segment
		if segment == "" || segment == "None" {
			segment = "ALL"
		}
		encoded, _ := json.Marshal(map[string]string{"os": segment})

		row.AppName = "desktop"
		row.DataSource = "Glean_Desktop"
		row.Segment = string(encoded)
		formatted = append(formatted, *row)
	}

	return formatted
}

// formatMobileRows applies the mobile conventions: the segment carries the
// app name, and mobile does not segment by OS.
func formatMobileRows(rows map[rowKey]*OutputRow) []OutputRow {
	formatted := make([]OutputRow, 0, len(rows))
	for _, row := range rows {
		appName := row.Segment
		if appName == "" || appName == "None" {
			appName = "ALL MOBILE"
		}

		row.AppName = appName
		row.DataSource = "Glean_Mobile"
		row.Segment = "{}"
		formatted = append(formatted, *row)
	}

	return formatted
}

// finalizeRows stamps run-level columns and normalizes values for upload:
// the country aggregate bucket becomes ALL, training observations are
// relabeled from actual to training, and rows are sorted for deterministic
// output. forecastOnly drops the training rows, which backfills use since
// historical training data is already in the table.
func finalizeRows(rows []OutputRow, cfg *RuntimeConfig, forecastOnly bool) []OutputRow {
	finalized := make([]OutputRow, 0, len(rows))

	for _, row := range rows {
		if row.Source == "actual" {
			row.Source = "training"
		}
		if forecastOnly && row.Source != "forecast" {
			continue
		}
		if row.Country == "" || row.Country == "None" {
			row.Country = "ALL"
		}

		row.ForecastStartDate = cfg.ForecastStartDate.Format("2006-01-02")
		row.ForecastRunTimestamp = cfg.RunTime.UTC().Format(time.DateTime)
		row.MozaicHash = cfg.BuildHash

		finalized = append(finalized, row)
	}

	sort.Slice(finalized, func(i, j int) bool {
		a, b := finalized[i], finalized[j]
		if a.DataSource != b.DataSource {
			return a.DataSource < b.DataSource
		}
		if a.TargetDate != b.TargetDate {
			return a.TargetDate < b.TargetDate
		}
		if a.Country != b.Country {
			return a.Country < b.Country
		}

		return a.Segment < b.Segment
	})

	return finalized
}
