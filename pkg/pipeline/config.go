// Package pipeline implements the single-date forecasting pipeline: render
// aggregate queries, fetch telemetry series from the warehouse, call the
// external forecaster, format and validate the output rows, and append them
// to the output table.
package pipeline

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"time"
)

// Define static errors
var (
	// ErrOutputTableRequired is returned when no output table is configured
	ErrOutputTableRequired = errors.New("output table is required")
	// ErrForecastCommandRequired is returned when no forecast command is configured
	ErrForecastCommandRequired = errors.New("forecast command is required")
	// ErrInvalidQuantile is returned when the forecast quantile is outside (0, 1)
	ErrInvalidQuantile = errors.New("quantile must be between 0 and 1")
	// ErrFutureStartDate is returned when the forecast start date is in the future
	ErrFutureStartDate = errors.New("forecast start date is in the future")
)

// Config holds the static pipeline configuration
type Config struct {
	// OutputTable is the append-only forecast output table
	OutputTable string `yaml:"outputTable" default:"forecasts.mozaic_daily_forecast"`
	// ForecastCommand is the external forecasting command (JSON on
	// stdin/stdout)
	ForecastCommand string `yaml:"forecastCommand" default:"mozaic-forecast"`
	// Quantile selects the point estimate from the forecast distribution
	Quantile float64 `yaml:"quantile" default:"0.5"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OutputTable == "" {
		return ErrOutputTableRequired
	}

	if c.ForecastCommand == "" {
		return ErrForecastCommandRequired
	}

	if c.Quantile <= 0 || c.Quantile >= 1 {
		return ErrInvalidQuantile
	}

	return nil
}

// Top markets by DAU, top search-monetized markets, and markets where
// search is not monetized. The output additionally carries ALL and ROW
// buckets that are not queried directly.
//
//nolint:gochecknoglobals // Static market lists
var (
	topDAUMarkets = []string{
		"US", "BR", "CA", "MX", "AR", "IN", "ID", "JP", "IR", "CN", "DE", "FR", "PL", "RU", "IT",
	}
	topSearchMarkets = []string{
		"US", "DE", "FR", "GB", "PL", "CA", "CH", "IT", "AU", "NL", "ES", "JP", "AT",
	}
	nonmonetizedMarkets = []string{"RU", "UA", "TR", "BY", "KZ", "CN"}
)

// RuntimeConfig is the date-dependent configuration, computed exactly once
// at process start from an explicit run time and threaded as a parameter.
// Nothing in the pipeline reads the ambient clock, so date-dependent
// behavior stays deterministic and testable.
type RuntimeConfig struct {
	RunTime           time.Time
	ForecastStartDate time.Time
	ForecastEndDate   time.Time
	TrainingEndDate   time.Time
	Countries         []string
	BuildHash         string
}

// NewRuntimeConfig derives the run's dates from runTime. With no override
// the forecast starts yesterday; backfills override the start date, which
// must not lie in the future. The forecast horizon always ends on December
// 31 of next year, and training data ends the day before the forecast
// starts.
func NewRuntimeConfig(runTime time.Time, startOverride string) (*RuntimeConfig, error) {
	today := time.Date(runTime.Year(), runTime.Month(), runTime.Day(), 0, 0, 0, 0, time.UTC)

	start := today.AddDate(0, 0, -1)
	if startOverride != "" {
		parsed, err := time.Parse("2006-01-02", startOverride)
		if err != nil {
			return nil, fmt.Errorf("invalid forecast start date %q: %w", startOverride, err)
		}
		start = parsed
	}

	if start.After(today) {
		return nil, fmt.Errorf("%w: %s", ErrFutureStartDate, start.Format("2006-01-02"))
	}

	return &RuntimeConfig{
		RunTime:           runTime,
		ForecastStartDate: start,
		ForecastEndDate:   time.Date(runTime.Year()+1, time.December, 31, 0, 0, 0, 0, time.UTC),
		TrainingEndDate:   start.AddDate(0, 0, -1),
		Countries:         marketUnion(),
		BuildHash:         buildHash(),
	}, nil
}

func marketUnion() []string {
	seen := make(map[string]bool)
	for _, group := range [][]string{topDAUMarkets, topSearchMarkets, nonmonetizedMarkets} {
		for _, country := range group {
			seen[country] = true
		}
	}

	countries := make([]string, 0, len(seen))
	for country := range seen {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	return countries
}

// buildHash identifies the code that produced a forecast row, from VCS
// build info when available
func buildHash() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}

	return "unknown"
}
