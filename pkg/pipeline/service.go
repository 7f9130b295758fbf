package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/brwells78094/mozaic-daily/pkg/forecaster"
	"github.com/brwells78094/mozaic-daily/pkg/observability"
	"github.com/brwells78094/mozaic-daily/pkg/warehouse"
)

// RunOptions control one pipeline invocation
type RunOptions struct {
	// DAUOnly restricts the run to the DAU series
	DAUOnly bool
	// ForecastOnly drops training rows from the output
	ForecastOnly bool
	// OutputDir, when set, writes a local parquet snapshot instead of
	// appending to the output table
	OutputDir string
}

// Service is the single-date pipeline: data collection, forecast,
// validation, upload. The append to the output table is the last step, so
// an interrupted run either fully applied its rows or never touched the
// table.
type Service struct {
	log        logrus.FieldLogger
	cfg        *Config
	runtime    *RuntimeConfig
	warehouse  warehouse.Client
	forecaster forecaster.Forecaster
	validator  *Validator
}

// NewService creates the pipeline service for one run
func NewService(
	log logrus.FieldLogger,
	cfg *Config,
	runtime *RuntimeConfig,
	warehouseClient warehouse.Client,
	forecastClient forecaster.Forecaster,
) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	validator, err := NewValidator(runtime.Countries)
	if err != nil {
		return nil, err
	}

	return &Service{
		log:        log.WithField("component", "pipeline"),
		cfg:        cfg,
		runtime:    runtime,
		warehouse:  warehouseClient,
		forecaster: forecastClient,
		validator:  validator,
	}, nil
}

// Run executes the full pipeline for the configured forecast start date
func (s *Service) Run(ctx context.Context, opts RunOptions) error {
	s.log.WithFields(logrus.Fields{
		"forecast_start": s.runtime.ForecastStartDate.Format("2006-01-02"),
		"forecast_end":   s.runtime.ForecastEndDate.Format("2006-01-02"),
		"training_end":   s.runtime.TrainingEndDate.Format("2006-01-02"),
		"dau_only":       opts.DAUOnly,
	}).Info("Running forecast pipeline")

	series, err := s.collect(ctx, opts.DAUOnly)
	if err != nil {
		return err
	}

	rows, err := s.forecast(ctx, series)
	if err != nil {
		return err
	}

	rows = finalizeRows(rows, s.runtime, opts.ForecastOnly)

	s.log.WithField("rows", len(rows)).Info("Validating forecast output")
	if validateErr := s.validator.Validate(rows); validateErr != nil {
		return validateErr
	}

	if opts.OutputDir != "" {
		path, writeErr := WriteSnapshot(opts.OutputDir, s.runtime.ForecastStartDate.Format("2006-01-02"), rows)
		if writeErr != nil {
			return writeErr
		}
		s.log.WithField("path", path).Info("Wrote forecast snapshot")

		return nil
	}

	return s.upload(ctx, rows)
}

// collect fetches the training series for every query spec, grouped by
// platform then metric
func (s *Service) collect(ctx context.Context, dauOnly bool) (map[Platform]map[string][]forecaster.Point, error) {
	series := map[Platform]map[string][]forecaster.Point{
		PlatformDesktop: {},
		PlatformMobile:  {},
	}

	for _, spec := range querySpecs(dauOnly) {
		sql, err := spec.Render(s.runtime)
		if err != nil {
			return nil, err
		}

		s.log.WithFields(logrus.Fields{
			"platform": spec.Platform,
			"metric":   spec.Metric,
			"table":    spec.Table,
		}).Info("Querying telemetry aggregates")

		aggregates, err := s.warehouse.QueryAggregates(ctx, sql)
		if err != nil {
			observability.PipelineQueriesTotal.WithLabelValues(string(spec.Platform), spec.Metric, "error").Inc()

			return nil, fmt.Errorf("collect %s/%s: %w", spec.Platform, spec.Metric, err)
		}
		observability.PipelineQueriesTotal.WithLabelValues(string(spec.Platform), spec.Metric, "success").Inc()

		points := make([]forecaster.Point, 0, len(aggregates))
		for _, row := range aggregates {
			points = append(points, forecaster.Point{
				Date:    row.Date.Format("2006-01-02"),
				Country: row.Country,
				Segment: row.Segment,
				Value:   row.Value,
				Source:  "actual",
			})
		}

		series[spec.Platform][spec.Metric] = points
	}

	return series, nil
}

// forecast runs the external forecaster per platform/metric and formats the
// combined training+forecast points into output rows
func (s *Service) forecast(ctx context.Context, series map[Platform]map[string][]forecaster.Point) ([]OutputRow, error) {
	var rows []OutputRow

	for _, platform := range []Platform{PlatformDesktop, PlatformMobile} {
		forecasted := make(map[string][]forecaster.Point, len(series[platform]))

		for metric, points := range series[platform] {
			predicted, err := s.forecaster.Forecast(ctx, &forecaster.Request{
				Platform:  string(platform),
				Metric:    metric,
				StartDate: s.runtime.ForecastStartDate.Format("2006-01-02"),
				EndDate:   s.runtime.ForecastEndDate.Format("2006-01-02"),
				Quantile:  s.cfg.Quantile,
				Series:    points,
			})
			if err != nil {
				return nil, err
			}

			forecasted[metric] = append(points, predicted...)
		}

		combined := combineSeries(forecasted)
		if platform == PlatformDesktop {
			rows = append(rows, formatDesktopRows(combined)...)
		} else {
			rows = append(rows, formatMobileRows(combined)...)
		}
	}

	return rows, nil
}

func (s *Service) upload(ctx context.Context, rows []OutputRow) error {
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, row.Values())
	}

	appended, err := s.warehouse.AppendRows(ctx, s.cfg.OutputTable, OutputColumns, values)
	if err != nil {
		return err
	}
	observability.PipelineRowsUploaded.Add(float64(appended))

	s.log.WithFields(logrus.Fields{
		"table": s.cfg.OutputTable,
		"rows":  appended,
	}).Info("Forecast upload complete")

	return nil
}
