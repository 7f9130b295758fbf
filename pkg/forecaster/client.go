// Package forecaster wraps the external time-series forecasting
// collaborator. The forecasting computation itself is opaque: training data
// in, point estimates out.
package forecaster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// Define static errors
var (
	// ErrCommandRequired is returned when no forecast command is configured
	ErrCommandRequired = errors.New("forecast command is required")
	// ErrEmptyForecast is returned when the forecaster produces no points
	ErrEmptyForecast = errors.New("forecaster returned no points")
)

// Point is one observed or predicted value of a series
type Point struct {
	Date    string  `json:"date"`
	Country string  `json:"country"`
	Segment string  `json:"segment"`
	Value   float64 `json:"value"`
	// Source is "actual" for training observations and "forecast" for
	// predicted points
	Source string `json:"source"`
}

// Request is the forecaster input: a training series plus the date range to
// predict
type Request struct {
	Platform  string  `json:"platform"`
	Metric    string  `json:"metric"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Quantile  float64 `json:"quantile"`
	Series    []Point `json:"series"`
}

// Forecaster produces point estimates for a training series
type Forecaster interface {
	Forecast(ctx context.Context, req *Request) ([]Point, error)
}

// ExecForecaster shells out to the external forecasting command, passing the
// request as JSON on stdin and reading points as JSON from stdout.
type ExecForecaster struct {
	log     logrus.FieldLogger
	command string
}

// NewExecForecaster creates an exec-based forecaster client
func NewExecForecaster(log logrus.FieldLogger, command string) (*ExecForecaster, error) {
	if command == "" {
		return nil, ErrCommandRequired
	}

	return &ExecForecaster{
		log:     log.WithField("component", "forecaster"),
		command: command,
	}, nil
}

// Forecast invokes the forecasting command for one platform/metric series
func (f *ExecForecaster) Forecast(ctx context.Context, req *Request) ([]Point, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode forecast request: %w", err)
	}

	f.log.WithFields(logrus.Fields{
		"platform": req.Platform,
		"metric":   req.Metric,
		"points":   len(req.Series),
	}).Info("Requesting forecast")

	// #nosec G204 -- The forecast command comes from trusted configuration
	cmd := exec.CommandContext(ctx, "sh", "-c", f.command)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		f.log.WithFields(logrus.Fields{
			"command": f.command,
			"stderr":  stderr.String(),
			"error":   runErr,
		}).Error("Forecast command failed")

		return nil, fmt.Errorf("forecast %s/%s: %w", req.Platform, req.Metric, runErr)
	}

	var points []Point
	if decodeErr := json.Unmarshal(stdout.Bytes(), &points); decodeErr != nil {
		return nil, fmt.Errorf("decode forecast response: %w", decodeErr)
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%w for %s/%s", ErrEmptyForecast, req.Platform, req.Metric)
	}

	return points, nil
}
