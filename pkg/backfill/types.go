// Package backfill implements date-range backfill orchestration for the
// daily forecasting pipeline. It expands a date range into a plan, runs the
// single-date pipeline for each planned date (sequentially or with a bounded
// worker pool), persists per-date completion state for resumability, and
// aggregates per-date outcomes into a run summary.
package backfill

import (
	"sort"
	"time"
)

// DateFormat is the canonical date layout used in CLI arguments, log file
// names and state files.
const DateFormat = "2006-01-02"

// Status is the terminal status of a single-date run
type Status string

const (
	// StatusSucceeded indicates the single-date pipeline completed successfully
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the single-date pipeline failed for any reason
	StatusFailed Status = "failed"
)

// Outcome is the immutable result of one single-date pipeline invocation
type Outcome struct {
	Date         time.Time
	Status       Status
	StartTime    time.Time
	EndTime      time.Time
	LogPath      string
	ErrorSummary string
}

// Succeeded reports whether the run completed successfully
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Summary aggregates the outcomes of an executed backfill
type Summary struct {
	Total       int
	Succeeded   int
	Failed      int
	FailedDates []time.Time
}

// Summarize computes the run summary for a set of outcomes. FailedDates is
// sorted ascending so operators can re-target exactly the failed dates.
func Summarize(outcomes []Outcome) Summary {
	summary := Summary{Total: len(outcomes)}

	for _, outcome := range outcomes {
		if outcome.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
			summary.FailedDates = append(summary.FailedDates, outcome.Date)
		}
	}

	sort.Slice(summary.FailedDates, func(i, j int) bool {
		return summary.FailedDates[i].Before(summary.FailedDates[j])
	})

	return summary
}
