package backfill

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Reporter renders per-date progress lines and the final run summary. The
// summary always covers every planned date: a backfill with failures is a
// partial success, not a process crash.
type Reporter struct {
	log logrus.FieldLogger
	out io.Writer
}

// NewReporter creates a reporter writing user-facing lines to out
func NewReporter(log logrus.FieldLogger, out io.Writer) *Reporter {
	return &Reporter{
		log: log.WithField("component", "reporter"),
		out: out,
	}
}

// Progress emits one indexed line per completed outcome
func (r *Reporter) Progress(completed, total int, outcome Outcome) {
	marker := "✓"
	if !outcome.Succeeded() {
		marker = "✗"
	}

	line := fmt.Sprintf("[%d/%d] %s %s", completed, total, marker, outcome.Date.Format(DateFormat))
	if outcome.LogPath != "" {
		line += fmt.Sprintf(" (log: %s)", outcome.LogPath)
	}
	if !outcome.Succeeded() && outcome.ErrorSummary != "" {
		r.log.WithFields(logrus.Fields{
			"date":  outcome.Date.Format(DateFormat),
			"error": outcome.ErrorSummary,
		}).Warn("Date failed")
	}

	fmt.Fprintln(r.out, line)
}

// PrintPlan renders a dry-run preview of the dates that would be processed
func (r *Reporter) PrintPlan(plan Plan, parallelism int) {
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintln(r.out, "DRY RUN - Backfill Plan")
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintf(r.out, "Parallel workers: %d\n", parallelism)
	fmt.Fprintf(r.out, "Total dates to process: %d\n\n", len(plan))
	fmt.Fprintln(r.out, "Dates to process:")
	for _, date := range plan {
		fmt.Fprintf(r.out, "  - %s (%s)\n", date.Format(DateFormat), date.Weekday())
	}
}

// PrintSummary renders the final success/failure summary
func (r *Reporter) PrintSummary(summary Summary) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintln(r.out, "BACKFILL SUMMARY")
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintf(r.out, "Total: %d\n", summary.Total)
	fmt.Fprintf(r.out, "Succeeded: %d\n", summary.Succeeded)
	fmt.Fprintf(r.out, "Failed: %d\n", summary.Failed)

	if len(summary.FailedDates) > 0 {
		fmt.Fprintln(r.out, "\nFailed dates:")
		for _, date := range summary.FailedDates {
			fmt.Fprintf(r.out, "  - %s\n", date.Format(DateFormat))
		}
	} else {
		fmt.Fprintln(r.out, "\nAll backfills completed successfully!")
	}
}
