package backfill

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/brwells78094/mozaic-daily/pkg/observability"
)

// Recorder persists per-date outcomes as they become available
type Recorder interface {
	Record(outcome Outcome) error
}

// ProgressFunc is invoked once per completed date with the monotonically
// increasing completed-count. Completion order across parallel workers is
// unordered; the count is not.
type ProgressFunc func(completed, total int, outcome Outcome)

// Engine runs a date plan through a Runner, sequentially or with a bounded
// worker pool. A failure in one date's run never aborts or skips any other
// date: the engine always attempts every planned date and always produces
// one Outcome per planned date.
type Engine struct {
	log         logrus.FieldLogger
	runner      Runner
	recorder    Recorder
	progress    ProgressFunc
	parallelism int

	mu        sync.Mutex
	completed int
}

// NewEngine creates an execution engine. recorder and progress may be nil.
func NewEngine(log logrus.FieldLogger, runner Runner, recorder Recorder, progress ProgressFunc, parallelism int) *Engine {
	if parallelism < 1 {
		parallelism = 1
	}

	return &Engine{
		log:         log.WithField("component", "engine"),
		runner:      runner,
		recorder:    recorder,
		progress:    progress,
		parallelism: parallelism,
	}
}

// Execute runs every date in the plan and returns one outcome per date, in
// plan order. The returned error carries state-persistence failures only;
// per-date pipeline failures are reported through the outcomes themselves.
func (e *Engine) Execute(ctx context.Context, plan Plan) ([]Outcome, error) {
	e.mu.Lock()
	e.completed = 0
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"dates":       len(plan),
		"parallelism": e.parallelism,
	}).Info("Executing backfill plan")

	if e.parallelism == 1 {
		return e.executeSequential(ctx, plan)
	}

	return e.executeParallel(ctx, plan)
}

// executeSequential runs dates strictly in plan order, one at a time. Each
// date's outcome is known before the next starts.
func (e *Engine) executeSequential(ctx context.Context, plan Plan) ([]Outcome, error) {
	outcomes := make([]Outcome, len(plan))
	var recordErrs []error

	for i, date := range plan {
		if ctx.Err() != nil {
			outcomes[i] = e.canceledOutcome(date)
		} else {
			outcomes[i] = e.runOne(ctx, date)
		}
		if err := e.complete(outcomes[i], len(plan)); err != nil {
			recordErrs = append(recordErrs, err)
		}
	}

	return outcomes, errors.Join(recordErrs...)
}

// executeParallel keeps at most `parallelism` runs in flight. Dispatch
// order of not-yet-started dates is the plan order; completion order is
// whatever it is.
func (e *Engine) executeParallel(ctx context.Context, plan Plan) ([]Outcome, error) {
	outcomes := make([]Outcome, len(plan))
	sem := semaphore.NewWeighted(int64(e.parallelism))

	var (
		wg         sync.WaitGroup
		errMu      sync.Mutex
		recordErrs []error
	)

	for i, date := range plan {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context canceled: the remaining dates are not started. They
			// still get an outcome so the summary covers the whole plan.
			outcomes[i] = e.canceledOutcome(date)
			if completeErr := e.complete(outcomes[i], len(plan)); completeErr != nil {
				recordErrs = append(recordErrs, completeErr)
			}

			continue
		}

		wg.Add(1)
		go func(i int, date time.Time) {
			defer wg.Done()
			defer sem.Release(1)

			outcomes[i] = e.runOne(ctx, date)
			if err := e.complete(outcomes[i], len(plan)); err != nil {
				errMu.Lock()
				recordErrs = append(recordErrs, err)
				errMu.Unlock()
			}
		}(i, date)
	}

	wg.Wait()

	return outcomes, errors.Join(recordErrs...)
}

func (e *Engine) runOne(ctx context.Context, date time.Time) Outcome {
	observability.BackfillDatesRunning.Inc()
	defer observability.BackfillDatesRunning.Dec()

	outcome := e.runner.RunForDate(ctx, date)

	observability.BackfillDatesTotal.WithLabelValues(string(outcome.Status)).Inc()
	observability.BackfillDateDuration.WithLabelValues(string(outcome.Status)).
		Observe(outcome.EndTime.Sub(outcome.StartTime).Seconds())

	return outcome
}

// complete records the outcome and reports progress under one lock so that
// the printed completed-counts stay monotone and each state write lands
// before its progress line.
func (e *Engine) complete(outcome Outcome, total int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.completed++

	var recordErr error
	if e.recorder != nil {
		if err := e.recorder.Record(outcome); err != nil {
			e.log.WithError(err).
				WithField("date", outcome.Date.Format(DateFormat)).
				Error("Failed to record outcome in state store")
			recordErr = err
		}
	}

	if e.progress != nil {
		e.progress(e.completed, total, outcome)
	}

	return recordErr
}

func (e *Engine) canceledOutcome(date time.Time) Outcome {
	now := time.Now()

	return Outcome{
		Date:         date,
		Status:       StatusFailed,
		StartTime:    now,
		EndTime:      now,
		ErrorSummary: "canceled before start",
	}
}
