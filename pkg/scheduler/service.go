package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/brwells78094/mozaic-daily/pkg/observability"
)

// RunFunc executes one scheduled pipeline run
type RunFunc func(ctx context.Context) error

// Service triggers the daily forecast run on its cron schedule. Runs are
// serialized: if a run is still in flight when the next trigger fires, the
// trigger is skipped rather than stacking concurrent runs against the same
// output table.
type Service struct {
	log      logrus.FieldLogger
	cron     *cron.Cron
	schedule string
	run      RunFunc

	mu      sync.Mutex
	running bool
}

// NewService creates a scheduler for the given cron schedule
func NewService(log logrus.FieldLogger, schedule string, run RunFunc) (*Service, error) {
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}

	return &Service{
		log:      log.WithField("component", "scheduler"),
		cron:     cron.New(),
		schedule: schedule,
		run:      run,
	}, nil
}

// Start registers the job and starts the cron loop
func (s *Service) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() { s.trigger(ctx) })
	if err != nil {
		return err
	}

	s.log.WithField("schedule", s.schedule).Info("Starting scheduler")
	s.cron.Start()

	return nil
}

// Stop stops the cron loop and waits for an in-flight run to finish
func (s *Service) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info("Scheduler stopped")
}

func (s *Service) trigger(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("Previous run still in flight, skipping trigger")

		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.log.Info("Scheduled run triggered")

	if err := s.run(ctx); err != nil {
		observability.ScheduledRunsTotal.WithLabelValues("error").Inc()
		s.log.WithError(err).Error("Scheduled run failed")

		return
	}

	observability.ScheduledRunsTotal.WithLabelValues("success").Inc()
	s.log.Info("Scheduled run complete")
}
