package scheduler

import (
	"context"
	"fmt"
	"time"

	"household_schedule_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	JobAllowances = "allowances"
	JobChores     = "chores"
)

// Processor is the part of app.ProcessingService the cron jobs drive.
type Processor interface {
	ProcessAllowances(ctx context.Context, now time.Time) (app.Summary, error)
	GenerateChoreOccurrences(ctx context.Context, now time.Time, lookaheadDays int) (app.Summary, error)
}

// JobObserver is told how long each job run took.
type JobObserver interface {
	ObserveJob(job string, took time.Duration, err error)
}

type Options struct {
	CronSpecAllowances string // e.g., "0 6 * * *" (06:00 UTC daily)
	CronSpecChores     string // e.g., "0 5 * * *" (05:00 UTC daily)
	LookaheadDays      int
	JobTimeout         time.Duration
}

// HouseholdScheduler runs the daily allowance and chore jobs. Schedules are
// interpreted in UTC, the same calendar the processing gate uses.
type HouseholdScheduler struct {
	cronEngine *cron.Cron
	processor  Processor
	observer   JobObserver
	logger     *logrus.Entry
	opts       Options
	now        func() time.Time
}

func NewHouseholdScheduler(processor Processor, observer JobObserver, logger *logrus.Entry, opts Options) *HouseholdScheduler {
	cronLogger := cron.PrintfLogger(logger.WithField("source", "cron"))
	return &HouseholdScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		processor: processor,
		observer:  observer,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Start registers the jobs and starts the cron engine.
func (s *HouseholdScheduler) Start() error {
	s.logger.Info("Starting household scheduler...")

	if _, err := s.cronEngine.AddFunc(s.opts.CronSpecAllowances, s.RunAllowances); err != nil {
		return fmt.Errorf("could not add allowance cron job %q: %w", s.opts.CronSpecAllowances, err)
	}
	if _, err := s.cronEngine.AddFunc(s.opts.CronSpecChores, s.RunChores); err != nil {
		return fmt.Errorf("could not add chore cron job %q: %w", s.opts.CronSpecChores, err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"allowances": s.opts.CronSpecAllowances,
		"chores":     s.opts.CronSpecChores,
	}).Info("Household scheduler started with jobs.")
	return nil
}

// RunAllowances is one run of the allowance job.
func (s *HouseholdScheduler) RunAllowances() {
	s.run(JobAllowances, func(ctx context.Context, now time.Time) (app.Summary, error) {
		return s.processor.ProcessAllowances(ctx, now)
	})
}

// RunChores is one run of the chore generation job.
func (s *HouseholdScheduler) RunChores() {
	s.run(JobChores, func(ctx context.Context, now time.Time) (app.Summary, error) {
		return s.processor.GenerateChoreOccurrences(ctx, now, s.opts.LookaheadDays)
	})
}

func (s *HouseholdScheduler) run(job string, fn func(context.Context, time.Time) (app.Summary, error)) {
	log := s.logger.WithField("job", job)
	log.Info("Cron job triggered.")

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	started := s.now()
	summary, err := fn(ctx, started.UTC())
	took := s.now().Sub(started)
	if s.observer != nil {
		s.observer.ObserveJob(job, took, err)
	}

	if err != nil {
		log.WithError(err).Error("Cron job failed.")
		return
	}
	log.WithFields(logrus.Fields{
		"took":    took.String(),
		"seen":    summary.Seen,
		"created": summary.Created,
		"errors":  summary.Errors,
	}).Info("Cron job finished.")
}

func (s *HouseholdScheduler) Stop() {
	s.logger.Info("Stopping household scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Household scheduler gracefully stopped.")
}
