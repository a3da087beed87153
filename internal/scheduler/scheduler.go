/*
Package scheduler fires the worker jobs on cron schedules and, optionally, once at start-up.
*/
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrNoJobs = errors.New("scheduler has no jobs")

// Job is a named unit of work triggered by Spec, a standard five field cron
// expression.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type Options struct {
	Location     *time.Location
	RunOnStart   bool
	SingleFlight bool
}

type Scheduler struct {
	jobs   []Job
	opts   Options
	logger *slog.Logger
}

// New validates every job spec up front so a bad expression fails at start-up.
func New(jobs []Job, opts Options, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if len(jobs) == 0 {
		return nil, ErrNoJobs
	}

	for _, j := range jobs {
		if j.Run == nil {
			return nil, fmt.Errorf("job %q has no run function", j.Name)
		}
		if _, err := cron.ParseStandard(j.Spec); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for job %q: %w", j.Spec, j.Name, err)
		}
	}

	return &Scheduler{jobs: jobs, opts: opts, logger: logger}, nil
}

// Run blocks until ctx is cancelled, then stops the cron and waits for
// running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{s.logger}

	wrappers := []cron.JobWrapper{cron.Recover(cl)}
	if s.opts.SingleFlight {
		wrappers = append(wrappers, cron.SkipIfStillRunning(cl))
	}

	c := cron.New(
		cron.WithLocation(s.opts.Location),
		cron.WithLogger(cl),
		cron.WithChain(wrappers...),
	)

	eager := make([]cron.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		id, err := c.AddFunc(j.Spec, func() { s.runJob(ctx, j) })
		if err != nil {
			return fmt.Errorf("failed to schedule job %q: %w", j.Name, err)
		}
		eager = append(eager, c.Entry(id).WrappedJob)
		s.logger.Info("job scheduled", "job", j.Name, "spec", j.Spec, "tz", s.opts.Location.String())
	}

	c.Start()

	var wg sync.WaitGroup
	if s.opts.RunOnStart {
		for _, job := range eager {
			wg.Add(1)
			go func(job cron.Job) {
				defer wg.Done()
				job.Run()
			}(job)
		}
	}

	<-ctx.Done()
	s.logger.Info("scheduler stopping, waiting for running jobs")

	<-c.Stop().Done()
	wg.Wait()

	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	s.logger.Info("job started", "job", j.Name)

	if err := j.Run(ctx); err != nil {
		s.logger.Error("job failed", "job", j.Name, "duration", time.Since(start).Round(time.Millisecond), "error", err)
		return
	}

	s.logger.Info("job finished", "job", j.Name, "duration", time.Since(start).Round(time.Millisecond))
}

// cronLogger adapts slog to cron.Logger. Routine cron chatter goes to debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
