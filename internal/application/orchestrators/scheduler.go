package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is one reconciliation job bound to its dependencies.
type JobFunc func(ctx context.Context) (JobReport, error)

// ScheduledJob pairs a job with its cron expression (minute hour dom month dow).
type ScheduledJob struct {
	Name string
	Spec string
	Run  JobFunc
}

// JobObserver is told about every finished run, e.g. to feed a perf collector.
type JobObserver func(job string, start time.Time, err error)

// Scheduler triggers reconciliation jobs on the club's wall clock.
// A job still running when its next tick fires is skipped, so no job
// ever overlaps itself.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	observe JobObserver
}

// NewScheduler registers jobs on a cron evaluated in loc.
// PRE: every Spec is a standard 5-field cron expression
// POST: Returns a stopped scheduler; call Start to begin firing
func NewScheduler(loc *time.Location, timeout time.Duration, jobs []ScheduledJob, observe JobObserver) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s := &Scheduler{cron: c, timeout: timeout, observe: observe}
	for _, job := range jobs {
		if _, err := c.AddFunc(job.Spec, func() { s.run(job) }); err != nil {
			return nil, fmt.Errorf("job %s: invalid schedule %q: %w", job.Name, job.Spec, err)
		}
		slog.Info("job_event", "event", "job_scheduled", "job", job.Name, "spec", job.Spec)
	}
	return s, nil
}

// Start begins firing jobs in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and returns a context done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) run(job ScheduledJob) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	report, err := job.Run(ctx)
	if s.observe != nil {
		s.observe(job.Name, start, err)
	}
	if err != nil {
		slog.Error("job_event", "event", "job_failed", "job", job.Name, "error", err)
		return
	}
	slog.Info("job_event", "event", "job_run", "job", job.Name, "date", report.Date,
		"created", report.Created, "skipped", report.Skipped, "failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds())
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron_"+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron_"+msg, append(keysAndValues, "error", err)...)
}
