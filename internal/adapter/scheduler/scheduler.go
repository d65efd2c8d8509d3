// Package scheduler runs periodic maintenance jobs on cron schedules with
// slog-integrated logging, overlap protection and graceful shutdown.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// JobID identifies a registered job.
type JobID = cron.EntryID

// Options configures one job.
type Options struct {
	// Name labels the job in logs.
	Name string
	// Timeout bounds one run; zero means no limit.
	Timeout time.Duration
	// SkipIfRunning drops a tick while the previous run is still going.
	SkipIfRunning bool
}

// Scheduler wraps cron with context-aware jobs.
type Scheduler struct {
	cron     *cron.Cron
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New creates a stopped scheduler; register jobs, then call Start.
func New(parent context.Context, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cronLogger{log.With("component", "cron")})),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job on a cron schedule ("@every 15m", "0 3 * * *", ...).
func (s *Scheduler) Add(schedule string, job JobFunc, opts Options) (JobID, error) {
	chain := cron.NewChain()
	if opts.SkipIfRunning {
		chain = cron.NewChain(cron.SkipIfStillRunning(cronLogger{s.log}))
	}
	id, err := s.cron.AddJob(schedule, chain.Then(cron.FuncJob(func() {
		s.run(job, opts)
	})))
	if err != nil {
		return 0, fmt.Errorf("add job %q: %w", opts.Name, err)
	}
	s.log.Info("job scheduled", "name", opts.Name, "schedule", schedule)
	return id, nil
}

// Start begins dispatching jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.cron.Stop().Done()
		s.log.Info("scheduler stopped")
	})
}

func (s *Scheduler) run(job JobFunc, opts Options) {
	name := opts.Name
	if name == "" {
		name = "unnamed"
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", "name", name, "panic", r)
		}
	}()

	ctx := s.ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := job(ctx); err != nil {
		s.log.Error("job failed", "name", name, "error", err, "duration", time.Since(start))
		return
	}
	s.log.Debug("job completed", "name", name, "duration", time.Since(start))
}

// cronLogger adapts cron's logger to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, attrs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append([]any{"error", err}, attrs(keysAndValues)...)...)
}

func attrs(kv []interface{}) []any {
	out := make([]any, 0, len(kv))
	out = append(out, kv...)
	if len(out)%2 != 0 {
		out = append(out, "(missing)")
	}
	return out
}
