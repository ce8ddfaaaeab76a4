// Package scheduler runs housekeeping jobs on cron specs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 5 * time.Minute

// Job is one unit of housekeeping.
type Job func(ctx context.Context) error

type Scheduler struct {
	ctx  context.Context
	cron *cron.Cron
	log  *slog.Logger
}

// New creates a scheduler whose jobs run under ctx, in UTC.
func New(ctx context.Context, log *slog.Logger) *Scheduler {
	return &Scheduler{
		ctx:  ctx,
		cron: cron.New(cron.WithLocation(time.UTC)),
		log:  log,
	}
}

// Add registers job under name to run on spec, e.g. "@every 10m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, s.wrap(name, job))
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()

		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "Scheduler context is done",
				"job", name,
				"error", ctx.Err())
			return
		default:
		}

		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.ErrorContext(ctx, "Job failed",
				"job", name,
				"error", err)
			return
		}
		s.log.DebugContext(ctx, "Job finished",
			"job", name,
			"durationMs", time.Since(start).Milliseconds())
	}
}
