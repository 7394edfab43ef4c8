// Package schedule runs named jobs on cron expressions in a fixed time zone.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work. The context is cancelled when the
// scheduler stops.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron   *cron.Cron
	loc    *time.Location
	logger *slog.Logger
	names  map[cron.EntryID]string

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler that evaluates expressions in loc.
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		loc:    loc,
		logger: logger,
		names:  make(map[cron.EntryID]string),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under a standard five-field cron expression.
func (s *Scheduler) Add(spec, name string, job Job) error {
	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.logger.Info("job started", "job", name)
		if err := job(s.ctx); err != nil {
			s.logger.Error("job failed", "job", name, "err", err)
			return
		}
		s.logger.Info("job finished", "job", name, "took", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.names[id] = name
	return nil
}

// Next returns the next activation after now of each registered job, keyed
// by job name.
func (s *Scheduler) Next(now time.Time) map[string]time.Time {
	entries := s.cron.Entries()
	out := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		out[s.names[e.ID]] = e.Schedule.Next(now.In(s.loc))
	}
	return out
}

// Start logs each job's next activation and runs the scheduler in the
// background.
func (s *Scheduler) Start() {
	for name, next := range s.Next(time.Now()) {
		s.logger.Info("job scheduled", "job", name, "next", next)
	}
	s.cron.Start()
}

// Stop halts new activations and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// Validate reports whether spec parses as a five-field cron expression.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return nil
}
