// Package scheduler runs housekeeping jobs on cron schedules.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper drops idle sessions and reports how many were removed.
type Sweeper interface {
	Sweep() int
	Len() int
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Sessions Sweeper
	log      *slog.Logger
}

// NewScheduler creates a new Scheduler. Cron expressions take a leading seconds field.
func NewScheduler(sessions Sweeper, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Sessions: sessions,
		log:      log.With("component", "scheduler"),
	}
}

// Register adds the idle session sweep.
func (s *Scheduler) Register(sweepCron string) error {
	if _, err := s.Cron.AddFunc(sweepCron, s.sweepTask); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunSweepNow executes the sweep immediately.
func (s *Scheduler) RunSweepNow() int {
	return s.sweep()
}

func (s *Scheduler) sweepTask() { s.sweep() }

func (s *Scheduler) sweep() int {
	removed := s.Sessions.Sweep()
	s.log.Debug("sweep done", "removed", removed, "live", s.Sessions.Len())
	return removed
}
