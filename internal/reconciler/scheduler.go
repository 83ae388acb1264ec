package reconciler

import (
	"context"
	"log/slog"

	"staybook/pkg/config"
	"staybook/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the reconciliation jobs on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	jobs *Jobs
	log  *logger.Logger
	cfg  *config.Config
}

func NewScheduler(jobs *Jobs, log *logger.Logger, cfg *config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron: c,
		jobs: jobs,
		log:  log,
		cfg:  cfg,
	}
}

// Start registers every sweep on the shared schedule and starts the cron
// loop.
func (s *Scheduler) Start() {
	sweeps := []struct {
		name string
		run  func()
	}{
		{"stuck_payments", s.jobs.ResolveStuckPayments},
		{"hold_expiry", s.jobs.ExpireHolds},
		{"stay_completion", s.jobs.CompleteStays},
		{"dead_blocks", s.jobs.CollectDeadBlocks},
	}

	for _, sweep := range sweeps {
		if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, sweep.run); err != nil {
			s.log.Error("failed to schedule sweep", "sweep", sweep.name, "error", err)
			continue
		}
		s.log.Info("scheduled sweep", "sweep", sweep.name, "schedule", s.cfg.SweepSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler. The returned context is done
// once in-flight jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
