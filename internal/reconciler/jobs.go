package reconciler

import (
	"context"

	"staybook/pkg/config"
	"staybook/pkg/logger"
)

// BookingSweeper is the slice of the booking service the jobs need. Each
// sweep pages with a bounded batch and commits per record, so a failure
// mid-batch leaves earlier records advanced.
type BookingSweeper interface {
	ExpireOverdueHolds(ctx context.Context, batchSize int) (int, error)
	ResolveStuckPayments(ctx context.Context, batchSize int) (int, error)
	CompleteFinishedStays(ctx context.Context, batchSize int) (int, error)
}

// CalendarSweeper garbage-collects calendar blocks that no longer guard
// anything.
type CalendarSweeper interface {
	SweepExpiredHolds(ctx context.Context, limit int) (int64, error)
}

// Jobs contains the logic for all reconciliation sweeps. Every sweep is safe
// to run concurrently with the live service and with itself: each transition
// is a compare-and-set, so a duplicate run turns into no-ops.
type Jobs struct {
	bookings BookingSweeper
	calendar CalendarSweeper
	log      *logger.Logger
	cfg      *config.Config
}

func NewJobs(bookings BookingSweeper, calendar CalendarSweeper, log *logger.Logger, cfg *config.Config) *Jobs {
	return &Jobs{
		bookings: bookings,
		calendar: calendar,
		log:      log,
		cfg:      cfg,
	}
}

// ExpireHolds cancels pending bookings whose payment window closed.
func (j *Jobs) ExpireHolds() {
	j.log.Info("starting hold expiry sweep")
	ctx := context.Background()

	expired, err := j.bookings.ExpireOverdueHolds(ctx, j.cfg.SweepBatchSize)
	if err != nil {
		j.log.Error("hold expiry sweep failed", "error", err)
		return
	}

	j.log.Info("hold expiry sweep finished", "expired", expired)
}

// ResolveStuckPayments reconciles bookings parked in payment processing.
func (j *Jobs) ResolveStuckPayments() {
	j.log.Info("starting stuck payment sweep")
	ctx := context.Background()

	resolved, err := j.bookings.ResolveStuckPayments(ctx, j.cfg.SweepBatchSize)
	if err != nil {
		j.log.Error("stuck payment sweep failed", "error", err)
		return
	}

	j.log.Info("stuck payment sweep finished", "resolved", resolved)
}

// CompleteStays moves confirmed bookings past check-out to completed.
func (j *Jobs) CompleteStays() {
	j.log.Info("starting stay completion sweep")
	ctx := context.Background()

	completed, err := j.bookings.CompleteFinishedStays(ctx, j.cfg.SweepBatchSize)
	if err != nil {
		j.log.Error("stay completion sweep failed", "error", err)
		return
	}

	j.log.Info("stay completion sweep finished", "completed", completed)
}

// CollectDeadBlocks removes expired calendar holds left behind by bookings
// that never paid.
func (j *Jobs) CollectDeadBlocks() {
	j.log.Info("starting dead block sweep")
	ctx := context.Background()

	removed, err := j.calendar.SweepExpiredHolds(ctx, j.cfg.SweepBatchSize)
	if err != nil {
		j.log.Error("dead block sweep failed", "error", err)
		return
	}

	j.log.Info("dead block sweep finished", "removed", removed)
}

// RunAll runs every sweep once, in dependency order. Used by the manual
// trigger endpoint.
func (j *Jobs) RunAll() {
	j.ResolveStuckPayments()
	j.ExpireHolds()
	j.CompleteStays()
	j.CollectDeadBlocks()
}
