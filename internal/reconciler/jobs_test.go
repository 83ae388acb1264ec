package reconciler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"staybook/pkg/config"
	"staybook/pkg/logger"
)

type mockSweeper struct {
	expireCount   int
	stuckCount    int
	completeCount int
	err           error
	batchSizes    []int
}

func (m *mockSweeper) ExpireOverdueHolds(ctx context.Context, batchSize int) (int, error) {
	m.batchSizes = append(m.batchSizes, batchSize)
	if m.err != nil {
		return 0, m.err
	}
	m.expireCount++
	return 2, nil
}

func (m *mockSweeper) ResolveStuckPayments(ctx context.Context, batchSize int) (int, error) {
	m.batchSizes = append(m.batchSizes, batchSize)
	if m.err != nil {
		return 0, m.err
	}
	m.stuckCount++
	return 1, nil
}

func (m *mockSweeper) CompleteFinishedStays(ctx context.Context, batchSize int) (int, error) {
	m.batchSizes = append(m.batchSizes, batchSize)
	if m.err != nil {
		return 0, m.err
	}
	m.completeCount++
	return 3, nil
}

type mockBlockSweeper struct {
	removed int64
}

func (m *mockBlockSweeper) SweepExpiredHolds(ctx context.Context, limit int) (int64, error) {
	m.removed = 5
	return m.removed, nil
}

func newTestJobs(sweeper *mockSweeper, blocks *mockBlockSweeper) *Jobs {
	log := logger.New(logger.Config{Output: io.Discard})
	cfg := &config.Config{SweepBatchSize: 100, SweepSchedule: "*/5 * * * *"}
	return NewJobs(sweeper, blocks, log, cfg)
}

func TestRunAll(t *testing.T) {
	sweeper := &mockSweeper{}
	blocks := &mockBlockSweeper{}
	jobs := newTestJobs(sweeper, blocks)

	jobs.RunAll()

	if sweeper.expireCount != 1 || sweeper.stuckCount != 1 || sweeper.completeCount != 1 {
		t.Errorf("expected each sweep once, got %+v", sweeper)
	}
	if blocks.removed != 5 {
		t.Errorf("expected block sweep to run, got %d", blocks.removed)
	}
	for _, size := range sweeper.batchSizes {
		if size != 100 {
			t.Errorf("expected configured batch size 100, got %d", size)
		}
	}
}

func TestJobs_SweepFailureDoesNotPanic(t *testing.T) {
	sweeper := &mockSweeper{err: errors.New("mongo down")}
	jobs := newTestJobs(sweeper, &mockBlockSweeper{})

	jobs.ExpireHolds()
	jobs.ResolveStuckPayments()
	jobs.CompleteStays()
}

func TestTrigger_RequiresSecret(t *testing.T) {
	log := logger.New(logger.Config{Output: io.Discard})
	sweeper := &mockSweeper{}
	jobs := newTestJobs(sweeper, &mockBlockSweeper{})
	handler := NewTriggerHandler(jobs, "sweep-secret", log)

	r := httptest.NewRequest(http.MethodPost, "/reconcile", nil)
	w := httptest.NewRecorder()
	handler.Trigger(w, r, nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without secret, got %d", w.Code)
	}
	if sweeper.expireCount != 0 {
		t.Error("expected no sweep without secret")
	}

	r = httptest.NewRequest(http.MethodPost, "/reconcile", nil)
	r.Header.Set("X-Trigger-Secret", "sweep-secret")
	w = httptest.NewRecorder()
	handler.Trigger(w, r, nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with secret, got %d", w.Code)
	}
	if sweeper.expireCount != 1 {
		t.Error("expected sweeps to run with valid secret")
	}
}

func TestTrigger_EmptyConfiguredSecretRejects(t *testing.T) {
	log := logger.New(logger.Config{Output: io.Discard})
	jobs := newTestJobs(&mockSweeper{}, &mockBlockSweeper{})
	handler := NewTriggerHandler(jobs, "", log)

	r := httptest.NewRequest(http.MethodPost, "/reconcile", nil)
	w := httptest.NewRecorder()
	handler.Trigger(w, r, nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected unconfigured secret to reject everything, got %d", w.Code)
	}
}

var _ BookingSweeper = (*mockSweeper)(nil)
var _ CalendarSweeper = (*mockBlockSweeper)(nil)
