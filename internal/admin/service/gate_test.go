package service

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"testing"
	"time"

	"staybook/internal/admin/repository"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"staybook/pkg/sealer"

	"golang.org/x/crypto/bcrypt"
)

type memoryAttemptRepo struct {
	attempts map[string]*model.AdminAttempt
}

func newMemoryAttemptRepo() *memoryAttemptRepo {
	return &memoryAttemptRepo{attempts: make(map[string]*model.AdminAttempt)}
}

func (m *memoryAttemptRepo) Find(ctx context.Context, clientID string) (*model.AdminAttempt, error) {
	if attempt, ok := m.attempts[clientID]; ok {
		copied := *attempt
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryAttemptRepo) RecordFailure(ctx context.Context, clientID string, windowStart time.Time, ttl time.Duration) (*model.AdminAttempt, error) {
	attempt, ok := m.attempts[clientID]
	if !ok {
		attempt = &model.AdminAttempt{ClientID: clientID, WindowStart: windowStart}
		m.attempts[clientID] = attempt
	}
	attempt.Failures++
	attempt.UpdatedAt = time.Now().UTC()
	attempt.ExpiresAt = time.Now().UTC().Add(ttl)
	copied := *attempt
	return &copied, nil
}

func (m *memoryAttemptRepo) Lock(ctx context.Context, clientID string, lockedUntil time.Time, ttl time.Duration) error {
	if attempt, ok := m.attempts[clientID]; ok {
		attempt.LockedUntil = &lockedUntil
		attempt.UpdatedAt = time.Now().UTC()
		attempt.ExpiresAt = time.Now().UTC().Add(ttl)
	}
	return nil
}

func (m *memoryAttemptRepo) Clear(ctx context.Context, clientID string) error {
	delete(m.attempts, clientID)
	return nil
}

// staleReadAttemptRepo mimics two instances failing the same client at once:
// the snapshot loaded before the increment is one count behind the total the
// increment returns.
type staleReadAttemptRepo struct {
	*memoryAttemptRepo
	staleFailures int
}

func (s *staleReadAttemptRepo) Find(ctx context.Context, clientID string) (*model.AdminAttempt, error) {
	attempt, err := s.memoryAttemptRepo.Find(ctx, clientID)
	if attempt != nil {
		attempt.Failures = s.staleFailures
	}
	return attempt, err
}

const adminCode = "open-sesame-2026"

func newTestGate(t *testing.T, repo repository.AttemptRepository) Gate {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminCode), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash admin code: %v", err)
	}

	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	tokenSealer, err := sealer.New(key)
	if err != nil {
		t.Fatalf("failed to build sealer: %v", err)
	}

	cfg := &config.Config{
		AdminCodeHash:      string(hash),
		AdminMaxFailures:   3,
		AdminLockoutWindow: 15 * time.Minute,
		AdminSessionTTL:    time.Hour,
		Log:                logger.New(logger.Config{Output: io.Discard}),
	}
	return NewGate(repo, tokenSealer, cfg)
}

func TestVerify_CorrectCode(t *testing.T) {
	gate := newTestGate(t, newMemoryAttemptRepo())

	session, err := gate.Verify(context.Background(), "client-1", adminCode)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Token == "" {
		t.Error("expected session token")
	}
	if remaining := time.Until(session.ExpiresAt); remaining < 59*time.Minute {
		t.Errorf("expected about an hour of session, got %v", remaining)
	}
	if err := gate.CheckSession(session.Token); err != nil {
		t.Errorf("expected issued token to validate: %v", err)
	}
}

func TestVerify_WrongCode(t *testing.T) {
	repo := newMemoryAttemptRepo()
	gate := newTestGate(t, repo)

	_, err := gate.Verify(context.Background(), "client-1", "wrong")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
	if repo.attempts["client-1"].Failures != 1 {
		t.Errorf("expected failure recorded, got %+v", repo.attempts["client-1"])
	}
}

func TestVerify_LockoutAfterThreshold(t *testing.T) {
	repo := newMemoryAttemptRepo()
	gate := newTestGate(t, repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = gate.Verify(ctx, "client-1", "wrong")
	}

	// Locked now: even the correct code is refused.
	_, err := gate.Verify(ctx, "client-1", adminCode)
	if err == nil {
		t.Fatal("expected lockout, got nil")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if appErr.Details["retry_after_seconds"] == nil {
		t.Error("expected retry_after_seconds detail")
	}
}

func TestVerify_ConcurrentFailuresStillLock(t *testing.T) {
	// Two instances record the second and third failures at the same time,
	// so each loads a snapshot that undercounts. The lockout must key off
	// the total the atomic increment returns, not the snapshot.
	memory := newMemoryAttemptRepo()
	memory.attempts["client-1"] = &model.AdminAttempt{
		ClientID:    "client-1",
		Failures:    2,
		WindowStart: time.Now().UTC(),
	}
	repo := &staleReadAttemptRepo{memoryAttemptRepo: memory, staleFailures: 1}
	gate := newTestGate(t, repo)

	_, err := gate.Verify(context.Background(), "client-1", "wrong")
	if err == nil {
		t.Fatal("expected lockout, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	locked := memory.attempts["client-1"].LockedUntil
	if locked == nil || !locked.After(time.Now().UTC()) {
		t.Errorf("expected lockout deadline stamped, got %v", locked)
	}
}

func TestVerify_LockoutDoesNotCountCorrectCode(t *testing.T) {
	repo := newMemoryAttemptRepo()
	gate := newTestGate(t, repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = gate.Verify(ctx, "client-1", "wrong")
	}
	failures := repo.attempts["client-1"].Failures

	_, _ = gate.Verify(ctx, "client-1", adminCode)
	if repo.attempts["client-1"].Failures != failures {
		t.Error("a rejected-while-locked attempt must not bump the counter")
	}
}

func TestVerify_ExpiredLockoutRecovers(t *testing.T) {
	repo := newMemoryAttemptRepo()
	gate := newTestGate(t, repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = gate.Verify(ctx, "client-1", "wrong")
	}

	past := time.Now().UTC().Add(-time.Minute)
	repo.attempts["client-1"].LockedUntil = &past
	repo.attempts["client-1"].WindowStart = time.Now().UTC().Add(-time.Hour)

	session, err := gate.Verify(ctx, "client-1", adminCode)
	if err != nil {
		t.Fatalf("expected recovery after lockout expiry, got %v", err)
	}
	if session.Token == "" {
		t.Error("expected session token")
	}
	if _, ok := repo.attempts["client-1"]; ok {
		t.Error("expected counter cleared on success")
	}
}

func TestVerify_ClientsAreIndependent(t *testing.T) {
	repo := newMemoryAttemptRepo()
	gate := newTestGate(t, repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = gate.Verify(ctx, "client-1", "wrong")
	}

	if _, err := gate.Verify(ctx, "client-2", adminCode); err != nil {
		t.Errorf("expected other clients unaffected by lockout, got %v", err)
	}
}

func TestCheckSession_Garbage(t *testing.T) {
	gate := newTestGate(t, newMemoryAttemptRepo())

	if err := gate.CheckSession("not-a-token"); err == nil {
		t.Error("expected invalid token to be rejected")
	}
}

var _ repository.AttemptRepository = (*memoryAttemptRepo)(nil)
