package service

import (
	"context"
	"time"

	"staybook/internal/admin/repository"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
	"staybook/pkg/sealer"

	"golang.org/x/crypto/bcrypt"
)

const sessionSubject = "admin"

// Gate is the admin verification gate. Codes are compared against a bcrypt
// hash, failures are counted durably per client, and a lockout is enforced
// before the code is even looked at.
type Gate interface {
	Verify(ctx context.Context, clientID, code string) (*model.AdminSession, error)
	CheckSession(token string) error
}

type gate struct {
	repo   repository.AttemptRepository
	sealer *sealer.Sealer
	cfg    *config.Config
}

func NewGate(repo repository.AttemptRepository, tokenSealer *sealer.Sealer, cfg *config.Config) Gate {
	return &gate{
		repo:   repo,
		sealer: tokenSealer,
		cfg:    cfg,
	}
}

func (g *gate) Verify(ctx context.Context, clientID, code string) (*model.AdminSession, error) {
	now := time.Now().UTC()

	attempt, err := g.repo.Find(ctx, clientID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load verification state", err)
	}

	// Lockout wins over everything, including a correct code. Otherwise the
	// lockout would leak whether a guessed code was right.
	if attempt != nil && attempt.LockedUntil != nil && now.Before(*attempt.LockedUntil) {
		remaining := attempt.LockedUntil.Sub(now)
		g.cfg.Log.Warn("Admin verification rejected, client locked out", "client_id", clientID)
		return nil, apperrors.RateLimited("Too many failed attempts", remaining)
	}

	if bcrypt.CompareHashAndPassword([]byte(g.cfg.AdminCodeHash), []byte(code)) != nil {
		return nil, g.recordFailure(ctx, clientID, attempt, now)
	}

	if err := g.repo.Clear(ctx, clientID); err != nil {
		g.cfg.Log.Warn("Failed to clear admin attempt record", "client_id", clientID, "error", err)
	}

	expiresAt := now.Add(g.cfg.AdminSessionTTL)
	token, err := g.sealer.Seal(sessionSubject, expiresAt)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue session token", err)
	}

	g.cfg.Log.Info("Admin verification succeeded", "client_id", clientID)
	return &model.AdminSession{Token: token, ExpiresAt: expiresAt}, nil
}

func (g *gate) recordFailure(ctx context.Context, clientID string, attempt *model.AdminAttempt, now time.Time) error {
	windowStart := now
	if attempt != nil && now.Sub(attempt.WindowStart) < g.cfg.AdminLockoutWindow {
		windowStart = attempt.WindowStart
	} else if attempt != nil {
		// Rolling window elapsed: start counting from scratch.
		if err := g.repo.Clear(ctx, clientID); err != nil {
			g.cfg.Log.Warn("Failed to reset admin attempt window", "client_id", clientID, "error", err)
		}
	}

	recorded, err := g.repo.RecordFailure(ctx, clientID, windowStart, 2*g.cfg.AdminLockoutWindow)
	if err != nil {
		g.cfg.Log.Error("Failed to record admin verification failure", "client_id", clientID, "error", err)
		// Still refuse: the code was wrong no matter what the counter says.
		return apperrors.Unauthorized("Invalid verification code")
	}

	g.cfg.Log.Warn("Admin verification failed",
		"client_id", clientID,
		"failures", recorded.Failures,
	)

	// The lockout decision reads the counter the increment returned, not the
	// snapshot loaded before it. Concurrent failures each see their own
	// post-increment total, so the one that crosses the threshold always
	// stamps the lockout.
	if recorded.Failures >= g.cfg.AdminMaxFailures {
		deadline := now.Add(g.cfg.AdminLockoutWindow)
		if err := g.repo.Lock(ctx, clientID, deadline, 2*g.cfg.AdminLockoutWindow); err != nil {
			g.cfg.Log.Error("Failed to stamp admin lockout", "client_id", clientID, "error", err)
		}
		return apperrors.RateLimited("Too many failed attempts", deadline.Sub(now))
	}
	return apperrors.Unauthorized("Invalid verification code")
}

// CheckSession validates a sealed session token.
func (g *gate) CheckSession(token string) error {
	subject, _, err := g.sealer.Open(token, time.Now().UTC())
	if err != nil || subject != sessionSubject {
		return apperrors.Unauthorized("Invalid or expired session token")
	}
	return nil
}
