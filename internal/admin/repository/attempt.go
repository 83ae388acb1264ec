package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staybook/pkg/config"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Admin_attempts"
)

// AttemptRepository persists per-client verification failure counters. The
// counters live in Mongo so a lockout holds across service instances.
type AttemptRepository interface {
	Find(ctx context.Context, clientID string) (*model.AdminAttempt, error)
	RecordFailure(ctx context.Context, clientID string, windowStart time.Time, ttl time.Duration) (*model.AdminAttempt, error)
	Lock(ctx context.Context, clientID string, lockedUntil time.Time, ttl time.Duration) error
	Clear(ctx context.Context, clientID string) error
}

type mongoAttemptRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAttemptRepository(cfg *config.Config) AttemptRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoAttemptRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoAttemptRepository) Find(ctx context.Context, clientID string) (*model.AdminAttempt, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var attempt model.AdminAttempt
	err := r.collection.FindOne(ctx, bson.M{"_id": clientID}).Decode(&attempt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find admin attempt record: %w", err)
	}
	return &attempt, nil
}

// RecordFailure bumps the failure counter atomically and returns the updated
// record, so two concurrent failures both count and each caller sees the
// post-increment total.
func (r *mongoAttemptRepository) RecordFailure(ctx context.Context, clientID string, windowStart time.Time, ttl time.Duration) (*model.AdminAttempt, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$inc": bson.M{"failures": 1},
		"$set": bson.M{
			"updated_at": now,
			"expires_at": now.Add(ttl),
		},
		"$setOnInsert": bson.M{"window_start": windowStart},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var attempt model.AdminAttempt
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": clientID}, update, opts).Decode(&attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to record admin failure: %w", err)
	}
	return &attempt, nil
}

// Lock stamps a lockout deadline on the record. Concurrent callers past the
// threshold may both land here; last write wins and the deadlines differ by
// milliseconds at most.
func (r *mongoAttemptRepository) Lock(ctx context.Context, clientID string, lockedUntil time.Time, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"locked_until": lockedUntil,
			"updated_at":   now,
			"expires_at":   now.Add(ttl),
		},
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": clientID}, update); err != nil {
		return fmt.Errorf("failed to lock admin attempt record: %w", err)
	}
	return nil
}

func (r *mongoAttemptRepository) Clear(ctx context.Context, clientID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": clientID}); err != nil {
		return fmt.Errorf("failed to clear admin attempt record: %w", err)
	}
	return nil
}
