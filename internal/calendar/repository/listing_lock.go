package repository

import (
	"context"
	"time"

	"staybook/pkg/config"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ListingLockRepository provides operations for advisory locks
type ListingLockRepository interface {
	Create(ctx context.Context, lock *model.ListingLock) (*model.ListingLock, error)
	Delete(ctx context.Context, lockID string) error
}

type mongoListingLockRepository struct {
	collection *mongo.Collection
}

func NewListingLockRepository(cfg *config.Config) ListingLockRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoListingLockRepository{
		collection: db.Collection("Listing_locks"),
	}
}

// Returns duplicate key error if lock already exists
func (r *mongoListingLockRepository) Create(ctx context.Context, lock *model.ListingLock) (*model.ListingLock, error) {
	lock.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		return nil, err
	}

	return lock, nil
}

// Delete removes an advisory lock
func (r *mongoListingLockRepository) Delete(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
