package middleware

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const IdempotencyCollection = "Idempotency_records"

// MongoIdempotencyStore keeps cached responses in a shared collection so
// replays are recognized across service instances. Expiry is enforced by a
// TTL index on expires_at (created by the migrations binary); Get double
// checks against the TTL to close the window before the monitor fires.
type MongoIdempotencyStore struct {
	collection *mongo.Collection
	ttl        time.Duration
}

type idempotencyRecord struct {
	Key       string          `bson:"_id"`
	Response  *CachedResponse `bson:"response"`
	CreatedAt time.Time       `bson:"created_at"`
	ExpiresAt time.Time       `bson:"expires_at"`
}

func NewMongoIdempotencyStore(db *mongo.Database, ttl time.Duration) *MongoIdempotencyStore {
	return &MongoIdempotencyStore{
		collection: db.Collection(IdempotencyCollection),
		ttl:        ttl,
	}
}

func (s *MongoIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	var record idempotencyRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if time.Now().After(record.ExpiresAt) {
		return nil, false, nil
	}

	return record.Response, true, nil
}

func (s *MongoIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) error {
	now := time.Now()
	response.CreatedAt = now

	record := idempotencyRecord{
		Key:       key,
		Response:  response,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	// First writer wins: a concurrent retry that lost the race keeps the
	// original record.
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$setOnInsert": record},
		options.Update().SetUpsert(true),
	)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (s *MongoIdempotencyStore) Stop() {}
