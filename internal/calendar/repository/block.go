package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Calendar_blocks"
)

type mongoBlockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BlockRepository interface {
	Create(ctx context.Context, block *model.CalendarBlock) error
	FindByID(ctx context.Context, id string) (*model.CalendarBlock, error)
	FindOverlapping(ctx context.Context, listingID string, checkIn, checkOut time.Time) ([]*model.CalendarBlock, error)
	FindByListing(ctx context.Context, listingID string, from, to time.Time, limit int, offset int64) ([]*model.CalendarBlock, error)
	Promote(ctx context.Context, id string, now time.Time) error
	ExtendHold(ctx context.Context, id string, now, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteExpiredHolds(ctx context.Context, now time.Time, limit int) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBlockRepository(cfg *config.Config) BlockRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoBlockRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo.Client),
	}
}

func (r *mongoBlockRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBlockRepository) Create(ctx context.Context, block *model.CalendarBlock) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	block.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, block)
	if err != nil {
		return fmt.Errorf("failed to create calendar block: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		block.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBlockRepository) FindByID(ctx context.Context, id string) (*model.CalendarBlock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var block model.CalendarBlock
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&block)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find calendar block: %w", err)
	}

	return &block, nil
}

// FindOverlapping returns every block whose half-open range intersects
// [checkIn, checkOut). Expired holds are included; callers filter with
// Blocking so the decision uses a single clock reading.
func (r *mongoBlockRepository) FindOverlapping(ctx context.Context, listingID string, checkIn, checkOut time.Time) ([]*model.CalendarBlock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"listing_id": listingID,
		"check_in":   bson.M{"$lt": checkOut},
		"check_out":  bson.M{"$gt": checkIn},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping blocks: %w", err)
	}
	defer cursor.Close(ctx)

	var blocks []*model.CalendarBlock
	if err = cursor.All(ctx, &blocks); err != nil {
		return nil, fmt.Errorf("failed to decode calendar blocks: %w", err)
	}

	return blocks, nil
}

func (r *mongoBlockRepository) FindByListing(ctx context.Context, listingID string, from, to time.Time, limit int, offset int64) ([]*model.CalendarBlock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"listing_id": listingID}
	if !from.IsZero() {
		filter["check_out"] = bson.M{"$gt": from}
	}
	if !to.IsZero() {
		filter["check_in"] = bson.M{"$lt": to}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "check_in", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar blocks: %w", err)
	}
	defer cursor.Close(ctx)

	var blocks []*model.CalendarBlock
	if err = cursor.All(ctx, &blocks); err != nil {
		return nil, fmt.Errorf("failed to decode calendar blocks: %w", err)
	}

	return blocks, nil
}

// Promote converts a hold into a confirmed block and clears its expiry. The
// filter only matches a live block: a hold whose expiry has passed, or a
// block already deleted, reports ErrNotFound so the caller cannot confirm a
// range it no longer owns. Re-promoting a confirmed block is a no-op match.
func (r *mongoBlockRepository) Promote(ctx context.Context, id string, now time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id": objectID,
		"$or": []bson.M{
			{"kind": model.BlockConfirmed},
			{"kind": model.BlockHold, "expires_at": bson.M{"$gt": now}},
		},
	}
	update := bson.M{
		"$set":   bson.M{"kind": model.BlockConfirmed},
		"$unset": bson.M{"expires_at": ""},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to promote calendar block: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

// ExtendHold pushes a live hold's expiry forward. An expired hold is not
// resurrected: once its expiry passed, another reservation may have claimed
// the range.
func (r *mongoBlockRepository) ExtendHold(ctx context.Context, id string, now, expiresAt time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":        objectID,
		"kind":       model.BlockHold,
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"expires_at": expiresAt}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to extend calendar hold: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBlockRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	// Release is idempotent: deleting an already-released block is not an
	// error, the range is free either way.
	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete calendar block: %w", err)
	}
	return nil
}

// DeleteExpiredHolds garbage collects holds whose expiry has passed. Bounded
// by limit so a single sweep never monopolizes the collection.
func (r *mongoBlockRepository) DeleteExpiredHolds(ctx context.Context, now time.Time, limit int) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"kind":       model.BlockHold,
		"expires_at": bson.M{"$lt": now},
	}

	opts := options.Find().
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired holds: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &ids); err != nil {
		return 0, fmt.Errorf("failed to decode expired holds: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, doc := range ids {
		objectIDs = append(objectIDs, doc.ID)
	}

	result, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired holds: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoBlockRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
