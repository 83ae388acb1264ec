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

var ErrIntentNotFound = errors.New("payment intent not found")

const (
	CollectionName = "Payment_intents"
)

// IntentRepository persists the intent-to-booking correlation so webhook
// deliveries can be resolved without trusting caller-supplied references.
type IntentRepository interface {
	Save(ctx context.Context, intent *model.PaymentIntent) error
	FindByID(ctx context.Context, intentID string) (*model.PaymentIntent, error)
	FindByBooking(ctx context.Context, bookingID string) (*model.PaymentIntent, error)
	UpdateStatus(ctx context.Context, intentID, status string) error
}

type mongoIntentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoIntentRepository(cfg *config.Config) IntentRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoIntentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// Save upserts by intent id. A retried authorization that produced the same
// intent id at the processor lands on the same document.
func (r *mongoIntentRepository) Save(ctx context.Context, intent *model.PaymentIntent) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	intent.UpdatedAt = now

	update := bson.M{
		"$set": bson.M{
			"booking_id":      intent.BookingID,
			"amount_cents":    intent.AmountCents,
			"currency":        intent.Currency,
			"app_fee_cents":   intent.AppFeeCents,
			"destination":     intent.Destination,
			"idempotency_key": intent.IdempotencyKey,
			"status":          intent.Status,
			"updated_at":      intent.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": intent.ID}, update, opts); err != nil {
		return fmt.Errorf("failed to save payment intent: %w", err)
	}
	return nil
}

func (r *mongoIntentRepository) FindByID(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var intent model.PaymentIntent
	err := r.collection.FindOne(ctx, bson.M{"_id": intentID}).Decode(&intent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("failed to find payment intent: %w", err)
	}
	return &intent, nil
}

// FindByBooking returns the most recently created intent for a booking.
// A retried payment can leave more than one intent behind.
func (r *mongoIntentRepository) FindByBooking(ctx context.Context, bookingID string) (*model.PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var intent model.PaymentIntent
	err := r.collection.FindOne(ctx, bson.M{"booking_id": bookingID}, opts).Decode(&intent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("failed to find payment intent for booking: %w", err)
	}
	return &intent, nil
}

func (r *mongoIntentRepository) UpdateStatus(ctx context.Context, intentID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": intentID}, update)
	if err != nil {
		return fmt.Errorf("failed to update payment intent status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrIntentNotFound
	}
	return nil
}
