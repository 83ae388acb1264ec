package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staybook/internal/migrations/mongo/validators"
)

var (
	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "listing_id", Value: 1},
			{Key: "check_in", Value: 1},
			{Key: "check_out", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "guest_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		// Sweep queries: expired holds, stuck payments, finished stays.
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "expires_at", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "updated_at", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "check_out", Value: 1},
		}},
	}

	CalendarBlocksIndexes = []mongo.IndexModel{
		// Overlap probe: all blocks for a listing intersecting a date range.
		{Keys: bson.D{
			{Key: "listing_id", Value: 1},
			{Key: "check_in", Value: 1},
			{Key: "check_out", Value: 1},
		}},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}},
		{Keys: bson.D{
			{Key: "kind", Value: 1},
			{Key: "expires_at", Value: 1},
		}},
	}

	PaymentIntentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "booking_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
	}

	ListingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "host_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	// Lock documents, cached idempotency responses and admin failure counters
	// all self-destruct via TTL monitors on expires_at.
	ttlOnExpiresAt = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running Staybook Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Bookings": {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		"Calendar_blocks": {
			Indexes:   CalendarBlocksIndexes,
			Validator: validators.CalendarBlockValidator,
		},
		"Payment_intents": {
			Indexes:   PaymentIntentsIndexes,
			Validator: validators.PaymentIntentValidator,
		},
		"Listings": {
			Indexes:   ListingsIndexes,
			Validator: validators.ListingValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	for _, name := range []string{"Listing_locks", "Idempotency_records", "Admin_attempts"} {
		if err := ensureIndexes(ctx, db, name, ttlOnExpiresAt); err != nil {
			return fmt.Errorf("failed to ensure TTL index for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
