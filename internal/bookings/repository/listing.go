package repository

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/config"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ListingRepository is read-only here: listing management belongs to another
// surface, bookings only need the rate card and host identity.
type ListingRepository interface {
	FindByID(ctx context.Context, id string) (*model.Listing, error)
}

type mongoListingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoListingRepository(cfg *config.Config) ListingRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoListingRepository{
		cfg:        cfg,
		collection: db.Collection("Listings"),
	}
}

func (r *mongoListingRepository) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var listing model.Listing
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}

	return &listing, nil
}
