package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TripCollection defines the interface for trip database operations
type TripCollection interface {
	InsertTrip(ctx context.Context, trip models.Trip) (*models.Trip, error)
	FindTrips(ctx context.Context, filter bson.M) ([]models.Trip, error)
	FindTripByID(ctx context.Context, id string) (*models.Trip, error)
	FindActiveTripByID(ctx context.Context, id string) (*models.Trip, error)
	UpdateTrip(ctx context.Context, id string, trip models.Trip) error
}

// MongoTripCollection implements TripCollection for MongoDB
type MongoTripCollection struct {
	Collection *mongo.Collection
}

// InsertTrip inserts a new trip and returns it with its assigned ID
func (c *MongoTripCollection) InsertTrip(ctx context.Context, trip models.Trip) (*models.Trip, error) {
	now := time.Now()
	trip.CreatedAt = now
	trip.UpdatedAt = now
	trip.IsActive = true
	if trip.Status == "" {
		trip.Status = models.TripDraft
	}

	result, err := c.Collection.InsertOne(ctx, trip)
	if err != nil {
		return nil, err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		trip.ID = oid
	}
	return &trip, nil
}

// FindTrips finds trips matching the given filter, newest first
func (c *MongoTripCollection) FindTrips(ctx context.Context, filter bson.M) ([]models.Trip, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var trips []models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// FindTripByID finds a trip by its ID
func (c *MongoTripCollection) FindTripByID(ctx context.Context, id string) (*models.Trip, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid trip ID: %w", ErrNotFound)
	}

	var trip models.Trip
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("trip %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &trip, nil
}

// FindActiveTripByID finds a trip by its ID, excluding soft-deleted ones
func (c *MongoTripCollection) FindActiveTripByID(ctx context.Context, id string) (*models.Trip, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid trip ID: %w", ErrNotFound)
	}

	var trip models.Trip
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID, "is_active": true}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("trip %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &trip, nil
}

// UpdateTrip replaces a trip document by its ID
func (c *MongoTripCollection) UpdateTrip(ctx context.Context, id string, trip models.Trip) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid trip ID: %w", ErrNotFound)
	}

	trip.ID = objectID
	trip.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, trip)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("trip %s: %w", id, ErrNotFound)
	}
	return nil
}
