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

// FuelCollection defines the interface for fuel log database operations
type FuelCollection interface {
	InsertFuel(ctx context.Context, fuel models.Fuel) (*models.Fuel, error)
	FindFuel(ctx context.Context, filter bson.M) ([]models.Fuel, error)
	FindFuelByID(ctx context.Context, id string) (*models.Fuel, error)
	UpdateFuel(ctx context.Context, id string, fuel models.Fuel) error
	DeleteFuel(ctx context.Context, id string) error
}

// MongoFuelCollection implements FuelCollection for MongoDB
type MongoFuelCollection struct {
	Collection *mongo.Collection
}

// InsertFuel inserts a new fuel log and returns it with its assigned ID
func (c *MongoFuelCollection) InsertFuel(ctx context.Context, fuel models.Fuel) (*models.Fuel, error) {
	now := time.Now()
	fuel.CreatedAt = now
	fuel.UpdatedAt = now
	if fuel.Date.IsZero() {
		fuel.Date = now
	}

	result, err := c.Collection.InsertOne(ctx, fuel)
	if err != nil {
		return nil, err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		fuel.ID = oid
	}
	return &fuel, nil
}

// FindFuel finds fuel logs matching the given filter, newest first
func (c *MongoFuelCollection) FindFuel(ctx context.Context, filter bson.M) ([]models.Fuel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []models.Fuel
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// FindFuelByID finds a fuel log by its ID
func (c *MongoFuelCollection) FindFuelByID(ctx context.Context, id string) (*models.Fuel, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid fuel log ID: %w", ErrNotFound)
	}

	var fuel models.Fuel
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&fuel)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("fuel log %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &fuel, nil
}

// UpdateFuel replaces a fuel log by its ID
func (c *MongoFuelCollection) UpdateFuel(ctx context.Context, id string, fuel models.Fuel) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid fuel log ID: %w", ErrNotFound)
	}

	fuel.ID = objectID
	fuel.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, fuel)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("fuel log %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteFuel hard-deletes a fuel log by its ID
func (c *MongoFuelCollection) DeleteFuel(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid fuel log ID: %w", ErrNotFound)
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("fuel log %s: %w", id, ErrNotFound)
	}
	return nil
}
