package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DriverCollection defines the interface for driver database operations
type DriverCollection interface {
	InsertDriver(ctx context.Context, driver models.Driver) (*models.Driver, error)
	FindDrivers(ctx context.Context, filter bson.M) ([]models.Driver, error)
	FindDriverByID(ctx context.Context, id string) (*models.Driver, error)
	FindActiveDriverByID(ctx context.Context, id string) (*models.Driver, error)
	FindActiveDriverByUserID(ctx context.Context, userID string) (*models.Driver, error)
	UpdateDriver(ctx context.Context, id string, driver models.Driver) error
	ApplySafetyPenalty(ctx context.Context, id string, penalty int) error
	RestoreSafetyScore(ctx context.Context, id string, penalty int) error
}

// MongoDriverCollection implements DriverCollection for MongoDB
type MongoDriverCollection struct {
	Collection *mongo.Collection
}

// InsertDriver inserts a new driver and returns it with its assigned ID
func (c *MongoDriverCollection) InsertDriver(ctx context.Context, driver models.Driver) (*models.Driver, error) {
	now := time.Now()
	driver.CreatedAt = now
	driver.UpdatedAt = now
	driver.IsActive = true
	if driver.Status == "" {
		driver.Status = models.DriverOffDuty
	}

	result, err := c.Collection.InsertOne(ctx, driver)
	if err != nil {
		return nil, err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		driver.ID = oid
	}
	return &driver, nil
}

// FindDrivers finds drivers matching the given filter
func (c *MongoDriverCollection) FindDrivers(ctx context.Context, filter bson.M) ([]models.Driver, error) {
	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var drivers []models.Driver
	if err := cursor.All(ctx, &drivers); err != nil {
		return nil, err
	}
	return drivers, nil
}

// FindDriverByID finds a driver by its ID
func (c *MongoDriverCollection) FindDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid driver ID: %w", ErrNotFound)
	}

	var driver models.Driver
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&driver)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("driver %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &driver, nil
}

// FindActiveDriverByID finds a driver by its ID, excluding soft-deleted ones
func (c *MongoDriverCollection) FindActiveDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid driver ID: %w", ErrNotFound)
	}

	var driver models.Driver
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID, "is_active": true}).Decode(&driver)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("driver %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &driver, nil
}

// FindActiveDriverByUserID finds the active driver profile linked to a user account
func (c *MongoDriverCollection) FindActiveDriverByUserID(ctx context.Context, userID string) (*models.Driver, error) {
	var driver models.Driver
	err := c.Collection.FindOne(ctx, bson.M{"user_id": userID, "is_active": true}).Decode(&driver)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("driver profile for user %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return &driver, nil
}

// UpdateDriver replaces a driver document by its ID
func (c *MongoDriverCollection) UpdateDriver(ctx context.Context, id string, driver models.Driver) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid driver ID: %w", ErrNotFound)
	}

	driver.ID = objectID
	driver.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, driver)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("driver %s: %w", id, ErrNotFound)
	}
	return nil
}

// ApplySafetyPenalty atomically deducts a penalty from the driver's safety
// score, flooring the result at zero. A single pipeline update avoids lost
// updates under concurrent incident reports against the same driver.
func (c *MongoDriverCollection) ApplySafetyPenalty(ctx context.Context, id string, penalty int) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid driver ID: %w", ErrNotFound)
	}

	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "safety_score", Value: bson.D{{Key: "$max", Value: bson.A{
				0,
				bson.D{{Key: "$subtract", Value: bson.A{"$safety_score", penalty}}},
			}}}},
			{Key: "updated_at", Value: "$$NOW"},
		}}},
	}

	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("driver %s: %w", id, ErrNotFound)
	}
	return nil
}

// RestoreSafetyScore atomically adds a previously applied penalty back to the
// driver's safety score.
func (c *MongoDriverCollection) RestoreSafetyScore(ctx context.Context, id string, penalty int) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid driver ID: %w", ErrNotFound)
	}

	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$inc": bson.M{"safety_score": penalty},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("driver %s: %w", id, ErrNotFound)
	}
	return nil
}
