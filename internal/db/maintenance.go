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

// MaintenanceCollection defines the interface for maintenance database operations
type MaintenanceCollection interface {
	InsertMaintenance(ctx context.Context, maintenance models.Maintenance) (*models.Maintenance, error)
	FindMaintenance(ctx context.Context, filter bson.M) ([]models.Maintenance, error)
	FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error)
	UpdateMaintenance(ctx context.Context, id string, maintenance models.Maintenance) error
	DeleteMaintenance(ctx context.Context, id string) error
}

// MongoMaintenanceCollection implements MaintenanceCollection for MongoDB
type MongoMaintenanceCollection struct {
	Collection *mongo.Collection
}

// InsertMaintenance inserts a new maintenance record and returns it with its assigned ID
func (c *MongoMaintenanceCollection) InsertMaintenance(ctx context.Context, maintenance models.Maintenance) (*models.Maintenance, error) {
	now := time.Now()
	maintenance.CreatedAt = now
	maintenance.UpdatedAt = now
	if maintenance.Date.IsZero() {
		maintenance.Date = now
	}

	result, err := c.Collection.InsertOne(ctx, maintenance)
	if err != nil {
		return nil, err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		maintenance.ID = oid
	}
	return &maintenance, nil
}

// FindMaintenance finds maintenance records matching the given filter, newest first
func (c *MongoMaintenanceCollection) FindMaintenance(ctx context.Context, filter bson.M) ([]models.Maintenance, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []models.Maintenance
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// FindMaintenanceByID finds a maintenance record by its ID
func (c *MongoMaintenanceCollection) FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid maintenance ID: %w", ErrNotFound)
	}

	var maintenance models.Maintenance
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&maintenance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("maintenance %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &maintenance, nil
}

// UpdateMaintenance replaces a maintenance record by its ID
func (c *MongoMaintenanceCollection) UpdateMaintenance(ctx context.Context, id string, maintenance models.Maintenance) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid maintenance ID: %w", ErrNotFound)
	}

	maintenance.ID = objectID
	maintenance.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, maintenance)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("maintenance %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteMaintenance hard-deletes a maintenance record by its ID
func (c *MongoMaintenanceCollection) DeleteMaintenance(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid maintenance ID: %w", ErrNotFound)
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("maintenance %s: %w", id, ErrNotFound)
	}
	return nil
}
