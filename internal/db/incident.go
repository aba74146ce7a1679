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

// IncidentCollection defines the interface for incident database operations
type IncidentCollection interface {
	InsertIncident(ctx context.Context, incident models.Incident) (*models.Incident, error)
	FindIncidents(ctx context.Context, filter bson.M) ([]models.Incident, error)
	FindIncidentByID(ctx context.Context, id string) (*models.Incident, error)
	DeleteIncident(ctx context.Context, id string) error
}

// MongoIncidentCollection implements IncidentCollection for MongoDB
type MongoIncidentCollection struct {
	Collection *mongo.Collection
}

// InsertIncident inserts a new incident and returns it with its assigned ID
func (c *MongoIncidentCollection) InsertIncident(ctx context.Context, incident models.Incident) (*models.Incident, error) {
	now := time.Now()
	incident.CreatedAt = now
	incident.UpdatedAt = now
	if incident.Date.IsZero() {
		incident.Date = now
	}

	result, err := c.Collection.InsertOne(ctx, incident)
	if err != nil {
		return nil, err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		incident.ID = oid
	}
	return &incident, nil
}

// FindIncidents finds incidents matching the given filter, newest first
func (c *MongoIncidentCollection) FindIncidents(ctx context.Context, filter bson.M) ([]models.Incident, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var incidents []models.Incident
	if err := cursor.All(ctx, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

// FindIncidentByID finds an incident by its ID
func (c *MongoIncidentCollection) FindIncidentByID(ctx context.Context, id string) (*models.Incident, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid incident ID: %w", ErrNotFound)
	}

	var incident models.Incident
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&incident)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("incident %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &incident, nil
}

// DeleteIncident hard-deletes an incident by its ID
func (c *MongoIncidentCollection) DeleteIncident(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid incident ID: %w", ErrNotFound)
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("incident %s: %w", id, ErrNotFound)
	}
	return nil
}
