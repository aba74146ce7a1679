package db

import (
	"context"
	"time"

	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogCollection defines the interface for audit log database operations
type AuditLogCollection interface {
	InsertAuditLog(ctx context.Context, entry models.AuditLog) error
}

// MongoAuditLogCollection implements AuditLogCollection for MongoDB
type MongoAuditLogCollection struct {
	Collection *mongo.Collection
}

// InsertAuditLog appends an audit log entry
func (c *MongoAuditLogCollection) InsertAuditLog(ctx context.Context, entry models.AuditLog) error {
	entry.CreatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, entry)
	return err
}
