package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// AuditAction is the kind of mutation recorded in the audit trail.
type AuditAction string

const (
	AuditCreate       AuditAction = "Create"
	AuditUpdate       AuditAction = "Update"
	AuditDelete       AuditAction = "Delete"
	AuditStatusChange AuditAction = "StatusChange"
)

// AuditLog is an immutable record of who changed which entity and how.
type AuditLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action      AuditAction        `bson:"action" json:"action"`
	EntityType  string             `bson:"entity_type" json:"entityType"` // "Vehicle", "Driver", "Trip", "Maintenance"
	EntityID    string             `bson:"entity_id" json:"entityId"`
	PerformedBy string             `bson:"performed_by" json:"performedBy"`
	Details     map[string]any     `bson:"details" json:"details"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
