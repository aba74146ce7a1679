package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Maintenance represents a vehicle maintenance record. Logging one moves the
// vehicle into the shop.
type Maintenance struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID   string             `bson:"vehicle_id" json:"vehicleId"`
	ServiceType string             `bson:"service_type" json:"serviceType"`
	Cost        float64            `bson:"cost" json:"cost"` // in USD
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Date        time.Time          `bson:"date" json:"date"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
