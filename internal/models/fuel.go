package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Fuel represents a fuel purchase record for a vehicle.
type Fuel struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID string             `bson:"vehicle_id" json:"vehicleId"`
	Liters    float64            `bson:"liters" json:"liters"`
	Cost      float64            `bson:"cost" json:"cost"` // in USD
	Date      time.Time          `bson:"date" json:"date"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
