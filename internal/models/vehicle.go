package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// VehicleStatus is the operational state of a vehicle. Transitions between
// these states happen through the status engine, never by direct edits.
type VehicleStatus string

const (
	VehicleAvailable VehicleStatus = "Available"
	VehicleOnTrip    VehicleStatus = "On Trip"
	VehicleInShop    VehicleStatus = "In Shop"
	VehicleRetired   VehicleStatus = "Retired"
)

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Model           string             `bson:"model" json:"model"`
	LicensePlate    string             `bson:"license_plate" json:"licensePlate"`
	MaxCapacity     float64            `bson:"max_capacity" json:"maxCapacity"` // in kg
	Odometer        int64              `bson:"odometer" json:"odometer"`        // in km, never decreases
	AcquisitionCost float64            `bson:"acquisition_cost" json:"acquisitionCost"`
	Type            string             `bson:"type" json:"type"` // e.g. "Truck", "Van", "Car"
	Region          string             `bson:"region" json:"region"`
	Status          VehicleStatus      `bson:"status" json:"status"`
	IsActive        bool               `bson:"is_active" json:"isActive"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}
