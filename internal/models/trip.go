package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripStatus is the lifecycle state of a trip. Completed and Cancelled are
// terminal.
type TripStatus string

const (
	TripDraft      TripStatus = "Draft"
	TripDispatched TripStatus = "Dispatched"
	TripCompleted  TripStatus = "Completed"
	TripCancelled  TripStatus = "Cancelled"
)

// Revenue policy: fixed per-km and per-kg rates, applied at completion.
const (
	RevenuePerKm      = 2.50
	RevenuePerCargoKg = 0.50
)

// Trip represents a cargo trip assigned to one vehicle and one driver.
type Trip struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID     string             `bson:"vehicle_id" json:"vehicleId"`
	DriverID      string             `bson:"driver_id" json:"driverId"`
	CargoWeight   float64            `bson:"cargo_weight" json:"cargoWeight"` // in kg
	Status        TripStatus         `bson:"status" json:"status"`
	StartOdometer *int64             `bson:"start_odometer,omitempty" json:"startOdometer,omitempty"` // captured at dispatch
	EndOdometer   *int64             `bson:"end_odometer,omitempty" json:"endOdometer,omitempty"`     // captured at completion
	Revenue       float64            `bson:"revenue" json:"revenue"`
	IsActive      bool               `bson:"is_active" json:"isActive"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// TripRevenue computes the revenue for a completed trip, rounded to the cent.
func TripRevenue(distanceKm int64, cargoWeightKg float64) float64 {
	revenue := float64(distanceKm)*RevenuePerKm + cargoWeightKg*RevenuePerCargoKg
	return math.Round(revenue*100) / 100
}
