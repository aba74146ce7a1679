package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// DriverStatus is the duty state of a driver.
type DriverStatus string

const (
	DriverOffDuty   DriverStatus = "Off Duty"
	DriverOnDuty    DriverStatus = "On Duty"
	DriverSuspended DriverStatus = "Suspended"
)

// Driver represents a fleet driver.
type Driver struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name               string             `bson:"name" json:"name"`
	LicenseExpiryDate  time.Time          `bson:"license_expiry_date" json:"licenseExpiryDate"`
	AllowedVehicleType []string           `bson:"allowed_vehicle_type" json:"allowedVehicleType"`
	SafetyScore        int                `bson:"safety_score" json:"safetyScore"` // starts at 100, floored at 0
	CompletionRate     float64            `bson:"completion_rate" json:"completionRate"`
	Status             DriverStatus       `bson:"status" json:"status"`
	UserID             string             `bson:"user_id,omitempty" json:"userId,omitempty"` // login account, if the driver has one
	IsActive           bool               `bson:"is_active" json:"isActive"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// LicenseValid reports whether the driver's license has not expired at t.
func (d *Driver) LicenseValid(t time.Time) bool {
	return !d.LicenseExpiryDate.Before(t)
}

// CertifiedFor reports whether the driver may operate the given vehicle type.
// An empty certification list means the driver is unrestricted.
func (d *Driver) CertifiedFor(vehicleType string) bool {
	if len(d.AllowedVehicleType) == 0 {
		return true
	}
	for _, t := range d.AllowedVehicleType {
		if t == vehicleType {
			return true
		}
	}
	return false
}
