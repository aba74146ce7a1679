package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Severity classifies how serious an incident is.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityCritical Severity = "Critical"
)

// PenaltyFor returns the nominal safety-score penalty for a severity.
// Unknown severities carry no penalty.
func PenaltyFor(severity Severity) int {
	switch severity {
	case SeverityLow:
		return 5
	case SeverityMedium:
		return 15
	case SeverityCritical:
		return 30
	default:
		return 0
	}
}

// Incident represents a reported driver incident. PenaltyApplied stores the
// nominal penalty for the severity at creation time so that deleting the
// incident reverses exactly that amount.
type Incident struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID       string             `bson:"driver_id" json:"driverId"`
	VehicleID      string             `bson:"vehicle_id,omitempty" json:"vehicleId,omitempty"`
	Type           string             `bson:"type" json:"type"` // "Accident", "Traffic Violation", "Cargo Damage", "Safety Complaint", "Other"
	Severity       Severity           `bson:"severity" json:"severity"`
	Description    string             `bson:"description" json:"description"`
	PenaltyApplied int                `bson:"penalty_applied" json:"penaltyApplied"`
	ReportedBy     string             `bson:"reported_by" json:"reportedBy"`
	Date           time.Time          `bson:"date" json:"date"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}
