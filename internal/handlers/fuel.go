package handlers

import (
	"net/http"
	"time"

	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
	"github.com/ukydev/fleetflow/internal/notify"
	"go.mongodb.org/mongo-driver/bson"
)

// FuelHandler serves fuel purchase records. Fuel logging is pure bookkeeping
// with no effect on vehicle status.
type FuelHandler struct {
	fuel     db.FuelCollection
	vehicles db.VehicleCollection
	events   notify.Publisher
}

// NewFuelHandler creates a new fuel handler
func NewFuelHandler(fuel db.FuelCollection, vehicles db.VehicleCollection, events notify.Publisher) *FuelHandler {
	return &FuelHandler{
		fuel:     fuel,
		vehicles: vehicles,
		events:   events,
	}
}

// CreateFuelRequest is the body of POST /api/fuel
type CreateFuelRequest struct {
	VehicleID string    `json:"vehicleId"`
	Liters    float64   `json:"liters"`
	Cost      float64   `json:"cost"`
	Date      time.Time `json:"date,omitempty"`
}

// UpdateFuelRequest is the body of PUT /api/fuel/{id}
type UpdateFuelRequest struct {
	Liters *float64   `json:"liters,omitempty"`
	Cost   *float64   `json:"cost,omitempty"`
	Date   *time.Time `json:"date,omitempty"`
}

// List handles GET /api/fuel
func (h *FuelHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if vehicleID := r.URL.Query().Get("vehicleId"); vehicleID != "" {
		filter["vehicle_id"] = vehicleID
	}

	records, err := h.fuel.FindFuel(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []models.Fuel{}
	}
	respondJSON(w, http.StatusOK, records)
}

// Create handles POST /api/fuel
func (h *FuelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateFuelRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.VehicleID == "" {
		respondError(w, http.StatusBadRequest, "Vehicle is required")
		return
	}
	if req.Liters <= 0 || req.Cost < 0 {
		respondError(w, http.StatusBadRequest, "Liters must be positive and cost cannot be negative")
		return
	}

	if _, err := h.vehicles.FindVehicleByID(r.Context(), req.VehicleID); err != nil {
		respondError(w, http.StatusNotFound, "Vehicle not found")
		return
	}

	record, err := h.fuel.InsertFuel(r.Context(), models.Fuel{
		VehicleID: req.VehicleID,
		Liters:    req.Liters,
		Cost:      req.Cost,
		Date:      req.Date,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("fuelCreated", record)

	respondJSON(w, http.StatusCreated, record)
}

// Update handles PUT /api/fuel/{id}
func (h *FuelHandler) Update(w http.ResponseWriter, r *http.Request) {
	record, err := h.fuel.FindFuelByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Fuel record not found")
		return
	}

	var req UpdateFuelRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Liters != nil {
		if *req.Liters <= 0 {
			respondError(w, http.StatusBadRequest, "Liters must be positive")
			return
		}
		record.Liters = *req.Liters
	}
	if req.Cost != nil {
		if *req.Cost < 0 {
			respondError(w, http.StatusBadRequest, "Cost cannot be negative")
			return
		}
		record.Cost = *req.Cost
	}
	if req.Date != nil {
		record.Date = *req.Date
	}

	if err := h.fuel.UpdateFuel(r.Context(), record.ID.Hex(), *record); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// Delete handles DELETE /api/fuel/{id}
func (h *FuelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.fuel.DeleteFuel(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, http.StatusNotFound, "Fuel record not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Fuel record removed"})
}
