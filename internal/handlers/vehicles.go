package handlers

import (
	"net/http"

	"github.com/ukydev/fleetflow/internal/audit"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/models"
	"github.com/ukydev/fleetflow/internal/notify"
	"go.mongodb.org/mongo-driver/bson"
)

// VehicleHandler serves vehicle CRUD. Status never changes through these
// endpoints; dispatch, completion and maintenance go through the engine, and
// soft deletion retires the vehicle here.
type VehicleHandler struct {
	vehicles db.VehicleCollection
	recorder *audit.Recorder
	events   notify.Publisher
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicles db.VehicleCollection, recorder *audit.Recorder, events notify.Publisher) *VehicleHandler {
	return &VehicleHandler{
		vehicles: vehicles,
		recorder: recorder,
		events:   events,
	}
}

// CreateVehicleRequest is the body of POST /api/vehicles
type CreateVehicleRequest struct {
	Model           string  `json:"model"`
	LicensePlate    string  `json:"licensePlate"`
	MaxCapacity     float64 `json:"maxCapacity"`
	Odometer        int64   `json:"odometer"`
	AcquisitionCost float64 `json:"acquisitionCost"`
	Type            string  `json:"type"`
	Region          string  `json:"region"`
}

// UpdateVehicleRequest is the body of PUT /api/vehicles/{id}. Status is
// deliberately absent.
type UpdateVehicleRequest struct {
	Model           *string  `json:"model,omitempty"`
	LicensePlate    *string  `json:"licensePlate,omitempty"`
	MaxCapacity     *float64 `json:"maxCapacity,omitempty"`
	Odometer        *int64   `json:"odometer,omitempty"`
	AcquisitionCost *float64 `json:"acquisitionCost,omitempty"`
	Type            *string  `json:"type,omitempty"`
	Region          *string  `json:"region,omitempty"`
}

// List handles GET /api/vehicles
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{"is_active": true}
	if t := r.URL.Query().Get("type"); t != "" {
		filter["type"] = t
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}
	if region := r.URL.Query().Get("region"); region != "" {
		filter["region"] = region
	}

	vehicles, err := h.vehicles.FindVehicles(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if vehicles == nil {
		vehicles = []models.Vehicle{}
	}
	respondJSON(w, http.StatusOK, vehicles)
}

// Get handles GET /api/vehicles/{id}
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.vehicles.FindActiveVehicleByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Vehicle not found")
		return
	}
	respondJSON(w, http.StatusOK, vehicle)
}

// Create handles POST /api/vehicles. The license plate must be unique among
// active vehicles; a retired vehicle's plate can be reused.
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	var req CreateVehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Model == "" || req.LicensePlate == "" || req.Type == "" {
		respondError(w, http.StatusBadRequest, "Model, license plate and type are required")
		return
	}
	if req.MaxCapacity <= 0 {
		respondError(w, http.StatusBadRequest, "Max capacity must be positive")
		return
	}
	if req.Odometer < 0 {
		respondError(w, http.StatusBadRequest, "Odometer cannot be negative")
		return
	}

	if _, err := h.vehicles.FindActiveVehicleByPlate(r.Context(), req.LicensePlate); err == nil {
		respondError(w, http.StatusBadRequest, "A vehicle with this license plate already exists")
		return
	}

	vehicle, err := h.vehicles.InsertVehicle(r.Context(), models.Vehicle{
		Model:           req.Model,
		LicensePlate:    req.LicensePlate,
		MaxCapacity:     req.MaxCapacity,
		Odometer:        req.Odometer,
		AcquisitionCost: req.AcquisitionCost,
		Type:            req.Type,
		Region:          req.Region,
		Status:          models.VehicleAvailable,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("vehicleCreated", vehicle)
	h.recorder.Log(r.Context(), claims.UserID, models.AuditCreate, "Vehicle", vehicle.ID.Hex(), map[string]any{
		"model":        req.Model,
		"licensePlate": req.LicensePlate,
	})

	respondJSON(w, http.StatusCreated, vehicle)
}

// Update handles PUT /api/vehicles/{id}. Only non-status attributes can be
// edited, and the odometer can only move forward.
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	vehicle, err := h.vehicles.FindActiveVehicleByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Vehicle not found")
		return
	}

	var req UpdateVehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Model != nil {
		vehicle.Model = *req.Model
	}
	if req.LicensePlate != nil && *req.LicensePlate != vehicle.LicensePlate {
		if _, err := h.vehicles.FindActiveVehicleByPlate(r.Context(), *req.LicensePlate); err == nil {
			respondError(w, http.StatusBadRequest, "A vehicle with this license plate already exists")
			return
		}
		vehicle.LicensePlate = *req.LicensePlate
	}
	if req.MaxCapacity != nil {
		vehicle.MaxCapacity = *req.MaxCapacity
	}
	if req.Odometer != nil {
		if *req.Odometer < vehicle.Odometer {
			respondError(w, http.StatusBadRequest, "Odometer cannot decrease")
			return
		}
		vehicle.Odometer = *req.Odometer
	}
	if req.AcquisitionCost != nil {
		vehicle.AcquisitionCost = *req.AcquisitionCost
	}
	if req.Type != nil {
		vehicle.Type = *req.Type
	}
	if req.Region != nil {
		vehicle.Region = *req.Region
	}

	if err := h.vehicles.UpdateVehicle(r.Context(), vehicle.ID.Hex(), *vehicle); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("vehicleUpdated", vehicle)
	h.recorder.Log(r.Context(), claims.UserID, models.AuditUpdate, "Vehicle", vehicle.ID.Hex(), nil)

	respondJSON(w, http.StatusOK, vehicle)
}

// Delete handles DELETE /api/vehicles/{id}. The vehicle is retired, not
// removed; a vehicle currently on a trip cannot be deleted.
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	vehicle, err := h.vehicles.FindActiveVehicleByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Vehicle not found")
		return
	}

	if vehicle.Status == models.VehicleOnTrip {
		respondError(w, http.StatusBadRequest, "Cannot delete a vehicle that is currently on a trip")
		return
	}

	vehicle.IsActive = false
	vehicle.Status = models.VehicleRetired
	if err := h.vehicles.UpdateVehicle(r.Context(), vehicle.ID.Hex(), *vehicle); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("vehicleDeleted", vehicle.ID.Hex())
	h.events.Publish("vehicleUpdated", vehicle)
	h.recorder.Log(r.Context(), claims.UserID, models.AuditDelete, "Vehicle", vehicle.ID.Hex(), map[string]any{
		"note": "Soft deleted",
	})

	respondJSON(w, http.StatusOK, map[string]string{"message": "Vehicle removed"})
}
