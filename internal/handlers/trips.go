package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ukydev/fleetflow/internal/audit"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/models"
	"github.com/ukydev/fleetflow/internal/notify"
	"go.mongodb.org/mongo-driver/bson"
)

// StatusEngine performs vehicle/driver status transitions for trip and
// maintenance events.
type StatusEngine interface {
	Dispatch(ctx context.Context, vehicleID, driverID string) (*models.Vehicle, *models.Driver, error)
	Complete(ctx context.Context, vehicleID, driverID string, endOdometer int64) (*models.Vehicle, *models.Driver, error)
	Cancel(ctx context.Context, vehicleID, driverID string) error
	LogMaintenance(ctx context.Context, vehicleID string) (*models.Vehicle, error)
}

// TripHandler orchestrates the trip lifecycle: creation, status transitions
// and soft deletion. All vehicle/driver status changes go through the engine,
// and engine calls always happen before the trip document itself is written.
type TripHandler struct {
	trips    db.TripCollection
	vehicles db.VehicleCollection
	drivers  db.DriverCollection
	engine   StatusEngine
	recorder *audit.Recorder
	events   notify.Publisher
}

// NewTripHandler creates a new trip handler
func NewTripHandler(trips db.TripCollection, vehicles db.VehicleCollection, drivers db.DriverCollection, engine StatusEngine, recorder *audit.Recorder, events notify.Publisher) *TripHandler {
	return &TripHandler{
		trips:    trips,
		vehicles: vehicles,
		drivers:  drivers,
		engine:   engine,
		recorder: recorder,
		events:   events,
	}
}

// CreateTripRequest is the body of POST /api/trips
type CreateTripRequest struct {
	VehicleID   string            `json:"vehicleId"`
	DriverID    string            `json:"driverId"`
	CargoWeight float64           `json:"cargoWeight"`
	Status      models.TripStatus `json:"status,omitempty"`
	Revenue     float64           `json:"revenue,omitempty"`
}

// UpdateTripRequest is the body of PUT /api/trips/{id}
type UpdateTripRequest struct {
	Status      models.TripStatus `json:"status"`
	EndOdometer *int64            `json:"endOdometer,omitempty"`
}

// List handles GET /api/trips
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	filter := bson.M{"is_active": true}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	if claims.Role == models.RoleDriver {
		// Drivers only see their own trips
		profile, err := h.drivers.FindActiveDriverByUserID(r.Context(), claims.UserID)
		if err != nil {
			respondError(w, http.StatusNotFound, "Driver profile not found")
			return
		}
		filter["driver_id"] = profile.ID.Hex()
	} else if driverID := r.URL.Query().Get("driverId"); driverID != "" {
		filter["driver_id"] = driverID
	}

	trips, err := h.trips.FindTrips(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if trips == nil {
		trips = []models.Trip{}
	}
	respondJSON(w, http.StatusOK, trips)
}

// Get handles GET /api/trips/{id}
func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	trip, err := h.trips.FindActiveTripByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Trip not found")
		return
	}
	respondJSON(w, http.StatusOK, trip)
}

// Create handles POST /api/trips. A trip starts in Draft or goes straight to
// Dispatched; in the latter case the engine transition runs before the trip
// document is persisted, so a rejected dispatch writes no trip at all.
func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	var req CreateTripRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.VehicleID == "" || req.DriverID == "" {
		respondError(w, http.StatusBadRequest, "Vehicle and driver are required")
		return
	}

	vehicle, err := h.vehicles.FindActiveVehicleByID(r.Context(), req.VehicleID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Vehicle or Driver not found or inactive")
		return
	}
	driver, err := h.drivers.FindActiveDriverByID(r.Context(), req.DriverID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Vehicle or Driver not found or inactive")
		return
	}

	if req.CargoWeight > vehicle.MaxCapacity {
		respondError(w, http.StatusBadRequest, fmt.Sprintf(
			"Cargo weight (%vkg) exceeds vehicle max capacity (%vkg)", req.CargoWeight, vehicle.MaxCapacity))
		return
	}

	if !driver.CertifiedFor(vehicle.Type) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf(
			"Driver %s is not certified to drive %s vehicles", driver.Name, vehicle.Type))
		return
	}

	initialStatus := req.Status
	if initialStatus == "" {
		initialStatus = models.TripDraft
	}
	if initialStatus != models.TripDraft && initialStatus != models.TripDispatched {
		respondError(w, http.StatusBadRequest, "Trips can only be created as Draft or Dispatched")
		return
	}

	var startOdometer *int64
	if initialStatus == models.TripDispatched {
		dispatchedVehicle, _, err := h.engine.Dispatch(r.Context(), req.VehicleID, req.DriverID)
		if err != nil {
			respondEngineError(w, err)
			return
		}
		odo := dispatchedVehicle.Odometer
		startOdometer = &odo
	}

	trip, err := h.trips.InsertTrip(r.Context(), models.Trip{
		VehicleID:     req.VehicleID,
		DriverID:      req.DriverID,
		CargoWeight:   req.CargoWeight,
		Status:        initialStatus,
		StartOdometer: startOdometer,
		Revenue:       req.Revenue,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("tripCreated", trip)
	h.recorder.Log(r.Context(), claims.UserID, models.AuditCreate, "Trip", trip.ID.Hex(), map[string]any{
		"status":    string(initialStatus),
		"vehicleId": req.VehicleID,
		"driverId":  req.DriverID,
	})

	respondJSON(w, http.StatusCreated, trip)
}

// Update handles PUT /api/trips/{id}. Recognized transitions are
// Draft→Dispatched, Dispatched→Completed and *→Cancelled (except from
// Completed). Any other requested transition leaves the status untouched but
// still persists and audits the update.
func (h *TripHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	trip, err := h.trips.FindActiveTripByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Trip not found")
		return
	}

	var req UpdateTripRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	previousStatus := trip.Status

	switch {
	case req.Status == models.TripDispatched && previousStatus == models.TripDraft:
		dispatchedVehicle, _, err := h.engine.Dispatch(r.Context(), trip.VehicleID, trip.DriverID)
		if err != nil {
			respondEngineError(w, err)
			return
		}
		odo := dispatchedVehicle.Odometer
		trip.Status = models.TripDispatched
		trip.StartOdometer = &odo

	case req.Status == models.TripCompleted && previousStatus == models.TripDispatched:
		if req.EndOdometer == nil {
			respondError(w, http.StatusBadRequest, "End odometer reading is required to complete trip")
			return
		}
		startOdometer := int64(0)
		if trip.StartOdometer != nil {
			startOdometer = *trip.StartOdometer
		}
		if *req.EndOdometer < startOdometer {
			respondError(w, http.StatusBadRequest, "End odometer cannot be less than start odometer")
			return
		}

		if _, _, err := h.engine.Complete(r.Context(), trip.VehicleID, trip.DriverID, *req.EndOdometer); err != nil {
			respondEngineError(w, err)
			return
		}

		distance := *req.EndOdometer - startOdometer
		trip.Status = models.TripCompleted
		trip.EndOdometer = req.EndOdometer
		trip.Revenue = models.TripRevenue(distance, trip.CargoWeight)

	case req.Status == models.TripCancelled && previousStatus != models.TripCompleted:
		if previousStatus == models.TripDispatched {
			if err := h.engine.Cancel(r.Context(), trip.VehicleID, trip.DriverID); err != nil {
				respondEngineError(w, err)
				return
			}
		}
		trip.Status = models.TripCancelled

	default:
		// Unrecognized transition: the trip is persisted unchanged
	}

	if err := h.trips.UpdateTrip(r.Context(), trip.ID.Hex(), *trip); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("tripUpdated", trip)
	h.recorder.Log(r.Context(), claims.UserID, models.AuditStatusChange, "Trip", trip.ID.Hex(), map[string]any{
		"from": string(previousStatus),
		"to":   string(trip.Status),
	})

	respondJSON(w, http.StatusOK, trip)
}

// Delete handles DELETE /api/trips/{id}. Trips are soft-deleted; a dispatched
// trip releases its vehicle and driver first.
func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	trip, err := h.trips.FindTripByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Trip not found")
		return
	}

	if trip.Status == models.TripDispatched {
		if err := h.engine.Cancel(r.Context(), trip.VehicleID, trip.DriverID); err != nil {
			respondEngineError(w, err)
			return
		}
	}

	trip.IsActive = false
	trip.Status = models.TripCancelled
	if err := h.trips.UpdateTrip(r.Context(), trip.ID.Hex(), *trip); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("tripDeleted", trip.ID.Hex())
	h.events.Publish("tripUpdated", trip)
	h.recorder.Log(r.Context(), claims.UserID, models.AuditDelete, "Trip", trip.ID.Hex(), map[string]any{
		"note": "Soft deleted",
	})

	respondJSON(w, http.StatusOK, map[string]string{"message": "Trip removed"})
}

// respondEngineError maps an engine failure to an HTTP response: missing
// entities are 404, rejected preconditions are 400.
func respondEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusBadRequest, err.Error())
}
