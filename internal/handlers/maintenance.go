package handlers

import (
	"net/http"
	"time"

	"github.com/ukydev/fleetflow/internal/audit"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/models"
	"github.com/ukydev/fleetflow/internal/notify"
	"go.mongodb.org/mongo-driver/bson"
)

// MaintenanceHandler serves maintenance records. Creating one moves the
// vehicle into the shop through the engine before the record is persisted, so
// a rejected transition writes no record.
type MaintenanceHandler struct {
	maintenance db.MaintenanceCollection
	vehicles    db.VehicleCollection
	engine      StatusEngine
	recorder    *audit.Recorder
	events      notify.Publisher
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(maintenance db.MaintenanceCollection, vehicles db.VehicleCollection, engine StatusEngine, recorder *audit.Recorder, events notify.Publisher) *MaintenanceHandler {
	return &MaintenanceHandler{
		maintenance: maintenance,
		vehicles:    vehicles,
		engine:      engine,
		recorder:    recorder,
		events:      events,
	}
}

// CreateMaintenanceRequest is the body of POST /api/maintenance
type CreateMaintenanceRequest struct {
	VehicleID   string    `json:"vehicleId"`
	ServiceType string    `json:"serviceType"`
	Cost        float64   `json:"cost"`
	Notes       string    `json:"notes,omitempty"`
	Date        time.Time `json:"date,omitempty"`
}

// UpdateMaintenanceRequest is the body of PUT /api/maintenance/{id}
type UpdateMaintenanceRequest struct {
	ServiceType *string    `json:"serviceType,omitempty"`
	Cost        *float64   `json:"cost,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// List handles GET /api/maintenance
func (h *MaintenanceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if vehicleID := r.URL.Query().Get("vehicleId"); vehicleID != "" {
		filter["vehicle_id"] = vehicleID
	}

	records, err := h.maintenance.FindMaintenance(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []models.Maintenance{}
	}
	respondJSON(w, http.StatusOK, records)
}

// Create handles POST /api/maintenance
func (h *MaintenanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	var req CreateMaintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.VehicleID == "" || req.ServiceType == "" {
		respondError(w, http.StatusBadRequest, "Vehicle and service type are required")
		return
	}
	if req.Cost < 0 {
		respondError(w, http.StatusBadRequest, "Cost cannot be negative")
		return
	}

	if _, err := h.vehicles.FindActiveVehicleByID(r.Context(), req.VehicleID); err != nil {
		respondError(w, http.StatusNotFound, "Vehicle not found")
		return
	}

	// The status transition happens first: an On Trip vehicle rejects the
	// whole request and no record is written.
	if _, err := h.engine.LogMaintenance(r.Context(), req.VehicleID); err != nil {
		respondEngineError(w, err)
		return
	}

	record, err := h.maintenance.InsertMaintenance(r.Context(), models.Maintenance{
		VehicleID:   req.VehicleID,
		ServiceType: req.ServiceType,
		Cost:        req.Cost,
		Notes:       req.Notes,
		Date:        req.Date,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("maintenanceCreated", record)
	h.recorder.Log(r.Context(), claims.UserID, models.AuditCreate, "Maintenance", record.ID.Hex(), map[string]any{
		"vehicleId":   req.VehicleID,
		"serviceType": req.ServiceType,
	})

	respondJSON(w, http.StatusCreated, record)
}

// Update handles PUT /api/maintenance/{id}. Edits touch the record only; the
// vehicle status does not change again.
func (h *MaintenanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	record, err := h.maintenance.FindMaintenanceByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Maintenance record not found")
		return
	}

	var req UpdateMaintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ServiceType != nil {
		record.ServiceType = *req.ServiceType
	}
	if req.Cost != nil {
		if *req.Cost < 0 {
			respondError(w, http.StatusBadRequest, "Cost cannot be negative")
			return
		}
		record.Cost = *req.Cost
	}
	if req.Notes != nil {
		record.Notes = *req.Notes
	}
	if req.Date != nil {
		record.Date = *req.Date
	}

	if err := h.maintenance.UpdateMaintenance(r.Context(), record.ID.Hex(), *record); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.recorder.Log(r.Context(), claims.UserID, models.AuditUpdate, "Maintenance", record.ID.Hex(), nil)

	respondJSON(w, http.StatusOK, record)
}

// Delete handles DELETE /api/maintenance/{id}. Records are hard-deleted; the
// vehicle stays In Shop until its next transition.
func (h *MaintenanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	id := r.PathValue("id")
	if err := h.maintenance.DeleteMaintenance(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "Maintenance record not found")
		return
	}

	h.recorder.Log(r.Context(), claims.UserID, models.AuditDelete, "Maintenance", id, nil)

	respondJSON(w, http.StatusOK, map[string]string{"message": "Maintenance record removed"})
}
