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

// IncidentHandler serves incident reports. Reporting an incident docks the
// driver's safety score by the severity's nominal penalty; deleting the
// report restores exactly that nominal amount, even when the score floored
// at zero in between.
type IncidentHandler struct {
	incidents db.IncidentCollection
	drivers   db.DriverCollection
	recorder  *audit.Recorder
	events    notify.Publisher
}

// NewIncidentHandler creates a new incident handler
func NewIncidentHandler(incidents db.IncidentCollection, drivers db.DriverCollection, recorder *audit.Recorder, events notify.Publisher) *IncidentHandler {
	return &IncidentHandler{
		incidents: incidents,
		drivers:   drivers,
		recorder:  recorder,
		events:    events,
	}
}

// CreateIncidentRequest is the body of POST /api/incidents
type CreateIncidentRequest struct {
	DriverID    string          `json:"driverId"`
	VehicleID   string          `json:"vehicleId,omitempty"`
	Type        string          `json:"type"`
	Severity    models.Severity `json:"severity"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date,omitempty"`
}

// List handles GET /api/incidents
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if driverID := r.URL.Query().Get("driverId"); driverID != "" {
		filter["driver_id"] = driverID
	}

	incidents, err := h.incidents.FindIncidents(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if incidents == nil {
		incidents = []models.Incident{}
	}
	respondJSON(w, http.StatusOK, incidents)
}

// Create handles POST /api/incidents. The penalty write uses an atomic
// floored decrement, so concurrent reports cannot lose updates or push the
// score below zero.
func (h *IncidentHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	var req CreateIncidentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.DriverID == "" || req.Type == "" || req.Severity == "" {
		respondError(w, http.StatusBadRequest, "Driver, type and severity are required")
		return
	}

	if _, err := h.drivers.FindDriverByID(r.Context(), req.DriverID); err != nil {
		respondError(w, http.StatusNotFound, "Driver not found")
		return
	}

	penalty := models.PenaltyFor(req.Severity)
	if err := h.drivers.ApplySafetyPenalty(r.Context(), req.DriverID, penalty); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	incident, err := h.incidents.InsertIncident(r.Context(), models.Incident{
		DriverID:       req.DriverID,
		VehicleID:      req.VehicleID,
		Type:           req.Type,
		Severity:       req.Severity,
		Description:    req.Description,
		PenaltyApplied: penalty,
		ReportedBy:     claims.UserID,
		Date:           req.Date,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("incidentCreated", incident)
	if driver, err := h.drivers.FindDriverByID(r.Context(), req.DriverID); err == nil {
		h.events.Publish("driverUpdated", driver)
	}
	h.recorder.Log(r.Context(), claims.UserID, models.AuditCreate, "Incident", incident.ID.Hex(), map[string]any{
		"driverId": req.DriverID,
		"severity": string(req.Severity),
		"penalty":  penalty,
	})

	respondJSON(w, http.StatusCreated, incident)
}

// Delete handles DELETE /api/incidents/{id}. The nominal penalty recorded on
// the incident is added back to the driver's score.
func (h *IncidentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	incident, err := h.incidents.FindIncidentByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Incident not found")
		return
	}

	if err := h.drivers.RestoreSafetyScore(r.Context(), incident.DriverID, incident.PenaltyApplied); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.incidents.DeleteIncident(r.Context(), incident.ID.Hex()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if driver, err := h.drivers.FindDriverByID(r.Context(), incident.DriverID); err == nil {
		h.events.Publish("driverUpdated", driver)
	}
	h.recorder.Log(r.Context(), claims.UserID, models.AuditDelete, "Incident", incident.ID.Hex(), map[string]any{
		"driverId": incident.DriverID,
		"restored": incident.PenaltyApplied,
	})

	respondJSON(w, http.StatusOK, map[string]string{"message": "Incident removed and penalty reversed"})
}
