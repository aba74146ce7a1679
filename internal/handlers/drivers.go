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

// DriverHandler serves driver CRUD. Duty status never changes through these
// endpoints; the engine owns it, and soft deletion suspends the driver here.
type DriverHandler struct {
	drivers  db.DriverCollection
	recorder *audit.Recorder
	events   notify.Publisher
}

// NewDriverHandler creates a new driver handler
func NewDriverHandler(drivers db.DriverCollection, recorder *audit.Recorder, events notify.Publisher) *DriverHandler {
	return &DriverHandler{
		drivers:  drivers,
		recorder: recorder,
		events:   events,
	}
}

// CreateDriverRequest is the body of POST /api/drivers
type CreateDriverRequest struct {
	Name               string    `json:"name"`
	LicenseExpiryDate  time.Time `json:"licenseExpiryDate"`
	AllowedVehicleType []string  `json:"allowedVehicleType,omitempty"`
	UserID             string    `json:"userId,omitempty"`
}

// UpdateDriverRequest is the body of PUT /api/drivers/{id}. Status is
// deliberately absent.
type UpdateDriverRequest struct {
	Name               *string    `json:"name,omitempty"`
	LicenseExpiryDate  *time.Time `json:"licenseExpiryDate,omitempty"`
	AllowedVehicleType *[]string  `json:"allowedVehicleType,omitempty"`
	SafetyScore        *int       `json:"safetyScore,omitempty"`
	CompletionRate     *float64   `json:"completionRate,omitempty"`
	UserID             *string    `json:"userId,omitempty"`
}

// List handles GET /api/drivers
func (h *DriverHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{"is_active": true}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	drivers, err := h.drivers.FindDrivers(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if drivers == nil {
		drivers = []models.Driver{}
	}
	respondJSON(w, http.StatusOK, drivers)
}

// Get handles GET /api/drivers/{id}
func (h *DriverHandler) Get(w http.ResponseWriter, r *http.Request) {
	driver, err := h.drivers.FindActiveDriverByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Driver not found")
		return
	}
	respondJSON(w, http.StatusOK, driver)
}

// Create handles POST /api/drivers. New drivers start Off Duty with a full
// safety score.
func (h *DriverHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	var req CreateDriverRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.LicenseExpiryDate.IsZero() {
		respondError(w, http.StatusBadRequest, "License expiry date is required")
		return
	}

	driver, err := h.drivers.InsertDriver(r.Context(), models.Driver{
		Name:               req.Name,
		LicenseExpiryDate:  req.LicenseExpiryDate,
		AllowedVehicleType: req.AllowedVehicleType,
		SafetyScore:        100,
		CompletionRate:     100,
		Status:             models.DriverOffDuty,
		UserID:             req.UserID,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("driverCreated", driver)
	h.recorder.Log(r.Context(), claims.UserID, models.AuditCreate, "Driver", driver.ID.Hex(), map[string]any{
		"name": req.Name,
	})

	respondJSON(w, http.StatusCreated, driver)
}

// Update handles PUT /api/drivers/{id}
func (h *DriverHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	driver, err := h.drivers.FindActiveDriverByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Driver not found")
		return
	}

	var req UpdateDriverRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != nil {
		driver.Name = *req.Name
	}
	if req.LicenseExpiryDate != nil {
		driver.LicenseExpiryDate = *req.LicenseExpiryDate
	}
	if req.AllowedVehicleType != nil {
		driver.AllowedVehicleType = *req.AllowedVehicleType
	}
	if req.SafetyScore != nil {
		if *req.SafetyScore < 0 || *req.SafetyScore > 100 {
			respondError(w, http.StatusBadRequest, "Safety score must be between 0 and 100")
			return
		}
		driver.SafetyScore = *req.SafetyScore
	}
	if req.CompletionRate != nil {
		driver.CompletionRate = *req.CompletionRate
	}
	if req.UserID != nil {
		driver.UserID = *req.UserID
	}

	if err := h.drivers.UpdateDriver(r.Context(), driver.ID.Hex(), *driver); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("driverUpdated", driver)
	h.recorder.Log(r.Context(), claims.UserID, models.AuditUpdate, "Driver", driver.ID.Hex(), nil)

	respondJSON(w, http.StatusOK, driver)
}

// Delete handles DELETE /api/drivers/{id}. The driver is suspended, not
// removed; a driver currently on duty cannot be deleted.
func (h *DriverHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	driver, err := h.drivers.FindActiveDriverByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Driver not found")
		return
	}

	if driver.Status == models.DriverOnDuty {
		respondError(w, http.StatusBadRequest, "Cannot delete a driver who is currently on duty")
		return
	}

	driver.IsActive = false
	driver.Status = models.DriverSuspended
	if err := h.drivers.UpdateDriver(r.Context(), driver.ID.Hex(), *driver); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.events.Publish("driverDeleted", driver.ID.Hex())
	h.events.Publish("driverUpdated", driver)
	h.recorder.Log(r.Context(), claims.UserID, models.AuditDelete, "Driver", driver.ID.Hex(), map[string]any{
		"note": "Soft deleted",
	})

	respondJSON(w, http.StatusOK, map[string]string{"message": "Driver removed"})
}
