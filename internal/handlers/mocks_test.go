package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/audit"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/engine"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, db.ErrNotFound)
}

// fakeVehicles is an in-memory VehicleCollection.
type fakeVehicles struct {
	byID map[string]*models.Vehicle
}

func newFakeVehicles(vehicles ...*models.Vehicle) *fakeVehicles {
	f := &fakeVehicles{byID: make(map[string]*models.Vehicle)}
	for _, v := range vehicles {
		f.byID[v.ID.Hex()] = v
	}
	return f
}

func (f *fakeVehicles) InsertVehicle(ctx context.Context, vehicle models.Vehicle) (*models.Vehicle, error) {
	vehicle.ID = primitive.NewObjectID()
	vehicle.IsActive = true
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = time.Now()
	f.byID[vehicle.ID.Hex()] = &vehicle
	return &vehicle, nil
}

func (f *fakeVehicles) FindVehicles(ctx context.Context, filter bson.M) ([]models.Vehicle, error) {
	var out []models.Vehicle
	for _, v := range f.byID {
		if active, ok := filter["is_active"].(bool); ok && v.IsActive != active {
			continue
		}
		if status, ok := filter["status"].(string); ok && string(v.Status) != status {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

func (f *fakeVehicles) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	v, ok := f.byID[id]
	if !ok {
		return nil, notFound("vehicle", id)
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVehicles) FindActiveVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	v, ok := f.byID[id]
	if !ok || !v.IsActive {
		return nil, notFound("vehicle", id)
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVehicles) FindActiveVehicleByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	for _, v := range f.byID {
		if v.IsActive && v.LicensePlate == plate {
			copied := *v
			return &copied, nil
		}
	}
	return nil, notFound("vehicle", plate)
}

func (f *fakeVehicles) UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error {
	if _, ok := f.byID[id]; !ok {
		return notFound("vehicle", id)
	}
	f.byID[id] = &vehicle
	return nil
}

// fakeDrivers is an in-memory DriverCollection including the atomic
// safety-score semantics: penalties floor at zero, restores do not.
type fakeDrivers struct {
	byID map[string]*models.Driver
}

func newFakeDrivers(drivers ...*models.Driver) *fakeDrivers {
	f := &fakeDrivers{byID: make(map[string]*models.Driver)}
	for _, d := range drivers {
		f.byID[d.ID.Hex()] = d
	}
	return f
}

func (f *fakeDrivers) InsertDriver(ctx context.Context, driver models.Driver) (*models.Driver, error) {
	driver.ID = primitive.NewObjectID()
	driver.IsActive = true
	driver.CreatedAt = time.Now()
	driver.UpdatedAt = time.Now()
	f.byID[driver.ID.Hex()] = &driver
	return &driver, nil
}

func (f *fakeDrivers) FindDrivers(ctx context.Context, filter bson.M) ([]models.Driver, error) {
	var out []models.Driver
	for _, d := range f.byID {
		if active, ok := filter["is_active"].(bool); ok && d.IsActive != active {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeDrivers) FindDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, notFound("driver", id)
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDrivers) FindActiveDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	d, ok := f.byID[id]
	if !ok || !d.IsActive {
		return nil, notFound("driver", id)
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDrivers) FindActiveDriverByUserID(ctx context.Context, userID string) (*models.Driver, error) {
	for _, d := range f.byID {
		if d.IsActive && d.UserID == userID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, notFound("driver", userID)
}

func (f *fakeDrivers) UpdateDriver(ctx context.Context, id string, driver models.Driver) error {
	if _, ok := f.byID[id]; !ok {
		return notFound("driver", id)
	}
	f.byID[id] = &driver
	return nil
}

func (f *fakeDrivers) ApplySafetyPenalty(ctx context.Context, id string, penalty int) error {
	d, ok := f.byID[id]
	if !ok {
		return notFound("driver", id)
	}
	d.SafetyScore -= penalty
	if d.SafetyScore < 0 {
		d.SafetyScore = 0
	}
	return nil
}

func (f *fakeDrivers) RestoreSafetyScore(ctx context.Context, id string, penalty int) error {
	d, ok := f.byID[id]
	if !ok {
		return notFound("driver", id)
	}
	d.SafetyScore += penalty
	return nil
}

// fakeTrips is an in-memory TripCollection.
type fakeTrips struct {
	byID map[string]*models.Trip
}

func newFakeTrips(trips ...*models.Trip) *fakeTrips {
	f := &fakeTrips{byID: make(map[string]*models.Trip)}
	for _, tr := range trips {
		f.byID[tr.ID.Hex()] = tr
	}
	return f
}

func (f *fakeTrips) InsertTrip(ctx context.Context, trip models.Trip) (*models.Trip, error) {
	trip.ID = primitive.NewObjectID()
	trip.IsActive = true
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = time.Now()
	f.byID[trip.ID.Hex()] = &trip
	return &trip, nil
}

func (f *fakeTrips) FindTrips(ctx context.Context, filter bson.M) ([]models.Trip, error) {
	var out []models.Trip
	for _, tr := range f.byID {
		if active, ok := filter["is_active"].(bool); ok && tr.IsActive != active {
			continue
		}
		if status, ok := filter["status"].(string); ok && string(tr.Status) != status {
			continue
		}
		if driverID, ok := filter["driver_id"].(string); ok && tr.DriverID != driverID {
			continue
		}
		out = append(out, *tr)
	}
	return out, nil
}

func (f *fakeTrips) FindTripByID(ctx context.Context, id string) (*models.Trip, error) {
	tr, ok := f.byID[id]
	if !ok {
		return nil, notFound("trip", id)
	}
	copied := *tr
	return &copied, nil
}

func (f *fakeTrips) FindActiveTripByID(ctx context.Context, id string) (*models.Trip, error) {
	tr, ok := f.byID[id]
	if !ok || !tr.IsActive {
		return nil, notFound("trip", id)
	}
	copied := *tr
	return &copied, nil
}

func (f *fakeTrips) UpdateTrip(ctx context.Context, id string, trip models.Trip) error {
	if _, ok := f.byID[id]; !ok {
		return notFound("trip", id)
	}
	f.byID[id] = &trip
	return nil
}

// fakeMaintenance is an in-memory MaintenanceCollection.
type fakeMaintenance struct {
	byID map[string]*models.Maintenance
}

func newFakeMaintenance() *fakeMaintenance {
	return &fakeMaintenance{byID: make(map[string]*models.Maintenance)}
}

func (f *fakeMaintenance) InsertMaintenance(ctx context.Context, m models.Maintenance) (*models.Maintenance, error) {
	m.ID = primitive.NewObjectID()
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()
	f.byID[m.ID.Hex()] = &m
	return &m, nil
}

func (f *fakeMaintenance) FindMaintenance(ctx context.Context, filter bson.M) ([]models.Maintenance, error) {
	var out []models.Maintenance
	for _, m := range f.byID {
		if vehicleID, ok := filter["vehicle_id"].(string); ok && m.VehicleID != vehicleID {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeMaintenance) FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, notFound("maintenance", id)
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMaintenance) UpdateMaintenance(ctx context.Context, id string, m models.Maintenance) error {
	if _, ok := f.byID[id]; !ok {
		return notFound("maintenance", id)
	}
	f.byID[id] = &m
	return nil
}

func (f *fakeMaintenance) DeleteMaintenance(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return notFound("maintenance", id)
	}
	delete(f.byID, id)
	return nil
}

// fakeIncidents is an in-memory IncidentCollection.
type fakeIncidents struct {
	byID map[string]*models.Incident
}

func newFakeIncidents() *fakeIncidents {
	return &fakeIncidents{byID: make(map[string]*models.Incident)}
}

func (f *fakeIncidents) InsertIncident(ctx context.Context, incident models.Incident) (*models.Incident, error) {
	incident.ID = primitive.NewObjectID()
	incident.CreatedAt = time.Now()
	incident.UpdatedAt = time.Now()
	f.byID[incident.ID.Hex()] = &incident
	return &incident, nil
}

func (f *fakeIncidents) FindIncidents(ctx context.Context, filter bson.M) ([]models.Incident, error) {
	var out []models.Incident
	for _, i := range f.byID {
		if driverID, ok := filter["driver_id"].(string); ok && i.DriverID != driverID {
			continue
		}
		out = append(out, *i)
	}
	return out, nil
}

func (f *fakeIncidents) FindIncidentByID(ctx context.Context, id string) (*models.Incident, error) {
	i, ok := f.byID[id]
	if !ok {
		return nil, notFound("incident", id)
	}
	copied := *i
	return &copied, nil
}

func (f *fakeIncidents) DeleteIncident(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return notFound("incident", id)
	}
	delete(f.byID, id)
	return nil
}

// capturingPublisher records the event names it is asked to publish.
type capturingPublisher struct {
	events []string
}

func (p *capturingPublisher) Publish(event string, payload any) {
	p.events = append(p.events, event)
}

func (p *capturingPublisher) count(event string) int {
	n := 0
	for _, e := range p.events {
		if e == event {
			n++
		}
	}
	return n
}

// spyEngine wraps a real engine and counts calls to each transition.
type spyEngine struct {
	inner        StatusEngine
	dispatches   int
	completions  int
	cancels      int
	maintenances int
}

func (s *spyEngine) Dispatch(ctx context.Context, vehicleID, driverID string) (*models.Vehicle, *models.Driver, error) {
	s.dispatches++
	return s.inner.Dispatch(ctx, vehicleID, driverID)
}

func (s *spyEngine) Complete(ctx context.Context, vehicleID, driverID string, endOdometer int64) (*models.Vehicle, *models.Driver, error) {
	s.completions++
	return s.inner.Complete(ctx, vehicleID, driverID, endOdometer)
}

func (s *spyEngine) Cancel(ctx context.Context, vehicleID, driverID string) error {
	s.cancels++
	return s.inner.Cancel(ctx, vehicleID, driverID)
}

func (s *spyEngine) LogMaintenance(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	s.maintenances++
	return s.inner.LogMaintenance(ctx, vehicleID)
}

// capturingAuditCollection records audit entries.
type capturingAuditCollection struct {
	entries []models.AuditLog
}

func (c *capturingAuditCollection) InsertAuditLog(ctx context.Context, entry models.AuditLog) error {
	c.entries = append(c.entries, entry)
	return nil
}

func newTestRecorder() (*audit.Recorder, *capturingAuditCollection) {
	coll := &capturingAuditCollection{}
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return audit.NewRecorder(coll, logger), coll
}

// tripFixture bundles everything a trip handler test needs.
type tripFixture struct {
	vehicles *fakeVehicles
	drivers  *fakeDrivers
	trips    *fakeTrips
	engine   *spyEngine
	events   *capturingPublisher
	auditLog *capturingAuditCollection
	handler  *TripHandler
}

func newTripFixture(vehicles *fakeVehicles, drivers *fakeDrivers, trips *fakeTrips) *tripFixture {
	events := &capturingPublisher{}
	spy := &spyEngine{inner: engine.New(vehicles, drivers, events)}
	recorder, auditColl := newTestRecorder()
	return &tripFixture{
		vehicles: vehicles,
		drivers:  drivers,
		trips:    trips,
		engine:   spy,
		events:   events,
		auditLog: auditColl,
		handler:  NewTripHandler(trips, vehicles, drivers, spy, recorder, events),
	}
}

func testVehicle(odometer int64) *models.Vehicle {
	return &models.Vehicle{
		ID:           primitive.NewObjectID(),
		Model:        "Sprinter",
		LicensePlate: "FL-1234",
		MaxCapacity:  1000,
		Odometer:     odometer,
		Type:         "Van",
		Region:       "North",
		Status:       models.VehicleAvailable,
		IsActive:     true,
	}
}

func testDriver() *models.Driver {
	return &models.Driver{
		ID:                primitive.NewObjectID(),
		Name:              "Dana",
		LicenseExpiryDate: time.Now().Add(365 * 24 * time.Hour),
		SafetyScore:       100,
		CompletionRate:    100,
		Status:            models.DriverOffDuty,
		IsActive:          true,
	}
}

func dispatcherClaims() *models.Claims {
	return &models.Claims{UserID: "user-1", Name: "Dispatcher", Role: models.RoleDispatcher}
}

// doRequest runs a handler with claims injected and path values set.
func doRequest(t *testing.T, handler http.HandlerFunc, method, target string, body string, claims *models.Claims, pathValues map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if claims != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, claims))
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}
