package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/fleetflow/internal/models"
)

func TestCreateTrip_Draft(t *testing.T) {
	vehicle := testVehicle(500)
	driver := testDriver()
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())

	body := fmt.Sprintf(`{"vehicleId":%q,"driverId":%q,"cargoWeight":200}`, vehicle.ID.Hex(), driver.ID.Hex())
	rec := doRequest(t, fx.handler.Create, http.MethodPost, "/api/trips", body, dispatcherClaims(), nil)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var trip models.Trip
	decodeBody(t, rec, &trip)
	assert.Equal(t, models.TripDraft, trip.Status)
	assert.Nil(t, trip.StartOdometer)
	assert.Equal(t, 0, fx.engine.dispatches, "a draft trip must not touch vehicle or driver state")

	stored := fx.vehicles.byID[vehicle.ID.Hex()]
	assert.Equal(t, models.VehicleAvailable, stored.Status)
	assert.Equal(t, 1, fx.events.count("tripCreated"))
}

func TestCreateTrip_DispatchedCapturesStartOdometer(t *testing.T) {
	vehicle := testVehicle(500)
	driver := testDriver()
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())

	body := fmt.Sprintf(`{"vehicleId":%q,"driverId":%q,"cargoWeight":200,"status":"Dispatched"}`, vehicle.ID.Hex(), driver.ID.Hex())
	rec := doRequest(t, fx.handler.Create, http.MethodPost, "/api/trips", body, dispatcherClaims(), nil)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var trip models.Trip
	decodeBody(t, rec, &trip)
	assert.Equal(t, models.TripDispatched, trip.Status)
	if assert.NotNil(t, trip.StartOdometer) {
		assert.Equal(t, int64(500), *trip.StartOdometer)
	}

	assert.Equal(t, models.VehicleOnTrip, fx.vehicles.byID[vehicle.ID.Hex()].Status)
	assert.Equal(t, models.DriverOnDuty, fx.drivers.byID[driver.ID.Hex()].Status)
}

func TestCreateTrip_CapacityExceededWritesNothing(t *testing.T) {
	vehicle := testVehicle(500) // max capacity 1000
	driver := testDriver()
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())

	body := fmt.Sprintf(`{"vehicleId":%q,"driverId":%q,"cargoWeight":1500,"status":"Dispatched"}`, vehicle.ID.Hex(), driver.ID.Hex())
	rec := doRequest(t, fx.handler.Create, http.MethodPost, "/api/trips", body, dispatcherClaims(), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds vehicle max capacity")
	assert.Empty(t, fx.trips.byID, "no trip may be persisted when capacity is exceeded")
	assert.Equal(t, 0, fx.engine.dispatches)
	assert.Equal(t, models.VehicleAvailable, fx.vehicles.byID[vehicle.ID.Hex()].Status)
}

func TestCreateTrip_UncertifiedDriver(t *testing.T) {
	vehicle := testVehicle(500) // Van
	driver := testDriver()
	driver.AllowedVehicleType = []string{"Truck"}
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())

	body := fmt.Sprintf(`{"vehicleId":%q,"driverId":%q,"cargoWeight":100}`, vehicle.ID.Hex(), driver.ID.Hex())
	rec := doRequest(t, fx.handler.Create, http.MethodPost, "/api/trips", body, dispatcherClaims(), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not certified")
	assert.Empty(t, fx.trips.byID)
}

func TestCreateTrip_UnknownVehicle(t *testing.T) {
	driver := testDriver()
	fx := newTripFixture(newFakeVehicles(), newFakeDrivers(driver), newFakeTrips())

	body := fmt.Sprintf(`{"vehicleId":"65b2f0000000000000000000","driverId":%q,"cargoWeight":100}`, driver.ID.Hex())
	rec := doRequest(t, fx.handler.Create, http.MethodPost, "/api/trips", body, dispatcherClaims(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, fx.trips.byID)
}

func TestUpdateTrip_DispatchThenComplete(t *testing.T) {
	vehicle := testVehicle(500)
	driver := testDriver()
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())

	// Create the draft through the handler so the fixture matches real flow.
	body := fmt.Sprintf(`{"vehicleId":%q,"driverId":%q,"cargoWeight":300}`, vehicle.ID.Hex(), driver.ID.Hex())
	rec := doRequest(t, fx.handler.Create, http.MethodPost, "/api/trips", body, dispatcherClaims(), nil)
	var trip models.Trip
	decodeBody(t, rec, &trip)
	tripID := trip.ID.Hex()

	// Draft -> Dispatched
	rec = doRequest(t, fx.handler.Update, http.MethodPut, "/api/trips/"+tripID,
		`{"status":"Dispatched"}`, dispatcherClaims(), map[string]string{"id": tripID})
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &trip)
	if assert.NotNil(t, trip.StartOdometer) {
		assert.Equal(t, int64(500), *trip.StartOdometer)
	}
	assert.Equal(t, models.VehicleOnTrip, fx.vehicles.byID[vehicle.ID.Hex()].Status)

	// Dispatched -> Completed at 600km: 100km * 2.50 + 300kg * 0.50 = 400.00
	rec = doRequest(t, fx.handler.Update, http.MethodPut, "/api/trips/"+tripID,
		`{"status":"Completed","endOdometer":600}`, dispatcherClaims(), map[string]string{"id": tripID})
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &trip)
	assert.Equal(t, models.TripCompleted, trip.Status)
	assert.Equal(t, 400.00, trip.Revenue)

	assert.Equal(t, int64(600), fx.vehicles.byID[vehicle.ID.Hex()].Odometer)
	assert.Equal(t, models.VehicleAvailable, fx.vehicles.byID[vehicle.ID.Hex()].Status)
	assert.Equal(t, models.DriverOffDuty, fx.drivers.byID[driver.ID.Hex()].Status)
}

func TestUpdateTrip_CompleteRequiresEndOdometer(t *testing.T) {
	vehicle := testVehicle(500)
	driver := testDriver()
	start := int64(500)
	trip := &models.Trip{
		VehicleID: vehicle.ID.Hex(), DriverID: driver.ID.Hex(),
		Status: models.TripDispatched, StartOdometer: &start, CargoWeight: 100, IsActive: true,
	}
	vehicle.Status = models.VehicleOnTrip
	driver.Status = models.DriverOnDuty
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())
	inserted, _ := fx.trips.InsertTrip(t.Context(), *trip)
	tripID := inserted.ID.Hex()

	rec := doRequest(t, fx.handler.Update, http.MethodPut, "/api/trips/"+tripID,
		`{"status":"Completed"}`, dispatcherClaims(), map[string]string{"id": tripID})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "End odometer reading is required")
	assert.Equal(t, 0, fx.engine.completions)
	assert.Equal(t, models.TripDispatched, fx.trips.byID[tripID].Status)
}

func TestUpdateTrip_EndOdometerBehindStart(t *testing.T) {
	vehicle := testVehicle(500)
	driver := testDriver()
	start := int64(500)
	vehicle.Status = models.VehicleOnTrip
	driver.Status = models.DriverOnDuty
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())
	inserted, _ := fx.trips.InsertTrip(t.Context(), models.Trip{
		VehicleID: vehicle.ID.Hex(), DriverID: driver.ID.Hex(),
		Status: models.TripDispatched, StartOdometer: &start, CargoWeight: 100, IsActive: true,
	})
	tripID := inserted.ID.Hex()

	rec := doRequest(t, fx.handler.Update, http.MethodPut, "/api/trips/"+tripID,
		`{"status":"Completed","endOdometer":400}`, dispatcherClaims(), map[string]string{"id": tripID})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be less than start odometer")
	assert.Equal(t, int64(500), fx.vehicles.byID[vehicle.ID.Hex()].Odometer)
}

func TestUpdateTrip_CancelDispatchedReleasesPair(t *testing.T) {
	vehicle := testVehicle(500)
	driver := testDriver()
	start := int64(500)
	vehicle.Status = models.VehicleOnTrip
	driver.Status = models.DriverOnDuty
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())
	inserted, _ := fx.trips.InsertTrip(t.Context(), models.Trip{
		VehicleID: vehicle.ID.Hex(), DriverID: driver.ID.Hex(),
		Status: models.TripDispatched, StartOdometer: &start, CargoWeight: 100, IsActive: true,
	})
	tripID := inserted.ID.Hex()

	rec := doRequest(t, fx.handler.Update, http.MethodPut, "/api/trips/"+tripID,
		`{"status":"Cancelled"}`, dispatcherClaims(), map[string]string{"id": tripID})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fx.engine.cancels)
	assert.Equal(t, models.VehicleAvailable, fx.vehicles.byID[vehicle.ID.Hex()].Status)
	assert.Equal(t, int64(500), fx.vehicles.byID[vehicle.ID.Hex()].Odometer, "cancellation must not advance the odometer")
	assert.Equal(t, models.DriverOffDuty, fx.drivers.byID[driver.ID.Hex()].Status)
	assert.Equal(t, models.TripCancelled, fx.trips.byID[tripID].Status)
}

func TestUpdateTrip_CancelDraftSkipsEngine(t *testing.T) {
	vehicle := testVehicle(500)
	driver := testDriver()
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())
	inserted, _ := fx.trips.InsertTrip(t.Context(), models.Trip{
		VehicleID: vehicle.ID.Hex(), DriverID: driver.ID.Hex(),
		Status: models.TripDraft, CargoWeight: 100, IsActive: true,
	})
	tripID := inserted.ID.Hex()

	rec := doRequest(t, fx.handler.Update, http.MethodPut, "/api/trips/"+tripID,
		`{"status":"Cancelled"}`, dispatcherClaims(), map[string]string{"id": tripID})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, fx.engine.cancels)
	assert.Equal(t, models.TripCancelled, fx.trips.byID[tripID].Status)
}

func TestUpdateTrip_UnrecognizedTransitionIsNoOp(t *testing.T) {
	vehicle := testVehicle(500)
	driver := testDriver()
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())
	inserted, _ := fx.trips.InsertTrip(t.Context(), models.Trip{
		VehicleID: vehicle.ID.Hex(), DriverID: driver.ID.Hex(),
		Status: models.TripDraft, CargoWeight: 100, IsActive: true,
	})
	tripID := inserted.ID.Hex()

	// Draft -> Completed is not a recognized transition; the request still
	// succeeds and the status stays Draft.
	rec := doRequest(t, fx.handler.Update, http.MethodPut, "/api/trips/"+tripID,
		`{"status":"Completed","endOdometer":600}`, dispatcherClaims(), map[string]string{"id": tripID})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TripDraft, fx.trips.byID[tripID].Status)
	assert.Equal(t, 0, fx.engine.completions)
	assert.Equal(t, 1, fx.events.count("tripUpdated"))
	assert.Len(t, fx.auditLog.entries, 1, "no-op transitions are still audited")
}

func TestUpdateTrip_DispatchFailureLeavesDraft(t *testing.T) {
	vehicle := testVehicle(500)
	vehicle.Status = models.VehicleInShop
	driver := testDriver()
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())
	inserted, _ := fx.trips.InsertTrip(t.Context(), models.Trip{
		VehicleID: vehicle.ID.Hex(), DriverID: driver.ID.Hex(),
		Status: models.TripDraft, CargoWeight: 100, IsActive: true,
	})
	tripID := inserted.ID.Hex()

	rec := doRequest(t, fx.handler.Update, http.MethodPut, "/api/trips/"+tripID,
		`{"status":"Dispatched"}`, dispatcherClaims(), map[string]string{"id": tripID})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not currently available")
	assert.Equal(t, models.TripDraft, fx.trips.byID[tripID].Status)
	assert.Equal(t, models.DriverOffDuty, fx.drivers.byID[driver.ID.Hex()].Status)
}

func TestDeleteTrip_DispatchedCancelsExactlyOnce(t *testing.T) {
	vehicle := testVehicle(500)
	driver := testDriver()
	start := int64(500)
	vehicle.Status = models.VehicleOnTrip
	driver.Status = models.DriverOnDuty
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())
	inserted, _ := fx.trips.InsertTrip(t.Context(), models.Trip{
		VehicleID: vehicle.ID.Hex(), DriverID: driver.ID.Hex(),
		Status: models.TripDispatched, StartOdometer: &start, CargoWeight: 100, IsActive: true,
	})
	tripID := inserted.ID.Hex()

	rec := doRequest(t, fx.handler.Delete, http.MethodDelete, "/api/trips/"+tripID,
		"", dispatcherClaims(), map[string]string{"id": tripID})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fx.engine.cancels)
	assert.Equal(t, models.VehicleAvailable, fx.vehicles.byID[vehicle.ID.Hex()].Status)
	assert.Equal(t, models.DriverOffDuty, fx.drivers.byID[driver.ID.Hex()].Status)

	stored := fx.trips.byID[tripID]
	assert.False(t, stored.IsActive)
	assert.Equal(t, models.TripCancelled, stored.Status)
	assert.Equal(t, 1, fx.events.count("tripDeleted"))
}

func TestDeleteTrip_DraftSkipsEngine(t *testing.T) {
	vehicle := testVehicle(500)
	driver := testDriver()
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())
	inserted, _ := fx.trips.InsertTrip(t.Context(), models.Trip{
		VehicleID: vehicle.ID.Hex(), DriverID: driver.ID.Hex(),
		Status: models.TripDraft, CargoWeight: 100, IsActive: true,
	})
	tripID := inserted.ID.Hex()

	rec := doRequest(t, fx.handler.Delete, http.MethodDelete, "/api/trips/"+tripID,
		"", dispatcherClaims(), map[string]string{"id": tripID})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, fx.engine.cancels)
	assert.False(t, fx.trips.byID[tripID].IsActive)
}

func TestListTrips_DriverScopedToOwnTrips(t *testing.T) {
	vehicle := testVehicle(500)
	own := testDriver()
	own.UserID = "user-driver"
	other := testDriver()
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(own, other), newFakeTrips())

	fx.trips.InsertTrip(t.Context(), models.Trip{
		VehicleID: vehicle.ID.Hex(), DriverID: own.ID.Hex(), Status: models.TripDraft, IsActive: true,
	})
	fx.trips.InsertTrip(t.Context(), models.Trip{
		VehicleID: vehicle.ID.Hex(), DriverID: other.ID.Hex(), Status: models.TripDraft, IsActive: true,
	})

	claims := &models.Claims{UserID: "user-driver", Name: "Dana", Role: models.RoleDriver}
	rec := doRequest(t, fx.handler.List, http.MethodGet, "/api/trips", "", claims, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var trips []models.Trip
	decodeBody(t, rec, &trips)
	if assert.Len(t, trips, 1) {
		assert.Equal(t, own.ID.Hex(), trips[0].DriverID)
	}
}

func TestGetTrip_SoftDeletedHidden(t *testing.T) {
	vehicle := testVehicle(500)
	driver := testDriver()
	fx := newTripFixture(newFakeVehicles(vehicle), newFakeDrivers(driver), newFakeTrips())
	inserted, _ := fx.trips.InsertTrip(t.Context(), models.Trip{
		VehicleID: vehicle.ID.Hex(), DriverID: driver.ID.Hex(), Status: models.TripDraft, IsActive: true,
	})
	tripID := inserted.ID.Hex()
	fx.trips.byID[tripID].IsActive = false

	rec := doRequest(t, fx.handler.Get, http.MethodGet, "/api/trips/"+tripID,
		"", dispatcherClaims(), map[string]string{"id": tripID})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
