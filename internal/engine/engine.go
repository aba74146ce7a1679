// Package engine is the single chokepoint through which vehicle and driver
// statuses change as a side effect of trip and maintenance events. Callers
// must invoke it before committing their own entity writes so that a rejected
// precondition leaves no partial state behind.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
	"github.com/ukydev/fleetflow/internal/notify"
)

var (
	ErrVehicleNotAvailable = errors.New("vehicle is not currently available for dispatch")
	ErrLicenseExpired      = errors.New("driver license is expired")
	ErrDriverUnavailable   = errors.New("driver cannot be assigned")
	ErrVehicleOnTrip       = errors.New("cannot log maintenance for a vehicle currently on trip")
)

// Engine performs vehicle/driver status transitions. Each operation validates
// all preconditions before writing anything. The vehicle and driver writes are
// two independent document updates with no cross-document transaction; a crash
// between them can leave an inconsistent pair.
type Engine struct {
	vehicles db.VehicleCollection
	drivers  db.DriverCollection
	events   notify.Publisher
}

// New creates a status transition engine
func New(vehicles db.VehicleCollection, drivers db.DriverCollection, events notify.Publisher) *Engine {
	return &Engine{
		vehicles: vehicles,
		drivers:  drivers,
		events:   events,
	}
}

// Dispatch assigns a vehicle and driver to a trip. The vehicle must be
// Available, the driver Off Duty with an unexpired license. On success the
// vehicle is On Trip and the driver On Duty.
//
// Capacity and certification checks are the caller's responsibility; they are
// trip-specific, not vehicle/driver-state-specific.
func (e *Engine) Dispatch(ctx context.Context, vehicleID, driverID string) (*models.Vehicle, *models.Driver, error) {
	vehicle, err := e.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, nil, err
	}
	driver, err := e.drivers.FindDriverByID(ctx, driverID)
	if err != nil {
		return nil, nil, err
	}

	if vehicle.Status != models.VehicleAvailable {
		return nil, nil, ErrVehicleNotAvailable
	}
	if !driver.LicenseValid(time.Now()) {
		return nil, nil, ErrLicenseExpired
	}
	if driver.Status != models.DriverOffDuty {
		return nil, nil, fmt.Errorf("%w: driver is currently %s", ErrDriverUnavailable, driver.Status)
	}

	vehicle.Status = models.VehicleOnTrip
	if err := e.vehicles.UpdateVehicle(ctx, vehicleID, *vehicle); err != nil {
		return nil, nil, err
	}

	driver.Status = models.DriverOnDuty
	if err := e.drivers.UpdateDriver(ctx, driverID, *driver); err != nil {
		return nil, nil, err
	}

	e.events.Publish("vehicleUpdated", vehicle)
	e.events.Publish("driverUpdated", driver)

	return vehicle, driver, nil
}

// Complete releases a vehicle and driver after a trip ends and advances the
// vehicle odometer to endOdometer. The caller must guarantee that endOdometer
// is not behind the trip's start reading.
func (e *Engine) Complete(ctx context.Context, vehicleID, driverID string, endOdometer int64) (*models.Vehicle, *models.Driver, error) {
	vehicle, err := e.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, nil, err
	}
	driver, err := e.drivers.FindDriverByID(ctx, driverID)
	if err != nil {
		return nil, nil, err
	}

	vehicle.Status = models.VehicleAvailable
	vehicle.Odometer = endOdometer
	if err := e.vehicles.UpdateVehicle(ctx, vehicleID, *vehicle); err != nil {
		return nil, nil, err
	}

	driver.Status = models.DriverOffDuty
	if err := e.drivers.UpdateDriver(ctx, driverID, *driver); err != nil {
		return nil, nil, err
	}

	e.events.Publish("vehicleUpdated", vehicle)
	e.events.Publish("driverUpdated", driver)

	return vehicle, driver, nil
}

// Cancel releases a vehicle and driver without touching the odometer. Used
// both for explicit cancellation of a dispatched trip and for soft-delete
// cleanup.
func (e *Engine) Cancel(ctx context.Context, vehicleID, driverID string) error {
	vehicle, err := e.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	driver, err := e.drivers.FindDriverByID(ctx, driverID)
	if err != nil {
		return err
	}

	vehicle.Status = models.VehicleAvailable
	if err := e.vehicles.UpdateVehicle(ctx, vehicleID, *vehicle); err != nil {
		return err
	}

	driver.Status = models.DriverOffDuty
	if err := e.drivers.UpdateDriver(ctx, driverID, *driver); err != nil {
		return err
	}

	e.events.Publish("vehicleUpdated", vehicle)
	e.events.Publish("driverUpdated", driver)

	return nil
}

// LogMaintenance moves a vehicle into the shop. Fails if the vehicle is
// currently On Trip.
func (e *Engine) LogMaintenance(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	vehicle, err := e.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	if vehicle.Status == models.VehicleOnTrip {
		return nil, ErrVehicleOnTrip
	}

	vehicle.Status = models.VehicleInShop
	if err := e.vehicles.UpdateVehicle(ctx, vehicleID, *vehicle); err != nil {
		return nil, err
	}

	e.events.Publish("vehicleUpdated", vehicle)

	return vehicle, nil
}
