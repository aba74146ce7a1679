// Package telemetry ingests odometer readings published by on-board units
// over MQTT and advances the matching vehicle's odometer. Readings at or
// behind the stored value are dropped, so replays and out-of-order messages
// cannot move the odometer backwards.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/db"
)

const odometerTopic = "fleet/+/odometer"

// OdometerReading is the payload published on fleet/{vehicleId}/odometer.
type OdometerReading struct {
	Odometer   int64     `json:"odometer"`
	RecordedAt time.Time `json:"recordedAt,omitempty"`
}

// Subscriber consumes odometer readings for the whole fleet.
type Subscriber struct {
	client   mqtt.Client
	vehicles db.VehicleCollection
	logger   *log.Logger
	timeout  time.Duration
}

// NewSubscriber creates a subscriber connected to the given broker URL.
func NewSubscriber(broker string, vehicles db.VehicleCollection, logger *log.Logger) *Subscriber {
	s := &Subscriber{
		vehicles: vehicles,
		logger:   logger,
		timeout:  10 * time.Second,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("fleetflow-telemetry").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.WithField("broker", broker).Info("Connected to MQTT broker")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.WithError(err).Warn("MQTT connection lost")
		})

	s.client = mqtt.NewClient(opts)
	return s
}

// Start connects to the broker and subscribes to odometer readings.
func (s *Subscriber) Start() error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	handler := func(c mqtt.Client, msg mqtt.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.apply(ctx, msg.Topic(), msg.Payload()); err != nil {
			s.logger.WithError(err).WithField("topic", msg.Topic()).Warn("Dropped odometer reading")
		}
	}

	if token := s.client.Subscribe(odometerTopic, 1, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", odometerTopic, token.Error())
	}

	s.logger.WithField("topic", odometerTopic).Info("Subscribed to odometer telemetry")
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (s *Subscriber) Stop() {
	s.client.Unsubscribe(odometerTopic)
	s.client.Disconnect(250)
}

// apply processes one reading. The vehicle ID comes from the topic, not the
// payload, so a unit cannot report for another vehicle by mislabeling the
// body.
func (s *Subscriber) apply(ctx context.Context, topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "fleet" || parts[2] != "odometer" {
		return fmt.Errorf("unexpected topic %q", topic)
	}
	vehicleID := parts[1]

	var reading OdometerReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return fmt.Errorf("invalid odometer payload: %w", err)
	}

	vehicle, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return err
	}

	if reading.Odometer <= vehicle.Odometer {
		s.logger.WithFields(log.Fields{
			"vehicle_id": vehicleID,
			"reading":    reading.Odometer,
			"stored":     vehicle.Odometer,
		}).Debug("Stale odometer reading ignored")
		return nil
	}

	vehicle.Odometer = reading.Odometer
	if err := s.vehicles.UpdateVehicle(ctx, vehicleID, *vehicle); err != nil {
		return err
	}

	s.logger.WithFields(log.Fields{
		"vehicle_id": vehicleID,
		"odometer":   reading.Odometer,
	}).Debug("Odometer advanced from telemetry")
	return nil
}
