// Simulator drives the fleet API with realistic activity: it registers
// vehicles and drivers, then runs dispatch/complete/cancel cycles against the
// trip endpoints. With MQTT_BROKER set it also publishes odometer readings
// while trips are underway, the way on-board units do.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

var (
	apiURL    string
	authToken string
)

var vehicleModels = map[string][]string{
	"Van":   {"Sprinter", "Transit", "ProMaster"},
	"Truck": {"Actros", "FH16", "579"},
	"Car":   {"Corolla", "Golf", "Focus"},
}

var driverNames = []string{"Alex", "Dana", "Kim", "Sam", "Riley", "Jordan", "Casey", "Morgan"}

func doJSON(method, path string, payload any, out any) (int, error) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequest(method, apiURL+path, &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func login(email, password string) error {
	var result struct {
		Token string `json:"token"`
	}
	status, err := doJSON(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &result)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("login failed with status %d", status)
	}
	authToken = result.Token
	return nil
}

func createVehicle(i int) (string, error) {
	vtype := []string{"Van", "Truck", "Car"}[rand.Intn(3)]
	models := vehicleModels[vtype]

	var result struct {
		ID string `json:"id"`
	}
	status, err := doJSON(http.MethodPost, "/vehicles", map[string]any{
		"model":           models[rand.Intn(len(models))],
		"licensePlate":    fmt.Sprintf("SIM-%04d", i),
		"maxCapacity":     500 + rand.Float64()*1500,
		"odometer":        rand.Int63n(100000),
		"acquisitionCost": 20000 + rand.Float64()*60000,
		"type":            vtype,
		"region":          []string{"North", "South", "East", "West"}[rand.Intn(4)],
	}, &result)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("vehicle creation failed with status %d", status)
	}

	log.WithFields(log.Fields{"vehicle_id": result.ID, "type": vtype}).Info("Created vehicle")
	return result.ID, nil
}

func createDriver(i int) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	status, err := doJSON(http.MethodPost, "/drivers", map[string]any{
		"name":              fmt.Sprintf("%s %d", driverNames[rand.Intn(len(driverNames))], i),
		"licenseExpiryDate": time.Now().AddDate(1+rand.Intn(4), 0, 0).Format(time.RFC3339),
	}, &result)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("driver creation failed with status %d", status)
	}

	log.WithField("driver_id", result.ID).Info("Created driver")
	return result.ID, nil
}

type tripResult struct {
	ID            string `json:"id"`
	StartOdometer *int64 `json:"startOdometer"`
}

func runTripCycle(mqttClient mqtt.Client, vehicleID, driverID string, interval time.Duration) {
	var trip tripResult
	status, err := doJSON(http.MethodPost, "/trips", map[string]any{
		"vehicleId":   vehicleID,
		"driverId":    driverID,
		"cargoWeight": 50 + rand.Float64()*400,
		"status":      "Dispatched",
	}, &trip)
	if err != nil {
		log.WithError(err).Error("Failed to create trip")
		return
	}
	if status != http.StatusCreated {
		// Busy vehicle or driver; normal under concurrent cycles
		log.WithField("status", status).Debug("Trip not dispatched")
		return
	}

	start := int64(0)
	if trip.StartOdometer != nil {
		start = *trip.StartOdometer
	}
	log.WithFields(log.Fields{"trip_id": trip.ID, "start_odometer": start}).Info("Trip dispatched")

	// Drive for a few ticks, optionally publishing odometer telemetry
	distance := int64(0)
	ticks := 2 + rand.Intn(4)
	for i := 0; i < ticks; i++ {
		time.Sleep(interval)
		distance += 10 + rand.Int63n(90)
		if mqttClient != nil {
			payload, _ := json.Marshal(map[string]any{
				"odometer":   start + distance,
				"recordedAt": time.Now().Format(time.RFC3339),
			})
			topic := fmt.Sprintf("fleet/%s/odometer", vehicleID)
			mqttClient.Publish(topic, 1, false, payload)
		}
	}

	// Mostly complete, occasionally cancel
	if rand.Float64() < 0.85 {
		status, err = doJSON(http.MethodPut, "/trips/"+trip.ID, map[string]any{
			"status":      "Completed",
			"endOdometer": start + distance,
		}, nil)
	} else {
		status, err = doJSON(http.MethodPut, "/trips/"+trip.ID, map[string]any{
			"status": "Cancelled",
		}, nil)
	}
	if err != nil {
		log.WithError(err).Error("Failed to close trip")
		return
	}
	log.WithFields(log.Fields{"trip_id": trip.ID, "status": status, "distance_km": distance}).Info("Trip closed")
}

func fleetSizeFromEnv() int {
	size := 5
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			size = n
		}
	}
	return size
}

func intervalFromEnv() time.Duration {
	interval := 2 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}
	return interval
}

func main() {
	apiURL = os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	email := os.Getenv("SIM_EMAIL")
	password := os.Getenv("SIM_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("SIM_EMAIL and SIM_PASSWORD are required")
	}
	if err := login(email, password); err != nil {
		log.WithError(err).Fatal("Login failed")
	}

	fleetSize := fleetSizeFromEnv()
	interval := intervalFromEnv()

	var mqttClient mqtt.Client
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("fleetflow-simulator")
		mqttClient = mqtt.NewClient(opts)
		if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).Warn("MQTT unavailable, continuing without telemetry")
			mqttClient = nil
		}
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting fleet simulation")

	type pair struct{ vehicleID, driverID string }
	pairs := make([]pair, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		vehicleID, err := createVehicle(i + 1)
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		driverID, err := createDriver(i + 1)
		if err != nil {
			log.WithError(err).Error("Failed to create driver")
			continue
		}
		pairs = append(pairs, pair{vehicleID, driverID})
	}

	if len(pairs) == 0 {
		log.Fatal("No vehicle/driver pairs created. Check credentials and API availability.")
	}

	for _, p := range pairs {
		go func(p pair) {
			for {
				runTripCycle(mqttClient, p.vehicleID, p.driverID, interval)
				time.Sleep(interval)
			}
		}(p)
	}

	log.Info("Fleet simulation started")
	select {}
}
