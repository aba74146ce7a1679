package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/audit"
	"github.com/ukydev/fleetflow/internal/auth"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/engine"
	"github.com/ukydev/fleetflow/internal/handlers"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/models"
	"github.com/ukydev/fleetflow/internal/notify"
	"github.com/ukydev/fleetflow/internal/telemetry"
)

func newLogger() *log.Logger {
	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

func main() {
	godotenv.Load()
	logger := newLogger()

	client, err := db.ConnectMongo()
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	database := db.Database(client)
	logger.Info("Connected to MongoDB")

	vehicles := &db.MongoVehicleCollection{Collection: database.Collection("vehicles")}
	drivers := &db.MongoDriverCollection{Collection: database.Collection("drivers")}
	trips := &db.MongoTripCollection{Collection: database.Collection("trips")}
	maintenance := &db.MongoMaintenanceCollection{Collection: database.Collection("maintenance")}
	fuel := &db.MongoFuelCollection{Collection: database.Collection("fuel")}
	incidents := &db.MongoIncidentCollection{Collection: database.Collection("incidents")}
	auditLogs := &db.MongoAuditLogCollection{Collection: database.Collection("audit_logs")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}

	authService, err := auth.NewService()
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize auth service")
	}
	authMW := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()

	hub := notify.NewHub(logger)
	go hub.Run()

	statusEngine := engine.New(vehicles, drivers, hub)
	recorder := audit.NewRecorder(auditLogs, logger)

	authHandler := handlers.NewAuthHandler(users, authService, logger)
	vehicleHandler := handlers.NewVehicleHandler(vehicles, recorder, hub)
	driverHandler := handlers.NewDriverHandler(drivers, recorder, hub)
	tripHandler := handlers.NewTripHandler(trips, vehicles, drivers, statusEngine, recorder, hub)
	maintenanceHandler := handlers.NewMaintenanceHandler(maintenance, vehicles, statusEngine, recorder, hub)
	fuelHandler := handlers.NewFuelHandler(fuel, vehicles, hub)
	incidentHandler := handlers.NewIncidentHandler(incidents, drivers, recorder, hub)

	manager := authMW.RequireRole(models.RoleFleetManager)
	managerOrDispatcher := authMW.RequireRole(models.RoleFleetManager, models.RoleDispatcher)
	driverUpdaters := authMW.RequireRole(models.RoleFleetManager, models.RoleDispatcher, models.RoleSafetyOfficer)
	tripUpdaters := authMW.RequireRole(models.RoleFleetManager, models.RoleDispatcher, models.RoleDriver)
	safety := authMW.RequireRole(models.RoleFleetManager, models.RoleSafetyOfficer)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws", hub.ServeWS)

	// Auth
	mux.Handle("POST /api/auth/login", middleware.Chain(
		http.HandlerFunc(authHandler.Login), rateLimiter.RateLimit(10, 60)))
	mux.Handle("POST /api/auth/register", middleware.Chain(
		http.HandlerFunc(authHandler.Register), rateLimiter.RateLimit(10, 60)))
	mux.Handle("GET /api/auth/me", authMW.Authenticate(http.HandlerFunc(authHandler.Me)))

	authed := func(h http.HandlerFunc, middlewares ...func(http.Handler) http.Handler) http.Handler {
		return authMW.Authenticate(middleware.Chain(h, middlewares...))
	}

	// Vehicles
	mux.Handle("GET /api/vehicles", authed(vehicleHandler.List))
	mux.Handle("GET /api/vehicles/{id}", authed(vehicleHandler.Get))
	mux.Handle("POST /api/vehicles", authed(vehicleHandler.Create, managerOrDispatcher))
	mux.Handle("PUT /api/vehicles/{id}", authed(vehicleHandler.Update, managerOrDispatcher))
	mux.Handle("DELETE /api/vehicles/{id}", authed(vehicleHandler.Delete, manager))

	// Drivers
	mux.Handle("GET /api/drivers", authed(driverHandler.List))
	mux.Handle("GET /api/drivers/{id}", authed(driverHandler.Get))
	mux.Handle("POST /api/drivers", authed(driverHandler.Create, managerOrDispatcher))
	mux.Handle("PUT /api/drivers/{id}", authed(driverHandler.Update, driverUpdaters))
	mux.Handle("DELETE /api/drivers/{id}", authed(driverHandler.Delete, manager))

	// Trips
	mux.Handle("GET /api/trips", authed(tripHandler.List))
	mux.Handle("GET /api/trips/{id}", authed(tripHandler.Get))
	mux.Handle("POST /api/trips", authed(tripHandler.Create, managerOrDispatcher))
	mux.Handle("PUT /api/trips/{id}", authed(tripHandler.Update, tripUpdaters))
	mux.Handle("DELETE /api/trips/{id}", authed(tripHandler.Delete, manager))

	// Maintenance
	mux.Handle("GET /api/maintenance", authed(maintenanceHandler.List))
	mux.Handle("POST /api/maintenance", authed(maintenanceHandler.Create, managerOrDispatcher))
	mux.Handle("PUT /api/maintenance/{id}", authed(maintenanceHandler.Update, manager))
	mux.Handle("DELETE /api/maintenance/{id}", authed(maintenanceHandler.Delete, manager))

	// Fuel
	mux.Handle("GET /api/fuel", authed(fuelHandler.List))
	mux.Handle("POST /api/fuel", authed(fuelHandler.Create, managerOrDispatcher))
	mux.Handle("PUT /api/fuel/{id}", authed(fuelHandler.Update, manager))
	mux.Handle("DELETE /api/fuel/{id}", authed(fuelHandler.Delete, manager))

	// Incidents
	mux.Handle("GET /api/incidents", authed(incidentHandler.List, safety))
	mux.Handle("POST /api/incidents", authed(incidentHandler.Create, safety))
	mux.Handle("DELETE /api/incidents/{id}", authed(incidentHandler.Delete, manager))

	// Odometer telemetry is optional; without a broker the API still serves
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		subscriber := telemetry.NewSubscriber(broker, vehicles, logger)
		if err := subscriber.Start(); err != nil {
			logger.WithError(err).Error("Failed to start odometer telemetry")
		} else {
			defer subscriber.Stop()
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.WithField("port", port).Info("HTTP server listening")
	if err := http.ListenAndServe(":"+port, middleware.CORS(mux)); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
}
