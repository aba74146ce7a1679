package handlers

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/auth"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/models"
)

// AuthHandler serves login, registration and the current-user lookup.
type AuthHandler struct {
	users       db.UserCollection
	authService *auth.Service
	logger      *log.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users db.UserCollection, authService *auth.Service, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		users:       users,
		authService: authService,
		logger:      logger,
	}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.FindUserByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsActive {
		respondError(w, http.StatusUnauthorized, "Account is disabled")
		return
	}
	if !h.authService.CheckPassword(req.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate token")
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	if err := h.users.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		h.logger.WithError(err).Warn("Failed to update last login")
	}

	respondJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	if err := h.authService.ValidateEmail(req.Email); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.authService.ValidatePassword(req.Password); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !models.IsValidRole(req.Role) {
		respondError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	email := strings.ToLower(req.Email)
	if _, err := h.users.FindUserByEmail(r.Context(), email); err == nil {
		respondError(w, http.StatusBadRequest, "A user with this email already exists")
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		respondError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	user, err := h.users.InsertUser(r.Context(), models.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.WithFields(log.Fields{"email": email, "role": req.Role}).Info("User registered")

	respondJSON(w, http.StatusCreated, user)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User context not found")
		return
	}

	user, err := h.users.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
