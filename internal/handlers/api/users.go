package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"riverway/internal/db"
	"riverway/internal/middleware"
	"riverway/internal/models"
	"riverway/internal/validation"
)

// UserDB is the account persistence.
type UserDB interface {
	GetAllUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, userID uuid.UUID, role string) error
	UpdateUserPhone(ctx context.Context, userID uuid.UUID, phone string) error
}

// UserHandler handles the signed-in profile and staff account management.
type UserHandler struct {
	db     UserDB
	logger *zap.Logger
}

// NewUserHandler creates a new API user handler.
func NewUserHandler(database UserDB, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{db: database, logger: logger.Named("users")}
}

// Profile handles GET /api/profile.
func (h *UserHandler) Profile(c fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return jsonError(c, fiber.StatusUnauthorized, "authentication required")
	}
	return jsonSuccess(c, user)
}

// UpdateProfile handles PUT /api/profile. Only the phone number is editable;
// everything else comes from the identity provider.
func (h *UserHandler) UpdateProfile(c fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return jsonError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var body struct {
		Phone string `json:"phone"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	phone := strings.TrimSpace(body.Phone)
	if phone != "" && !validation.ValidatePhone(phone) {
		return jsonError(c, fiber.StatusBadRequest, "A valid phone number is required")
	}

	if err := h.db.UpdateUserPhone(c.Context(), user.ID, phone); err != nil {
		h.logger.Error("failed to update phone", zap.Error(err), zap.String("user_id", user.ID.String()))
		return jsonError(c, fiber.StatusInternalServerError, "failed to update profile")
	}
	user.Phone = phone
	return jsonSuccess(c, user)
}

// List returns all accounts, staff first (admin only).
func (h *UserHandler) List(c fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil || !user.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	users, err := h.db.GetAllUsers(c.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch users")
	}
	if users == nil {
		users = []models.User{}
	}
	return jsonSuccess(c, users)
}

// UpdateRole promotes or demotes an account (admin only).
func (h *UserHandler) UpdateRole(c fiber.Ctx) error {
	currentUser := middleware.CurrentUser(c)
	if currentUser == nil || !currentUser.IsAdmin() {
		return jsonError(c, fiber.StatusForbidden, "admin access required")
	}

	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if body.Role == "" {
		return jsonError(c, fiber.StatusBadRequest, "role is required")
	}

	validRoles := map[string]bool{
		models.RoleCustomer: true,
		models.RoleStaff:    true,
		models.RoleAdmin:    true,
	}
	if !validRoles[body.Role] {
		return jsonError(c, fiber.StatusBadRequest, "invalid role")
	}

	if userID == currentUser.ID && body.Role != models.RoleAdmin {
		return jsonError(c, fiber.StatusBadRequest, "cannot change your own role")
	}

	if err := h.db.UpdateUserRole(c.Context(), userID, body.Role); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return jsonError(c, fiber.StatusNotFound, "user not found")
		}
		h.logger.Error("failed to update role", zap.Error(err), zap.String("user_id", userID.String()))
		return jsonError(c, fiber.StatusInternalServerError, "failed to update role")
	}

	h.logger.Info("role updated",
		zap.String("user_id", userID.String()),
		zap.String("role", body.Role),
		zap.String("by", currentUser.ID.String()),
	)
	return jsonSuccess(c, fiber.Map{
		"message": "role updated successfully",
	})
}
