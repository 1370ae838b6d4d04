package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"civicwatch/internal/db"
	"civicwatch/internal/middleware"
	"civicwatch/internal/models"
)

// UserHandler handles user management operations via JSON API.
type UserHandler struct {
	users UserStore
}

// NewUserHandler creates a new API user handler.
func NewUserHandler(users UserStore) *UserHandler {
	return &UserHandler{users: users}
}

// List returns all users (admin only).
func (h *UserHandler) List(c fiber.Ctx) error {
	users, err := h.users.ListUsers(c.Context())
	if err != nil {
		slog.ErrorContext(c.Context(), "failed to list users", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch users")
	}
	if users == nil {
		users = []models.User{}
	}
	return jsonSuccess(c, users)
}

// UpdateRole updates a user's role (admin only). Administrators cannot demote themselves.
func (h *UserHandler) UpdateRole(c fiber.Ctx) error {
	currentUser := middleware.CurrentUser(c)
	if currentUser == nil {
		return jsonError(c, fiber.StatusUnauthorized, "authentication required")
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

	role := strings.TrimSpace(body.Role)
	if role == "" {
		return jsonError(c, fiber.StatusBadRequest, "role is required")
	}
	if !models.IsValidRole(role) {
		return jsonError(c, fiber.StatusBadRequest, "invalid role")
	}

	if userID == currentUser.ID && role != models.RoleAdmin {
		return jsonError(c, fiber.StatusBadRequest, "cannot change your own role")
	}

	if err := h.users.UpdateUserRole(c.Context(), userID, role); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return jsonError(c, fiber.StatusNotFound, "user not found")
		}
		slog.ErrorContext(c.Context(), "failed to update role", "user_id", userID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to update role")
	}

	slog.InfoContext(c.Context(), "user role updated", "user_id", userID, "role", role, "by", currentUser.ID)
	return jsonSuccess(c, fiber.Map{
		"message": "role updated successfully",
	})
}
