package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"civicwatch/internal/db"
	"civicwatch/internal/models"
)

// SessionUserKey is the session key holding the OIDC subject of the signed-in user.
const SessionUserKey = "user_sub"

// UserLookup resolves the session subject to a user.
type UserLookup interface {
	GetUserBySub(ctx context.Context, sub string) (*models.User, error)
}

// AuthMiddleware handles user authentication via sessions.
type AuthMiddleware struct {
	users UserLookup
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{users: users}
}

// CurrentUser returns the user loaded by RequireAuth or OptionalAuth, or nil.
func CurrentUser(c fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

func isAPIRequest(c fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}

func unauthorized(c fiber.Ctx) error {
	if isAPIRequest(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status": "error",
			"error":  "authentication required",
		})
	}
	if sess := session.FromContext(c); sess != nil && c.Method() == fiber.MethodGet {
		sess.Set("redirect_after_login", c.OriginalURL())
	}
	return c.Redirect().To("/login")
}

// loadUser resolves the session user. A session pointing at a deleted user is destroyed.
func (m *AuthMiddleware) loadUser(c fiber.Ctx) (*models.User, error) {
	sess := session.FromContext(c)
	if sess == nil {
		return nil, nil
	}

	sub, _ := sess.Get(SessionUserKey).(string)
	if sub == "" {
		return nil, nil
	}

	user, err := m.users.GetUserBySub(c.Context(), sub)
	if errors.Is(err, db.ErrUserNotFound) {
		_ = sess.Destroy()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RequireAuth ensures the user is authenticated. API requests get a JSON 401;
// page requests are redirected to /login.
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	user, err := m.loadUser(c)
	if err != nil {
		slog.ErrorContext(c.Context(), "failed to load session user", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load user")
	}
	if user == nil {
		return unauthorized(c)
	}

	c.Locals("user", user)
	return c.Next()
}

// OptionalAuth loads the user if authenticated, but doesn't require authentication.
func (m *AuthMiddleware) OptionalAuth(c fiber.Ctx) error {
	user, err := m.loadUser(c)
	if err != nil {
		slog.WarnContext(c.Context(), "failed to load session user", "error", err)
	}
	if user != nil {
		c.Locals("user", user)
	}
	return c.Next()
}

// RequireAdmin must run after RequireAuth and rejects non-administrators.
func RequireAdmin(c fiber.Ctx) error {
	user := CurrentUser(c)
	if user == nil {
		return unauthorized(c)
	}
	if !user.IsAdmin() {
		if isAPIRequest(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status": "error",
				"error":  "admin access required",
			})
		}
		return fiber.NewError(fiber.StatusForbidden, "admin access required")
	}
	return c.Next()
}
