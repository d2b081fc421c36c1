package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"riverway/internal/models"
)

// Session keys shared with the auth handler.
const (
	SessionUserSub       = "user_sub"
	SessionRedirectAfter = "redirect_after_login"
)

// UserStore loads the signed-in user.
type UserStore interface {
	GetUserBySub(ctx context.Context, sub string) (*models.User, error)
}

// AuthMiddleware handles user authentication via sessions.
type AuthMiddleware struct {
	db UserStore
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(db UserStore) *AuthMiddleware {
	return &AuthMiddleware{db: db}
}

// CurrentUser returns the user loaded by the auth middleware, or nil.
func CurrentUser(c fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// loadUser resolves the session's user. A session pointing at a deleted
// user is destroyed.
func (m *AuthMiddleware) loadUser(c fiber.Ctx) *models.User {
	sess := session.FromContext(c)
	if sess == nil {
		return nil
	}

	userSub, ok := sess.Get(SessionUserSub).(string)
	if !ok || userSub == "" {
		return nil
	}

	user, err := m.db.GetUserBySub(c.Context(), userSub)
	if err != nil {
		_ = sess.Destroy()
		return nil
	}
	return user
}

// WantsJSON reports whether the caller is an API client rather than a browser page.
func WantsJSON(c fiber.Ctx) bool {
	if strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/chatbot/") || strings.HasPrefix(c.Path(), "/admin/") {
		return true
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// RequireAuth ensures the user is authenticated. Browsers are sent to the
// login page and come back afterwards; API clients get a 401.
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	user := m.loadUser(c)
	if user == nil {
		if WantsJSON(c) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status": "error",
				"error":  "authentication required",
			})
		}
		if sess := session.FromContext(c); sess != nil {
			sess.Set(SessionRedirectAfter, c.OriginalURL())
		}
		return c.Redirect().To("/auth/login")
	}

	c.Locals("user", user)
	return c.Next()
}

// OptionalAuth loads the user if authenticated, but doesn't require authentication.
func (m *AuthMiddleware) OptionalAuth(c fiber.Ctx) error {
	if user := m.loadUser(c); user != nil {
		c.Locals("user", user)
	}
	return c.Next()
}

// RequireStaff must run after RequireAuth. It rejects customers.
func RequireStaff(c fiber.Ctx) error {
	user := CurrentUser(c)
	if user == nil || !user.IsStaff() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status": "error",
			"error":  "Permission denied",
		})
	}
	return c.Next()
}
