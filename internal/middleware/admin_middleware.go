package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lromero/commerce-api/internal/models"
)

// NewAdminMiddleware gates a route to admin sessions. It must run after the
// auth middleware.
func NewAdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
		}
		if session.Role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied. Admins only."})
		}
		return c.Next()
	}
}
