package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lromero/commerce-api/internal/models"
)

// SessionKey is the fiber locals key the restored session lives under.
const SessionKey = "session"

const cookieName = "session_token"

// NewAuthMiddleware validates the session token (Authorization header or
// cookie) and stores the session snapshot in the request locals.
func NewAuthMiddleware(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		tokenString := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString = c.Cookies(cookieName)
		}
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
		}

		session, ok := sessionFromClaims(claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token payload"})
		}

		c.Locals(SessionKey, session)
		return c.Next()
	}
}

// SessionFrom returns the session stored by the auth middleware.
func SessionFrom(c *fiber.Ctx) (models.Session, bool) {
	session, ok := c.Locals(SessionKey).(models.Session)
	return session, ok
}

func sessionFromClaims(claims jwt.MapClaims) (models.Session, bool) {
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return models.Session{}, false
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return models.Session{}, false
	}

	session := models.Session{UserID: userID, Role: role}
	session.FirstName, _ = claims["first_name"].(string)
	session.LastName, _ = claims["last_name"].(string)
	session.Email, _ = claims["email"].(string)
	session.Cart, _ = claims["cart"].(string)
	if age, ok := claims["age"].(float64); ok {
		session.Age = int(age)
	}
	return session, true
}
