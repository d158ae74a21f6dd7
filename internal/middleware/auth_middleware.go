package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/kos-api/internal/lifecycle"
	"github.com/rajivgeraev/kos-api/internal/models"
	"github.com/rajivgeraev/kos-api/internal/utils"
)

// Ключи c.Locals, которые заполняет AuthMiddleware
const (
	LocalUserID = "userID"
	LocalRole   = "role"
)

// AuthMiddleware создаёт middleware для проверки JWT
func AuthMiddleware(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return reject(c, fiber.StatusUnauthorized, lifecycle.KindUnauthorized, "Missing authorization header")
		}

		// Проверяем Bearer токен
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return reject(c, fiber.StatusUnauthorized, lifecycle.KindUnauthorized, "Invalid authorization header format")
		}

		userID, role, err := jwtService.ExtractIdentity(parts[1])
		if err != nil {
			return reject(c, fiber.StatusUnauthorized, lifecycle.KindUnauthorized, "Invalid or expired token")
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalRole, role)

		return c.Next()
	}
}

// RequireRole пропускает только пользователей с указанной ролью
func RequireRole(role models.Role) fiber.Handler {
	return func(c fiber.Ctx) error {
		if r, _ := c.Locals(LocalRole).(models.Role); r != role {
			return reject(c, fiber.StatusForbidden, lifecycle.KindForbidden, "Access denied")
		}
		return c.Next()
	}
}

// Identity возвращает проверенного пользователя из контекста запроса
func Identity(c fiber.Ctx) (int64, models.Role, bool) {
	userID, ok := c.Locals(LocalUserID).(int64)
	if !ok || userID <= 0 {
		return 0, "", false
	}
	role, _ := c.Locals(LocalRole).(models.Role)
	return userID, role, true
}

func reject(c fiber.Ctx, status int, kind lifecycle.Kind, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"kind":    kind,
		"error":   msg,
	})
}
