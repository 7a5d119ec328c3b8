package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rastreobus/rastreobus/pkg/auth"
)

// EnsureValidToken is a middleware that will check the validity of our JWT.
func EnsureValidToken() fiber.Handler {
	secret := auth.SigningSecret()

	return func(c *fiber.Ctx) (err error) {
		authHeader := c.Get("Authorization")

		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.SendStatus(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Authorization header is required",
			})
		}

		claims, parseErr := auth.Parse(authHeader[7:], secret)
		if parseErr != nil {
			c.SendStatus(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Invalid auth token",
			})
		}

		c.Locals("account_driverid", claims.Subject)
		c.Locals("account_plate", claims.Plate)

		return c.Next()
	}
}
