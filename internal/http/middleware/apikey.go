package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// APIKeyHeader carries the shared secret gating protected endpoints.
const APIKeyHeader = "X-API-Key"

// APIKey gates a route behind a shared secret. Possession of the key is
// the only authorization model; there are no tenants or roles.
//
// A missing server-side secret is a configuration error answered with 500
// on every protected request, not a silent bypass. A missing or wrong
// client key is a 401.
func APIKey(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return fiber.NewError(fiber.StatusInternalServerError, "api key not configured")
		}

		supplied := c.Get(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(secret)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid api key")
		}

		return c.Next()
	}
}
