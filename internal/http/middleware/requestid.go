package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the header a caller may use to supply its own ID.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is where the ID lives in Fiber's context locals,
	// read by the request logger and the error envelope.
	RequestIDLocalKey = "request_id"
)

// RequestID ensures every generation and download request carries an ID.
// The caller's X-Request-ID is kept when present, otherwise a fresh UUID
// is minted. The ID is echoed on the response so a failed declaration can
// be correlated with its server-side log lines.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}
