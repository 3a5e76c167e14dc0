package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// ConfirmQuery is the query parameter a client sets to confirm a
// destructive request.
const ConfirmQuery = "confirm"

// RequireConfirmation is a Fiber middleware that refuses destructive
// requests unless the client explicitly confirms them with ?confirm=true
// or an "X-Confirm: true" header.
func RequireConfirmation() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.QueryBool(ConfirmQuery) || c.Get("X-Confirm") == "true" {
			return c.Next()
		}
		return c.Status(fiber.StatusPreconditionRequired).JSON(fiber.Map{
			"message": "Confirmation required: repeat the request with ?confirm=true",
		})
	}
}
