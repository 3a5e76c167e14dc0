package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestLogger is a Fiber middleware that tags each request with an ID and
// logs its outcome.
func RequestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := uuid.New().String()

		c.Locals("requestID", requestID)
		c.Set("X-Request-ID", requestID)

		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("request_id", requestID),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		}

		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			logger.LogAttrs(c.UserContext(), slog.LevelError, "request error", attrs...)
		case status >= fiber.StatusInternalServerError:
			logger.LogAttrs(c.UserContext(), slog.LevelError, "server error", attrs...)
		case status >= fiber.StatusBadRequest:
			logger.LogAttrs(c.UserContext(), slog.LevelWarn, "client error", attrs...)
		default:
			logger.LogAttrs(c.UserContext(), slog.LevelInfo, "request completed", attrs...)
		}
		return err
	}
}
