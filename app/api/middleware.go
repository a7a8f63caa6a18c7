package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// requestLogger writes one log line per request. Handler errors are rendered here so
// the logged status is the one sent to the client.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().Config().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		level := slog.LevelDebug
		if status >= fiber.StatusBadRequest {
			level = slog.LevelWarn
		}

		slog.Log(c.UserContext(), level, "HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
		)

		return nil
	}
}
