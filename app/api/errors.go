package api

import (
	"errors"
	"log/slog"

	"prdchat/app/model"

	"github.com/gofiber/fiber/v2"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func statusOf(err error) int {
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, model.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, model.ErrInvalidArgument):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := statusOf(err)

	detail := err.Error()
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		detail = fiberErr.Message
	} else if status == fiber.StatusNotFound {
		detail = "Chat session not found"
	}

	if status >= fiber.StatusInternalServerError {
		slog.Error("Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err,
		)
	}

	return c.Status(status).JSON(errorResponse{Detail: detail})
}
